package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/vlogbook/backend/internal/auth"
	"github.com/zfogg/vlogbook/backend/internal/content"
	"github.com/zfogg/vlogbook/backend/internal/database"
	"github.com/zfogg/vlogbook/backend/internal/email"
	"github.com/zfogg/vlogbook/backend/internal/engagement"
	"github.com/zfogg/vlogbook/backend/internal/events"
	"github.com/zfogg/vlogbook/backend/internal/media"
	"github.com/zfogg/vlogbook/backend/internal/profile"
	"github.com/zfogg/vlogbook/backend/internal/repository"
	"github.com/zfogg/vlogbook/backend/internal/storage"
	"github.com/zfogg/vlogbook/backend/internal/visibility"
	"gorm.io/gorm"
)

// stubProcessor reports every clip as five seconds long
type stubProcessor struct {
	duration time.Duration
}

func (p stubProcessor) Probe(ctx context.Context, path string) (*media.VideoInfo, error) {
	return &media.VideoInfo{Duration: p.duration, Width: 640, Height: 360, Codec: "h264"}, nil
}

func (p stubProcessor) Thumbnail(ctx context.Context, path string, at time.Duration) ([]byte, error) {
	return []byte("fake-jpeg"), nil
}

type session struct {
	id     string
	access string
}

// HandlersTestSuite drives the full route table against SQLite
type HandlersTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	notifier *email.MemoryNotifier
	alice    session
	bob      session
	carol    session
}

func (s *HandlersTestSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())

	users := repository.NewUserRepository(s.db)
	relations := repository.NewRelationshipRepository(s.db)
	bus := events.NewBus()
	filter := visibility.NewFilter(s.db, relations)
	filter.Subscribe(bus)
	ledger := engagement.NewLedger(s.db, filter)
	store := content.NewStore(s.db, filter, ledger)
	profiles := profile.NewAggregator(s.db, users, relations, filter, store, bus)
	profiles.Subscribe(bus)

	s.notifier = &email.MemoryNotifier{}
	authService := auth.NewService(s.db, users, bus, s.notifier, auth.Config{JWTSecret: "handlers-test-secret"})

	mediaStore, err := storage.NewLocalStore(s.T().TempDir(), "http://localhost/media")
	s.Require().NoError(err)
	pipeline := media.NewPipeline(stubProcessor{duration: 5 * time.Second}, mediaStore, media.DefaultLimits)

	h := NewHandlers(Deps{
		Auth:      authService,
		Users:     users,
		Relations: relations,
		Filter:    filter,
		Ledger:    ledger,
		Content:   store,
		Profiles:  profiles,
		Media:     pipeline,
		Bus:       bus,
		UploadDir: s.T().TempDir(),
	})

	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	h.RegisterRoutes(s.router.Group("/api/v1"), RouteOptions{Validator: authService})

	s.alice = s.signUp("alice")
	s.bob = s.signUp("bob")
	s.carol = s.signUp("carol")
}

func TestHandlersSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func (s *HandlersTestSuite) signUp(username string) session {
	w := s.do(http.MethodPost, "/api/v1/register/", map[string]string{
		"username":  username,
		"email":     username + "@example.com",
		"password":  "correct horse",
		"password2": "correct horse",
	}, "")
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/login/", map[string]string{
		"username": username,
		"password": "correct horse",
	}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := decode(s.T(), w)
	return session{id: body["id"].(string), access: body["access"].(string)}
}

func (s *HandlersTestSuite) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlersTestSuite) upload(path, token string, fields map[string]string, fileField, filename string, data []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		s.Require().NoError(mw.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, filename)
		s.Require().NoError(err)
		_, err = fw.Write(data)
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	errBody, ok := body["error"].(map[string]any)
	if !ok {
		return ""
	}
	code, _ := errBody["code"].(string)
	return code
}

func resultIDs(t *testing.T, w *httptest.ResponseRecorder) []float64 {
	t.Helper()
	body := decode(t, w)
	results, _ := body["results"].([]any)
	ids := make([]float64, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.(map[string]any)["id"].(float64))
	}
	return ids
}

func (s *HandlersTestSuite) createPost(who session, text string) uint {
	w := s.upload("/api/v1/post/createpost/", who.access, map[string]string{"content": text}, "image", "photo.png", []byte("png-bytes"))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	return uint(decode(s.T(), w)["id"].(float64))
}

func (s *HandlersTestSuite) TestLoginResponseShape() {
	w := s.do(http.MethodPost, "/api/v1/login/", map[string]string{"username": "alice", "password": "correct horse"}, "")
	s.Require().Equal(http.StatusOK, w.Code)
	body := decode(s.T(), w)
	for _, key := range []string{"access", "refresh", "user", "id", "avatar", "is_staff", "is_active", "phone_number", "profile_id"} {
		s.Contains(body, key)
	}
	s.Equal("alice", body["user"])
	s.NotEmpty(body["profile_id"])

	w = s.do(http.MethodPost, "/api/v1/login/", map[string]string{"username": "alice", "password": "nope-nope"}, "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlersTestSuite) TestRefreshToken() {
	w := s.do(http.MethodPost, "/api/v1/login/", map[string]string{"username": "alice", "password": "correct horse"}, "")
	refresh := decode(s.T(), w)["refresh"].(string)

	w = s.do(http.MethodPost, "/api/v1/login/refresh/", map[string]string{"refresh": refresh}, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.NotEmpty(decode(s.T(), w)["access"])

	w = s.do(http.MethodPost, "/api/v1/login/refresh/", map[string]string{"refresh": s.alice.access}, "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlersTestSuite) TestRegisterRejectsMismatchedPasswords() {
	w := s.do(http.MethodPost, "/api/v1/register/", map[string]string{
		"username": "dave", "email": "dave@example.com", "password": "12345678", "password2": "87654321",
	}, "")
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", errorCode(s.T(), w))
}

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

func (s *HandlersTestSuite) TestPasswordResetFlow() {
	w := s.do(http.MethodPost, "/api/v1/forget-password/", map[string]string{"email": "nobody@example.com"}, "")
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/v1/forget-password/", map[string]string{"email": "alice@example.com"}, "")
	s.Require().Equal(http.StatusOK, w.Code)

	msg, ok := s.notifier.Last()
	s.Require().True(ok)
	code := sixDigits.FindString(msg.Body.Text)
	s.Require().NotEmpty(code)

	w = s.do(http.MethodPost, "/api/v1/check-code/", map[string]string{"email": "alice@example.com", "code": code}, "")
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/v1/confirm-password/", map[string]string{
		"email": "alice@example.com", "code": code, "new_password": "battery staple",
	}, "")
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/login/", map[string]string{"username": "alice", "password": "battery staple"}, "")
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlersTestSuite) TestProtectedRoutesRequireToken() {
	w := s.do(http.MethodGet, "/api/v1/block-list/", nil, "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/v1/block-list/", nil, "garbage")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlersTestSuite) TestBlockLifecycle() {
	w := s.do(http.MethodPost, "/api/v1/blocks/", map[string]string{"blocked": s.bob.id}, s.alice.access)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal(true, decode(s.T(), w)["success"])

	w = s.do(http.MethodPost, "/api/v1/blocks/", map[string]string{"blocked": s.bob.id}, s.alice.access)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("DUPLICATE_RELATION", errorCode(s.T(), w))

	w = s.do(http.MethodPost, "/api/v1/blocks/", map[string]string{"blocked": s.alice.id}, s.alice.access)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("SELF_REFERENCE", errorCode(s.T(), w))

	w = s.do(http.MethodPost, "/api/v1/blocks/", map[string]string{"blocked": "missing"}, s.alice.access)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/block-list/", nil, s.alice.access)
	s.Require().Equal(http.StatusOK, w.Code)
	data := decode(s.T(), w)["data"].([]any)
	s.Require().Len(data, 1)
	s.Equal(s.bob.id, data[0].(map[string]any)["blocked_id"])

	w = s.do(http.MethodDelete, "/api/v1/blocks/"+s.bob.id+"/", nil, s.alice.access)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodDelete, "/api/v1/blocks/"+s.bob.id+"/", nil, s.alice.access)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestBlockHidesContentBothWays() {
	alicePost := s.createPost(s.alice, "from alice")
	bobPost := s.createPost(s.bob, "from bob")
	carolPost := s.createPost(s.carol, "from carol")

	w := s.do(http.MethodPost, "/api/v1/blocks/", map[string]string{"blocked": s.bob.id}, s.alice.access)
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/v1/post/", nil, s.alice.access)
	s.ElementsMatch([]float64{float64(alicePost), float64(carolPost)}, resultIDs(s.T(), w))

	w = s.do(http.MethodGet, "/api/v1/post/", nil, s.bob.access)
	s.ElementsMatch([]float64{float64(bobPost), float64(carolPost)}, resultIDs(s.T(), w))

	w = s.do(http.MethodGet, "/api/v1/post/", nil, "")
	s.Len(resultIDs(s.T(), w), 3)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/post/%d/", alicePost), nil, s.bob.access)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/profile/"+s.alice.id+"/", nil, s.bob.access)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestToggleLike() {
	postID := s.createPost(s.alice, "like me")

	w := s.do(http.MethodPost, "/api/v1/post/toggle-like/", map[string]any{"post_id": postID, "user_id": s.alice.id}, s.bob.access)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/v1/post/toggle-like/", map[string]any{"post_id": postID, "user_id": s.bob.id}, s.bob.access)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := decode(s.T(), w)
	s.Equal(true, body["liked"])
	s.Equal(1.0, body["like_count"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/post/%d/", postID), nil, s.bob.access)
	s.Require().Equal(http.StatusOK, w.Code)
	body = decode(s.T(), w)
	s.Equal(true, body["liked"])
	s.Equal(1.0, body["like_count"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/post/%d/likers/", postID), nil, s.alice.access)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(1.0, decode(s.T(), w)["count"])

	w = s.do(http.MethodPost, "/api/v1/post/toggle-like/", map[string]any{"post_id": fmt.Sprint(postID)}, s.bob.access)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(false, decode(s.T(), w)["liked"])

	w = s.do(http.MethodPost, "/api/v1/post/toggle-like/", map[string]any{"post_id": 9999}, s.bob.access)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestHideAndUnhide() {
	postID := s.createPost(s.alice, "hide me")

	w := s.do(http.MethodPost, "/api/v1/post/hide-or-unhide-post/", map[string]any{"post_id": postID}, s.bob.access)
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/v1/post/", nil, s.bob.access)
	s.Empty(resultIDs(s.T(), w))

	w = s.do(http.MethodGet, "/api/v1/post/", nil, s.carol.access)
	s.Len(resultIDs(s.T(), w), 1)

	w = s.do(http.MethodDelete, "/api/v1/post/hide-or-unhide-post/", map[string]any{"post_id": postID}, s.bob.access)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/api/v1/post/", nil, s.bob.access)
	s.Len(resultIDs(s.T(), w), 1)
}

func (s *HandlersTestSuite) TestComments() {
	postID := s.createPost(s.alice, "discuss")

	w := s.do(http.MethodPost, "/api/v1/post/createcomment/", map[string]any{"post_id": postID, "content": "nice"}, s.bob.access)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	commentID := uint(decode(s.T(), w)["id"].(float64))

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/post/%d/comments/", postID), nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(0.0, decode(s.T(), w)["count"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/post/%d/comments/", postID), nil, s.carol.access)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(1.0, decode(s.T(), w)["count"])

	path := fmt.Sprintf("/api/v1/post/%d/comments/%d/", postID, commentID)
	w = s.do(http.MethodPut, path, map[string]string{"content": "hijack"}, s.carol.access)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, path, map[string]string{"content": "very nice"}, s.bob.access)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("very nice", decode(s.T(), w)["content"])

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/post/%d/comments/%d/", postID+1, commentID), nil, s.bob.access)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, path, nil, s.bob.access)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/v1/post/%d/", postID), nil, s.bob.access)
	s.Equal(0.0, decode(s.T(), w)["comment_count"])
}

func (s *HandlersTestSuite) TestPostOwnership() {
	postID := s.createPost(s.alice, "mine")
	path := fmt.Sprintf("/api/v1/post/%d/", postID)

	w := s.do(http.MethodPut, path, map[string]string{"content": "theirs"}, s.bob.access)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, path, map[string]string{"content": "still mine"}, s.alice.access)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("still mine", decode(s.T(), w)["content"])

	w = s.do(http.MethodDelete, path, nil, s.bob.access)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, path, nil, s.alice.access)
	s.Equal(http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, path, nil, s.alice.access)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestCreatePostRejectsNonImage() {
	w := s.upload("/api/v1/post/createpost/", s.alice.access, nil, "image", "notes.txt", []byte("text"))
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("VALIDATION_ERROR", errorCode(s.T(), w))

	w = s.upload("/api/v1/post/createpost/", s.alice.access, map[string]string{"content": "no image"}, "", "", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestVideoUpload() {
	w := s.upload("/api/v1/videos/create/", s.alice.access,
		map[string]string{"title": "my day", "description": "walking"}, "video", "clip.mp4", []byte("mp4-bytes"))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	body := decode(s.T(), w)
	s.Equal("my day", body["title"])
	s.NotEmpty(body["video"])
	s.Equal(5000.0, body["duration_ms"])
	videoID := uint(body["id"].(float64))

	w = s.upload("/api/v1/videos/create/", s.alice.access, map[string]string{"title": "bad"}, "video", "clip.mkv", []byte("x"))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/v1/videos/toggle-like/", map[string]any{"video_id": videoID}, s.bob.access)
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/videos/", nil, s.bob.access)
	s.Require().Equal(http.StatusOK, w.Code)
	results := decode(s.T(), w)["results"].([]any)
	s.Require().Len(results, 1)
	s.Equal(true, results[0].(map[string]any)["liked"])

	w = s.do(http.MethodGet, "/api/v1/profile/"+s.alice.id+"/vlogs/", nil, s.bob.access)
	s.Equal(1.0, decode(s.T(), w)["count"])
}

func (s *HandlersTestSuite) TestFollowRules() {
	w := s.do(http.MethodPost, "/api/v1/follow-user/", map[string]string{"following_id": s.bob.id}, s.alice.access)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/api/v1/follow-user/", map[string]string{"following_id": s.bob.id}, s.alice.access)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("DUPLICATE_RELATION", errorCode(s.T(), w))

	w = s.do(http.MethodPost, "/api/v1/follow-user/", map[string]string{"following_id": "missing"}, s.alice.access)
	s.Equal(http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/api/v1/blocks/", map[string]string{"blocked": s.alice.id}, s.carol.access)
	s.Require().Equal(http.StatusCreated, w.Code)
	w = s.do(http.MethodPost, "/api/v1/follow-user/", map[string]string{"following_id": s.carol.id}, s.alice.access)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/profile/"+s.bob.id+"/followers/", nil, s.carol.access)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(0.0, decode(s.T(), w)["count"])

	w = s.do(http.MethodGet, "/api/v1/profile/"+s.bob.id+"/", nil, s.alice.access)
	s.Require().Equal(http.StatusOK, w.Code)
	body := decode(s.T(), w)
	s.Equal(1.0, body["followers_count"])

	w = s.do(http.MethodDelete, "/api/v1/unfollow/"+s.bob.id+"/", nil, s.alice.access)
	s.Equal(http.StatusNoContent, w.Code)
	w = s.do(http.MethodDelete, "/api/v1/unfollow/"+s.bob.id+"/", nil, s.alice.access)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestBlockRemovesFollows() {
	w := s.do(http.MethodPost, "/api/v1/follow-user/", map[string]string{"following_id": s.bob.id}, s.alice.access)
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodPost, "/api/v1/blocks/", map[string]string{"blocked": s.alice.id}, s.bob.access)
	s.Require().Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/v1/follow/", nil, s.carol.access)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(0.0, decode(s.T(), w)["count"])
}

func (s *HandlersTestSuite) TestEditProfile() {
	w := s.do(http.MethodPut, "/api/v1/profile/edit-profile/", map[string]any{"bio": "hello", "hide_avatar": true}, s.alice.access)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := decode(s.T(), w)
	s.Equal("hello", body["bio"])
	s.Equal(true, body["hide_avatar"])

	w = s.do(http.MethodGet, "/api/v1/profile/", nil, "")
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(3.0, decode(s.T(), w)["count"])
}

package engagement

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"github.com/zfogg/vlogbook/backend/internal/database"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/metrics"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/repository"
	"github.com/zfogg/vlogbook/backend/internal/visibility"
	"gorm.io/gorm"
)

type LedgerTestSuite struct {
	suite.Suite
	db        *gorm.DB
	relations repository.RelationshipRepository
	ledger    *Ledger
	ctx       context.Context
	owner     *models.User
	fan       *models.User
	post      *models.Post
	video     *models.Video
}

func (s *LedgerTestSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())
	s.relations = repository.NewRelationshipRepository(s.db)
	s.ledger = NewLedger(s.db, visibility.NewFilter(s.db, s.relations))
	s.ctx = context.Background()

	s.owner = database.CreateTestUser(s.T(), s.db, "owner")
	s.fan = database.CreateTestUser(s.T(), s.db, "fan")

	s.post = &models.Post{UserID: s.owner.ID, Image: "p.png", Content: "hello"}
	s.Require().NoError(s.db.Create(s.post).Error)
	s.video = &models.Video{AuthorID: s.owner.ID, Title: "clip", VideoURL: "v.mp4"}
	s.Require().NoError(s.db.Create(s.video).Error)
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (s *LedgerTestSuite) storedLikes(ct models.ContentType, id uint) int64 {
	var n int64
	s.Require().NoError(s.db.Model(&models.Like{}).Where("content_type = ? AND content_id = ?", ct, id).Count(&n).Error)
	return n
}

func (s *LedgerTestSuite) TestLikeUnlikeLikeEndsLiked() {
	liked, count, err := s.ledger.ToggleLike(s.ctx, models.ContentPost, s.post.ID, s.fan.ID)
	s.Require().NoError(err)
	s.True(liked)
	s.Equal(int64(1), count)

	liked, count, err = s.ledger.ToggleLike(s.ctx, models.ContentPost, s.post.ID, s.fan.ID)
	s.Require().NoError(err)
	s.False(liked)
	s.Equal(int64(0), count)

	liked, count, err = s.ledger.ToggleLike(s.ctx, models.ContentPost, s.post.ID, s.fan.ID)
	s.Require().NoError(err)
	s.True(liked)
	s.Equal(int64(1), count)
	s.Equal(int64(1), s.storedLikes(models.ContentPost, s.post.ID))

	counts, err := s.ledger.Counts(s.ctx, models.ContentPost, []uint{s.post.ID})
	s.Require().NoError(err)
	s.Equal(int64(1), counts[s.post.ID].Likes)
}

func (s *LedgerTestSuite) TestLikesOnPostsAndVideosAreSeparate() {
	_, _, err := s.ledger.ToggleLike(s.ctx, models.ContentVideo, s.video.ID, s.fan.ID)
	s.Require().NoError(err)

	liked, err := s.ledger.LikedBy(s.ctx, models.ContentVideo, []uint{s.video.ID}, s.fan.ID)
	s.Require().NoError(err)
	s.True(liked[s.video.ID])

	liked, err = s.ledger.LikedBy(s.ctx, models.ContentPost, []uint{s.post.ID}, s.fan.ID)
	s.Require().NoError(err)
	s.False(liked[s.post.ID])

	liked, err = s.ledger.LikedBy(s.ctx, models.ContentVideo, []uint{s.video.ID}, "")
	s.Require().NoError(err)
	s.Empty(liked)
}

func (s *LedgerTestSuite) TestToggleLikeUnknownContent() {
	_, _, err := s.ledger.ToggleLike(s.ctx, models.ContentPost, 9999, s.fan.ID)
	s.True(apperrors.Is(err, apperrors.ErrNotFound))

	s.Require().NoError(s.db.Delete(s.post).Error)
	_, _, err = s.ledger.ToggleLike(s.ctx, models.ContentPost, s.post.ID, s.fan.ID)
	s.True(apperrors.Is(err, apperrors.ErrNotFound))
}

func (s *LedgerTestSuite) TestConcurrentTogglesKeepCounterExact() {
	users := make([]*models.User, 8)
	for i := range users {
		users[i] = database.CreateTestUser(s.T(), s.db, fmt.Sprintf("user%d", i))
	}

	// Each user toggles three times: every user ends up liking the post
	var wg sync.WaitGroup
	errs := make(chan error, len(users)*3)
	for _, u := range users {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			for i := 0; i < 3; i++ {
				if _, _, err := s.ledger.ToggleLike(s.ctx, models.ContentPost, s.post.ID, userID); err != nil {
					errs <- err
				}
			}
		}(u.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		s.NoError(err)
	}

	counts, err := s.ledger.Counts(s.ctx, models.ContentPost, []uint{s.post.ID})
	s.Require().NoError(err)
	s.Equal(int64(len(users)), counts[s.post.ID].Likes)
	s.Equal(s.storedLikes(models.ContentPost, s.post.ID), counts[s.post.ID].Likes)
}

func (s *LedgerTestSuite) TestLostInsertRaceTurnsIntoUnlike() {
	// Another request likes the post between our delete and our insert
	fired := false
	err := s.db.Callback().Create().Before("gorm:begin_transaction").Register("test:competing_like", func(tx *gorm.DB) {
		like, ok := tx.Statement.Dest.(*models.Like)
		if !ok || fired || like.UserID != s.fan.ID {
			return
		}
		fired = true
		competing := &models.Like{ContentType: like.ContentType, ContentID: like.ContentID, UserID: like.UserID}
		s.Require().NoError(s.db.Session(&gorm.Session{NewDB: true}).Create(competing).Error)
	})
	s.Require().NoError(err)

	retries := testutil.ToFloat64(metrics.Get().App.LikeToggleRetries)

	liked, count, err := s.ledger.ToggleLike(s.ctx, models.ContentPost, s.post.ID, s.fan.ID)
	s.Require().NoError(err)
	s.True(fired)
	s.False(liked)
	s.Equal(int64(0), count)
	s.Equal(int64(0), s.storedLikes(models.ContentPost, s.post.ID))
	s.Equal(retries+1, testutil.ToFloat64(metrics.Get().App.LikeToggleRetries))

	counts, err := s.ledger.Counts(s.ctx, models.ContentPost, []uint{s.post.ID})
	s.Require().NoError(err)
	s.Equal(int64(0), counts[s.post.ID].Likes)
}

func (s *LedgerTestSuite) TestCommentsMaintainCounter() {
	c1, err := s.ledger.AddComment(s.ctx, models.ContentPost, s.post.ID, s.fan.ID, "  first!  ")
	s.Require().NoError(err)
	s.Equal("first!", c1.Content)
	_, err = s.ledger.AddComment(s.ctx, models.ContentPost, s.post.ID, s.owner.ID, "thanks")
	s.Require().NoError(err)

	counts, err := s.ledger.Counts(s.ctx, models.ContentPost, []uint{s.post.ID})
	s.Require().NoError(err)
	s.Equal(int64(2), counts[s.post.ID].Comments)

	videoCounts, err := s.ledger.Counts(s.ctx, models.ContentVideo, []uint{s.video.ID})
	s.Require().NoError(err)
	s.Equal(Counts{}, videoCounts[s.video.ID])

	err = s.ledger.DeleteComment(s.ctx, c1.ID, s.owner.ID)
	s.True(apperrors.Is(err, apperrors.ErrForbidden))

	updated, err := s.ledger.UpdateComment(s.ctx, c1.ID, s.fan.ID, "edited")
	s.Require().NoError(err)
	s.Equal("edited", updated.Content)

	s.Require().NoError(s.ledger.DeleteComment(s.ctx, c1.ID, s.fan.ID))
	counts, err = s.ledger.Counts(s.ctx, models.ContentPost, []uint{s.post.ID})
	s.Require().NoError(err)
	s.Equal(int64(1), counts[s.post.ID].Comments)

	err = s.ledger.DeleteComment(s.ctx, c1.ID, s.fan.ID)
	s.True(apperrors.Is(err, apperrors.ErrNotFound))
}

func (s *LedgerTestSuite) TestCommentValidation() {
	_, err := s.ledger.AddComment(s.ctx, models.ContentPost, s.post.ID, s.fan.ID, "   ")
	s.True(apperrors.Is(err, apperrors.ErrValidation))

	_, err = s.ledger.AddComment(s.ctx, models.ContentPost, s.post.ID, s.fan.ID, strings.Repeat("a", 1001))
	s.True(apperrors.Is(err, apperrors.ErrValidation))

	_, err = s.ledger.AddComment(s.ctx, models.ContentVideo, 4242, s.fan.ID, "hi")
	s.True(apperrors.Is(err, apperrors.ErrNotFound))
}

func (s *LedgerTestSuite) TestHideIsIdempotentAndPrivate() {
	s.Require().NoError(s.ledger.Hide(s.ctx, s.fan.ID, models.ContentPost, s.post.ID))
	s.Require().NoError(s.ledger.Hide(s.ctx, s.fan.ID, models.ContentPost, s.post.ID))

	var n int64
	s.db.Model(&models.HiddenContent{}).Where("user_id = ?", s.fan.ID).Count(&n)
	s.Equal(int64(1), n)
	s.db.Model(&models.HiddenContent{}).Where("user_id = ?", s.owner.ID).Count(&n)
	s.Zero(n)

	s.Require().NoError(s.ledger.Unhide(s.ctx, s.fan.ID, models.ContentPost, s.post.ID))
	s.Require().NoError(s.ledger.Unhide(s.ctx, s.fan.ID, models.ContentPost, s.post.ID))

	err := s.ledger.Hide(s.ctx, s.fan.ID, models.ContentVideo, 777)
	s.True(apperrors.Is(err, apperrors.ErrNotFound))
}

func (s *LedgerTestSuite) TestLikersExcludeBlockedUsers() {
	blocker := database.CreateTestUser(s.T(), s.db, "blocker")
	for _, u := range []*models.User{s.fan, blocker, s.owner} {
		_, _, err := s.ledger.ToggleLike(s.ctx, models.ContentPost, s.post.ID, u.ID)
		s.Require().NoError(err)
	}
	_, err := s.relations.CreateBlock(s.ctx, blocker.ID, s.fan.ID)
	s.Require().NoError(err)

	likers, total, err := s.ledger.Likers(s.ctx, models.ContentPost, s.post.ID, s.fan.ID, 10, 0)
	s.Require().NoError(err)
	s.Equal(int64(2), total)
	s.Require().Len(likers, 2)
	for _, u := range likers {
		s.NotEqual(blocker.ID, u.ID)
	}

	likers, total, err = s.ledger.Likers(s.ctx, models.ContentPost, s.post.ID, "", 10, 0)
	s.Require().NoError(err)
	s.Equal(int64(3), total)
	s.Len(likers, 3)
}

func (s *LedgerTestSuite) TestRecountRepairsDriftedCounters() {
	_, _, err := s.ledger.ToggleLike(s.ctx, models.ContentPost, s.post.ID, s.fan.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.db.Model(&models.LikeCounter{}).Where("content_id = ?", s.post.ID).Update("count", 42).Error)

	n, err := s.ledger.RecountAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, n)

	counts, err := s.ledger.Counts(s.ctx, models.ContentPost, []uint{s.post.ID})
	s.Require().NoError(err)
	s.Equal(int64(1), counts[s.post.ID].Likes)
}

func (s *LedgerTestSuite) TestDeleteContentEngagement() {
	_, _, err := s.ledger.ToggleLike(s.ctx, models.ContentPost, s.post.ID, s.fan.ID)
	s.Require().NoError(err)
	_, err = s.ledger.AddComment(s.ctx, models.ContentPost, s.post.ID, s.fan.ID, "hi")
	s.Require().NoError(err)
	s.Require().NoError(s.ledger.Hide(s.ctx, s.fan.ID, models.ContentPost, s.post.ID))
	_, _, err = s.ledger.ToggleLike(s.ctx, models.ContentVideo, s.video.ID, s.fan.ID)
	s.Require().NoError(err)

	s.Require().NoError(DeleteContentEngagement(s.db, models.ContentPost, s.post.ID))

	s.Zero(s.storedLikes(models.ContentPost, s.post.ID))
	s.Equal(int64(1), s.storedLikes(models.ContentVideo, s.video.ID))
	var n int64
	s.db.Unscoped().Model(&models.Comment{}).Count(&n)
	s.Zero(n)
	s.db.Model(&models.LikeCounter{}).Where("content_type = ?", models.ContentPost).Count(&n)
	s.Zero(n)
}

func (s *LedgerTestSuite) TestRemoveUserEngagementRecountsTouchedItems() {
	_, _, err := s.ledger.ToggleLike(s.ctx, models.ContentPost, s.post.ID, s.fan.ID)
	s.Require().NoError(err)
	_, _, err = s.ledger.ToggleLike(s.ctx, models.ContentPost, s.post.ID, s.owner.ID)
	s.Require().NoError(err)
	_, err = s.ledger.AddComment(s.ctx, models.ContentVideo, s.video.ID, s.fan.ID, "nice")
	s.Require().NoError(err)

	s.Require().NoError(s.ledger.RemoveUserEngagement(s.ctx, s.fan.ID))

	post, err := s.ledger.Counts(s.ctx, models.ContentPost, []uint{s.post.ID})
	s.Require().NoError(err)
	s.Equal(int64(1), post[s.post.ID].Likes)

	video, err := s.ledger.Counts(s.ctx, models.ContentVideo, []uint{s.video.ID})
	s.Require().NoError(err)
	s.Zero(video[s.video.ID].Comments)
}

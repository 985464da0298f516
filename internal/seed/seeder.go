// Package seed fills a database with fake users, content and relationships.
// Everything goes through the regular services so counters and invariants hold.
package seed

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/zfogg/vlogbook/backend/internal/auth"
	"github.com/zfogg/vlogbook/backend/internal/content"
	"github.com/zfogg/vlogbook/backend/internal/engagement"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"github.com/zfogg/vlogbook/backend/internal/profile"
	"github.com/zfogg/vlogbook/backend/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account
const DefaultPassword = "password123"

// Services are the write paths the seeder drives
type Services struct {
	DB        *gorm.DB
	Auth      *auth.Service
	Content   *content.Store
	Ledger    *engagement.Ledger
	Relations repository.RelationshipRepository
	Profiles  *profile.Aggregator
}

// Options sizes a seeding run
type Options struct {
	Users         int
	PostsPerUser  int
	VideosPerUser int
	Follows       int
	Likes         int
	Comments      int
	Blocks        int
}

// DevOptions produce a browsable development dataset
var DevOptions = Options{
	Users:         50,
	PostsPerUser:  4,
	VideosPerUser: 2,
	Follows:       300,
	Likes:         1000,
	Comments:      500,
	Blocks:        10,
}

// Result counts what a run created
type Result struct {
	Users    []models.User
	Posts    []models.Post
	Videos   []models.Video
	Follows  int
	Likes    int
	Comments int
	Blocks   int
}

// Seeder handles database seeding operations
type Seeder struct {
	svc Services
	rnd *rand.Rand
}

// NewSeeder creates a seeder. The same seed value reproduces the same dataset.
func NewSeeder(svc Services, seed int64) *Seeder {
	// Seed returns an error only for invalid sources
	_ = gofakeit.Seed(seed)
	return &Seeder{svc: svc, rnd: rand.New(rand.NewSource(seed))}
}

// Seed creates users first, then their content, then follows, likes and
// comments, and finally blocks so earlier steps never trip over the wall.
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating users...")
	users, err := s.seedUsers(ctx, opts.Users)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}
	res.Users = users
	if len(users) == 0 {
		return res, nil
	}

	log("Creating posts and videos...")
	if err := s.seedContent(ctx, res, opts); err != nil {
		return nil, fmt.Errorf("failed to seed content: %w", err)
	}

	log("Creating follows...")
	if res.Follows, err = s.seedFollows(ctx, users, opts.Follows); err != nil {
		return nil, fmt.Errorf("failed to seed follows: %w", err)
	}

	log("Creating likes and comments...")
	if res.Likes, err = s.seedLikes(ctx, res, opts.Likes); err != nil {
		return nil, fmt.Errorf("failed to seed likes: %w", err)
	}
	if res.Comments, err = s.seedComments(ctx, res, opts.Comments); err != nil {
		return nil, fmt.Errorf("failed to seed comments: %w", err)
	}

	log("Creating blocks...")
	if res.Blocks, err = s.seedBlocks(ctx, users, opts.Blocks); err != nil {
		return nil, fmt.Errorf("failed to seed blocks: %w", err)
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", len(res.Users)),
		zap.Int("posts", len(res.Posts)),
		zap.Int("videos", len(res.Videos)),
		zap.Int("follows", res.Follows),
		zap.Int("likes", res.Likes),
		zap.Int("comments", res.Comments),
		zap.Int("blocks", res.Blocks),
	)
	return res, nil
}

// Clean deletes every row in every table, children first
func (s *Seeder) Clean(ctx context.Context) error {
	all := models.All()
	for i := len(all) - 1; i >= 0; i-- {
		db := s.svc.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped()
		if err := db.Delete(all[i]).Error; err != nil {
			return fmt.Errorf("failed to clean %T: %w", all[i], err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(ctx context.Context, count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	for attempts := 0; len(users) < count && attempts < count*5; attempts++ {
		username := fakeUsername()
		if !auth.ValidUsername(username) {
			continue
		}

		user, err := s.svc.Auth.Register(ctx, auth.RegisterRequest{
			Username:  username,
			Email:     strings.ToLower(username) + "@example.com",
			Password:  DefaultPassword,
			Password2: DefaultPassword,
			Avatar:    fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
		})
		if apperrors.Is(err, apperrors.ErrValidation) || apperrors.Is(err, apperrors.ErrConflict) {
			// Username or email collision
			continue
		}
		if err != nil {
			return nil, err
		}

		bio := gofakeit.HipsterSentence()
		if _, err := s.svc.Profiles.UpdateProfile(ctx, user.ID, profile.Update{Bio: &bio}); err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	logger.Log.Info("Created seed users", zap.Int("count", len(users)))
	return users, nil
}

func fakeUsername() string {
	name := strings.Map(func(r rune) rune {
		if r == ' ' {
			return '.'
		}
		return r
	}, gofakeit.Username())
	if len(name) > 30 {
		name = name[:30]
	}
	return name
}

func (s *Seeder) seedContent(ctx context.Context, res *Result, opts Options) error {
	for _, user := range res.Users {
		for i := 0; i < opts.PostsPerUser; i++ {
			image := fmt.Sprintf("https://picsum.photos/seed/%s/600/600", gofakeit.UUID())
			post, err := s.svc.Content.CreatePost(ctx, user.ID, image, gofakeit.HipsterSentence())
			if err != nil {
				return err
			}
			res.Posts = append(res.Posts, *post)
		}
		for i := 0; i < opts.VideosPerUser; i++ {
			key := gofakeit.UUID()
			video, err := s.svc.Content.CreateVideo(ctx, content.NewVideo{
				AuthorID:     user.ID,
				Title:        fmt.Sprintf("%s in %s", gofakeit.Word(), gofakeit.City()),
				Description:  gofakeit.HipsterSentence(),
				VideoURL:     fmt.Sprintf("https://cdn.example.com/videos/%s/%s.mp4", user.ID, key),
				ThumbnailURL: fmt.Sprintf("https://cdn.example.com/thumbnails/%s/%s.jpg", user.ID, key),
				DurationMS:   int64(1000 + s.rnd.Intn(14000)),
				SizeBytes:    int64(1<<20 + s.rnd.Intn(20<<20)),
			})
			if err != nil {
				return err
			}
			res.Videos = append(res.Videos, *video)
		}
	}
	logger.Log.Info("Created seed content", zap.Int("posts", len(res.Posts)), zap.Int("videos", len(res.Videos)))
	return nil
}

// skippable reports errors caused by picking a pair that already exists
func skippable(err error) bool {
	return apperrors.Is(err, apperrors.ErrDuplicateRelation) || apperrors.Is(err, apperrors.ErrSelfReference)
}

func (s *Seeder) seedFollows(ctx context.Context, users []models.User, count int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	created := 0
	for attempts := 0; created < count && attempts < count*3; attempts++ {
		a, b := s.pick(users), s.pick(users)
		_, err := s.svc.Relations.CreateFollow(ctx, a.ID, b.ID)
		if skippable(err) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

type target struct {
	contentType models.ContentType
	id          uint
}

func (s *Seeder) targets(res *Result) []target {
	out := make([]target, 0, len(res.Posts)+len(res.Videos))
	for _, p := range res.Posts {
		out = append(out, target{models.ContentPost, p.ID})
	}
	for _, v := range res.Videos {
		out = append(out, target{models.ContentVideo, v.ID})
	}
	return out
}

func (s *Seeder) seedLikes(ctx context.Context, res *Result, count int) (int, error) {
	targets := s.targets(res)
	if len(targets) == 0 {
		return 0, nil
	}

	// ToggleLike on an existing like would remove it
	seen := make(map[string]bool, count)
	created := 0
	for attempts := 0; created < count && attempts < count*3; attempts++ {
		user := s.pick(res.Users)
		t := targets[s.rnd.Intn(len(targets))]
		key := fmt.Sprintf("%s:%s:%d", user.ID, t.contentType, t.id)
		if seen[key] {
			continue
		}
		seen[key] = true

		if _, _, err := s.svc.Ledger.ToggleLike(ctx, t.contentType, t.id, user.ID); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

var commentTemplates = []string{
	"Love this!",
	"Where was this filmed?",
	"Great shot",
	"This made my day",
	"Need more of these",
	"So good",
}

func (s *Seeder) seedComments(ctx context.Context, res *Result, count int) (int, error) {
	targets := s.targets(res)
	if len(targets) == 0 {
		return 0, nil
	}
	for i := 0; i < count; i++ {
		user := s.pick(res.Users)
		t := targets[s.rnd.Intn(len(targets))]

		text := gofakeit.HipsterSentence()
		if s.rnd.Float32() < 0.5 {
			text = commentTemplates[s.rnd.Intn(len(commentTemplates))]
		}
		if _, err := s.svc.Ledger.AddComment(ctx, t.contentType, t.id, user.ID, text); err != nil {
			return i, err
		}
	}
	return count, nil
}

func (s *Seeder) seedBlocks(ctx context.Context, users []models.User, count int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	created := 0
	for attempts := 0; created < count && attempts < count*3; attempts++ {
		a, b := s.pick(users), s.pick(users)
		_, err := s.svc.Relations.CreateBlock(ctx, a.ID, b.ID)
		if skippable(err) {
			continue
		}
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

func (s *Seeder) pick(users []models.User) models.User {
	return users[s.rnd.Intn(len(users))]
}


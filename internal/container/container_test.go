package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zfogg/vlogbook/backend/internal/auth"
	"github.com/zfogg/vlogbook/backend/internal/config"
	"github.com/zfogg/vlogbook/backend/internal/database"
	"github.com/zfogg/vlogbook/backend/internal/email"
	"github.com/zfogg/vlogbook/backend/internal/media"
	"github.com/zfogg/vlogbook/backend/internal/models"
)

type noopProcessor struct{}

func (noopProcessor) Probe(ctx context.Context, path string) (*media.VideoInfo, error) {
	return &media.VideoInfo{Duration: time.Second}, nil
}

func (noopProcessor) Thumbnail(ctx context.Context, path string, at time.Duration) ([]byte, error) {
	return nil, nil
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(dir, "test.db")},
		Auth:     config.AuthConfig{JWTSecret: "container-secret"},
		Email:    config.EmailConfig{Provider: "log", FromName: "Vlogbook"},
		Media: config.MediaConfig{
			LocalDir:      filepath.Join(dir, "media"),
			PublicBaseURL: "http://localhost:8787/media",
			UploadDir:     filepath.Join(dir, "uploads"),
			MaxVideoBytes: 1024,
		},
		VisibilityCacheTTL: time.Minute,
	}
}

func TestBuildWiresServices(t *testing.T) {
	ctx := context.Background()
	notifier := &email.MemoryNotifier{}

	c, err := Build(ctx, testConfig(t), Options{Processor: noopProcessor{}, Notifier: notifier})
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Cleanup(ctx)) }()

	require.NoError(t, database.Migrate(c.DB()))
	assert.Nil(t, c.Cache())
	assert.NotNil(t, c.LocalMedia())
	assert.NotNil(t, c.Handlers())
	assert.Equal(t, int64(1024), c.Media().Limits().MaxVideoBytes)
	assert.Equal(t, 15*time.Second, c.Media().Limits().MaxVideoLength)

	user, err := c.Auth().Register(ctx, auth.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "correct horse", Password2: "correct horse",
	})
	require.NoError(t, err)

	// Registration creates the profile through the event bus
	var n int64
	require.NoError(t, c.DB().Model(&models.Profile{}).Where("user_id = ?", user.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestBuildUsesRedisWhenEnabled(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := testConfig(t)
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: mr.Port()}

	c, err := Build(ctx, cfg, Options{Processor: noopProcessor{}, Notifier: &email.MemoryNotifier{}})
	require.NoError(t, err)
	require.NotNil(t, c.Cache())
	assert.NoError(t, c.Cache().Ping(ctx))
	assert.NoError(t, c.Cleanup(ctx))
}

func TestBuildSurvivesMissingRedis(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: "1"}

	c, err := Build(ctx, cfg, Options{Processor: noopProcessor{}, Notifier: &email.MemoryNotifier{}})
	require.NoError(t, err)
	assert.Nil(t, c.Cache())
	assert.NoError(t, c.Cleanup(ctx))
}

func TestCleanupRunsInReverseOrder(t *testing.T) {
	c := &Container{}
	var order []int
	c.OnCleanup(func(context.Context) error { order = append(order, 1); return nil })
	c.OnCleanup(func(context.Context) error { order = append(order, 2); return nil })

	require.NoError(t, c.Cleanup(context.Background()))
	assert.Equal(t, []int{2, 1}, order)
}

func TestValidateListsMissingDependencies(t *testing.T) {
	err := (&Container{}).Validate()
	require.Error(t, err)
	var initErr *InitializationError
	require.ErrorAs(t, err, &initErr)
	assert.True(t, initErr.Lacks("database"))
	assert.True(t, initErr.Lacks("auth service"))
	assert.False(t, initErr.Lacks("redis"))
	assert.Contains(t, err.Error(), "missing database, media store")
}

func TestDeleteUserCascade(t *testing.T) {
	ctx := context.Background()
	c, err := Build(ctx, testConfig(t), Options{Processor: noopProcessor{}, Notifier: &email.MemoryNotifier{}})
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Cleanup(ctx)) }()
	require.NoError(t, database.Migrate(c.DB()))

	alice := database.CreateTestUser(t, c.DB(), "alice")
	bob := database.CreateTestUser(t, c.DB(), "bob")

	alicePost, err := c.Content().CreatePost(ctx, alice.ID, "a.png", "mine")
	require.NoError(t, err)
	bobPost, err := c.Content().CreatePost(ctx, bob.ID, "b.png", "theirs")
	require.NoError(t, err)

	_, _, err = c.Ledger().ToggleLike(ctx, models.ContentPost, bobPost.ID, alice.ID)
	require.NoError(t, err)
	_, err = c.Ledger().AddComment(ctx, models.ContentPost, bobPost.ID, alice.ID, "hi")
	require.NoError(t, err)
	_, err = c.Ledger().AddComment(ctx, models.ContentPost, alicePost.ID, bob.ID, "hello")
	require.NoError(t, err)
	_, err = c.Relations().CreateFollow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	require.NoError(t, c.DeleteUserCascade(ctx, alice.ID))

	exists, err := c.Users().Exists(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	view, err := c.Content().GetPost(ctx, bobPost.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), view.LikeCount)
	assert.Equal(t, int64(0), view.CommentCount)

	var comments int64
	require.NoError(t, c.DB().Unscoped().Model(&models.Comment{}).Count(&comments).Error)
	assert.Equal(t, int64(0), comments)

	following, err := c.Relations().CountFollowing(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), following)

	err = c.DeleteUserCascade(ctx, alice.ID)
	assert.Error(t, err)
}

func TestValidateRequiredServices(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.RequiredServices = []string{"database"}

	c, err := Build(ctx, cfg, Options{Processor: noopProcessor{}, Notifier: &email.MemoryNotifier{}})
	require.NoError(t, err)
	defer func() { assert.NoError(t, c.Cleanup(ctx)) }()

	assert.NoError(t, c.ValidateRequiredServices(ctx))

	cfg.RequiredServices = []string{"database", "redis"}
	assert.Error(t, c.ValidateRequiredServices(ctx))

	cfg.RequiredServices = []string{"s3"}
	assert.Error(t, c.ValidateRequiredServices(ctx))
}

// Package container wires the backend's services together from configuration.
// The server and the CLI both build their dependencies through it.
package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zfogg/vlogbook/backend/internal/auth"
	"github.com/zfogg/vlogbook/backend/internal/cache"
	"github.com/zfogg/vlogbook/backend/internal/config"
	"github.com/zfogg/vlogbook/backend/internal/content"
	"github.com/zfogg/vlogbook/backend/internal/database"
	"github.com/zfogg/vlogbook/backend/internal/email"
	"github.com/zfogg/vlogbook/backend/internal/engagement"
	"github.com/zfogg/vlogbook/backend/internal/events"
	"github.com/zfogg/vlogbook/backend/internal/handlers"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/media"
	"github.com/zfogg/vlogbook/backend/internal/profile"
	"github.com/zfogg/vlogbook/backend/internal/repository"
	"github.com/zfogg/vlogbook/backend/internal/storage"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
	"github.com/zfogg/vlogbook/backend/internal/visibility"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds all application dependencies
type Container struct {
	cfg *config.Config

	// Core infrastructure
	db    *gorm.DB
	cache *cache.RedisClient
	bus   *events.Bus

	// Repositories
	users     repository.UserRepository
	relations repository.RelationshipRepository

	// Domain services
	filter   *visibility.Filter
	ledger   *engagement.Ledger
	content  *content.Store
	profiles *profile.Aggregator
	auth     *auth.Service

	// Media and outbound mail
	mediaStore storage.MediaStore
	localStore *storage.LocalStore
	s3Store    *storage.S3Store
	ffmpeg     *media.FFmpegProcessor
	pipeline   *media.Pipeline
	notifier   email.Notifier

	// Lifecycle hooks
	cleanupFuncs []func(context.Context) error
	mu           sync.Mutex
}

// Options adjusts how Build assembles the container
type Options struct {
	// Processor replaces the ffmpeg-backed video processor
	Processor media.VideoProcessor
	// Notifier replaces the configured email provider
	Notifier email.Notifier
	// DB reuses an open connection instead of dialing cfg.Database
	DB *gorm.DB
	// VerboseSQL logs every statement
	VerboseSQL bool
}

// Build opens the database, cache, media store and mail provider and wires every
// service. Call Cleanup when done.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	c := &Container{cfg: cfg}

	if err := c.openDatabase(opts); err != nil {
		return nil, err
	}
	c.openCache()
	if err := c.openMedia(ctx, opts.Processor); err != nil {
		_ = c.Cleanup(ctx)
		return nil, err
	}

	notifier := opts.Notifier
	if notifier == nil {
		var err error
		notifier, err = email.NewNotifier(ctx, cfg.Email, cfg.AWS.Region)
		if err != nil {
			_ = c.Cleanup(ctx)
			return nil, fmt.Errorf("email notifier: %w", err)
		}
	}
	c.notifier = notifier

	c.wireServices()

	if err := c.Validate(); err != nil {
		_ = c.Cleanup(ctx)
		return nil, err
	}
	return c, nil
}

func (c *Container) openDatabase(opts Options) error {
	db := opts.DB
	if db == nil {
		var err error
		db, err = database.Initialize(c.cfg.Database, opts.VerboseSQL)
		if err != nil {
			return err
		}
		c.OnCleanup(func(context.Context) error { return database.Close(db) })
	}
	if c.cfg.Telemetry.Enabled {
		if err := db.Use(telemetry.GORMTracingPlugin()); err != nil {
			logger.WarnWithFields("Failed to install GORM tracing plugin", err)
		}
	}
	c.db = db
	return nil
}

// openCache connects to Redis when enabled. The backend runs without it, so a
// connection failure only downgrades rate limiting and visibility caching.
func (c *Container) openCache() {
	if !c.cfg.Redis.Enabled {
		return
	}
	rc, err := cache.NewRedisClient(c.cfg.Redis.Host, c.cfg.Redis.Port, c.cfg.Redis.Password)
	if err != nil {
		logger.WarnWithFields("Redis unavailable, continuing without cache", err)
		return
	}
	c.cache = rc
	c.OnCleanup(func(context.Context) error { return rc.Close() })
}

func (c *Container) openMedia(ctx context.Context, processor media.VideoProcessor) error {
	mc := c.cfg.Media

	if c.cfg.AWS.Bucket != "" {
		s3, err := storage.NewS3Store(ctx, c.cfg.AWS.Region, c.cfg.AWS.Bucket, c.cfg.AWS.CDNBaseURL)
		if err != nil {
			return fmt.Errorf("s3 store: %w", err)
		}
		if err := s3.CheckBucketAccess(ctx); err != nil {
			logger.WarnWithFields("S3 bucket access check failed", err, zap.String("bucket", c.cfg.AWS.Bucket))
		}
		c.s3Store = s3
		c.mediaStore = s3
	} else {
		local, err := storage.NewLocalStore(mc.LocalDir, mc.PublicBaseURL)
		if err != nil {
			return err
		}
		c.localStore = local
		c.mediaStore = local
		logger.Log.Info("Serving media from local disk", zap.String("dir", local.Root()))
	}

	uploadDir := mc.UploadDir
	if uploadDir == "" {
		uploadDir = filepath.Join(os.TempDir(), "vlogbook_uploads")
	}
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	c.cfg.Media.UploadDir = uploadDir

	if processor == nil {
		ffmpeg, err := media.NewFFmpegProcessor(mc.FFmpegPath, mc.FFprobePath, "")
		if err != nil {
			return err
		}
		if err := ffmpeg.CheckInstallation(); err != nil {
			logger.WarnWithFields("FFmpeg not available, video uploads will fail", err)
		}
		c.ffmpeg = ffmpeg
		processor = ffmpeg
	}

	limits := media.DefaultLimits
	if mc.MaxVideoBytes > 0 {
		limits.MaxVideoBytes = mc.MaxVideoBytes
	}
	if mc.MaxVideoLength > 0 {
		limits.MaxVideoLength = mc.MaxVideoLength
	}
	if mc.MaxImageBytes > 0 {
		limits.MaxImageBytes = mc.MaxImageBytes
	}
	c.pipeline = media.NewPipeline(processor, c.mediaStore, limits)
	return nil
}

func (c *Container) wireServices() {
	c.bus = events.NewBus()
	c.users = repository.NewUserRepository(c.db)
	c.relations = repository.NewRelationshipRepository(c.db)

	var filterOpts []visibility.Option
	if c.cache != nil {
		filterOpts = append(filterOpts, visibility.WithCache(c.cache, c.cfg.VisibilityCacheTTL))
	}
	c.filter = visibility.NewFilter(c.db, c.relations, filterOpts...)
	c.ledger = engagement.NewLedger(c.db, c.filter)
	c.content = content.NewStore(c.db, c.filter, c.ledger)
	c.profiles = profile.NewAggregator(c.db, c.users, c.relations, c.filter, c.content, c.bus)

	c.auth = auth.NewService(c.db, c.users, c.bus, c.notifier, auth.Config{
		JWTSecret:       c.cfg.Auth.JWTSecret,
		AccessTokenTTL:  c.cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: c.cfg.Auth.RefreshTokenTTL,
		ResetCodeTTL:    c.cfg.Auth.ResetCodeTTL,
		ProductName:     c.cfg.Email.FromName,
		ProductLink:     c.cfg.Email.ProductLink,
	})

	c.filter.Subscribe(c.bus)
	c.profiles.Subscribe(c.bus)
}

// Accessors

func (c *Container) Config() *config.Config { return c.cfg }
func (c *Container) DB() *gorm.DB { return c.db }
func (c *Container) Cache() *cache.RedisClient { return c.cache }
func (c *Container) Bus() *events.Bus { return c.bus }
func (c *Container) Users() repository.UserRepository { return c.users }
func (c *Container) Relations() repository.RelationshipRepository { return c.relations }
func (c *Container) Filter() *visibility.Filter { return c.filter }
func (c *Container) Ledger() *engagement.Ledger { return c.ledger }
func (c *Container) Content() *content.Store { return c.content }
func (c *Container) Profiles() *profile.Aggregator { return c.profiles }
func (c *Container) Auth() *auth.Service { return c.auth }
func (c *Container) Media() *media.Pipeline { return c.pipeline }
func (c *Container) MediaStore() storage.MediaStore { return c.mediaStore }

// LocalMedia returns the on-disk store, or nil when media goes to S3
func (c *Container) LocalMedia() *storage.LocalStore { return c.localStore }

// Handlers builds the HTTP handlers over the container's services
func (c *Container) Handlers() *handlers.Handlers {
	return handlers.NewHandlers(handlers.Deps{
		Auth:      c.auth,
		Users:     c.users,
		Relations: c.relations,
		Filter:    c.filter,
		Ledger:    c.ledger,
		Content:   c.content,
		Profiles:  c.profiles,
		Media:     c.pipeline,
		Bus:       c.bus,
		UploadDir: c.cfg.Media.UploadDir,
	})
}

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions are called in LIFO order (last registered, first cleaned up).
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup performs graceful shutdown of all registered services.
// It returns the first error encountered but runs every cleanup function.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	funcs := c.cleanupFuncs
	c.cleanupFuncs = nil
	c.mu.Unlock()

	var firstErr error
	for i := len(funcs) - 1; i >= 0; i-- {
		if err := funcs[i](ctx); err != nil {
			logger.Log.Error("Cleanup function failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Validate checks that all required dependencies are registered
func (c *Container) Validate() error {
	var missing []string
	if c.db == nil {
		missing = append(missing, "database")
	}
	if c.mediaStore == nil {
		missing = append(missing, "media store")
	}
	if c.pipeline == nil {
		missing = append(missing, "media pipeline")
	}
	if c.notifier == nil {
		missing = append(missing, "email notifier")
	}
	if c.auth == nil {
		missing = append(missing, "auth service")
	}
	if len(missing) > 0 {
		return &InitializationError{Missing: missing}
	}
	return nil
}

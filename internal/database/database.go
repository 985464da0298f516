package database

import (
	"fmt"
	"time"

	"github.com/zfogg/vlogbook/backend/internal/config"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the process-wide connection opened by Initialize
var DB *gorm.DB

func gormConfig(verbose bool) *gorm.Config {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	return &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Initialize creates and configures the database connection
func Initialize(cfg config.DatabaseConfig, verbose bool) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch cfg.Driver {
	case "sqlite":
		db, err = OpenSQLite(cfg.SQLitePath, gormConfig(verbose))
	default:
		db, err = gorm.Open(postgres.Open(cfg.DSN()), gormConfig(verbose))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Driver != "sqlite" {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	DB = db
	logger.Log.Info("Database connected", zap.String("driver", cfg.Driver))

	return db, nil
}

// OpenSQLite opens a SQLite database with foreign keys enforced.
// SQLite allows one writer, so the pool is pinned to a single connection.
func OpenSQLite(path string, gormCfg *gorm.Config) (*gorm.DB, error) {
	if gormCfg == nil {
		gormCfg = gormConfig(false)
	}
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// Migrate runs auto-migration for all models, then creates the extra indexes
func Migrate(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	logger.Log.Info("Database migrations completed")
	return nil
}

// createIndexes creates indexes AutoMigrate cannot express from struct tags
func createIndexes(db *gorm.DB) error {
	statements := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))",
		"CREATE INDEX IF NOT EXISTS idx_users_username_lower ON users (LOWER(username))",

		// Feed ordering: created_at DESC with id as the insertion-order tie-break
		"CREATE INDEX IF NOT EXISTS idx_posts_feed ON posts (created_at DESC, id)",
		"CREATE INDEX IF NOT EXISTS idx_posts_user_feed ON posts (user_id, created_at DESC, id)",
		"CREATE INDEX IF NOT EXISTS idx_videos_feed ON videos (created_at DESC, id)",
		"CREATE INDEX IF NOT EXISTS idx_videos_author_feed ON videos (author_id, created_at DESC, id)",
		"CREATE INDEX IF NOT EXISTS idx_comments_target_created ON comments (content_type, content_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_likes_target_created ON likes (content_type, content_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_hidden_user_type ON hidden_contents (user_id, content_type)",
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}
	return nil
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks database connectivity
func Health(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database not initialized")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

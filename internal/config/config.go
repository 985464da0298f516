// Package config loads runtime settings from the environment (and an optional .env file).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration of the API server and CLI
type Config struct {
	Environment string
	Port        string
	LogLevel    string
	LogFile     string
	CORSOrigins []string

	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	AWS       AWSConfig
	Email     EmailConfig
	Media     MediaConfig
	Telemetry TelemetryConfig
	RateLimit RateLimitConfig
	SentryDSN string

	VisibilityCacheTTL time.Duration
	// RequiredServices must be reachable at startup: database, redis, s3, ffmpeg
	RequiredServices   []string
}

type DatabaseConfig struct {
	Driver          string // "postgres" or "sqlite"
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	SQLitePath      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DSN builds a postgres connection string when DATABASE_URL is not set
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
}

type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetCodeTTL    time.Duration
}

type AWSConfig struct {
	Region     string
	Bucket     string
	CDNBaseURL string
}

type EmailConfig struct {
	Provider       string // "ses", "sendgrid" or "log"
	FromAddress    string
	FromName       string
	SendGridAPIKey string
	ProductLink    string
}

type MediaConfig struct {
	FFmpegPath     string
	FFprobePath    string
	UploadDir      string
	LocalDir       string // served at /media when no bucket is configured
	PublicBaseURL  string
	MaxVideoBytes  int64
	MaxVideoLength time.Duration
	MaxImageBytes  int64
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SamplingRate float64
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Auth     int
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Environment: v.GetString("ENVIRONMENT"),
		Port:        v.GetString("PORT"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		LogFile:     v.GetString("LOG_FILE"),
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
		Database: DatabaseConfig{
			Driver:          v.GetString("DB_DRIVER"),
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			SQLitePath:      v.GetString("SQLITE_PATH"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		Auth: AuthConfig{
			JWTSecret:       v.GetString("JWT_SECRET"),
			AccessTokenTTL:  v.GetDuration("ACCESS_TOKEN_TTL"),
			RefreshTokenTTL: v.GetDuration("REFRESH_TOKEN_TTL"),
			ResetCodeTTL:    v.GetDuration("RESET_CODE_TTL"),
		},
		AWS: AWSConfig{
			Region:     v.GetString("AWS_REGION"),
			Bucket:     v.GetString("AWS_BUCKET"),
			CDNBaseURL: v.GetString("CDN_BASE_URL"),
		},
		Email: EmailConfig{
			Provider:       v.GetString("EMAIL_PROVIDER"),
			FromAddress:    v.GetString("EMAIL_FROM"),
			FromName:       v.GetString("EMAIL_FROM_NAME"),
			SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
			ProductLink:    v.GetString("PRODUCT_LINK"),
		},
		Media: MediaConfig{
			FFmpegPath:     v.GetString("FFMPEG_PATH"),
			FFprobePath:    v.GetString("FFPROBE_PATH"),
			UploadDir:      v.GetString("UPLOAD_DIR"),
			LocalDir:       v.GetString("MEDIA_DIR"),
			PublicBaseURL:  v.GetString("MEDIA_BASE_URL"),
			MaxVideoBytes:  v.GetInt64("MAX_VIDEO_BYTES"),
			MaxVideoLength: v.GetDuration("MAX_VIDEO_LENGTH"),
			MaxImageBytes:  v.GetInt64("MAX_IMAGE_BYTES"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      v.GetBool("OTEL_ENABLED"),
			OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SamplingRate: v.GetFloat64("OTEL_SAMPLING_RATE"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
			Auth:     v.GetInt("RATE_LIMIT_AUTH_REQUESTS"),
		},
		SentryDSN:          v.GetString("SENTRY_DSN"),
		VisibilityCacheTTL: v.GetDuration("VISIBILITY_CACHE_TTL"),
		RequiredServices:   splitList(v.GetString("REQUIRED_SERVICES")),
	}

	return cfg, nil
}

// Validate checks settings the server cannot start without
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	switch c.Email.Provider {
	case "ses", "sendgrid", "log":
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.Email.Provider)
	}
	if c.Email.Provider == "sendgrid" && c.Email.SendGridAPIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is required when EMAIL_PROVIDER=sendgrid")
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("PORT", "8787")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "server.log")
	v.SetDefault("CORS_ORIGINS", "*")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "vlogbook")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "vlogbook.db")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")

	v.SetDefault("ACCESS_TOKEN_TTL", 24*time.Hour)
	v.SetDefault("REFRESH_TOKEN_TTL", 7*24*time.Hour)
	v.SetDefault("RESET_CODE_TTL", 10*time.Minute)

	v.SetDefault("AWS_REGION", "us-east-1")

	v.SetDefault("EMAIL_PROVIDER", "log")
	v.SetDefault("EMAIL_FROM", "no-reply@vlogbook.app")
	v.SetDefault("EMAIL_FROM_NAME", "Vlogbook")
	v.SetDefault("PRODUCT_LINK", "https://vlogbook.app")

	v.SetDefault("FFMPEG_PATH", "ffmpeg")
	v.SetDefault("FFPROBE_PATH", "ffprobe")
	v.SetDefault("MEDIA_DIR", "media")
	v.SetDefault("MEDIA_BASE_URL", "http://localhost:8787/media")
	v.SetDefault("MAX_VIDEO_BYTES", 200*1024*1024)
	v.SetDefault("MAX_VIDEO_LENGTH", 15*time.Second)
	v.SetDefault("MAX_IMAGE_BYTES", 10*1024*1024)

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318")
	v.SetDefault("OTEL_SAMPLING_RATE", 1.0)

	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("RATE_LIMIT_AUTH_REQUESTS", 10)

	v.SetDefault("VISIBILITY_CACHE_TTL", 30*time.Second)
	v.SetDefault("REQUIRED_SERVICES", "database")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

package middleware

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/vlogbook/backend/internal/cache"
	apperrors "github.com/zfogg/vlogbook/backend/internal/errors"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/metrics"
	"github.com/zfogg/vlogbook/backend/internal/util"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig holds configuration for one rate-limited scope
type RateLimitConfig struct {
	// Scope namespaces the counters, e.g. "api" or "auth"
	Scope string
	// Requests per window
	Limit  int
	Window time.Duration
	// KeyFunc identifies the client; defaults to the client IP
	KeyFunc func(c *gin.Context) string
}

// DefaultRateLimitConfig returns the general API limit
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Scope: "api", Limit: 100, Window: time.Minute}
}

// AuthRateLimitConfig returns stricter limits for login, registration and reset endpoints
func AuthRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Scope: "auth", Limit: 10, Window: time.Minute}
}

// RateLimiter counts requests in Redis when available and in process otherwise.
// A Redis failure degrades to the local limiter rather than rejecting traffic.
type RateLimiter struct {
	cfg   RateLimitConfig
	redis *cache.RedisClient

	mu    sync.Mutex
	local map[string]*localBucket
}

type localBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter; redis may be nil
func NewRateLimiter(cfg RateLimitConfig, redis *cache.RedisClient) *RateLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultRateLimitConfig().Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Scope == "" {
		cfg.Scope = "api"
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	return &RateLimiter{cfg: cfg, redis: redis, local: make(map[string]*localBucket)}
}

// Middleware returns the gin handler enforcing the limit
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.cfg.KeyFunc(c)
		allowed, retryAfter, backend := rl.Allow(c.Request.Context(), key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Limit))
		if !allowed {
			metrics.Get().RateLimitExceededTotal.WithLabelValues(rl.cfg.Scope, backend).Inc()
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(c.ClientIP()),
				zap.String("scope", rl.cfg.Scope),
				zap.String("backend", backend),
			)
			c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
			util.RespondWithAPIError(c, apperrors.RateLimited(""))
			return
		}
		c.Next()
	}
}

// Allow records one request for key and reports whether it is within the limit.
// The returned backend is "redis" or "local".
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, string) {
	if rl.redis != nil {
		redisCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()

		count, ttl, err := rl.redis.IncrWithExpiry(redisCtx, rl.redisKey(key), rl.cfg.Window)
		if err == nil {
			if ttl <= 0 {
				ttl = rl.cfg.Window
			}
			return count <= int64(rl.cfg.Limit), ttl, "redis"
		}
		metrics.RecordCacheError("ratelimit", "incr")
		logger.WarnWithFields("Redis rate limiter unavailable, using local limiter", err, zap.String("scope", rl.cfg.Scope))
	}

	limiter := rl.localLimiter(key)
	if limiter.Allow() {
		return true, 0, "local"
	}
	every := rl.cfg.Window / time.Duration(rl.cfg.Limit)
	return false, max(every, time.Second), "local"
}

func (rl *RateLimiter) redisKey(key string) string {
	return fmt.Sprintf("ratelimit:%s:%s", rl.cfg.Scope, key)
}

func (rl *RateLimiter) localLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.local[key]
	if !ok {
		every := rate.Every(rl.cfg.Window / time.Duration(rl.cfg.Limit))
		b = &localBucket{limiter: rate.NewLimiter(every, rl.cfg.Limit)}
		rl.local[key] = b
		rl.pruneLocked(now)
	}
	b.lastSeen = now
	return b.limiter
}

// pruneLocked drops buckets idle for more than two windows
func (rl *RateLimiter) pruneLocked(now time.Time) {
	if len(rl.local) < 1024 {
		return
	}
	for k, b := range rl.local {
		if now.Sub(b.lastSeen) > 2*rl.cfg.Window {
			delete(rl.local, k)
		}
	}
}

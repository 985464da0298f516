package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/vlogbook/backend/internal/config"
	"github.com/zfogg/vlogbook/backend/internal/container"
	"github.com/zfogg/vlogbook/backend/internal/database"
	"github.com/zfogg/vlogbook/backend/internal/handlers"
	"github.com/zfogg/vlogbook/backend/internal/logger"
	"github.com/zfogg/vlogbook/backend/internal/metrics"
	"github.com/zfogg/vlogbook/backend/internal/middleware"
	"github.com/zfogg/vlogbook/backend/internal/telemetry"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if err := logger.Initialize(logger.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: cfg.IsDevelopment(),
	}); err != nil {
		panic(err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log.Info("=== Vlogbook server starting ===", zap.String("environment", cfg.Environment))

	if err := cfg.Validate(); err != nil {
		logger.FatalWithFields("Invalid configuration", err)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			EnableTracing:    true,
			TracesSampleRate: cfg.Telemetry.SamplingRate,
		}); err != nil {
			logger.WarnWithFields("Sentry init failed", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx := context.Background()
	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  telemetry.ServiceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Enabled:      cfg.Telemetry.Enabled,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled", err)
	}

	c, err := container.Build(ctx, cfg, container.Options{VerboseSQL: cfg.IsDevelopment()})
	if err != nil {
		logger.FatalWithFields("Failed to build services", err)
	}
	if tp != nil {
		c.OnCleanup(func(ctx context.Context) error { return telemetry.Shutdown(ctx, tp) })
	}
	if err := c.ValidateRequiredServices(ctx); err != nil {
		logger.FatalWithFields("Required service unavailable", err)
	}

	if err := database.Migrate(c.DB()); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	metrics.Initialize()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.TracingMiddleware(telemetry.ServiceName))
	r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = cfg.CORSOrigins
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   telemetry.ServiceName,
		}
		if err := database.Health(c.DB()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = err.Error()
		}
		if rc := c.Cache(); rc != nil {
			if err := rc.Ping(ctx.Request.Context()); err != nil {
				body["redis"] = err.Error()
			}
		}
		ctx.JSON(status, body)
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if local := c.LocalMedia(); local != nil {
		r.Static("/media", local.Root())
	}

	apiLimit := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Scope:  "api",
		Limit:  cfg.RateLimit.Requests,
		Window: cfg.RateLimit.Window,
	}, c.Cache())
	authLimit := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Scope:  "auth",
		Limit:  cfg.RateLimit.Auth,
		Window: cfg.RateLimit.Window,
	}, c.Cache())

	api := r.Group("/api/v1", apiLimit.Middleware())
	c.Handlers().RegisterRoutes(api, handlers.RouteOptions{
		Validator: c.Auth(),
		AuthLimit: authLimit.Middleware(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Vlogbook backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithFields("Server forced to shutdown", err)
	}
	if err := c.Cleanup(shutdownCtx); err != nil {
		logger.ErrorWithFields("Cleanup failed", err)
	}

	logger.Log.Info("Server exited")
}

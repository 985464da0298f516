package container

import (
	"context"
	"errors"

	"github.com/zfogg/vlogbook/backend/internal/database"
	"github.com/zfogg/vlogbook/backend/internal/validation"
)

// ServiceChecks probes the backing services by name for startup validation
func (c *Container) ServiceChecks() map[string]validation.Check {
	return map[string]validation.Check{
		"database": func(ctx context.Context) error {
			return database.Health(c.db)
		},
		"redis": func(ctx context.Context) error {
			if c.cache == nil {
				return errors.New("redis is disabled or unreachable")
			}
			return c.cache.Ping(ctx)
		},
		"s3": func(ctx context.Context) error {
			if c.s3Store == nil {
				return errors.New("AWS_BUCKET is not set")
			}
			return c.s3Store.CheckBucketAccess(ctx)
		},
		"ffmpeg": func(ctx context.Context) error {
			if c.ffmpeg == nil {
				return errors.New("no ffmpeg processor configured")
			}
			return c.ffmpeg.CheckInstallation()
		},
	}
}

// ValidateRequiredServices fails when any service listed in REQUIRED_SERVICES is down
func (c *Container) ValidateRequiredServices(ctx context.Context) error {
	return validation.NewServiceValidator(c.cfg.RequiredServices, c.ServiceChecks()).ValidateServices(ctx)
}

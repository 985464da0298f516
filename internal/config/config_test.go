package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8787", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 10*time.Minute, cfg.Auth.ResetCodeTTL)
	assert.Equal(t, int64(200*1024*1024), cfg.Media.MaxVideoBytes)
	assert.Equal(t, 15*time.Second, cfg.Media.MaxVideoLength)
	assert.Equal(t, 30*time.Second, cfg.VisibilityCacheTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"database"}, cfg.RequiredServices)
	assert.Equal(t, "media", cfg.Media.LocalDir)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("VISIBILITY_CACHE_TTL", "5s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 5*time.Second, cfg.VisibilityCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Driver: "postgres"}, Email: EmailConfig{Provider: "log"}}
	assert.Error(t, cfg.Validate(), "missing JWT secret")

	cfg.Auth.JWTSecret = "s"
	assert.NoError(t, cfg.Validate())

	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg.Database.Driver = "sqlite"
	cfg.Email.Provider = "sendgrid"
	assert.Error(t, cfg.Validate(), "sendgrid needs an API key")
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", d.DSN())

	d.URL = "postgres://u:p@db/n"
	assert.Equal(t, "postgres://u:p@db/n", d.DSN())
}

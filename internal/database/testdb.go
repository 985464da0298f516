package database

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zfogg/vlogbook/backend/internal/models"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewTestDB opens a migrated in-memory SQLite database that lives for the duration of t
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := gormConfig(false)
	cfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)

	db, err := OpenSQLite(":memory:", cfg)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	t.Cleanup(func() {
		_ = Close(db)
	})
	return db
}

// CreateTestUser inserts a user with a throwaway password hash
func CreateTestUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

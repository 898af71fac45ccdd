package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Joseph-Bethune/Gabble-Live/internal/database"
	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/validation"
)

// setupTestDB returns a migrated in-memory SQLite database private to t.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func newTestUser(email, displayName string) *models.User {
	return &models.User{
		Email:          email,
		PasswordHash:   "hash",
		DisplayName:    displayName,
		DisplayNameKey: validation.DisplayNameKey(displayName),
		Roles:          rolesColumn([]models.Role{models.RoleUser}),
	}
}

func createTestUser(t *testing.T, repo UserRepository, email, displayName string) *models.User {
	t.Helper()
	u := newTestUser(email, displayName)
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func createTestPost(t *testing.T, repo PostRepository, poster *models.User, parent *string, tags ...string) *models.Post {
	t.Helper()
	p := &models.Post{
		Message:              "message from " + poster.DisplayName,
		PosterID:             poster.ID,
		ResponseTo:           parent,
		AcceptsDirectReplies: true,
	}
	require.NoError(t, repo.Create(context.Background(), p, tags))
	// Keep creation timestamps strictly increasing for ordering assertions.
	time.Sleep(2 * time.Millisecond)
	return p
}

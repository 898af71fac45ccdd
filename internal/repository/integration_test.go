//go:build integration

package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Joseph-Bethune/Gabble-Live/internal/database"
	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/validation"
)

// setupPostgresDB starts a PostgreSQL container and returns a migrated gorm handle.
func setupPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("gabble"),
		tcpostgres.WithUsername("gabble"),
		tcpostgres.WithPassword("gabble"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db))
	return db
}

func TestPostgres_UniqueViolationsMapToConflict(t *testing.T) {
	db := setupPostgresDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createTestUser(t, repo, "alice@example.com", "Alice")

	err := repo.Create(ctx, newTestUser("alice@example.com", "Other"))
	assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)

	err = repo.Create(ctx, newTestUser("other@example.com", "ALICE"))
	assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)
}

func TestPostgres_ConcurrentDisplayNameClaims(t *testing.T) {
	db := setupPostgresDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	const n = 8
	users := make([]*models.User, n)
	for i := range users {
		users[i] = createTestUser(t, repo, fmt.Sprintf("u%d@example.com", i), fmt.Sprintf("Racer%02d", i))
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for _, u := range users {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			err := repo.ChangeDisplayName(ctx, DisplayNameChange{
				UserID:  u.ID,
				OldKey:  u.DisplayNameKey,
				NewName: "Winner",
				NewKey:  validation.DisplayNameKey("Winner"),
				History: []string{u.DisplayName},
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.True(t, models.IsCode(err, models.CodeConflict), "got %v", err)
		}(u)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestPostgres_ConcurrentReactions(t *testing.T) {
	db := setupPostgresDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	author := createTestUser(t, users, "author@example.com", "Author")
	p := createTestPost(t, posts, author, nil, "go")

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		u := createTestUser(t, users, fmt.Sprintf("r%d@example.com", i), fmt.Sprintf("Reactor%02d", i))
		wg.Add(1)
		go func(userID string, like bool) {
			defer wg.Done()
			kind := models.ReactionDislike
			if like {
				kind = models.ReactionLike
			}
			// Flip twice to exercise the upsert path under contention.
			assert.NoError(t, posts.SetReaction(ctx, p.ID, userID, models.ReactionLike))
			assert.NoError(t, posts.SetReaction(ctx, p.ID, userID, kind))
		}(u.ID, i%2 == 0)
	}
	wg.Wait()

	s, err := posts.ReactionSummaries(ctx, []string{p.ID}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(13), s[p.ID].Likes)
	assert.Equal(t, int64(12), s[p.ID].Dislikes)
}

func TestPostgres_FindByTags(t *testing.T) {
	db := setupPostgresDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	alice := createTestUser(t, users, "alice@example.com", "Alice")
	ab := createTestPost(t, posts, alice, nil, "a", "b")
	createTestPost(t, posts, alice, nil, "a", "c")

	got, err := posts.FindByTags(ctx, []string{"a"}, []string{"c"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ab.ID, got[0].ID)
	assert.Equal(t, []string{"a", "b"}, got[0].TagNames())
}

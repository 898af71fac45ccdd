package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Joseph-Bethune/Gabble-Live/internal/auth"
	"github.com/Joseph-Bethune/Gabble-Live/internal/cache"
	"github.com/Joseph-Bethune/Gabble-Live/internal/database"
	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/repository"
)

const testPassword = "Corr3ct-Horse-Battery"

// testEnv wires the services over a private in-memory database.
type testEnv struct {
	users    repository.UserRepository
	posts    repository.PostRepository
	auth     *AuthService
	user     *UserService
	post     *PostService
	denylist *cache.TokenDenylist
	clock    time.Time
}

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

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := &testEnv{
		users:    repository.NewUserRepository(db),
		posts:    repository.NewPostRepository(db),
		denylist: cache.NewTokenDenylist(rdb),
		clock:    time.Now(),
	}
	cfg := auth.Config{
		AccessSecret:  []byte("access-secret-for-service-tests-0123"),
		RefreshSecret: []byte("refresh-secret-for-service-tests-012"),
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "gabble-test",
		BcryptCost:    4,
		Now:           func() time.Time { return env.clock },
	}
	env.auth = NewAuthService(env.users, cfg, env.denylist, models.DefaultRolePolicy)
	env.user = NewUserService(env.users, env.posts)
	env.post = NewPostService(env.posts)
	return env
}

func (e *testEnv) register(t *testing.T, email, displayName string) *Session {
	t.Helper()
	session, err := e.auth.Register(context.Background(), RegisterInput{
		Email:       email,
		Password:    testPassword,
		DisplayName: displayName,
	})
	require.NoError(t, err)
	return session
}

func (e *testEnv) createPost(t *testing.T, userID, message string, responseTo string, tags ...string) *models.PostView {
	t.Helper()
	view, err := e.post.CreatePost(context.Background(), CreatePostInput{
		UserID:     userID,
		Message:    message,
		Tags:       tags,
		ResponseTo: responseTo,
	})
	require.NoError(t, err)
	// Keep creation timestamps strictly increasing for ordering assertions.
	time.Sleep(2 * time.Millisecond)
	return view
}

func assertAppCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, models.IsCode(err, code), "expected %s, got %v", code, err)
}

func bearer(token string) string {
	return "Bearer " + token
}

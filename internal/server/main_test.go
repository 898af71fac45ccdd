package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Joseph-Bethune/Gabble-Live/internal/auth"
	"github.com/Joseph-Bethune/Gabble-Live/internal/config"
	"github.com/Joseph-Bethune/Gabble-Live/internal/database"
)

const testPassword = "Corr3ct-Horse-Battery"

func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		Env:                "test",
		DBDriver:           "sqlite",
		AllowedOrigins:     "http://localhost:5173",
		AccessTokenSecret:  "access-secret-for-handler-tests-0123",
		RefreshTokenSecret: "refresh-secret-for-handler-tests-012",
		AccessTokenTTL:     time.Hour,
		RefreshTokenTTL:    24 * time.Hour,
		TokenIssuer:        "gabble-test",
		BcryptCost:         4,
	}
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

// newTestApp returns an app over a private in-memory database and a
// miniredis instance.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s, err := NewServerWithDeps(testConfig(), setupTestDB(t), rdb)
	require.NoError(t, err)
	return s.App()
}

// request describes one call against the test app.
type request struct {
	method string
	path   string
	body   interface{}
	token  string
	cookie string
}

type response struct {
	status  int
	body    map[string]interface{}
	cookies []*http.Cookie
}

func do(t *testing.T, app *fiber.App, r request) response {
	t.Helper()
	var reader io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(r.method, r.path, reader)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	if r.cookie != "" {
		req.AddCookie(&http.Cookie{Name: auth.RefreshCookieName, Value: r.cookie})
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{status: resp.StatusCode, cookies: resp.Cookies()}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func (r response) refreshCookie() *http.Cookie {
	for _, c := range r.cookies {
		if c.Name == auth.RefreshCookieName {
			return c
		}
	}
	return nil
}

// session is a registered user as seen by a client.
type session struct {
	userID  string
	access  string
	refresh string
}

func register(t *testing.T, app *fiber.App, email, displayName string) session {
	t.Helper()
	resp := do(t, app, request{
		method: http.MethodPost,
		path:   "/users/register",
		body:   map[string]string{"email": email, "password": testPassword, "displayName": displayName},
	})
	require.Equal(t, fiber.StatusCreated, resp.status, resp.body)
	cookie := resp.refreshCookie()
	require.NotNil(t, cookie)
	return session{
		userID:  resp.body["userId"].(string),
		access:  resp.body["accessToken"].(string),
		refresh: cookie.Value,
	}
}

// Package bootstrap connects the stores and wires the services shared by the
// HTTP server and the admin commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Joseph-Bethune/Gabble-Live/internal/cache"
	"github.com/Joseph-Bethune/Gabble-Live/internal/config"
	"github.com/Joseph-Bethune/Gabble-Live/internal/database"
	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/observability"
	"github.com/Joseph-Bethune/Gabble-Live/internal/repository"
	"github.com/Joseph-Bethune/Gabble-Live/internal/service"
)

// Runtime holds the connected stores and the services built on them.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client

	UserRepo repository.UserRepository
	PostRepo repository.PostRepository

	Auth  *service.AuthService
	Users *service.UserService
	Posts *service.PostService
}

// InitRuntime connects to the database and Redis and wires the services.
// Redis may be unreachable; the runtime then runs without it.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rt := Wire(cfg, db, cache.Connect(ctx, cfg.RedisURL))

	if err := rt.EnsureAdmin(ctx, cfg.BootstrapAdminEmail); err != nil {
		_ = rt.Close()
		return nil, err
	}
	return rt, nil
}

// Wire builds the services over already-open stores. rdb may be nil.
func Wire(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *Runtime {
	rt := &Runtime{
		DB:       db,
		Redis:    rdb,
		UserRepo: repository.NewUserRepository(db),
		PostRepo: repository.NewPostRepository(db),
	}
	rt.Auth = service.NewAuthService(rt.UserRepo, cfg.AuthConfig(),
		cache.NewTokenDenylist(rdb), models.DefaultRolePolicy)
	rt.Users = service.NewUserService(rt.UserRepo, rt.PostRepo)
	rt.Posts = service.NewPostService(rt.PostRepo)
	return rt
}

// EnsureAdmin grants the admin role to the account registered under email.
// An empty email is a no-op, and so is an address nobody registered yet.
func (rt *Runtime) EnsureAdmin(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	user, err := rt.UserRepo.GetByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return fmt.Errorf("look up bootstrap admin: %w", err)
	}
	if user == nil {
		observability.Logger.WarnContext(ctx, "bootstrap admin not registered yet", slog.String("email", email))
		return nil
	}

	if _, err := rt.Users.GrantRole(ctx, user.ID, models.RoleAdmin); err != nil {
		return fmt.Errorf("grant bootstrap admin: %w", err)
	}
	observability.Logger.InfoContext(ctx, "bootstrap admin ensured", slog.String("user_id", user.ID))
	return nil
}

// Close releases the database pool and the Redis client.
func (rt *Runtime) Close() error {
	var firstErr error
	if sqlDB, err := rt.DB.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			firstErr = cerr
		}
	}
	if rt.Redis != nil {
		if rerr := rt.Redis.Close(); rerr != nil && firstErr == nil {
			firstErr = rerr
		}
	}
	return firstErr
}

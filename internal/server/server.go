// Package server contains the HTTP handlers and routing for the Gabble API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Joseph-Bethune/Gabble-Live/internal/auth"
	"github.com/Joseph-Bethune/Gabble-Live/internal/bootstrap"
	"github.com/Joseph-Bethune/Gabble-Live/internal/config"
	"github.com/Joseph-Bethune/Gabble-Live/internal/database"
	"github.com/Joseph-Bethune/Gabble-Live/internal/middleware"
	"github.com/Joseph-Bethune/Gabble-Live/internal/models"
	"github.com/Joseph-Bethune/Gabble-Live/internal/observability"
	"github.com/Joseph-Bethune/Gabble-Live/internal/service"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	authConfig     auth.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	authService    *service.AuthService
	userService    *service.UserService
	postService    *service.PostService
}

// NewServer connects to the database and Redis described by cfg and
// returns a ready-to-start server.
func NewServer(cfg *config.Config) (*Server, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rt, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newServer(cfg, rt), nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; rate limiting and token revocation are then skipped.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	return newServer(cfg, bootstrap.Wire(cfg, db, redisClient)), nil
}

func newServer(cfg *config.Config, rt *bootstrap.Runtime) *Server {
	return &Server{
		config:         cfg,
		authConfig:     cfg.AuthConfig(),
		db:             rt.DB,
		redis:          rt.Redis,
		promMiddleware: middleware.InitMetrics("gabble-api"),
		authService:    rt.Auth,
		userService:    rt.Users,
		postService:    rt.Posts,
	}
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Gabble API",
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	observability.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, models.HTTPStatus(err), err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.rateLimited()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	requireAuth := middleware.AuthRequired(s.authService)
	optionalAuth := middleware.OptionalAuth(s.authService)

	users := app.Group("/users")
	users.Post("/register", s.authRateLimit(3, 10*time.Minute, "register"), s.Register)
	users.Post("/login", s.authRateLimit(10, 5*time.Minute, "login"), s.Login)
	users.Get("/refreshLogin", s.RefreshLogin)
	users.Post("/refreshLogin", s.RefreshLogin)
	users.Post("/logout", s.Logout)
	users.Post("/changeDisplayName", requireAuth, s.ChangeDisplayName)
	users.Get("/getUserInfo", optionalAuth, s.GetUserInfo)
	users.Post("/getUserInfo", optionalAuth, s.GetUserInfo)
	users.Get("/testAccessToken", s.TestAccessToken)
	users.Get("/testRefreshToken", s.TestRefreshToken)
	users.Get("/", requireAuth, middleware.RolesRequired(models.RoleAdmin), s.ListUsers)

	posts := app.Group("/posts")
	posts.Post("/find", optionalAuth, s.FindPosts)
	posts.Post("/create", requireAuth, s.CreatePost)
	posts.Post("/changeLikeStatus", requireAuth, s.ChangeLikeStatus)
	posts.Post("/changeTags", requireAuth, s.ChangeTags)
}

// rateLimited reports whether request limits apply. Local runs and tests
// share one client address, so limits are only enforced in deployed envs.
func (s *Server) rateLimited() bool {
	switch s.config.Env {
	case "", "development", "test":
		return false
	default:
		return true
	}
}

func (s *Server) authRateLimit(limit int, window time.Duration, name string) fiber.Handler {
	if !s.rateLimited() {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return middleware.RateLimit(s.redis, limit, window, name)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"status":  "up",
		"time":    time.Now(),
	})
}

// ReadinessCheck reports whether the database answers. Redis is optional,
// so its state is reported without failing the check.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"success": status == fiber.StatusOK,
		"status":  overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start serves HTTP on the configured port until Shutdown is called.
func (s *Server) Start() error {
	app := s.App()
	observability.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			observability.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			observability.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	return nil
}

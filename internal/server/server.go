// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradeconnect/internal/cache"
	"tradeconnect/internal/config"
	"tradeconnect/internal/database"
	"tradeconnect/internal/middleware"
	"tradeconnect/internal/models"
	"tradeconnect/internal/repository"
	"tradeconnect/internal/service"
	"tradeconnect/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	blobs          storage.BlobStore

	userRepo        repository.UserRepository
	profileRepo     repository.ProfileRepository
	postRepo        repository.PostRepository
	interactionRepo repository.InteractionRepository
	categoryRepo    repository.CategoryRepository
	analyticsRepo   repository.AnalyticsRepository

	authService        *service.AuthService
	userService        *service.UserService
	postService        *service.PostService
	interactionService *service.InteractionService
	adminService       *service.AdminService
	categoryService    *service.CategoryService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and
// optionally performs explicit seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	blobClient, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
	if err != nil {
		return nil, fmt.Errorf("blob store init failed: %w", err)
	}
	// Keep the interface nil when storage is not configured; a typed nil
	// would defeat the nil checks in the services.
	var blobs storage.BlobStore
	if blobClient != nil {
		blobs = blobClient
	}

	prom := middleware.InitMetrics("tradeconnect-api")

	server := &Server{
		config:          cfg,
		db:              db,
		redis:           redisClient,
		promMiddleware:  prom,
		blobs:           blobs,
		userRepo:        repository.NewUserRepository(db),
		profileRepo:     repository.NewProfileRepository(db),
		postRepo:        repository.NewPostRepository(db),
		interactionRepo: repository.NewInteractionRepository(db),
		categoryRepo:    repository.NewCategoryRepository(db),
		analyticsRepo:   repository.NewAnalyticsRepository(db),
	}

	server.authService = service.NewAuthService(server.userRepo, server.profileRepo, cfg.JWTSecret)
	server.userService = service.NewUserService(server.userRepo, server.profileRepo)
	server.postService = service.NewPostService(server.postRepo, server.categoryRepo, blobs, server.isAdminByUserID)
	server.interactionService = service.NewInteractionService(server.interactionRepo, server.isAdminByUserID)
	server.adminService = service.NewAdminService(server.analyticsRepo, server.postRepo, server.profileRepo, blobs)
	server.categoryService = service.NewCategoryService(server.categoryRepo)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Request span. Runs before ContextMiddleware so the trace ID it puts
	// in locals ends up in the request context for logging.
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID, User ID, and Trace ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS middleware should run before middlewares that can short-circuit
	// (e.g. limiter) so browser clients still receive CORS headers on error
	// responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		// Never rate-limit preflight requests; they are handled by CORS.
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)
	api.Get("/", s.HealthCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "TradeConnect Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)

	// Public browse routes
	api.Get("/categories", s.GetCategories)
	api.Get("/stats", s.GetPostStats)

	publicPosts := api.Group("/posts")
	publicPosts.Get("/", s.GetPosts)
	publicPosts.Get("/search", middleware.RateLimit(
		s.redis, 10, time.Minute, "search"), s.SearchPosts)
	publicPosts.Get("/featured", s.GetFeaturedPosts)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	publicPosts.Get("/:id/comments", s.GetComments)
	publicPosts.Get("/:id", s.GetPost)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/me/likes", s.GetLikedPosts)
	users.Get("/me/favorites", s.GetFavoritePosts)
	users.Get("/", s.GetAllUsers)
	users.Get("/:id/posts", s.GetUserPosts)
	users.Get("/:id", s.GetUserProfile)

	// Protected post routes
	posts := protected.Group("/posts")
	posts.Post("/", middleware.RateLimit(
		s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	posts.Post("/:id/like", s.ToggleLike)
	posts.Post("/:id/favorite", s.ToggleFavorite)
	posts.Get("/:id/interactions", s.GetMyInteractions)
	posts.Post("/:id/comments", middleware.RateLimit(
		s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Delete("/:id/comments/:commentId", s.DeleteComment)
	posts.Post("/:id/images", s.AddPostImage)
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	// Upload presigning
	protected.Post("/uploads", middleware.RateLimit(
		s.redis, 20, time.Minute, "upload"), s.CreateUploadURL)

	// Admin routes
	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/analytics", s.GetAnalytics)
	admin.Get("/activity", s.GetRecentActivity)
	admin.Get("/users", s.AdminListUsers)
	admin.Post("/users/:id/verify", s.ToggleUserVerification)
	admin.Get("/posts", s.AdminListPosts)
	admin.Post("/posts/:id/feature", s.ToggleFeatured)
	admin.Delete("/posts/:id", s.AdminDeletePost)
	admin.Post("/categories", s.CreateCategory)
	admin.Post("/categories/seed", s.SeedCategories)
}

// HealthCheck is a legacy/simple alias for ReadinessCheck
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	return s.ReadinessCheck(c)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// The API degrades without Redis (no caching, fail-open rate
		// limits) but stays serviceable.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "TradeConnect API",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware. It accepts the session
// token from the Authorization header (Bearer) or the "token" cookie and
// stores the verified identity in locals.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			tokenString = c.Cookies("token")
		}
		if tokenString == "" {
			return respondError(c, models.NewUnauthorizedError("Authorization required"))
		}

		identity, err := s.authService.VerifyToken(tokenString)
		if err != nil {
			return respondError(c, err)
		}

		c.Locals("userID", identity.UserID)
		c.Locals("role", identity.Role)
		// Sync to UserContext for logging and downstream services
		ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, identity.UserID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after AuthRequired so that userID is available in locals.
// The role in the token can lag a promotion by up to the token lifetime, so
// the database is consulted when the token says "user".
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, ok := c.Locals("role").(string); ok && role == models.RoleAdmin {
			return c.Next()
		}

		userID := c.Locals("userID").(uint)
		admin, err := s.isAdminByUserID(c.Context(), userID)
		if err != nil {
			return respondError(c, err)
		}
		if !admin {
			return respondError(c, models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// Start starts the server
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName: "TradeConnect API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	log.Printf("Server starting on port %s...", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

// Package server assembles the Fiber app for the trigger surface.
package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/storage/redis/v3"

	"studysync/internal/config"
)

// Server wraps the Fiber app and configuration.
type Server struct {
	App *fiber.App
	Cfg *config.Config

	triggerLimiter fiber.Handler
	storage        fiber.Storage
}

// New creates a new server with middleware configured.
func New(cfg *config.Config) *Server {
	app := fiber.New(fiber.Config{
		AppName: "studysync",
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal Server Error"

			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
				message = e.Message
			}

			return c.Status(code).JSON(fiber.Map{
				"status": "error",
				"error":  message,
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{App: app, Cfg: cfg}

	// Limiter state lives in Redis when configured, shared by all replicas.
	if cfg.RedisURL != "" {
		s.storage = redis.New(redis.Config{URL: cfg.RedisURL})
		slog.Info("trigger rate limiter using redis storage")
	}

	// Rate limiting for manual syncs, per IP
	maxRequests := cfg.TriggerRateLimit
	if maxRequests <= 0 {
		maxRequests = 6
	}
	s.triggerLimiter = limiter.New(limiter.Config{
		Max:        maxRequests,
		Expiration: 1 * time.Minute,
		Storage:    s.storage,
		KeyGenerator: func(c fiber.Ctx) string {
			return "sync:" + c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"status": "error",
				"error":  "Rate limit exceeded. Please try again later.",
			})
		},
	})

	return s
}

// Start starts the server on the configured address.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.Cfg.ServerAddr)
	return s.App.Listen(s.Cfg.ServerAddr, fiber.ListenConfig{DisableStartupMessage: !s.Cfg.IsDev()})
}

// Shutdown gracefully shuts down the server and releases limiter storage.
func (s *Server) Shutdown() error {
	err := s.App.Shutdown()
	if s.storage != nil {
		err = errors.Join(err, s.storage.Close())
	}
	return err
}

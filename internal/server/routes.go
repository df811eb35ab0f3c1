package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"

	"studysync/internal/db"
	"studysync/internal/epoch"
	"studysync/internal/handlers"
	"studysync/internal/metrics"
	"studysync/internal/middleware"
)

// Deps are the collaborators the routes need. Ledger, Metrics and Auth are
// optional.
type Deps struct {
	Scheduler handlers.Triggerer
	Warmed    func() bool
	Ledger    *db.DB
	Metrics   *metrics.Metrics
	Auth      *middleware.BearerAuth
	Clock     epoch.Clock
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(deps Deps) {
	// Health and probes
	var pinger handlers.Pinger
	if deps.Ledger != nil {
		pinger = deps.Ledger
	}
	probeHandler := handlers.NewProbeHandler(pinger, deps.Warmed)
	s.App.Get("/health", handlers.NewHealthHandler(deps.Clock).Health)
	s.App.Get("/healthz", probeHandler.Liveness)
	s.App.Get("/readyz", probeHandler.Readiness)

	// Manual sync, optionally behind an OIDC bearer token
	syncHandler := handlers.NewSyncHandler(deps.Scheduler)
	if deps.Auth != nil {
		s.App.Post("/sync", s.triggerLimiter, deps.Auth.RequireToken, syncHandler.Trigger)
	} else {
		slog.Warn("POST /sync does not require authentication; set OIDC_ISSUER to enable")
		s.App.Post("/sync", s.triggerLimiter, syncHandler.Trigger)
	}

	// Run ledger
	if deps.Ledger != nil {
		runsHandler := handlers.NewRunsHandler(deps.Ledger)
		s.App.Get("/runs", runsHandler.List)
		s.App.Get("/runs/:id", runsHandler.Get)
	} else {
		s.App.Get("/runs", func(c fiber.Ctx) error {
			return fiber.NewError(fiber.StatusNotFound, "run ledger disabled; set DATABASE_URL to enable")
		})
	}

	if deps.Metrics != nil {
		s.App.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}
}

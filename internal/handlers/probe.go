package handlers

import (
	"context"

	"github.com/gofiber/fiber/v3"
)

// Pinger is implemented by the run ledger.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeHandler handles Kubernetes health probe endpoints.
type ProbeHandler struct {
	ledger Pinger
	warmed func() bool
}

// NewProbeHandler creates a new probe handler. ledger may be nil when the run
// ledger is disabled; warmed reports whether the duplicate cache is loaded.
func NewProbeHandler(ledger Pinger, warmed func() bool) *ProbeHandler {
	if warmed == nil {
		warmed = func() bool { return true }
	}
	return &ProbeHandler{ledger: ledger, warmed: warmed}
}

// Liveness handles the /healthz endpoint for Kubernetes liveness probes.
// Returns 200 OK if the application is running.
func (h *ProbeHandler) Liveness(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// Readiness handles the /readyz endpoint for Kubernetes readiness probes.
// Returns 200 OK once the cache is warm and the ledger, if any, is reachable.
func (h *ProbeHandler) Readiness(c fiber.Ctx) error {
	if !h.warmed() {
		return jsonError(c, fiber.StatusServiceUnavailable, "cache not warmed")
	}

	if h.ledger != nil {
		if err := h.ledger.Ping(c.Context()); err != nil {
			return jsonError(c, fiber.StatusServiceUnavailable, "database unavailable")
		}
	}

	return c.JSON(fiber.Map{
		"status": "ok",
	})
}

// Package handlers serves the trigger surface: health, probes, manual sync
// and the run ledger.
package handlers

import (
	"github.com/gofiber/fiber/v3"

	"studysync/internal/epoch"
	"studysync/internal/models"
)

// HealthHandler reports that the process is up.
type HealthHandler struct {
	clock epoch.Clock
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(clock epoch.Clock) *HealthHandler {
	if clock == nil {
		clock = epoch.SystemClock{}
	}
	return &HealthHandler{clock: clock}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	return c.JSON(models.HealthResponse{
		Status: "ok",
		Time:   h.clock.Now().UTC(),
	})
}

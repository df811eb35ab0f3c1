package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"studysync/internal/db"
	"studysync/internal/models"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// RunLister reads the run ledger.
type RunLister interface {
	ListRecentRuns(ctx context.Context, limit int) ([]models.SyncRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (*models.SyncRun, error)
}

// RunsHandler exposes the run ledger as JSON.
type RunsHandler struct {
	ledger RunLister
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(ledger RunLister) *RunsHandler {
	return &RunsHandler{ledger: ledger}
}

// List handles GET /runs?limit=N.
func (h *RunsHandler) List(c fiber.Ctx) error {
	limit := fiber.Query[int](c, "limit", defaultRunLimit)
	if limit <= 0 {
		return jsonError(c, fiber.StatusBadRequest, "limit must be positive")
	}
	limit = min(limit, maxRunLimit)

	runs, err := h.ledger.ListRecentRuns(c.Context(), limit)
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to list runs")
	}
	return jsonSuccess(c, runs)
}

// Get handles GET /runs/:id.
func (h *RunsHandler) Get(c fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid run id")
	}

	run, err := h.ledger.GetRun(c.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrRunNotFound) {
			return jsonError(c, fiber.StatusNotFound, "run not found")
		}
		slog.Error("failed to fetch run", "run_id", id, "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch run")
	}
	return jsonSuccess(c, run)
}

package handlers

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"studysync/internal/jobs"
	"studysync/internal/models"
)

// Triggerer queues an out-of-band sync.
type Triggerer interface {
	Trigger() (uuid.UUID, error)
}

// SyncHandler handles manual sync requests.
type SyncHandler struct {
	scheduler Triggerer
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(scheduler Triggerer) *SyncHandler {
	return &SyncHandler{scheduler: scheduler}
}

// Trigger handles POST /sync. The run happens in the background; the response
// only acknowledges it was queued.
func (h *SyncHandler) Trigger(c fiber.Ctx) error {
	id, err := h.scheduler.Trigger()
	if err != nil {
		if errors.Is(err, jobs.ErrTriggerQueueFull) {
			return jsonError(c, fiber.StatusServiceUnavailable, "too many pending syncs, try again later")
		}
		slog.Error("failed to queue sync", "error", err)
		return jsonError(c, fiber.StatusInternalServerError, "failed to schedule sync")
	}

	slog.Info("manual sync queued", "run_id", id, "ip", c.IP())
	return c.Status(fiber.StatusAccepted).JSON(models.TriggerResponse{
		Detail: "Sync scheduled.",
		RunID:  id,
	})
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// HealthResponse is returned by the liveness endpoint.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

// TriggerResponse acknowledges a queued manual sync.
type TriggerResponse struct {
	Detail string    `json:"detail"`
	RunID  uuid.UUID `json:"run_id"`
}

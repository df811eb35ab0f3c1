package models

import (
	"time"

	"github.com/google/uuid"
)

// Job names
const (
	JobSync  = "sync"
	JobReset = "reset"
)

// Run triggers
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// SyncRun is a ledger entry for one sync or reset job execution.
type SyncRun struct {
	ID         uuid.UUID  `json:"id"`
	Job        string     `json:"job"`
	Trigger    string     `json:"trigger"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Summary
	Archived int     `json:"archived"`
	Error    *string `json:"error,omitempty"`
}

// Succeeded reports whether the run finished without a job-level error.
func (r *SyncRun) Succeeded() bool {
	return r.FinishedAt != nil && r.Error == nil
}

// Run results, as exported in metrics.
const (
	ResultRunning = "running"
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Result classifies the run for reporting.
func (r *SyncRun) Result() string {
	switch {
	case r.FinishedAt == nil:
		return ResultRunning
	case r.Error != nil:
		return ResultFailure
	default:
		return ResultSuccess
	}
}

// RunCount is the number of ledger runs for one job and result.
type RunCount struct {
	Job    string
	Result string
	Count  int64
}

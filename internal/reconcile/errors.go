package reconcile

import (
	"errors"

	"studysync/internal/source"
)

// Reconciliation error sentinels.
var (
	// ErrSourceUnavailable aborts a cycle before any record is reconciled.
	ErrSourceUnavailable = source.ErrUnavailable

	// ErrRecordWriteFailed marks a create, update or archive rejected by the store.
	ErrRecordWriteFailed = errors.New("record write failed")

	// ErrStoreScanFailed marks a failed paginated scan during warm-up or reset.
	ErrStoreScanFailed = errors.New("store scan failed")
)

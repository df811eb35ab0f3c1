package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"studysync/internal/models"
)

// Resetter archives the store and clears the cache at the start of an epoch.
type Resetter struct {
	store Store
	cache *Cache
	log   *slog.Logger
}

// NewResetter creates a Resetter sharing cache with the Reconciler.
func NewResetter(store Store, cache *Cache, logger *slog.Logger) *Resetter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resetter{store: store, cache: cache, log: logger}
}

// Reset archives every active page and clears the cache. It returns the
// number of pages archived. The store is enumerated before anything is
// archived; a scan failure leaves both store and cache as they were. Archive
// failures are collected and the remaining pages are still archived.
// Running Reset twice is safe: the second run archives nothing.
func (r *Resetter) Reset(ctx context.Context) (int, error) {
	var active []models.Page
	if err := scanAll(ctx, r.store, func(p models.Page) {
		if !p.Archived {
			active = append(active, p)
		}
	}); err != nil {
		return 0, err
	}

	archived := 0
	var errs []error
	for _, p := range active {
		if err := r.store.ArchivePage(ctx, p.ID); err != nil {
			r.log.Error("page archive failed", "op", "archive", "page_id", p.ID, "name", p.Name, "error", err)
			errs = append(errs, fmt.Errorf("archive %s: %w", p.ID, err))
			continue
		}
		archived++
	}

	r.cache.Clear()
	r.log.Info("weekly reset complete", "archived", archived, "failed", len(errs))

	if len(errs) > 0 {
		return archived, fmt.Errorf("%w: %w", ErrRecordWriteFailed, errors.Join(errs...))
	}
	return archived, nil
}

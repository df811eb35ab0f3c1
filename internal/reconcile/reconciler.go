// Package reconcile keeps the Notion database in step with the source while
// guaranteeing at most one active page per student per week.
//
// Every record crosses two barriers before a write: the in-memory Cache, then a
// live store query made while holding the record's Guard. The cache makes
// steady-state cycles cheap; the live query keeps the first cycle after a
// restart, a reset or an overlapping run correct.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"studysync/internal/epoch"
	"studysync/internal/models"
	"studysync/internal/normalize"
)

// scanPageSize is the page size of full store scans.
const scanPageSize = 100

// Store is the destination document store.
type Store interface {
	QueryPages(ctx context.Context, filter models.PageFilter, pageSize int, cursor string) (models.PageList, error)
	CreatePage(ctx context.Context, fields models.PageFields) (string, error)
	UpdatePage(ctx context.Context, id string, fields models.PageFields) error
	ArchivePage(ctx context.Context, id string) error
}

// Fetcher produces the records of one cycle.
type Fetcher interface {
	Fetch(ctx context.Context, window models.Window) ([]models.EntityRecord, error)
}

// Policy decides what a live store hit does.
type Policy string

// Store-hit policies
const (
	// PolicyUpdate rewrites duration and level when they changed.
	PolicyUpdate Policy = "update"
	// PolicySkip leaves existing pages untouched.
	PolicySkip Policy = "skip"
)

// Options configures a Reconciler.
type Options struct {
	Policy      Policy
	Concurrency int
	Status      string // written on create when the schema has a status property
	Teacher     string // written on create when the schema has a teacher property
	Observe     func(models.Outcome)
	Logger      *slog.Logger
}

// Reconciler creates, updates or skips one page per fetched record.
type Reconciler struct {
	fetcher     Fetcher
	store       Store
	cache       *Cache
	policy      Policy
	concurrency int
	status      string
	teacher     string
	observe     func(models.Outcome)
	log         *slog.Logger
}

// New creates a Reconciler. The cache is owned by the caller and shared with
// the Resetter.
func New(fetcher Fetcher, store Store, cache *Cache, opts Options) *Reconciler {
	if opts.Policy == "" {
		opts.Policy = PolicyUpdate
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Observe == nil {
		opts.Observe = func(models.Outcome) {}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reconciler{
		fetcher:     fetcher,
		store:       store,
		cache:       cache,
		policy:      opts.Policy,
		concurrency: opts.Concurrency,
		status:      opts.Status,
		teacher:     opts.Teacher,
		observe:     opts.Observe,
		log:         opts.Logger,
	}
}

// Cache returns the duplicate cache.
func (r *Reconciler) Cache() *Cache {
	return r.cache
}

// Warm replaces the cache with the signatures of every active page in the
// store. On failure the cache is left unchanged.
func (r *Reconciler) Warm(ctx context.Context) (int, error) {
	var sigs []models.Signature
	err := scanAll(ctx, r.store, func(p models.Page) {
		if p.Archived {
			return
		}
		if sig, ok := pageSignature(p); ok {
			sigs = append(sigs, sig)
		}
	})
	if err != nil {
		return 0, err
	}
	r.cache.Replace(sigs)
	r.log.Info("duplicate cache warmed", "signatures", r.cache.Len())
	return r.cache.Len(), nil
}

// Run fetches the records for window (zero means the current week) and
// reconciles them concurrently. A source failure aborts the cycle before any
// write. Record failures are isolated and only counted.
func (r *Reconciler) Run(ctx context.Context, window models.Window) (models.Summary, error) {
	records, err := r.fetcher.Fetch(ctx, window)
	if err != nil {
		if !errors.Is(err, ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		return models.Summary{}, err
	}

	// A started cycle runs to completion; shutdown does not cut it mid-record.
	ctx = context.WithoutCancel(ctx)

	outcomes := make([]models.Outcome, len(records))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, rec := range records {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					r.log.Error("record panicked", "name", rec.Name, "key", rec.Key, "panic", p)
					outcomes[i] = models.OutcomeFailed
				}
			}()
			outcomes[i] = r.Process(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()

	summary := models.Summary{Fetched: len(records)}
	for _, o := range outcomes {
		summary.Add(o)
		r.observe(o)
	}
	return summary, nil
}

// Process runs one record through both barriers and returns its outcome.
func (r *Reconciler) Process(ctx context.Context, rec models.EntityRecord) models.Outcome {
	sig := rec.Signature()
	if r.cache.Contains(sig) {
		return models.OutcomeSkippedCache
	}

	release := r.cache.Guard(sig.Key)
	defer release()

	// Another task may have written this signature while we waited.
	if r.cache.Contains(sig) {
		return models.OutcomeSkippedCache
	}

	log := r.log.With("name", rec.Name, "key", rec.Key, "level", rec.Level)

	existing, err := r.findActive(ctx, rec.Key)
	if err != nil {
		log.Error("live duplicate check failed", "op", "query", "error", err)
		return models.OutcomeFailed
	}

	fields := r.fields(rec)
	if existing != nil {
		if r.policy == PolicySkip || upToDate(*existing, fields) {
			// The page is left as stored, so cache what it actually holds.
			if stored, ok := pageSignature(*existing); ok {
				r.cache.Add(stored)
			}
			log.Debug("duplicate found in store", "page_id", existing.ID)
			return models.OutcomeSkippedStore
		}
		if err := r.store.UpdatePage(ctx, existing.ID, fields); err != nil {
			log.Error("page update failed", "op", "update", "page_id", existing.ID,
				"error", fmt.Errorf("%w: %w", ErrRecordWriteFailed, err))
			return models.OutcomeFailed
		}
		r.remember(*existing, sig)
		log.Info("page updated", "page_id", existing.ID, "duration", fields.Duration)
		return models.OutcomeUpdated
	}

	id, err := r.store.CreatePage(ctx, fields)
	if err != nil {
		log.Error("page create failed", "op", "create",
			"error", fmt.Errorf("%w: %w", ErrRecordWriteFailed, err))
		return models.OutcomeFailed
	}
	r.cache.Add(sig)
	log.Info("page created", "page_id", id, "duration", fields.Duration)
	return models.OutcomeCreated
}

// findActive returns the active page for key, or nil.
func (r *Reconciler) findActive(ctx context.Context, key string) (*models.Page, error) {
	list, err := r.store.QueryPages(ctx, models.PageFilter{Key: key}, 1, "")
	if err != nil {
		return nil, err
	}
	for i := range list.Pages {
		if !list.Pages[i].Archived {
			return &list.Pages[i], nil
		}
	}
	return nil, nil
}

// remember caches sig after a successful update and drops the signature the
// page carried before, so a level change does not leave a signature for a
// page that no longer has it.
func (r *Reconciler) remember(existing models.Page, sig models.Signature) {
	if old, ok := pageSignature(existing); ok && old != sig {
		r.cache.Remove(old)
	}
	r.cache.Add(sig)
}

func (r *Reconciler) fields(rec models.EntityRecord) models.PageFields {
	var weekStart time.Time
	if !rec.Window.Start.IsZero() {
		weekStart = epoch.WeekStart(rec.Window.Start)
	}
	return models.PageFields{
		Name:      rec.Name,
		Key:       rec.Key,
		Level:     rec.Level,
		Duration:  normalize.FormatDuration(rec.Seconds),
		Seconds:   rec.Seconds,
		WeekStart: weekStart,
		Status:    r.status,
		Teacher:   r.teacher,
	}
}

func upToDate(p models.Page, f models.PageFields) bool {
	return p.Key == f.Key && p.Level == f.Level && p.Duration == f.Duration
}

// pageSignature derives the signature of a stored page, falling back to the
// normalized name when the key property is empty.
func pageSignature(p models.Page) (models.Signature, bool) {
	key := p.Key
	if key == "" {
		key = normalize.Key(p.Name)
	}
	if key == "" {
		return models.Signature{}, false
	}
	level := p.Level
	if level == "" {
		level = normalize.UnknownLevel
	}
	return models.Signature{Key: key, Level: level}, true
}

// scanAll visits every page in the store. Any query error aborts the scan
// with ErrStoreScanFailed.
func scanAll(ctx context.Context, store Store, visit func(models.Page)) error {
	cursor := ""
	for {
		list, err := store.QueryPages(ctx, models.PageFilter{}, scanPageSize, cursor)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrStoreScanFailed, err)
		}
		for _, p := range list.Pages {
			visit(p)
		}
		if !list.HasMore() {
			return nil
		}
		cursor = list.NextCursor
	}
}

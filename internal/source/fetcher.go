package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"studysync/internal/epoch"
	"studysync/internal/models"
	"studysync/internal/normalize"
)

const unnamedStudent = "Unnamed Student"

// API is the subset of the Flexge client the fetcher needs.
type API interface {
	ListStudents(ctx context.Context, window models.Window, page int) ([]Student, error)
	Overview(ctx context.Context, studentID string) (Overview, error)
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	Clock       epoch.Clock
	Leveler     *normalize.Leveler
	MaxPages    int
	Concurrency int
}

// Fetcher turns paginated source data into entity records for one window.
type Fetcher struct {
	api         API
	clock       epoch.Clock
	leveler     *normalize.Leveler
	maxPages    int
	concurrency int
}

// NewFetcher creates a fetcher over api.
func NewFetcher(api API, opts FetcherOptions) *Fetcher {
	if opts.Clock == nil {
		opts.Clock = epoch.SystemClock{}
	}
	if opts.Leveler == nil {
		opts.Leveler = normalize.NewLeveler(nil)
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 200
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Fetcher{
		api:         api,
		clock:       opts.Clock,
		leveler:     opts.Leveler,
		maxPages:    opts.MaxPages,
		concurrency: opts.Concurrency,
	}
}

// Fetch returns every student observed in window, or in the current week when
// window is zero. Any failure abandons the whole fetch; no partial result is
// returned.
func (f *Fetcher) Fetch(ctx context.Context, window models.Window) ([]models.EntityRecord, error) {
	if window.IsZero() {
		window = epoch.Current(f.clock.Now())
	}

	students, err := f.listAll(ctx, window)
	if err != nil {
		return nil, err
	}

	records := make([]models.EntityRecord, len(students))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for i, st := range students {
		g.Go(func() error {
			overview, err := f.api.Overview(gCtx, st.ID)
			if err != nil {
				return err
			}
			records[i] = f.record(st, overview, window)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, wrapUnavailable(err)
	}

	slog.Debug("source fetch complete", "students", len(records), "from", window.Start, "to", window.End)
	return records, nil
}

// listAll walks pages until an empty one. A student seen on an earlier page
// is not counted again when pagination shifts.
func (f *Fetcher) listAll(ctx context.Context, window models.Window) ([]Student, error) {
	var all []Student
	seen := make(map[string]struct{})
	for page := 1; ; page++ {
		if page > f.maxPages {
			return nil, fmt.Errorf("%w: more than %d pages", ErrUnavailable, f.maxPages)
		}
		students, err := f.api.ListStudents(ctx, window, page)
		if err != nil {
			return nil, wrapUnavailable(err)
		}
		if len(students) == 0 {
			return all, nil
		}
		for _, st := range students {
			id := st.ID
			if id == "" {
				id = "name:" + normalize.Key(st.Name)
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			all = append(all, st)
		}
	}
}

func (f *Fetcher) record(st Student, overview Overview, window models.Window) models.EntityRecord {
	name := strings.TrimSpace(st.Name)
	if name == "" {
		name = unnamedStudent
	}
	return models.EntityRecord{
		SourceID: st.ID,
		Name:     name,
		Key:      normalize.Key(name),
		Level:    f.leveler.Level(overview.CourseName()),
		Seconds:  TotalSeconds(st),
		Window:   window,
	}
}

// TotalSeconds sums the weekly counter and every session counter.
func TotalSeconds(st Student) int64 {
	total := st.WeekTime.StudiedTime
	for _, e := range st.Executions {
		total += e.StudiedTime
	}
	return total
}

func wrapUnavailable(err error) error {
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

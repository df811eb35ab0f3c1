// Package jobs runs the periodic sync, the weekly reset and manual sync
// requests.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"studysync/internal/epoch"
	"studysync/internal/models"
)

// ErrTriggerQueueFull is returned by Trigger when too many manual runs are
// already waiting.
var ErrTriggerQueueFull = errors.New("sync trigger queue is full")

// DefaultResetSchedule fires at Monday 00:00 UTC, ahead of the 00:01 window
// start.
const DefaultResetSchedule = "0 0 * * 1"

// Syncer runs one reconciliation cycle.
type Syncer interface {
	Run(ctx context.Context, window models.Window) (models.Summary, error)
}

// Resetter archives the previous epoch.
type Resetter interface {
	Reset(ctx context.Context) (int, error)
}

// RunRecorder persists run ledger entries.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.SyncRun) error
}

// Observer receives run and trigger events, typically for metrics.
type Observer interface {
	ObserveRun(run *models.SyncRun)
	ObserveTrigger(accepted bool)
}

// Options configures a Scheduler.
type Options struct {
	Interval      time.Duration
	ResetSchedule string
	QueueSize     int
	Clock         epoch.Clock
	Recorder      RunRecorder // optional
	Observer      Observer    // optional
	Logger        *slog.Logger
}

// Scheduler drives sync and reset runs. Periodic and manual syncs may overlap;
// the reconciler's dedup protocol keeps them safe.
type Scheduler struct {
	syncer   Syncer
	resetter Resetter
	interval time.Duration
	clock    epoch.Clock
	recorder RunRecorder
	observer Observer
	log      *slog.Logger

	cron  *cron.Cron
	queue chan uuid.UUID
	wg    sync.WaitGroup
}

// NewScheduler validates the reset schedule and builds a Scheduler.
func NewScheduler(syncer Syncer, resetter Resetter, opts Options) (*Scheduler, error) {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Minute
	}
	if opts.ResetSchedule == "" {
		opts.ResetSchedule = DefaultResetSchedule
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 4
	}
	if opts.Clock == nil {
		opts.Clock = epoch.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Scheduler{
		syncer:   syncer,
		resetter: resetter,
		interval: opts.Interval,
		clock:    opts.Clock,
		recorder: opts.Recorder,
		observer: opts.Observer,
		log:      opts.Logger,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		queue:    make(chan uuid.UUID, opts.QueueSize),
	}

	if _, err := s.cron.AddFunc(opts.ResetSchedule, func() {
		s.RunReset(context.Background(), uuid.New(), models.TriggerSchedule)
	}); err != nil {
		return nil, fmt.Errorf("invalid reset schedule %q: %w", opts.ResetSchedule, err)
	}
	return s, nil
}

// Start runs a sync immediately, then every interval, until ctx is done.
// It also starts the reset cron and the manual trigger worker. Start blocks;
// call Stop after cancelling ctx to wait for in-flight runs, including a
// startup or periodic sync still in progress.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	defer s.wg.Done()

	s.log.Info("scheduler started", "interval", s.interval)

	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatch(ctx)
	}()

	s.RunSync(ctx, uuid.New(), models.TriggerStartup)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunSync(ctx, uuid.New(), models.TriggerSchedule)
		}
	}
}

// Trigger queues a manual sync and returns its run id without waiting.
func (s *Scheduler) Trigger() (uuid.UUID, error) {
	id := uuid.New()
	select {
	case s.queue <- id:
		s.observeTrigger(true)
		return id, nil
	default:
		s.observeTrigger(false)
		return uuid.Nil, ErrTriggerQueueFull
	}
}

// Stop halts the reset cron and waits for running jobs and manual syncs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// dispatch starts each queued manual sync in its own goroutine.
func (s *Scheduler) dispatch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-s.queue:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.RunSync(ctx, id, models.TriggerManual)
			}()
		}
	}
}

// RunSync executes one sync cycle for the current epoch and records it.
func (s *Scheduler) RunSync(ctx context.Context, id uuid.UUID, trigger string) *models.SyncRun {
	now := s.clock.Now()
	run := &models.SyncRun{ID: id, Job: models.JobSync, Trigger: trigger, StartedAt: now}
	s.record(ctx, run)

	window := epoch.Current(now)
	summary, err := s.syncer.Run(ctx, window)
	run.Summary = summary
	s.finish(ctx, run, err)

	if err != nil {
		s.log.Error("sync failed", "run_id", id, "trigger", trigger, "error", err)
	} else {
		s.log.Info("sync complete", "run_id", id, "trigger", trigger,
			"window_start", window.Start, "fetched", summary.Fetched,
			"created", summary.Created, "updated", summary.Updated,
			"skipped", summary.Skipped(), "failed", summary.Failed)
	}
	return run
}

// RunReset archives the previous epoch and records the run.
func (s *Scheduler) RunReset(ctx context.Context, id uuid.UUID, trigger string) *models.SyncRun {
	run := &models.SyncRun{ID: id, Job: models.JobReset, Trigger: trigger, StartedAt: s.clock.Now()}
	s.record(ctx, run)

	archived, err := s.resetter.Reset(ctx)
	run.Archived = archived
	s.finish(ctx, run, err)

	if err != nil {
		s.log.Error("weekly reset failed", "run_id", id, "archived", archived, "error", err)
	} else {
		s.log.Info("weekly reset complete", "run_id", id, "archived", archived)
	}
	return run
}

func (s *Scheduler) finish(ctx context.Context, run *models.SyncRun, err error) {
	finished := s.clock.Now()
	run.FinishedAt = &finished
	if err != nil {
		msg := err.Error()
		run.Error = &msg
	}
	s.record(ctx, run)
	if s.observer != nil {
		s.observer.ObserveRun(run)
	}
}

// record writes run to the ledger. Ledger failures are logged and never fail
// the run.
func (s *Scheduler) record(ctx context.Context, run *models.SyncRun) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		s.log.Warn("failed to record run", "run_id", run.ID, "job", run.Job, "error", err)
	}
}

func (s *Scheduler) observeTrigger(accepted bool) {
	if s.observer != nil {
		s.observer.ObserveTrigger(accepted)
	}
}

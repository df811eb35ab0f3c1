package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studysync/internal/epoch"
	"studysync/internal/models"
	"studysync/internal/reconcile"
	"studysync/internal/testutil"
)

type fakeSyncer struct {
	mu      sync.Mutex
	windows []models.Window
	summary models.Summary
	err     error
	calls   chan struct{}
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{calls: make(chan struct{}, 16)}
}

func (f *fakeSyncer) Run(_ context.Context, w models.Window) (models.Summary, error) {
	f.mu.Lock()
	f.windows = append(f.windows, w)
	f.mu.Unlock()
	f.calls <- struct{}{}
	return f.summary, f.err
}

// slowSyncer signals when a cycle starts and takes delay to finish it.
type slowSyncer struct {
	delay    time.Duration
	started  chan struct{}
	finished atomic.Bool
}

func (f *slowSyncer) Run(context.Context, models.Window) (models.Summary, error) {
	select {
	case f.started <- struct{}{}:
	default:
	}
	time.Sleep(f.delay)
	f.finished.Store(true)
	return models.Summary{Fetched: 1}, nil
}

type fakeResetter struct {
	archived int
	err      error
}

func (f *fakeResetter) Reset(context.Context) (int, error) { return f.archived, f.err }

type memRecorder struct {
	mu   sync.Mutex
	runs map[uuid.UUID][]models.SyncRun
}

func (r *memRecorder) RecordRun(_ context.Context, run *models.SyncRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = map[uuid.UUID][]models.SyncRun{}
	}
	r.runs[run.ID] = append(r.runs[run.ID], *run)
	return nil
}

func (r *memRecorder) history(id uuid.UUID) []models.SyncRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs[id]
}

type countingObserver struct {
	mu       sync.Mutex
	runs     []string
	accepted int
	rejected int
}

func (o *countingObserver) ObserveRun(run *models.SyncRun) {
	o.mu.Lock()
	o.runs = append(o.runs, run.Job+"/"+run.Result())
	o.mu.Unlock()
}

func (o *countingObserver) ObserveTrigger(accepted bool) {
	o.mu.Lock()
	if accepted {
		o.accepted++
	} else {
		o.rejected++
	}
	o.mu.Unlock()
}

var wednesday = time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC)

func TestRunSync_RecordsStartAndFinish(t *testing.T) {
	syncer := newFakeSyncer()
	syncer.summary = models.Summary{Fetched: 2, Created: 1, SkippedCache: 1}
	rec := &memRecorder{}
	obs := &countingObserver{}
	s, err := NewScheduler(syncer, &fakeResetter{}, Options{
		Clock: epoch.NewFixedClock(wednesday), Recorder: rec, Observer: obs,
	})
	require.NoError(t, err)

	id := uuid.New()
	run := s.RunSync(context.Background(), id, models.TriggerManual)

	assert.Equal(t, models.ResultSuccess, run.Result())
	assert.Equal(t, syncer.summary, run.Summary)

	history := rec.history(id)
	require.Len(t, history, 2)
	assert.Equal(t, models.ResultRunning, history[0].Result())
	assert.Equal(t, models.ResultSuccess, history[1].Result())

	require.Len(t, syncer.windows, 1)
	assert.Equal(t, epoch.Current(wednesday), syncer.windows[0])
	assert.Equal(t, []string{"sync/success"}, obs.runs)
}

func TestRunSync_FailureIsRecorded(t *testing.T) {
	syncer := newFakeSyncer()
	syncer.err = reconcile.ErrSourceUnavailable
	rec := &memRecorder{}
	s, err := NewScheduler(syncer, &fakeResetter{}, Options{Recorder: rec})
	require.NoError(t, err)

	run := s.RunSync(context.Background(), uuid.New(), models.TriggerSchedule)

	assert.Equal(t, models.ResultFailure, run.Result())
	require.NotNil(t, run.Error)
	assert.Contains(t, *run.Error, "unavailable")
}

func TestRunReset_RecordsArchivedCount(t *testing.T) {
	obs := &countingObserver{}
	s, err := NewScheduler(newFakeSyncer(), &fakeResetter{archived: 9}, Options{Observer: obs})
	require.NoError(t, err)

	run := s.RunReset(context.Background(), uuid.New(), models.TriggerSchedule)
	assert.Equal(t, 9, run.Archived)
	assert.True(t, run.Succeeded())
	assert.Equal(t, []string{"reset/success"}, obs.runs)

	s.resetter = &fakeResetter{archived: 1, err: errors.New("archive p2: 500")}
	run = s.RunReset(context.Background(), uuid.New(), models.TriggerManual)
	assert.Equal(t, models.ResultFailure, run.Result())
}

func TestNewScheduler_InvalidResetSchedule(t *testing.T) {
	_, err := NewScheduler(newFakeSyncer(), &fakeResetter{}, Options{ResetSchedule: "every monday"})
	assert.Error(t, err)
}

func TestTrigger_QueueFull(t *testing.T) {
	obs := &countingObserver{}
	s, err := NewScheduler(newFakeSyncer(), &fakeResetter{}, Options{QueueSize: 1, Observer: obs})
	require.NoError(t, err)

	id, err := s.Trigger()
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	_, err = s.Trigger()
	assert.ErrorIs(t, err, ErrTriggerQueueFull)
	assert.Equal(t, 1, obs.accepted)
	assert.Equal(t, 1, obs.rejected)
}

func TestStart_RunsImmediatelyAndServesTriggers(t *testing.T) {
	syncer := newFakeSyncer()
	rec := &memRecorder{}
	s, err := NewScheduler(syncer, &fakeResetter{}, Options{Interval: time.Hour, Recorder: rec})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	waitCall(t, syncer.calls)

	id, err := s.Trigger()
	require.NoError(t, err)
	waitCall(t, syncer.calls)

	cancel()
	<-done
	s.Stop()

	history := rec.history(id)
	require.Len(t, history, 2)
	assert.Equal(t, models.TriggerManual, history[1].Trigger)
	assert.True(t, history[1].Succeeded())
}

func TestRunSyncAndReset_WithReconciler(t *testing.T) {
	store := testutil.NewMemStore()
	cache := reconcile.NewCache()
	fetcher := fetcherFunc(func(context.Context, models.Window) ([]models.EntityRecord, error) {
		return []models.EntityRecord{
			{SourceID: "1", Name: "Ana", Key: "ana", Level: "A1", Seconds: 120},
			{SourceID: "2", Name: "Bruno", Key: "bruno", Level: "B1", Seconds: 3600},
		}, nil
	})
	r := reconcile.New(fetcher, store, cache, reconcile.Options{})
	s, err := NewScheduler(r, reconcile.NewResetter(store, cache, nil), Options{Clock: epoch.NewFixedClock(wednesday)})
	require.NoError(t, err)

	run := s.RunSync(context.Background(), uuid.New(), models.TriggerStartup)
	assert.Equal(t, 2, run.Created)

	run = s.RunSync(context.Background(), uuid.New(), models.TriggerSchedule)
	assert.Equal(t, 2, run.SkippedCache)

	run = s.RunReset(context.Background(), uuid.New(), models.TriggerSchedule)
	assert.Equal(t, 2, run.Archived)
	assert.Empty(t, store.Active())
	assert.Zero(t, cache.Len())
}

type fetcherFunc func(context.Context, models.Window) ([]models.EntityRecord, error)

func (f fetcherFunc) Fetch(ctx context.Context, w models.Window) ([]models.EntityRecord, error) {
	return f(ctx, w)
}

func waitCall(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sync run")
	}
}

func TestStop_WaitsForStartupSync(t *testing.T) {
	syncer := &slowSyncer{delay: 200 * time.Millisecond, started: make(chan struct{}, 1)}
	rec := &memRecorder{}
	s, err := NewScheduler(syncer, &fakeResetter{}, Options{Interval: time.Hour, Recorder: rec})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	waitCall(t, syncer.started)
	cancel()
	s.Stop()

	assert.True(t, syncer.finished.Load(), "Stop returned before the running sync finished")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.runs, 1)
	for _, history := range rec.runs {
		require.Len(t, history, 2)
		assert.Equal(t, models.TriggerStartup, history[1].Trigger)
		assert.NotNil(t, history[1].FinishedAt)
	}
}

// Package metrics exposes sync outcomes, run results and cache size to
// Prometheus.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"studysync/internal/models"
)

const namespace = "studysync"

var (
	ledgerRunsDesc = prometheus.NewDesc(
		namespace+"_ledger_runs",
		"Runs recorded in the ledger by job and result",
		[]string{"job", "result"},
		nil,
	)
	cacheSizeDesc = prometheus.NewDesc(
		namespace+"_cache_signatures",
		"Signatures currently held in the duplicate cache",
		nil,
		nil,
	)
)

// Sizer reports the number of cached signatures.
type Sizer interface {
	Len() int
}

// RunCounter reads ledger totals on scrape.
type RunCounter interface {
	CountRuns(ctx context.Context) ([]models.RunCount, error)
}

// StateCollector is a custom Prometheus collector that reads the cache size
// and, when a ledger is configured, the ledger run totals on each scrape.
type StateCollector struct {
	cache  Sizer
	ledger RunCounter
}

// Describe sends the metric descriptors to the channel.
func (c *StateCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheSizeDesc
	if c.ledger != nil {
		ch <- ledgerRunsDesc
	}
}

// Collect emits the cache size and the ledger counts.
func (c *StateCollector) Collect(ch chan<- prometheus.Metric) {
	if c.cache != nil {
		ch <- prometheus.MustNewConstMetric(cacheSizeDesc, prometheus.GaugeValue, float64(c.cache.Len()))
	}
	if c.ledger == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	counts, err := c.ledger.CountRuns(ctx)
	if err != nil {
		slog.Error("failed to collect ledger run metrics", "error", err)
		return
	}
	for _, rc := range counts {
		ch <- prometheus.MustNewConstMetric(
			ledgerRunsDesc,
			prometheus.GaugeValue,
			float64(rc.Count),
			rc.Job,
			rc.Result,
		)
	}
}

// Metrics holds the process counters and the registry they are exposed from.
type Metrics struct {
	registry *prometheus.Registry
	records  *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	archived prometheus.Counter
	triggers *prometheus.CounterVec
}

// New builds a Metrics on a private registry. Either argument may be nil.
func New(cache Sizer, ledger RunCounter) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Reconciled records by outcome",
		}, []string{"outcome"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed job runs by job and result",
		}, []string{"job", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Job run duration",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"job"}),
		archived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_archived_total",
			Help:      "Pages archived by weekly resets",
		}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manual_triggers_total",
			Help:      "Manual sync requests by result",
		}, []string{"result"}),
	}

	// Pre-create every outcome so dashboards see zeros.
	for _, o := range models.Outcomes {
		m.records.WithLabelValues(string(o))
	}

	m.registry.MustRegister(
		m.records, m.runs, m.duration, m.archived, m.triggers,
		&StateCollector{cache: cache, ledger: ledger},
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveOutcome counts one reconciled record.
func (m *Metrics) ObserveOutcome(o models.Outcome) {
	m.records.WithLabelValues(string(o)).Inc()
}

// ObserveRun counts a finished run and its duration.
func (m *Metrics) ObserveRun(run *models.SyncRun) {
	m.runs.WithLabelValues(run.Job, run.Result()).Inc()
	if run.FinishedAt != nil {
		m.duration.WithLabelValues(run.Job).Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())
	}
	if run.Job == models.JobReset {
		m.archived.Add(float64(run.Archived))
	}
}

// ObserveTrigger counts a manual sync request; accepted is false when the
// queue was full.
func (m *Metrics) ObserveTrigger(accepted bool) {
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	m.triggers.WithLabelValues(result).Inc()
}

// Registry returns the registry the metrics are exposed from.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

var (
	defaultMetrics *Metrics
	initOnce       sync.Once
)

// Init creates the process-wide Metrics. Must be called once at startup;
// later calls return the first instance.
func Init(cache Sizer, ledger RunCounter) *Metrics {
	initOnce.Do(func() {
		defaultMetrics = New(cache, ledger)
	})
	return defaultMetrics
}

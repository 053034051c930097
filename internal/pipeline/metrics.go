package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"go-pgcopy-export/internal/model"
)

const metricsNamespace = "pgcopy_export"

// Metrics holds the Prometheus instruments of an export run. A nil
// *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	rowsDispatched *prometheus.CounterVec
	rowErrors      *prometheus.CounterVec
	jobs           *prometheus.CounterVec
	jobDuration    prometheus.Histogram
	flushes        *prometheus.CounterVec
	bytesWritten   *prometheus.CounterVec
	activeJobs     prometheus.Gauge
}

// NewMetrics registers the export metrics with registry. A nil registry
// gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: registry,
		rowsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_dispatched_total",
			Help:      "Rows read from the source and handed to a formatting worker.",
		}, []string{"target"}),
		rowErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "row_errors_total",
			Help:      "Rows whose output is missing or incomplete.",
		}, []string{"target", "kind"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "jobs_total",
			Help:      "Finished jobs by final state.",
		}, []string{"state"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of finished jobs.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600, 4 * 3600},
		}),
		flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sink_flushes_total",
			Help:      "Pending row buffer flushes by mode.",
		}, []string{"mode"}),
		bytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sink_bytes_written_total",
			Help:      "Uncompressed bytes written into output streams.",
		}, []string{"target"}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_jobs",
			Help:      "Jobs currently running.",
		}),
	}
	registry.MustRegister(
		m.rowsDispatched,
		m.rowErrors,
		m.jobs,
		m.jobDuration,
		m.flushes,
		m.bytesWritten,
		m.activeJobs,
	)
	return m
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) rowDispatched(target string) {
	if m == nil {
		return
	}
	m.rowsDispatched.WithLabelValues(target).Inc()
}

func (m *Metrics) rowFailed(target string, kind ErrorKind) {
	if m == nil {
		return
	}
	m.rowErrors.WithLabelValues(target, string(kind)).Inc()
}

func (m *Metrics) flushed(mode string) {
	if m == nil {
		return
	}
	m.flushes.WithLabelValues(mode).Inc()
}

func (m *Metrics) wrote(target string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.bytesWritten.WithLabelValues(target).Add(float64(n))
}

func (m *Metrics) jobStarted() {
	if m == nil {
		return
	}
	m.activeJobs.Inc()
}

func (m *Metrics) jobFinished(state model.JobState, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.activeJobs.Dec()
	m.jobs.WithLabelValues(string(state)).Inc()
	m.jobDuration.Observe(elapsed.Seconds())
}

// Package metrics provides Prometheus metrics for the data lake provisioning run.
//
// The run is a batch job, so nothing is scraped: metrics are exported once at
// the end either to a node-exporter textfile or to a Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Step status label values.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Manager manages all Prometheus metrics for the provisioning run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         *prometheus.Registry

	// Step outcomes
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec

	// Data volume
	recordsFetched prometheus.Gauge
	bytesUploaded  prometheus.Gauge

	// Run health
	lastRunUnix    prometheus.Gauge
	lastRunSuccess prometheus.Gauge
	runDuration    prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager()
}

// Default returns the process-wide manager.
func Default() *Manager { return globalManager }

// NewManager creates a new metrics manager with default configuration.
// Every manager owns its registry unless WithRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "nbalake",
		subsystem:        "provision",
		histogramBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		enabled:          true,
		constLabels:      make(map[string]string),
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	reg := prometheus.WrapRegistererWith(m.constLabels, m.registry)
	auto := promauto.With(reg)

	m.stepsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "steps_total",
			Help:      "Workflow steps by name and outcome",
		},
		[]string{"step", "status"},
	)

	m.stepDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "step_duration_seconds",
			Help:      "Wall time spent in each workflow step",
			Buckets:   m.histogramBuckets,
		},
		[]string{"step"},
	)

	m.recordsFetched = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "records_fetched",
		Help:      "Player records returned by the source API in the last run",
	})

	m.bytesUploaded = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bytes_uploaded",
		Help:      "Size of the line-delimited blob written in the last run",
	})

	m.lastRunUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished",
	})

	m.lastRunSuccess = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_run_success",
		Help:      "1 if every step of the last run succeeded or was skipped, else 0",
	})

	m.runDuration = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_run_duration_seconds",
		Help:      "Wall time of the last run",
	})
}

// RecordStep records the outcome and duration of one workflow step.
func (m *Manager) RecordStep(step, status string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.stepsTotal.WithLabelValues(step, status).Inc()
	m.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// SetRecordsFetched records how many records the fetch step returned.
func (m *Manager) SetRecordsFetched(n int) {
	if m.enabled {
		m.recordsFetched.Set(float64(n))
	}
}

// SetBytesUploaded records the uploaded blob size.
func (m *Manager) SetBytesUploaded(n int) {
	if m.enabled {
		m.bytesUploaded.Set(float64(n))
	}
}

// RecordRun records the end of a run.
func (m *Manager) RecordRun(finished time.Time, d time.Duration, success bool) {
	if !m.enabled {
		return
	}
	m.lastRunUnix.Set(float64(finished.Unix()))
	m.runDuration.Set(d.Seconds())
	if success {
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
}

// Registry returns the registry the manager's metrics live in.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format for the
// node-exporter textfile collector. The write is atomic.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: textfile %s: %w", ErrExportFailed, path, err)
	}
	return nil
}

// Push sends all metrics to a Pushgateway, grouped by job and run id.
func (m *Manager) Push(ctx context.Context, url, job, runID string) error {
	p := push.New(url, job).Gatherer(m.registry)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("%w: push %s: %w", ErrExportFailed, url, err)
	}
	return nil
}

package metrics

import (
	"maps"

	"github.com/prometheus/client_golang/prometheus"
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithPrefix replaces the "nbalake_provision" metric name prefix. Empty
// parts keep their default.
func WithPrefix(namespace, subsystem string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithStepBuckets sets the step duration histogram buckets, in seconds.
func WithStepBuckets(seconds ...float64) Option {
	return func(m *Manager) {
		if len(seconds) > 0 {
			m.histogramBuckets = seconds
		}
	}
}

// WithDisabled turns every recording method into a no-op. Export still
// works and yields no samples.
func WithDisabled() Option {
	return func(m *Manager) { m.enabled = false }
}

// WithConstLabels adds labels to every metric, e.g. the target region and
// bucket of a run. Empty values are dropped.
func WithConstLabels(labels map[string]string) Option {
	return func(m *Manager) {
		for k, v := range labels {
			if v != "" {
				m.constLabels[k] = v
			}
		}
	}
}

// WithRegistry registers metrics in reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

// ConstLabels returns a copy of the labels attached to every metric.
func (m *Manager) ConstLabels() map[string]string {
	return maps.Clone(m.constLabels)
}

package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/ripple/pkg/protocol"
	"github.com/vango-dev/ripple/pkg/scheduler"
)

// MetricsConfig configures Metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "ripple").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for unit and flush durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures Metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "ripple",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics collects Prometheus metrics for flushes, units, patches and
// connected clients:
//
//   - ripple_flushes_total: completed flushes
//   - ripple_units_run_total{status}: unit runs by status ("ok" or "error")
//   - ripple_unit_duration_seconds: time spent in a single unit
//   - ripple_flush_duration_seconds: time spent in a whole flush
//   - ripple_flush_size: units queued when a flush starts
//   - ripple_patches_total{op}: patches published, by op
//   - ripple_connected_clients: live clients currently attached
type Metrics struct {
	flushes       prometheus.Counter
	unitsRun      *prometheus.CounterVec
	unitDuration  prometheus.Histogram
	flushDuration prometheus.Histogram
	flushSize     prometheus.Histogram
	patches       *prometheus.CounterVec
	clients       prometheus.Gauge
}

var _ scheduler.Observer = (*Metrics)(nil)

// NewMetrics registers the metrics and returns the collector. Registering
// twice with the same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of completed scheduler flushes",
			ConstLabels: config.ConstLabels,
		}),

		unitsRun: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "units_run_total",
			Help:        "Total number of computation units run, by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		unitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "unit_duration_seconds",
			Help:        "Computation unit run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Scheduler flush duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		flushSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_size",
			Help:        "Number of units queued when a flush starts",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),

		patches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patches_total",
			Help:        "Total number of patches published to clients, by op",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		clients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "connected_clients",
			Help:        "Number of connected live clients",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// FlushStarted records the queue size.
func (m *Metrics) FlushStarted(pending int) {
	m.flushSize.Observe(float64(pending))
}

// JobFinished records one unit run.
func (m *Metrics) JobFinished(_ scheduler.Job, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.unitsRun.WithLabelValues(status).Inc()
	m.unitDuration.Observe(d.Seconds())
}

// FlushFinished records a completed flush.
func (m *Metrics) FlushFinished(_ int, d time.Duration) {
	m.flushes.Inc()
	m.flushDuration.Observe(d.Seconds())
}

// RecordPatches counts published patches by op.
func (m *Metrics) RecordPatches(patches []protocol.Patch) {
	for _, p := range patches {
		m.patches.WithLabelValues(p.Op.String()).Inc()
	}
}

// ClientConnected increments the connected client gauge.
func (m *Metrics) ClientConnected() {
	m.clients.Inc()
}

// ClientDisconnected decrements the connected client gauge.
func (m *Metrics) ClientDisconnected() {
	m.clients.Dec()
}

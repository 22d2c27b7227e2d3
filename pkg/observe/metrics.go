package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/treestore/pkg/store"
)

// MetricsConfig configures the Prometheus observer.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "treestore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus observer.
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

// WithBuckets sets the histogram buckets.
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
		Namespace: "treestore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is a store.Observer that records Prometheus metrics.
//
// Metrics collected:
//   - treestore_passes_total: notification passes run
//   - treestore_pass_duration_seconds: pass duration
//   - treestore_entries_recomputed_total: recorded paths recomputed
//   - treestore_entries_changed_total: recorded paths whose value changed
//   - treestore_entries_dropped_total: recorded paths dropped as stale
//   - treestore_notifications_total: callbacks invoked by passes
//   - treestore_writes_total{result}: writes by result (applied, noop, deferred)
type Metrics struct {
	passes        prometheus.Counter
	passDuration  prometheus.Histogram
	recomputed    prometheus.Counter
	changed       prometheus.Counter
	dropped       prometheus.Counter
	notifications prometheus.Counter
	writes        *prometheus.CounterVec
}

// NewMetrics registers the store metrics and returns the observer.
// Registering twice against the same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Metrics{
		passes:        counter("passes_total", "Total number of notification passes"),
		recomputed:    counter("entries_recomputed_total", "Total number of recorded paths recomputed"),
		changed:       counter("entries_changed_total", "Total number of recorded paths whose value changed"),
		dropped:       counter("entries_dropped_total", "Total number of stale recorded paths dropped"),
		notifications: counter("notifications_total", "Total number of callbacks invoked by notification passes"),

		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_duration_seconds",
			Help:        "Notification pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_total",
			Help:        "Total number of terminal writes by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),
	}
}

// ObservePass implements store.Observer.
func (m *Metrics) ObservePass(s store.PassStats) {
	m.passes.Inc()
	m.passDuration.Observe(s.End.Sub(s.Start).Seconds())
	m.recomputed.Add(float64(s.Entries))
	m.changed.Add(float64(s.Changed))
	m.dropped.Add(float64(s.Dropped))
	m.notifications.Add(float64(s.Notified))
}

// ObserveWrite implements store.Observer.
func (m *Metrics) ObserveWrite(s store.WriteStats) {
	// Paths are not used as labels to keep cardinality bounded.
	switch {
	case s.NoOp:
		m.writes.WithLabelValues("noop").Inc()
	case s.Deferred:
		m.writes.WithLabelValues("deferred").Inc()
	default:
		m.writes.WithLabelValues("applied").Inc()
	}
}

var _ store.Observer = (*Metrics)(nil)

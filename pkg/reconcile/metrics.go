package reconcile

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/reconciler/pkg/vdom"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reconcile").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for diff and apply durations.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
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
		Namespace: "reconcile",
		Buckets:  []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1},
		Registry: prometheus.DefaultRegisterer,
	}
}

// Metrics holds the reconciliation metrics. A nil *Metrics records nothing.
//
// Metrics collected:
//   - reconcile_diffs_total: Counter of Diff calls
//   - reconcile_patches_total: Counter of produced patches by op
//   - reconcile_apply_errors_total: Counter of failed applies by reason
//   - reconcile_diff_duration_seconds: Histogram of Diff duration
//   - reconcile_apply_duration_seconds: Histogram of Apply duration
//   - reconcile_live_nodes: Gauge of nodes held by live trees
//   - reconcile_recoveries_total: Counter of live tree rebuilds
//   - reconcile_events_total: Counter of dispatched events by status
type Metrics struct {
	diffsTotal    prometheus.Counter
	patchesTotal  *prometheus.CounterVec
	applyErrors   *prometheus.CounterVec
	diffDuration  prometheus.Histogram
	applyDuration prometheus.Histogram
	liveNodes     prometheus.Gauge
	recoveries    prometheus.Counter
	eventsTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers the reconciliation metrics. Registering
// twice against the same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		diffsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "diffs_total",
			Help:        "Total number of tree diffs computed",
			ConstLabels: config.ConstLabels,
		}),

		patchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patches_total",
			Help:        "Total number of patches produced by operation",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		applyErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "apply_errors_total",
			Help:        "Total number of patch streams that failed to apply",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"}),

		diffDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "diff_duration_seconds",
			Help:        "Tree diff duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		applyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "apply_duration_seconds",
			Help:        "Patch apply duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		liveNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_nodes",
			Help:        "Number of nodes held by live trees",
			ConstLabels: config.ConstLabels,
		}),

		recoveries: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recoveries_total",
			Help:        "Total number of live trees rebuilt after a failed apply",
			ConstLabels: config.ConstLabels,
		}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total number of events dispatched to handlers by status",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),
	}
}

func (m *Metrics) observeDiff(d time.Duration, patches []vdom.Patch) {
	if m == nil {
		return
	}
	m.diffsTotal.Inc()
	m.diffDuration.Observe(d.Seconds())
	for _, p := range patches {
		m.patchesTotal.WithLabelValues(p.Op.String()).Inc()
	}
}

func (m *Metrics) observeApply(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.applyDuration.Observe(d.Seconds())
	if err != nil {
		m.applyErrors.WithLabelValues(categorizeError(err)).Inc()
	}
}

// recordRejected counts a frame refused before any patch ran. No apply
// duration is observed.
func (m *Metrics) recordRejected(err error) {
	if m == nil {
		return
	}
	m.applyErrors.WithLabelValues(categorizeError(err)).Inc()
}

func (m *Metrics) addLiveNodes(delta int) {
	if m == nil {
		return
	}
	m.liveNodes.Add(float64(delta))
}

func (m *Metrics) recordRecovery() {
	if m == nil {
		return
	}
	m.recoveries.Inc()
}

func (m *Metrics) recordEvent(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = categorizeError(err)
	}
	m.eventsTotal.WithLabelValues(status).Inc()
}

// categorizeError maps an error to a low-cardinality label value.
func categorizeError(err error) string {
	switch {
	case errors.Is(err, vdom.ErrInvalidPatchTarget):
		return "invalid_target"
	case errors.Is(err, vdom.ErrInvalidPatch):
		return "invalid_patch"
	case errors.Is(err, vdom.ErrHandlerNotFound):
		return "handler_not_found"
	case errors.Is(err, ErrOutOfOrder):
		return "out_of_order"
	case errors.Is(err, ErrStale):
		return "stale"
	default:
		return "internal"
	}
}

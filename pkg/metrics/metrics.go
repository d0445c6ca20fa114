package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/reactive/pkg/reactive"
)

// Config configures the Prometheus observer.
type Config struct {
	// Namespace is the metrics namespace (default: "reactive").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus observer.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "reactive",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// flushRunBuckets spans single-effect flushes up to the default flush budget.
var flushRunBuckets = []float64{1, 2, 5, 10, 50, 100, 1000, 10000, 100000}

// Observer is a reactive.Observer that records engine activity as
// Prometheus metrics.
//
// Metrics collected:
//   - reactive_signal_writes_total: Counter of accepted signal writes
//   - reactive_computed_evaluations_total: Counter of compute runs by status
//   - reactive_computed_duration_seconds: Histogram of compute duration
//   - reactive_effect_runs_total: Counter of effect runs by status
//   - reactive_effect_duration_seconds: Histogram of effect duration
//   - reactive_flushes_total: Counter of completed flushes
//   - reactive_flush_effect_runs: Histogram of queued runs per flush
//   - reactive_flush_duration_seconds: Histogram of flush duration
//   - reactive_scopes_disposed_total: Counter of disposed scopes
//   - reactive_errors_total: Counter of compute and effect failures by code
type Observer struct {
	signalWrites    prometheus.Counter
	computeEvals    *prometheus.CounterVec
	computeDuration prometheus.Histogram
	effectRuns      *prometheus.CounterVec
	effectDuration  prometheus.Histogram
	flushes         prometheus.Counter
	flushRuns       prometheus.Histogram
	flushDuration   prometheus.Histogram
	scopesDisposed  prometheus.Counter
	errors          *prometheus.CounterVec
}

var _ reactive.Observer = (*Observer)(nil)

// New creates the observer and registers its metrics. It panics if the
// metrics are already registered with the same registry.
func New(opts ...Option) *Observer {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Observer{
		signalWrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "signal_writes_total",
			Help:        "Total number of signal writes that changed a value",
			ConstLabels: config.ConstLabels,
		}),

		computeEvals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "computed_evaluations_total",
			Help:        "Total number of compute function runs",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		computeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "computed_duration_seconds",
			Help:        "Compute function duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		effectRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect body runs",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		effectDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_duration_seconds",
			Help:        "Effect body duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of completed flushes",
			ConstLabels: config.ConstLabels,
		}),

		flushRuns: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_effect_runs",
			Help:        "Number of queued listener runs per flush",
			ConstLabels: config.ConstLabels,
			Buckets:     flushRunBuckets,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Flush duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		scopesDisposed: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "scopes_disposed_total",
			Help:        "Total number of disposed scopes",
			ConstLabels: config.ConstLabels,
		}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "errors_total",
			Help:        "Total number of compute and effect failures by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),
	}
}

// Install creates an observer and adds it to the engine.
func Install(opts ...Option) (o *Observer, remove func()) {
	o = New(opts...)
	return o, reactive.AddObserver(o)
}

// SignalWritten implements reactive.Observer.
func (o *Observer) SignalWritten(reactive.NodeInfo) {
	o.signalWrites.Inc()
}

// ComputedEvaluated implements reactive.Observer.
func (o *Observer) ComputedEvaluated(_ reactive.NodeInfo, d time.Duration, err error) {
	o.computeDuration.Observe(d.Seconds())
	o.computeEvals.WithLabelValues(status(err)).Inc()
	o.recordError(err)
}

// EffectRan implements reactive.Observer.
func (o *Observer) EffectRan(_ reactive.NodeInfo, d time.Duration, err error) {
	o.effectDuration.Observe(d.Seconds())
	o.effectRuns.WithLabelValues(status(err)).Inc()
	o.recordError(err)
}

// FlushCompleted implements reactive.Observer.
func (o *Observer) FlushCompleted(runs int, d time.Duration) {
	o.flushes.Inc()
	o.flushRuns.Observe(float64(runs))
	o.flushDuration.Observe(d.Seconds())
}

// ScopeDisposed implements reactive.Observer.
func (o *Observer) ScopeDisposed(reactive.NodeInfo) {
	o.scopesDisposed.Inc()
}

func (o *Observer) recordError(err error) {
	if err != nil {
		o.errors.WithLabelValues(errorCode(err)).Inc()
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// errorCode returns the engine error code carried by err. Codes keep the
// label cardinality bounded, unlike error messages.
func errorCode(err error) string {
	var c interface{ Code() string }
	if errors.As(err, &c) {
		return c.Code()
	}
	return "unknown"
}

package sandbox

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records IsolatedCall outcomes as Prometheus collectors. Unlike a
// package-level registry, a Metrics value is constructed explicitly with
// [NewMetrics] and threaded into [IsolatedCall] via [WithMetrics]; the
// sandbox package itself never reaches for global state.
type Metrics struct {
	registry *prometheus.Registry

	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheStoreFailures prometheus.Counter
	callDuration       prometheus.Histogram
}

// NewMetrics constructs a Metrics value with its own private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isobox",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Invocations whose declared outputs were replayed from the cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isobox",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Invocations that required spawning the command because no usable cache entry existed.",
		}),
		cacheStoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "isobox",
			Subsystem: "cache",
			Name:      "store_failures_total",
			Help:      "Best-effort cache-store attempts that failed (invocation still succeeded).",
		}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "isobox",
			Subsystem: "call",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of spawned commands, cache hits excluded.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
	}

	registry.MustRegister(m.cacheHits, m.cacheMisses, m.cacheStoreFailures, m.callDuration)

	return m
}

// Handler returns an http.Handler exposing this Metrics value's collectors
// in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// observeCacheHit, observeCacheMiss, observeStoreFailure, and
// observeCallDuration are no-ops on a nil *Metrics, so IsolatedCall can call
// them unconditionally whether or not the caller supplied WithMetrics.
func (m *Metrics) observeCacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) observeCacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) observeStoreFailure() {
	if m != nil {
		m.cacheStoreFailures.Inc()
	}
}

func (m *Metrics) observeCallDuration(d time.Duration) {
	if m != nil {
		m.callDuration.Observe(d.Seconds())
	}
}

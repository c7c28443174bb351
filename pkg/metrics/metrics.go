// Package metrics exposes prometheus instrumentation for the routing
// chain. All methods are nil-safe so the core runs unchanged without a
// registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the chain's prometheus collectors.
type Metrics struct {
	decisions    *prometheus.CounterVec
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	retries      prometheus.Counter
	stageLatency *prometheus.HistogramVec
}

// New registers the chain collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chainflow_routing_decisions_total",
			Help: "Routing decisions by category, model and outcome.",
		}, []string{"category", "model", "outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainflow_route_cache_hits_total",
			Help: "Route cache hits.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainflow_route_cache_misses_total",
			Help: "Route cache misses.",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chainflow_execution_retries_total",
			Help: "Execution retries across all runs.",
		}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chainflow_stage_duration_seconds",
			Help:    "Stage latency by stage name.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage"}),
	}
	reg.MustRegister(m.decisions, m.cacheHits, m.cacheMisses, m.retries, m.stageLatency)
	return m
}

// Decision counts one terminal routing decision.
func (m *Metrics) Decision(category, model string, success bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.decisions.WithLabelValues(category, model, outcome).Inc()
}

// CacheHit counts a route cache hit.
func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

// CacheMiss counts a route cache miss.
func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

// Retry counts one execution retry.
func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// Stage records one stage duration.
func (m *Metrics) Stage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

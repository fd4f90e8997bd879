// Package observability exposes the service's Prometheus metrics.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the central metrics registry, grouping the counters and
// histograms every subsystem reports against.
type Metrics struct {
	reg *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	LLMCallsTotal    *prometheus.CounterVec
	LLMLatency       *prometheus.HistogramVec
	CacheHitsTotal   *prometheus.CounterVec
	PushFanoutTotal  *prometheus.CounterVec
	PendingActiveGauge prometheus.Gauge
}

// NewMetrics builds and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		reg: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saju_http_requests_total",
			Help: "Total HTTP requests handled, by route and status.",
		}, []string{"route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saju_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		LLMCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saju_llm_calls_total",
			Help: "Total LLM provider calls, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		LLMLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "saju_llm_call_duration_seconds",
			Help:    "LLM provider call latency in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 8, 13, 21},
		}, []string{"provider"}),
		CacheHitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saju_cache_hits_total",
			Help: "Cache lookups, by cache name and hit/miss.",
		}, []string{"cache", "result"}),
		PushFanoutTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saju_push_fanout_total",
			Help: "Daily push notification attempts, by outcome.",
		}, []string{"outcome"}),
		PendingActiveGauge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "saju_pending_actions_active",
			Help: "Number of pending actions currently awaiting a reply.",
		}),
	}
	return m
}

// Handler serves the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus instruments on a private
// registry so tests can create independent instances.
type Metrics struct {
	registry *prometheus.Registry

	SearchesTotal    *prometheus.CounterVec
	SearchDuration   prometheus.Histogram
	ParseFailures    prometheus.Counter
	PlanCacheHits    prometheus.Counter
	PlanCacheMisses  prometheus.Counter
	DocumentsIndexed prometheus.Counter
}

// NewMetrics creates a Metrics with all instruments registered.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		SearchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "searchkit_searches_total",
			Help: "Search requests by index and outcome.",
		}, []string{"index", "status"}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "searchkit_search_duration_seconds",
			Help:    "Search request latency.",
			Buckets: prometheus.DefBuckets,
		}),
		ParseFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "searchkit_query_parse_failures_total",
			Help: "Query bodies rejected by the clause parser.",
		}),
		PlanCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "searchkit_plan_cache_hits_total",
			Help: "Searches served from a cached rewritten plan.",
		}),
		PlanCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "searchkit_plan_cache_misses_total",
			Help: "Searches that rewrote their plan from scratch.",
		}),
		DocumentsIndexed: factory.NewCounter(prometheus.CounterOpts{
			Name: "searchkit_documents_indexed_total",
			Help: "Documents accepted for indexing.",
		}),
	}
}

// Handler serves the metrics registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval pipeline Prometheus metrics.
var (
	SearchAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "search_attempts_total",
			Help:      "Total number of search attempts by pipeline stage",
		},
		[]string{"stage"}, // "base_search" / "relax_step" / "keyword_fallback"
	)

	SearchFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "search_fallback_total",
			Help:      "Total number of searches that entered the relaxation ladder",
		},
	)

	SearchDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "search_degraded_total",
			Help:      "Total number of searches that exhausted all stages below threshold",
		},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "strata",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search pipeline duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"final_stage"},
	)

	QueryExpansionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "query_expansion_total",
			Help:      "Total number of query expansion calls",
		},
		[]string{"method", "status"},
	)
)

var retrievalMetricsRegistered bool

// RegisterRetrievalMetrics registers retrieval pipeline metrics. Must be called once from main.
func RegisterRetrievalMetrics() {
	if retrievalMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchAttemptsTotal)
	prometheus.MustRegister(SearchFallbackTotal)
	prometheus.MustRegister(SearchDegradedTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(QueryExpansionTotal)
	retrievalMetricsRegistered = true
}

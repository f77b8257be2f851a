package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "cinematch"

// Model provider metrics (embedding and sentiment classification).
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of model provider requests",
		},
		[]string{"provider", "model", "status"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_request_duration_seconds",
			Help:      "Model provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "model"},
	)

	ProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Total model provider errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	ProviderTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_tokens_total",
			Help:      "Total tokens consumed by model providers",
		},
		[]string{"provider", "model", "type"},
	)

	ProviderInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "provider_in_flight",
			Help:      "Model provider calls currently holding a concurrency slot",
		},
		[]string{"provider"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// Cache and ranking metrics.
var (
	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_cache_total",
			Help:      "Query embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	ReviewCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_cache_total",
			Help:      "Review sentiment cache lookups",
		},
		[]string{"result"}, // "hit" / "miss" / "coalesced"
	)

	RankingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ranking_duration_seconds",
			Help:      "Bayesian ranking duration including weight optimization",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	RankingFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_optimizer_fallback_total",
			Help:      "Rankings that fell back to the initial weight guess",
		},
	)
)

var serviceMetricsRegistered bool

// RegisterServiceMetrics registers HTTP, provider, cache and ranking metrics
// with the default registry. Safe to call more than once.
func RegisterServiceMetrics() {
	if serviceMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		httpRequestDuration,
		httpRequestsTotal,
		httpRequestsInFlight,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		ProviderErrorsTotal,
		ProviderTokensTotal,
		ProviderInFlight,
		CircuitBreakerState,
		EmbeddingCacheTotal,
		ReviewCacheTotal,
		RankingDuration,
		RankingFallbackTotal,
	)
	serviceMetricsRegistered = true
}

package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "comparador"

// Search outcomes recorded per provider call
const (
	OutcomeProducts = "products"
	OutcomeEmpty    = "empty"
)

// Cache lookup results
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
)

// Metrics groups the prometheus collectors of the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	providerSearches *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	productsReturned *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		providerSearches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_searches_total",
			Help:      "Provider searches by market and outcome.",
		}, []string{"market", "outcome"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_search_duration_seconds",
			Help:      "Latency of a single provider search.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 45, 60},
		}, []string{"market"}),
		productsReturned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_products_total",
			Help:      "Products returned by each provider.",
		}, []string{"market"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Search cache lookups by result.",
		}, []string{"result"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		m.providerSearches,
		m.providerDuration,
		m.productsReturned,
		m.cacheLookups,
		m.httpDuration,
	)
	return m
}

// ObserveProviderSearch records one provider call
func (m *Metrics) ObserveProviderSearch(market string, products int, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeProducts
	if products == 0 {
		outcome = OutcomeEmpty
	}
	m.providerSearches.WithLabelValues(market, outcome).Inc()
	m.providerDuration.WithLabelValues(market).Observe(elapsed.Seconds())
	m.productsReturned.WithLabelValues(market).Add(float64(products))
}

// ObserveCacheLookup records a hit or miss on the aggregate search cache
func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records the latency of one HTTP request
func (m *Metrics) ObserveHTTPRequest(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}

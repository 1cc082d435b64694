package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Barcode lookup metrics
	LookupRequestsTotal prometheus.CounterVec
	LookupDuration      prometheus.HistogramVec
	LookupErrorsTotal   prometheus.CounterVec

	// Price aggregation metrics
	PriceQuotesTotal   prometheus.CounterVec
	PriceSourceErrors  prometheus.CounterVec
	AggregationSeconds prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal   prometheus.CounterVec
	CacheMissesTotal prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec

	// Scan metrics
	ScansTotal prometheus.CounterVec

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			LookupRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "barcode_lookup_requests_total",
					Help: "Total number of barcode lookups per external source",
				},
				[]string{"source"},
			),
			LookupDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "barcode_lookup_duration_seconds",
					Help:    "Barcode lookup latency per external source",
					Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"source"},
			),
			LookupErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "barcode_lookup_errors_total",
					Help: "Total number of failed barcode lookups per external source",
				},
				[]string{"source"},
			),

			PriceQuotesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "price_quotes_total",
					Help: "Total number of price quotes returned by external sources",
				},
				[]string{"source"},
			),
			PriceSourceErrors: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "price_source_errors_total",
					Help: "Total number of failed price source queries",
				},
				[]string{"source"},
			),
			AggregationSeconds: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "price_aggregation_duration_seconds",
					Help:    "Time to fan out and merge all price sources",
					Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"result"},
			),

			CacheHitsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),

			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limit violations",
				},
				[]string{"endpoint", "method"},
			),

			ScansTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "scans_total",
					Help: "Total number of barcode scans",
				},
				[]string{"method", "outcome"},
			),

			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of errors by type",
				},
				[]string{"error_type", "endpoint"},
			),
		}
	})
	return instance
}

// Get returns the global metrics instance
func Get() *Metrics {
	if instance == nil {
		return Initialize()
	}
	return instance
}

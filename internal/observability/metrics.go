package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges shared by the
// query API and the batch timing worker.
type Metrics struct {
	// Query API metrics.
	QueriesServed  *prometheus.CounterVec // labels: outcome={ok,invalid,not_found,rate_limited,upstream_error}
	QueryDuration  prometheus.Histogram
	QueryCache     *prometheus.CounterVec // labels: result={hit,miss,bypass,error}
	StoreFetches   *prometheus.CounterVec // labels: outcome={success,error}
	StoreDuration  prometheus.Histogram
	RequestsDenied prometheus.Counter

	// Worker pipeline metrics.
	MessagesConsumed prometheus.Counter
	MessagesProduced prometheus.Counter
	TransformErrors  prometheus.Counter
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: method={forward,reverse}, outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec   // labels: method={forward,reverse}, result={hit,miss}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: method={forward,reverse}
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		QueriesServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whenwx",
			Name:      "queries_total",
			Help:      "Timing queries served, by outcome.",
		}, []string{"outcome"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "whenwx",
			Name:      "query_duration_seconds",
			Help:      "End-to-end timing query duration.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		QueryCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whenwx",
			Name:      "query_cache_total",
			Help:      "Query result cache lookups by result.",
		}, []string{"result"}),
		StoreFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whenwx",
			Name:      "store_fetches_total",
			Help:      "Forecast store fetches by outcome.",
		}, []string{"outcome"}),
		StoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "whenwx",
			Name:      "store_fetch_duration_seconds",
			Help:      "Forecast store request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		RequestsDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "whenwx",
			Name:      "requests_denied_total",
			Help:      "Requests rejected by the per-IP rate limiter.",
		}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "whenwx",
			Name:      "messages_consumed_total",
			Help:      "Total forecast series messages read from the source topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "whenwx",
			Name:      "messages_produced_total",
			Help:      "Total timing documents written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "whenwx",
			Name:      "transform_errors_total",
			Help:      "Total transformation failures.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "whenwx",
			Name:      "pipeline_running",
			Help:      "1 when the worker pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "whenwx",
			Name:      "batch_size",
			Help:      "Number of messages per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "whenwx",
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-transform-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whenwx",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by method and outcome.",
		}, []string{"method", "outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "whenwx",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by method and result.",
		}, []string{"method", "result"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "whenwx",
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "whenwx",
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.QueriesServed,
		m.QueryDuration,
		m.QueryCache,
		m.StoreFetches,
		m.StoreDuration,
		m.RequestsDenied,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.TransformErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		QueriesServed:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "whenwx", Name: "queries_total"}, []string{"outcome"}),
		QueryDuration:           prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "whenwx", Name: "query_duration_seconds"}),
		QueryCache:              prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "whenwx", Name: "query_cache_total"}, []string{"result"}),
		StoreFetches:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "whenwx", Name: "store_fetches_total"}, []string{"outcome"}),
		StoreDuration:           prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "whenwx", Name: "store_fetch_duration_seconds"}),
		RequestsDenied:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "whenwx", Name: "requests_denied_total"}),
		MessagesConsumed:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "whenwx", Name: "messages_consumed_total"}),
		MessagesProduced:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "whenwx", Name: "messages_produced_total"}),
		TransformErrors:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "whenwx", Name: "transform_errors_total"}),
		PipelineRunning:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "whenwx", Name: "pipeline_running"}),
		BatchSize:               prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "whenwx", Name: "batch_size"}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "whenwx", Name: "batch_processing_duration_seconds"}),
		GeocodeRequests:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "whenwx", Name: "geocode_requests_total"}, []string{"method", "outcome"}),
		GeocodeCache:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "whenwx", Name: "geocode_cache_total"}, []string{"method", "result"}),
		GeocodeAPIDuration:      prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "whenwx", Name: "geocode_api_duration_seconds"}, []string{"method"}),
		GeocodeEnabled:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "whenwx", Name: "geocode_enabled"}),
	}
}

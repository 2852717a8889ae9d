package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// fetch and assessment paths.
type Metrics struct {
	FetchRequests      *prometheus.CounterVec // labels: outcome={success,validation,transport,provider,parse}
	FetchDuration      prometheus.Histogram
	DetectionsFetched  prometheus.Counter
	FetchCache         *prometheus.CounterVec // labels: result={hit,miss}
	DetectionsInMemory prometheus.Gauge

	// Risk assessment metrics.
	InferenceRequests *prometheus.CounterVec // labels: mode={structured,narrative}, outcome={parsed,raw,error}
	InferenceDuration prometheus.Histogram

	// Geocoding enrichment metrics.
	GeocodeRequests *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache    *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeEnabled  prometheus.Gauge

	// Kafka sink metrics.
	DetectionsPublished prometheus.Counter
	PublishErrors       prometheus.Counter
	SinkEnabled         prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire_intel",
			Name:      "fetch_requests_total",
			Help:      "Detection fetch requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wildfire_intel",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-store cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		DetectionsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_intel",
			Name:      "detections_fetched_total",
			Help:      "Total detections parsed from provider responses.",
		}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire_intel",
			Name:      "fetch_cache_total",
			Help:      "Fetch cache lookups by result.",
		}, []string{"result"}),
		DetectionsInMemory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire_intel",
			Name:      "detections_in_memory",
			Help:      "Detections held in the current session.",
		}),
		InferenceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire_intel",
			Name:      "inference_requests_total",
			Help:      "Risk assessment requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		InferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wildfire_intel",
			Name:      "inference_duration_seconds",
			Help:      "Wall time of reasoning service calls.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire_intel",
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire_intel",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire_intel",
			Name:      "geocode_enabled",
			Help:      "1 when geocoding enrichment is enabled, 0 otherwise.",
		}),
		DetectionsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_intel",
			Name:      "detections_published_total",
			Help:      "Detections published to the Kafka sink topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire_intel",
			Name:      "publish_errors_total",
			Help:      "Kafka publish failures.",
		}),
		SinkEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire_intel",
			Name:      "sink_enabled",
			Help:      "1 when the Kafka detection sink is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.DetectionsFetched,
		m.FetchCache,
		m.DetectionsInMemory,
		m.InferenceRequests,
		m.InferenceDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeEnabled,
		m.DetectionsPublished,
		m.PublishErrors,
		m.SinkEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so
// tests can construct many instances without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FetchRequests:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "wildfire_intel", Name: "fetch_requests_total"}, []string{"outcome"}),
		FetchDuration:       prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "wildfire_intel", Name: "fetch_duration_seconds"}),
		DetectionsFetched:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wildfire_intel", Name: "detections_fetched_total"}),
		FetchCache:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "wildfire_intel", Name: "fetch_cache_total"}, []string{"result"}),
		DetectionsInMemory:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "wildfire_intel", Name: "detections_in_memory"}),
		InferenceRequests:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "wildfire_intel", Name: "inference_requests_total"}, []string{"mode", "outcome"}),
		InferenceDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "wildfire_intel", Name: "inference_duration_seconds"}),
		GeocodeRequests:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "wildfire_intel", Name: "geocode_requests_total"}, []string{"outcome"}),
		GeocodeCache:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "wildfire_intel", Name: "geocode_cache_total"}, []string{"result"}),
		GeocodeEnabled:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "wildfire_intel", Name: "geocode_enabled"}),
		DetectionsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wildfire_intel", Name: "detections_published_total"}),
		PublishErrors:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wildfire_intel", Name: "publish_errors_total"}),
		SinkEnabled:         prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "wildfire_intel", Name: "sink_enabled"}),
	}
}

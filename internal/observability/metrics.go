package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// wildfire service and collector.
type Metrics struct {
	// Ingestion metrics.
	DetectionsFetched prometheus.Counter
	FiresPublished    prometheus.Counter
	FiresConsumed     prometheus.Counter
	TransformErrors   prometheus.Counter
	IngestRuns        prometheus.Counter
	IngestDuration    prometheus.Histogram
	ConsumerRunning   prometheus.Gauge

	// Cluster index metrics.
	ClusterRebuilds  prometheus.Counter
	ClusterIndexSize prometheus.Gauge

	// Map-view metrics.
	ViewportUpdates  prometheus.Counter
	MarkerOpsEmitted prometheus.Counter

	// Store metrics.
	CacheLookups *prometheus.CounterVec // labels: query, result={hit,miss}

	// HTTP metrics.
	RequestDuration *prometheus.HistogramVec // labels: route, method, status
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		DetectionsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "detections_fetched_total",
			Help:      "Total satellite detections fetched from the FIRMS feed.",
		}),
		FiresPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "fires_published_total",
			Help:      "Total fire records published to the detections topic.",
		}),
		FiresConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "fires_consumed_total",
			Help:      "Total fire records consumed from the detections topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "transform_errors_total",
			Help:      "Total detection rows dropped during feed parsing, malformed or out of bounds.",
		}),
		IngestRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "ingest_runs_total",
			Help:      "Total scheduled FIRMS polls.",
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wildfire",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a complete fetch-transform-publish cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ConsumerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire",
			Name:      "consumer_running",
			Help:      "1 when the detection consumer is active, 0 when shut down.",
		}),
		ClusterRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "cluster_rebuilds_total",
			Help:      "Total whole-index rebuilds of the spatial cluster index.",
		}),
		ClusterIndexSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wildfire",
			Name:      "cluster_index_size",
			Help:      "Number of fire points currently indexed.",
		}),
		ViewportUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "viewport_updates_total",
			Help:      "Total throttled viewport refreshes rendered.",
		}),
		MarkerOpsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "marker_ops_emitted_total",
			Help:      "Total marker operations emitted to render sinks.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wildfire",
			Name:      "cache_lookups_total",
			Help:      "Store cache lookups by query and result.",
		}, []string{"query", "result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "wildfire",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route, method, and status.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"route", "method", "status"}),
	}

	prometheus.MustRegister(
		m.DetectionsFetched,
		m.FiresPublished,
		m.FiresConsumed,
		m.TransformErrors,
		m.IngestRuns,
		m.IngestDuration,
		m.ConsumerRunning,
		m.ClusterRebuilds,
		m.ClusterIndexSize,
		m.ViewportUpdates,
		m.MarkerOpsEmitted,
		m.CacheLookups,
		m.RequestDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		DetectionsFetched: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wildfire", Name: "detections_fetched_total"}),
		FiresPublished:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wildfire", Name: "fires_published_total"}),
		FiresConsumed:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wildfire", Name: "fires_consumed_total"}),
		TransformErrors:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wildfire", Name: "transform_errors_total"}),
		IngestRuns:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wildfire", Name: "ingest_runs_total"}),
		IngestDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "wildfire", Name: "ingest_duration_seconds"}),
		ConsumerRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "wildfire", Name: "consumer_running"}),
		ClusterRebuilds:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wildfire", Name: "cluster_rebuilds_total"}),
		ClusterIndexSize:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "wildfire", Name: "cluster_index_size"}),
		ViewportUpdates:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wildfire", Name: "viewport_updates_total"}),
		MarkerOpsEmitted:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "wildfire", Name: "marker_ops_emitted_total"}),
		CacheLookups:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "wildfire", Name: "cache_lookups_total"}, []string{"query", "result"}),
		RequestDuration:   prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "wildfire", Name: "http_request_duration_seconds"}, []string{"route", "method", "status"}),
	}
}

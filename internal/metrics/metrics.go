// Package metrics provides Prometheus metrics for the Valet connector.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the connector.
type Metrics struct {
	// Series sync metrics
	SeriesUpdated      prometheus.Counter
	SeriesUpToDate     prometheus.Counter
	SeriesInaccessible prometheus.Counter
	ObservationsMerged prometheus.Counter

	// Fetch metrics
	FetchDuration *prometheus.HistogramVec
	FetchErrors   *prometheus.CounterVec

	// Dataset transform metrics
	DatasetsUploaded prometheus.Counter
	DatasetsSkipped  prometheus.Counter
	DatasetRows      *prometheus.HistogramVec
	MissingSeries    *prometheus.CounterVec

	// Run metrics
	RunIncomplete   prometheus.Counter
	LastRunUnixtime prometheus.Gauge
	StorageErrors   *prometheus.CounterVec
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool   `yaml:"enabled" envconfig:"METRICS_ENABLED"`
	Address string `yaml:"address" envconfig:"METRICS_ADDRESS"`
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "valet_connector"
	}

	m := &Metrics{
		SeriesUpdated: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "series_updated_total",
				Help:      "Total number of series that received new observations",
			},
		),
		SeriesUpToDate: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "series_up_to_date_total",
				Help:      "Total number of series fetched with no new unique observations",
			},
		),
		SeriesInaccessible: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "series_inaccessible_total",
				Help:      "Total number of series the upstream API denied or lacked",
			},
		),
		ObservationsMerged: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observations_merged_total",
				Help:      "Total number of unique observations merged into storage",
			},
		),
		FetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Time to fetch one series' observations from the upstream API",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
			[]string{"outcome"},
		),
		FetchErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_errors_total",
				Help:      "Total number of fatal fetch errors",
			},
			[]string{"endpoint"},
		),
		DatasetsUploaded: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "datasets_uploaded_total",
				Help:      "Total number of wide-format datasets uploaded to the sink",
			},
		),
		DatasetsSkipped: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "datasets_skipped_total",
				Help:      "Total number of datasets skipped (no data or failed validation)",
			},
		),
		DatasetRows: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dataset_rows",
				Help:      "Number of rows per uploaded dataset",
				Buckets:   prometheus.ExponentialBuckets(10, 4, 8), // 10 to ~160k
			},
			[]string{"dataset"},
		),
		MissingSeries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "missing_series_total",
				Help:      "Total number of mapped series with no stored observations",
			},
			[]string{"dataset"},
		),
		RunIncomplete: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "run_incomplete_total",
				Help:      "Total number of runs that stopped on the time budget with work pending",
			},
		),
		LastRunUnixtime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_unixtime",
				Help:      "Unix timestamp of the last successful run",
			},
		),
		StorageErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_errors_total",
				Help:      "Total number of storage read/write errors",
			},
			[]string{"backend"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

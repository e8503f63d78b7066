package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Auth metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"}, // "success" or "failure"
	)
)

// Catalog store metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"outcome"}, // "commit" or "rollback"
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Synchronizer metrics
var (
	SyncRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_sync_runs_total",
			Help: "Total number of library synchronization runs",
		},
	)

	SyncRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_sync_running",
			Help: "Whether a synchronization run is in progress (1 = running, 0 = idle)",
		},
	)

	SyncLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_sync_last_run_timestamp",
			Help: "Unix timestamp of the last completed synchronization run",
		},
	)

	SyncLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_sync_last_run_duration_seconds",
			Help: "Duration of the last synchronization run in seconds",
		},
	)

	SyncItemsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_sync_items_processed_total",
			Help: "Total number of catalog items processed by the synchronizer",
		},
	)

	SyncItemsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_sync_items_skipped_total",
			Help: "Total number of sidecar documents skipped by the synchronizer",
		},
		[]string{"reason"}, // "template" or "duplicate"
	)

	SyncRootsMissing = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_sync_roots_missing_total",
			Help: "Total number of configured roots found missing during runs",
		},
	)

	SyncErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_sync_errors_total",
			Help: "Total number of failed synchronization runs",
		},
	)
)

// Duration probe metrics
var (
	ProbeAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_probe_available",
			Help: "Whether the external duration analyzer passed its startup check (1 = available)",
		},
	)

	ProbeQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_probe_queries_total",
			Help: "Total number of duration probe invocations",
		},
		[]string{"status"}, // "ok", "timeout", "error", "rejected"
	)

	ProbeQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_catalog_probe_query_duration_seconds",
			Help:    "Duration probe invocation time in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)
)

// Playlist metrics
var (
	PlaylistBuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_playlist_builds_total",
			Help: "Total number of byte-range playlists built",
		},
	)

	PlaylistSegments = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_catalog_playlist_segments",
			Help:    "Number of segments per built playlist",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
)

// Artwork cache metrics
var (
	ArtworkCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_artwork_cache_hits_total",
			Help: "Total number of artwork thumbnail cache hits",
		},
	)

	ArtworkCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_artwork_cache_misses_total",
			Help: "Total number of artwork thumbnail cache misses",
		},
	)

	ArtworkResizeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_catalog_artwork_resize_duration_seconds",
			Help:    "Artwork thumbnail resize duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	ArtworkResizeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_artwork_resize_errors_total",
			Help: "Total number of artwork thumbnail resize failures",
		},
	)
)

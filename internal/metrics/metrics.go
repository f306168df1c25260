package metrics

import (
	"regexp"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var uuidRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
		[]string{"method"},
	)

	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "Size of uploaded request bodies in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"path"},
	)

	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path", "status"},
	)

	TransformsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transforms_total",
			Help: "Total number of image transforms",
		},
		[]string{"format", "status"},
	)

	TransformDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transform_duration_seconds",
			Help:    "Duration of image transforms in seconds",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"format", "status"},
	)

	TransformOutputBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transform_output_bytes",
			Help:    "Size of encoded transform output in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"format"},
	)

	TransformErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transform_errors_total",
			Help: "Total number of failed transforms by error kind",
		},
		[]string{"kind"},
	)

	TransformsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transforms_in_flight",
			Help: "Number of transforms currently running",
		},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_operations_total",
			Help: "Total number of storage operations",
		},
		[]string{"operation", "keyspace", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_operation_duration_seconds",
			Help:    "Duration of storage operations in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation", "keyspace"},
	)

	StorageBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_bytes_total",
			Help: "Total bytes transferred to/from storage",
		},
		[]string{"operation", "keyspace"},
	)

	JobsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		},
		[]string{"type"},
	)

	JobsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Total number of jobs processed",
		},
		[]string{"type", "queue", "status"},
	)

	JobRetryAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_retry_attempts",
			Help:    "Attempt number reported when a job is retried",
			Buckets: []float64{1, 2, 3, 5, 8},
		},
		[]string{"type"},
	)

	JobsProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobs_processing_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"type", "stage"},
	)

	WorkerPoolActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_pool_active_jobs",
			Help: "Number of jobs currently being processed by workers",
		},
	)

	WorkerPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_pool_size",
			Help: "Size of the worker pool",
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		},
		[]string{"backend"},
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application information",
		},
		[]string{"version", "environment", "service"},
	)

	AppUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_up",
			Help: "Application is up and running",
		},
	)
)

func RecordJobEnqueued(jobType string) {
	JobsEnqueuedTotal.WithLabelValues(jobType).Inc()
}

func RecordJobStage(jobType, stage string, durationSeconds float64) {
	JobsProcessingDuration.WithLabelValues(jobType, stage).Observe(durationSeconds)
}

func RecordRateLimitHit(backend string) {
	RateLimitHits.WithLabelValues(backend).Inc()
}

func SetAppInfo(version, environment, service string) {
	AppInfo.WithLabelValues(version, environment, service).Set(1)
	AppUp.Set(1)
}

func SetWorkerPoolSize(size int) {
	WorkerPoolSize.Set(float64(size))
}

package metrics

import (
	"time"
)

// QueueCollector feeds job-queue lifecycle events into the job metrics.
// It satisfies the job-queue MetricsCollector interface. Per-stage timings
// (download, transform, upload) are recorded by the handler itself with
// RecordJobStage; the collector only sees whole jobs.
type QueueCollector struct{}

func NewQueueCollector() *QueueCollector {
	return &QueueCollector{}
}

func (c *QueueCollector) JobStarted(jobType, queue string) {
	WorkerPoolActiveJobs.Inc()
}

func (c *QueueCollector) JobCompleted(jobType, queue string, duration time.Duration) {
	c.finish(jobType, queue, "success", duration)
}

// JobFailed is only called once the queue gives up on a job. Transform
// failures are recorded results, so they reach here as permanent errors.
func (c *QueueCollector) JobFailed(jobType, queue string, duration time.Duration) {
	c.finish(jobType, queue, "error", duration)
}

func (c *QueueCollector) JobRetrying(jobType, queue string, attempt int) {
	JobsProcessedTotal.WithLabelValues(jobType, queue, "retry").Inc()
	JobRetryAttempts.WithLabelValues(jobType).Observe(float64(attempt))
}

func (c *QueueCollector) finish(jobType, queue, status string, duration time.Duration) {
	WorkerPoolActiveJobs.Dec()
	JobsProcessedTotal.WithLabelValues(jobType, queue, status).Inc()
	JobsProcessingDuration.WithLabelValues(jobType, "total").Observe(duration.Seconds())
}

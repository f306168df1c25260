package jobs

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/job-queue/pkg/job"
	"github.com/abdul-hamid-achik/resize.cheap/internal/logger"
	"github.com/abdul-hamid-achik/resize.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/resize.cheap/internal/results"
	"github.com/abdul-hamid-achik/resize.cheap/internal/storage"
	"github.com/abdul-hamid-achik/resize.cheap/internal/tracing"
	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
)

// Broker is the part of the job-queue broker the enqueuer needs.
// *broker.RedisStreamsBroker satisfies it.
type Broker interface {
	Enqueue(ctx context.Context, j *job.Job) error
}

// Enqueuer stores a request's source, records it as pending and puts a
// transform job on the queue.
type Enqueuer struct {
	broker  Broker
	storage storage.Storage
	results results.Store
	now     func() time.Time
}

func NewEnqueuer(b Broker, s storage.Storage, r results.Store) *Enqueuer {
	return &Enqueuer{broker: b, storage: s, results: r, now: time.Now}
}

// Enqueue returns the queue job id. The request is validated first so
// obviously bad requests never reach the queue. The request id is reserved
// before the source is stored: an id that already has a record fails with
// results.ErrExists and leaves the existing source and job untouched.
func (e *Enqueuer) Enqueue(ctx context.Context, req transform.Request) (jobID string, err error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	ctx, span := tracing.StartJobEnqueueSpan(ctx, TypeTransform, req.RequestID)
	defer span.End()

	log := logger.FromContext(ctx).With("request_id", req.RequestID)

	now := e.now()
	if err := e.results.Reserve(ctx, results.Pending(req.RequestID, now)); err != nil {
		tracing.RecordError(ctx, err)
		return "", fmt.Errorf("reserve request id: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := e.results.Release(context.WithoutCancel(ctx), req.RequestID); rerr != nil {
			log.Warn("failed to release request id", "error", rerr)
		}
	}()

	sourceKey := storage.SourceKey(req.RequestID)
	if err := e.storage.Upload(ctx, sourceKey, bytes.NewReader(req.Source), "application/octet-stream", int64(len(req.Source))); err != nil {
		tracing.RecordError(ctx, err)
		return "", fmt.Errorf("store source: %w", err)
	}

	j, err := job.New(TypeTransform, TransformPayload{
		RequestID:  req.RequestID,
		SourceKey:  sourceKey,
		Options:    req.Options(),
		Trace:      tracing.InjectTraceContext(ctx),
		EnqueuedAt: now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	if err := e.broker.Enqueue(ctx, j); err != nil {
		tracing.RecordError(ctx, err)
		return "", fmt.Errorf("enqueue job: %w", err)
	}

	metrics.RecordJobEnqueued(TypeTransform)
	log.Info("transform enqueued", "job_id", j.ID, "source_size", len(req.Source))
	return j.ID, nil
}

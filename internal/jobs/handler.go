package jobs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/abdul-hamid-achik/job-queue/pkg/job"
	"github.com/abdul-hamid-achik/job-queue/pkg/middleware"
	"github.com/abdul-hamid-achik/resize.cheap/internal/logger"
	"github.com/abdul-hamid-achik/resize.cheap/internal/metrics"
	"github.com/abdul-hamid-achik/resize.cheap/internal/results"
	"github.com/abdul-hamid-achik/resize.cheap/internal/storage"
	"github.com/abdul-hamid-achik/resize.cheap/internal/tracing"
	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
)

type Dependencies struct {
	Storage     storage.Storage
	Results     results.Store
	Transformer *transform.Transformer
	// Observer, when set, sees every transform result the handler produces.
	Observer transform.Observer
}

// TransformHandler returns the job-queue handler for TypeTransform jobs.
func TransformHandler(deps *Dependencies) func(context.Context, *job.Job) error {
	return func(ctx context.Context, j *job.Job) error {
		var payload TransformPayload
		if err := j.UnmarshalPayload(&payload); err != nil {
			logger.FromContext(ctx).Error("invalid payload", "job_id", j.ID, "error", err)
			return middleware.Permanent(fmt.Errorf("invalid payload: %w", err))
		}
		return deps.Process(ctx, j.ID, payload)
	}
}

// Process runs one transform job. Storage and result-store failures are
// returned as-is so the queue retries them; transform failures are recorded
// and returned as permanent.
func (d *Dependencies) Process(ctx context.Context, jobID string, p TransformPayload) error {
	if err := p.Validate(); err != nil {
		return middleware.Permanent(err)
	}

	ctx = tracing.ExtractTraceContext(ctx, p.Trace)
	ctx, span := tracing.StartJobSpan(ctx, TypeTransform, jobID, p.RequestID)
	defer span.End()

	ctx = logger.WithJob(ctx, jobID, p.RequestID)
	log := logger.FromContext(ctx)
	log.Info("job started")
	start := time.Now()

	createdAt := p.EnqueuedAt
	if rec, err := d.Results.Get(ctx, p.RequestID); err == nil {
		if rec.Terminal() {
			log.Info("result already final, skipping", "status", rec.Status)
			return nil
		}
		createdAt = rec.CreatedAt
	} else if !errors.Is(err, results.ErrNotFound) {
		return fmt.Errorf("load result: %w", err)
	}

	source, err := d.download(ctx, p.SourceKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			res := transform.Result{
				RequestID: p.RequestID,
				Error:     "source image not found",
				ErrorKind: transform.KindDecode,
			}
			_ = d.record(ctx, res, "", createdAt)
			return middleware.Permanent(err)
		}
		log.Error("failed to download source", "source_key", p.SourceKey, "error", err)
		tracing.RecordError(ctx, err)
		return err
	}
	metrics.RecordJobStage(TypeTransform, "download", time.Since(start).Seconds())

	req := p.Options.Request(p.RequestID, source)
	metrics.TransformsInFlight.Inc()
	res := d.Transformer.Transform(ctx, req)
	metrics.TransformsInFlight.Dec()
	if d.Observer != nil {
		d.Observer(req, res)
	}
	metrics.RecordJobStage(TypeTransform, "transform", res.Duration.Seconds())

	if !res.Success {
		if err := d.record(ctx, res, "", createdAt); err != nil {
			return err
		}
		return middleware.Permanent(res.Err())
	}

	uploadStart := time.Now()
	outputKey := storage.OutputKey(p.RequestID, res.Extension)
	if err := d.Storage.Upload(ctx, outputKey, bytes.NewReader(res.Data), res.ContentType, int64(res.Size)); err != nil {
		log.Error("failed to upload output", "output_key", outputKey, "error", err)
		tracing.RecordError(ctx, err)
		return fmt.Errorf("failed to upload output: %w", err)
	}
	metrics.RecordJobStage(TypeTransform, "upload", time.Since(uploadStart).Seconds())

	if err := d.record(ctx, res, outputKey, createdAt); err != nil {
		return err
	}

	log.Info("job completed",
		"duration_ms", time.Since(start).Milliseconds(),
		"width", res.Width,
		"height", res.Height,
		"size", res.Size,
	)
	return nil
}

func (d *Dependencies) download(ctx context.Context, key string) ([]byte, error) {
	r, err := d.Storage.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read source %s: %w", key, err)
	}
	return data, nil
}

// record writes the terminal record. A record that is already final means
// another delivery of this job won; the late result is dropped.
func (d *Dependencies) record(ctx context.Context, res transform.Result, outputKey string, createdAt time.Time) error {
	err := d.Results.Put(ctx, results.Finished(res, outputKey, createdAt, time.Now()))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, results.ErrFinal):
		logger.FromContext(ctx).Warn("discarding late result", "success", res.Success)
		return nil
	default:
		return fmt.Errorf("record result: %w", err)
	}
}

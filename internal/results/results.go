// Package results keeps the outcome of asynchronous transforms by request id.
package results

import (
	"context"
	"errors"
	"time"

	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
)

var (
	ErrNotFound = errors.New("results: record not found")
	// ErrFinal is returned by Put when the stored record is already
	// terminal. The new record is discarded.
	ErrFinal = errors.New("results: record already final")
	// ErrExists is returned by Reserve when the request id already has a
	// record, pending or final.
	ErrExists = errors.New("results: request id already in use")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

type Record struct {
	RequestID   string    `json:"request_id"`
	Status      Status    `json:"status"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	Size        int       `json:"size,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Quality     float64   `json:"quality,omitempty"`
	OutputKey   string    `json:"output_key,omitempty"`
	Error       string    `json:"error,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	DurationMs  int64     `json:"duration_ms,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r Record) Terminal() bool {
	return r.Status == StatusSucceeded || r.Status == StatusFailed
}

func Pending(requestID string, now time.Time) Record {
	return Record{
		RequestID: requestID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Finished builds the terminal record for res. outputKey is only kept for
// successful results.
func Finished(res transform.Result, outputKey string, createdAt, now time.Time) Record {
	rec := Record{
		RequestID:  res.RequestID,
		DurationMs: res.Duration.Milliseconds(),
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}
	if createdAt.IsZero() {
		rec.CreatedAt = now
	}
	if !res.Success {
		rec.Status = StatusFailed
		rec.Error = res.Error
		rec.ErrorKind = string(res.ErrorKind)
		return rec
	}
	rec.Status = StatusSucceeded
	rec.Width = res.Width
	rec.Height = res.Height
	rec.Size = res.Size
	rec.ContentType = res.ContentType
	rec.Quality = res.Quality
	rec.OutputKey = outputKey
	return rec
}

// Store persists records. Implementations must not overwrite a terminal
// record; Put reports that case with ErrFinal.
//
// Reserve stores rec only when no record exists for its request id and
// returns ErrExists otherwise. Release removes a record that is still
// pending, freeing the id after a failed enqueue; final records stay.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, requestID string) (Record, error)
	Reserve(ctx context.Context, rec Record) error
	Release(ctx context.Context, requestID string) error
}

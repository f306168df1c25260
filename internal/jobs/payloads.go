package jobs

import (
	"errors"
	"time"

	"github.com/abdul-hamid-achik/resize.cheap/internal/tracing"
	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
)

const TypeTransform = "transform"

var ErrInvalidPayload = errors.New("jobs: invalid payload")

type TransformPayload struct {
	RequestID  string               `json:"request_id"`
	SourceKey  string               `json:"source_key"`
	Options    transform.Options    `json:"options"`
	Trace      tracing.TraceCarrier `json:"trace,omitempty"`
	EnqueuedAt time.Time            `json:"enqueued_at"`
}

func (p TransformPayload) Validate() error {
	if p.RequestID == "" || p.SourceKey == "" {
		return ErrInvalidPayload
	}
	return nil
}

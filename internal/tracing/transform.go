package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Transform pipeline stages, used as span name suffixes.
const (
	StageDecode = "decode"
	StageRender = "render"
	StageEncode = "encode"
)

// StartTransformSpan opens the span covering one transform request.
func StartTransformSpan(ctx context.Context, requestID, format string, width, height int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "transform",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("transform.format", format),
			attribute.Int("transform.width", width),
			attribute.Int("transform.height", height),
		),
	)
}

// StartStage opens a child span for one pipeline stage. Stage spans are not
// propagated further, so only the span is returned.
func StartStage(ctx context.Context, stage string) trace.Span {
	_, span := Tracer().Start(ctx, "transform."+stage)
	return span
}

// AnnotateOutput records the decoded source format and the computed output
// size on the transform span.
func AnnotateOutput(ctx context.Context, sourceFormat string, width, height int) {
	AddSpanAttributes(ctx,
		attribute.String("transform.source_format", sourceFormat),
		attribute.Int("transform.output_width", width),
		attribute.Int("transform.output_height", height),
	)
}

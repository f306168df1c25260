package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TraceCarrier travels inside job payloads so a worker span joins the
// trace of the API request that enqueued it.
type TraceCarrier struct {
	TraceParent string `json:"trace_parent,omitempty"`
	TraceState  string `json:"trace_state,omitempty"`
	Baggage     string `json:"baggage,omitempty"`
}

func (c TraceCarrier) Empty() bool {
	return c.TraceParent == "" && c.Baggage == ""
}

// carrierPropagator is used when no global propagator has been installed,
// e.g. when tracing is disabled but a payload still carries a parent.
var carrierPropagator = propagation.NewCompositeTextMapPropagator(
	propagation.TraceContext{},
	propagation.Baggage{},
)

func propagator() propagation.TextMapPropagator {
	if p := otel.GetTextMapPropagator(); len(p.Fields()) > 0 {
		return p
	}
	return carrierPropagator
}

func InjectTraceContext(ctx context.Context) TraceCarrier {
	m := propagation.MapCarrier{}
	propagator().Inject(ctx, m)
	return TraceCarrier{
		TraceParent: m.Get("traceparent"),
		TraceState:  m.Get("tracestate"),
		Baggage:     m.Get("baggage"),
	}
}

func ExtractTraceContext(ctx context.Context, carrier TraceCarrier) context.Context {
	if carrier.Empty() {
		return ctx
	}
	m := propagation.MapCarrier{}
	for k, v := range map[string]string{
		"traceparent": carrier.TraceParent,
		"tracestate":  carrier.TraceState,
		"baggage":     carrier.Baggage,
	} {
		if v != "" {
			m.Set(k, v)
		}
	}
	return propagator().Extract(ctx, m)
}

// StartJobSpan starts the consumer span for a queued transform. The span
// links back to the enqueueing request through the extracted parent.
func StartJobSpan(ctx context.Context, jobType, jobID, requestID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "job.process."+jobType,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("job.type", jobType),
			attribute.String("job.id", jobID),
			attribute.String("request.id", requestID),
		),
	)
}

func StartJobEnqueueSpan(ctx context.Context, jobType, requestID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "job.enqueue."+jobType,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("job.type", jobType),
			attribute.String("request.id", requestID),
		),
	)
}

package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry trace.Tracer with this module's
// well-known spans, the same "thin helper over otel.Tracer" shape as
// the teacher's v2/observability.Tracer, minus the TracerProvider/
// exporter construction that package also does (out of scope here,
// §1: "logging/tracing setup").
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer wraps the named otel.Tracer. Pass the caller's package path
// as name, matching the convention otel.Tracer itself recommends.
func NewTracer(name string) *Tracer {
	return &Tracer{tracer: otel.Tracer(name)}
}

// StartRouterHop begins the span a Router emits once per hop (§4.5.1).
func (t *Tracer) StartRouterHop(ctx context.Context, recipient string, hop int, extensionUsed bool) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanRouterHop, trace.WithAttributes(
		attribute.String(AttrRecipient, recipient),
		attribute.Int(AttrHop, hop),
		attribute.Bool(AttrExtensionUsed, extensionUsed),
	))
}

// RecordError records err on span, tagged with its error message, a
// small convenience mirroring the teacher's Tracer.RecordError.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
}

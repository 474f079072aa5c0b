package apm

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans wrapped as Span so callers record failures through
// NoticeError.
type Tracer interface {
	StartSpanFromContext(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, Span)
	SpanFromContext(ctx context.Context) Span
	// GetTracer exposes the raw tracer for libraries that take one, such as
	// the HTTP client.
	GetTracer() trace.Tracer
}

type openTracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer backed by the global provider, so spans follow
// whatever NewTraceProvider installed.
func NewTracer(name string) Tracer {
	return FromTracer(otel.Tracer(name))
}

// FromTracer wraps an existing tracer, e.g. one from a test provider.
func FromTracer(t trace.Tracer) Tracer {
	return &openTracer{tracer: t}
}

func (t *openTracer) StartSpanFromContext(
	ctx context.Context, name string, opts ...trace.SpanStartOption,
) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, opts...)
	return ctx, NewSpan(span)
}

func (t *openTracer) SpanFromContext(ctx context.Context) Span {
	return NewSpan(trace.SpanFromContext(ctx))
}

func (t *openTracer) GetTracer() trace.Tracer {
	return t.tracer
}

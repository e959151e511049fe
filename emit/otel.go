package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTel emits each value as an immediately-ended OpenTelemetry span: one
// point-in-time span per value rather than a duration span, matching
// how the process emits one Log/ProcessEvent value per state change
// instead of wrapping an operation.
type OTel[T any] struct {
	tracer   trace.Tracer
	name     func(T) string
	describe Describer[T]
}

// NewOTel returns an OTel sink. name derives the span name from a value
// (e.g. its kind); a nil name defaults every span to "event". A nil
// describe omits attribute decoration beyond the span name.
func NewOTel[T any](tracer trace.Tracer, name func(T) string, describe Describer[T]) *OTel[T] {
	if name == nil {
		name = func(T) string { return "event" }
	}
	return &OTel[T]{tracer: tracer, name: name, describe: describe}
}

func (o *OTel[T]) Emit(value T) {
	_, span := o.tracer.Start(context.Background(), o.name(value))
	o.annotate(span, value)
	span.End()
}

func (o *OTel[T]) EmitBatch(ctx context.Context, values []T) error {
	for _, v := range values {
		_, span := o.tracer.Start(ctx, o.name(v))
		o.annotate(span, v)
		span.End()
	}
	return nil
}

func (o *OTel[T]) annotate(span trace.Span, value T) {
	if o.describe == nil {
		return
	}
	for key, v := range o.describe(value) {
		if key == "error" {
			if msg, ok := v.(string); ok {
				span.SetStatus(codes.Error, msg)
				span.RecordError(fmt.Errorf("%s", msg))
				continue
			}
		}
		setAttribute(span, key, v)
	}
}

func setAttribute(span trace.Span, key string, v any) {
	switch val := v.(type) {
	case string:
		span.SetAttributes(attribute.String(key, val))
	case int:
		span.SetAttributes(attribute.Int(key, val))
	case int64:
		span.SetAttributes(attribute.Int64(key, val))
	case float64:
		span.SetAttributes(attribute.Float64(key, val))
	case bool:
		span.SetAttributes(attribute.Bool(key, val))
	default:
		span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", val)))
	}
}

// Flush force-flushes the active OpenTelemetry tracer provider, if it
// supports flushing (e.g. the SDK provider does; the no-op default
// provider does not).
func (o *OTel[T]) Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}
	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

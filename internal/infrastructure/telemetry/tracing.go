package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of business spans
const TracerName = "shopcore-backend"

// Attribute keys shared by order spans and span events
const (
	SpanAttrOrderID   = "order_id"
	SpanAttrProductID = "product_id"
	SpanAttrLines     = "lines"
	SpanAttrUnits     = "units"
)

// StartServiceSpan starts an internal span named {service}.{method} on the
// global provider, with alternating key/value attributes. The caller ends it.
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "order", "confirm", telemetry.SpanAttrOrderID, id)
//	defer span.End()
func StartServiceSpan(ctx context.Context, service, method string, keyValues ...any) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attributes(keyValues)...),
	)
}

// SetAttributes adds alternating key/value pairs to span; pairs whose key is
// not a string are dropped
func SetAttributes(span trace.Span, keyValues ...any) {
	if span != nil {
		span.SetAttributes(attributes(keyValues)...)
	}
}

// AddEvent adds a named event carrying key/value attributes
func AddEvent(span trace.Span, name string, keyValues ...any) {
	if span != nil {
		span.AddEvent(name, trace.WithAttributes(attributes(keyValues)...))
	}
}

// RecordError attaches err to span and marks the span failed
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func attributes(keyValues []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		if key, ok := keyValues[i].(string); ok {
			attrs = append(attrs, attributeOf(key, keyValues[i+1]))
		}
	}
	return attrs
}

func attributeOf(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}

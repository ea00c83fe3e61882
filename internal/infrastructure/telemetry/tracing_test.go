package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func findAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)
	orderID := uuid.New()

	_, span := telemetry.StartServiceSpan(context.Background(), "order", "confirm",
		telemetry.SpanAttrOrderID, orderID,
		telemetry.SpanAttrLines, 3,
	)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "order.confirm", spans[0].Name())
	assert.Equal(t, trace.SpanKindInternal, spans[0].SpanKind())

	v, ok := findAttr(spans[0].Attributes(), telemetry.SpanAttrLines)
	require.True(t, ok)
	assert.Equal(t, int64(3), v.AsInt64())
	v, ok = findAttr(spans[0].Attributes(), telemetry.SpanAttrOrderID)
	require.True(t, ok)
	assert.Equal(t, orderID.String(), v.AsString())
}

func TestStartServiceSpan_Nested(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "order", "confirm")
	_, child := telemetry.StartServiceSpan(ctx, "product", "lock")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "product.lock", spans[0].Name())
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	orderID := uuid.New()

	_, span := telemetry.StartServiceSpan(context.Background(), "test", "run")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID,
		telemetry.SpanAttrUnits, 7,
		"flag", true,
		"ratio", 0.5,
		42, "non-string key is skipped",
		"dangling",
	)
	span.End()

	attrs := sr.Ended()[0].Attributes()
	require.Len(t, attrs, 4)

	v, _ := findAttr(attrs, telemetry.SpanAttrOrderID)
	assert.Equal(t, orderID.String(), v.AsString())
	v, _ = findAttr(attrs, "flag")
	assert.True(t, v.AsBool())
	v, _ = findAttr(attrs, "ratio")
	assert.Equal(t, "0.5", v.AsString())
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "test", "run")
	telemetry.RecordError(span, errors.New("insufficient stock"))
	telemetry.RecordError(span, nil)
	span.End()

	s := sr.Ended()[0]
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "insufficient stock", s.Status().Description)
	require.Len(t, s.Events(), 1)
	assert.Equal(t, "exception", s.Events()[0].Name)
}

func TestAddEvent(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "test", "run")
	telemetry.AddEvent(span, "stock_reserved", telemetry.SpanAttrProductID, "p-1", telemetry.SpanAttrUnits, 2)
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "stock_reserved", events[0].Name)
	assert.Len(t, events[0].Attributes, 2)
}

func TestHelpers_NilSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		telemetry.SetAttributes(nil, "k", "v")
		telemetry.RecordError(nil, errors.New("x"))
		telemetry.AddEvent(nil, "e")
	})
}

package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	userIDKey
)

// WithContext attaches logger to ctx; L(ctx) picks it up
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l := value[*zap.Logger](ctx, loggerKey); l != nil {
		return l
	}
	return zap.NewNop()
}

// WithRequestID records the request id for log correlation
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUserID records the authenticated user for log correlation
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequestID returns the request id stored by WithRequestID
func RequestID(ctx context.Context) string { return value[string](ctx, requestIDKey) }

// UserID returns the user id stored by WithUserID
func UserID(ctx context.Context) string { return value[string](ctx, userIDKey) }

func value[T any](ctx context.Context, key ctxKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	v, ok := ctx.Value(key).(T)
	if !ok {
		return zero
	}
	return v
}

// CorrelationFields returns the trace, request and user fields present in ctx
func CorrelationFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()))
	}
	if id := RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if id := UserID(ctx); id != "" {
		fields = append(fields, zap.String("user_id", id))
	}
	return fields
}

// ContextLogger writes through a zap logger, adding CorrelationFields of its
// context to every entry.
//
//	logger.L(ctx).Info("order confirmed", zap.String("order_id", id))
type ContextLogger struct {
	ctx  context.Context
	base *zap.Logger
}

// L returns a ContextLogger over the logger attached to ctx
func L(ctx context.Context) *ContextLogger {
	return WithLogger(ctx, FromContext(ctx))
}

// WithLogger returns a ContextLogger over logger rather than the one in ctx
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextLogger{ctx: ctx, base: logger}
}

// With returns a child logger carrying extra fields
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, base: cl.base.With(fields...)}
}

// Zap returns a plain zap logger with the correlation fields applied
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.base.With(CorrelationFields(cl.ctx)...)
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.Zap().Debug(msg, fields...) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.Zap().Info(msg, fields...) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.Zap().Warn(msg, fields...) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.Zap().Error(msg, fields...) }

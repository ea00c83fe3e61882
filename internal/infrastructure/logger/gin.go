package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GinOption configures GinMiddleware
type GinOption func(*ginConfig)

type ginConfig struct {
	skip map[string]struct{}
}

// SkipPaths turns off access logging for exact request paths (e.g. /health)
func SkipPaths(paths ...string) GinOption {
	return func(cfg *ginConfig) {
		for _, p := range paths {
			cfg.skip[p] = struct{}{}
		}
	}
}

// GinMiddleware writes one access log entry per request and attaches a
// request-scoped logger to the request context for L(ctx). The request id is
// read from the gin context key "request_id", so RequestID middleware must
// run first.
func GinMiddleware(base *zap.Logger, opts ...GinOption) gin.HandlerFunc {
	cfg := ginConfig{skip: map[string]struct{}{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(c *gin.Context) {
		start := time.Now()
		req := c.Request

		reqLogger := base.With(
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("client_ip", c.ClientIP()),
		)
		ctx := WithRequestID(req.Context(), c.GetString("request_id"))
		c.Request = req.WithContext(WithContext(ctx, reqLogger))

		c.Next()

		if _, skip := cfg.skip[req.URL.Path]; skip {
			return
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.Int("body_size", c.Writer.Size()),
			zap.String("user_agent", req.UserAgent()),
		}
		if req.URL.RawQuery != "" {
			fields = append(fields, zap.String("query", req.URL.RawQuery))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		// the auth middleware further down the chain adds the user id
		l := WithLogger(c.Request.Context(), reqLogger)
		switch {
		case status >= http.StatusInternalServerError:
			l.Error("HTTP request", fields...)
		case status >= http.StatusBadRequest:
			l.Warn("HTTP request", fields...)
		default:
			l.Info("HTTP request", fields...)
		}
	}
}

// Recovery turns a handler panic into the 500 error envelope and logs it
// with its stack
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			requestID := c.GetString("request_id")
			WithLogger(c.Request.Context(), base).Error("Panic recovered",
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":       "ERR_INTERNAL",
					"message":    "An internal error occurred",
					"request_id": requestID,
				},
			})
		}()
		c.Next()
	}
}

package logger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func findEntry(t *testing.T, recorded *observer.ObservedLogs, msg string) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage(msg).All()
	require.NotEmpty(t, entries, "expected a %q log entry", msg)
	return entries[0]
}

func withRequestID(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("request_id", id)
		c.Next()
	}
}

func TestGinMiddleware_StatusLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"ok", http.StatusOK, zapcore.InfoLevel},
		{"client error", http.StatusBadRequest, zapcore.WarnLevel},
		{"too many requests", http.StatusTooManyRequests, zapcore.WarnLevel},
		{"server error", http.StatusInternalServerError, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			router := gin.New()
			router.Use(withRequestID("req-1"), GinMiddleware(zap.New(core)))
			router.GET("/test", func(c *gin.Context) {
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test?page=2", nil)
			router.ServeHTTP(w, req)

			entry := findEntry(t, recorded, "HTTP request")
			assert.Equal(t, tt.level, entry.Level)

			fields := entry.ContextMap()
			assert.Equal(t, "req-1", fields["request_id"])
			assert.Equal(t, "GET", fields["method"])
			assert.Equal(t, "/test", fields["path"])
			assert.Equal(t, "page=2", fields["query"])
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Contains(t, fields, "client_ip")
		})
	}
}

func TestGinMiddleware_RequestContextLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(withRequestID("req-ctx"), GinMiddleware(zap.New(core)))
	router.GET("/orders", func(c *gin.Context) {
		ctx := WithUserID(c.Request.Context(), "user-3")
		c.Request = c.Request.WithContext(ctx)
		L(ctx).Info("from handler")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders", nil))

	for _, msg := range []string{"from handler", "HTTP request"} {
		fields := findEntry(t, recorded, msg).ContextMap()
		assert.Equal(t, "req-ctx", fields["request_id"], msg)
		assert.Equal(t, "user-3", fields["user_id"], msg)
		assert.Equal(t, "/orders", fields["path"], msg)
	}
}

func TestGinMiddleware_SkipPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(GinMiddleware(zap.New(core), SkipPaths("/health")))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/products", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/health", "/products"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := recorded.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/products", entries[0].ContextMap()["path"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(withRequestID("req-panic"), Recovery(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) {
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "ERR_INTERNAL", body.Error.Code)
	assert.Equal(t, "req-panic", body.Error.RequestID)
	assert.NotContains(t, w.Body.String(), "kaboom")

	entry := findEntry(t, recorded, "Panic recovered")
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "kaboom", entry.ContextMap()["panic"])
}

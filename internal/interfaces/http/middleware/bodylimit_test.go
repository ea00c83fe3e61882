package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	const limit = 64
	line := `{"product_id":"6f1c1e4e-9a36-4d1e-bb0f-0a1d1b5b8d21","quantity":2}`
	oversized := `{"reason":"` + strings.Repeat("x", 200) + `"}`

	tests := []struct {
		name          string
		body          string
		contentLength int64
		wantStatus    int
		wantCode      string
	}{
		{"declared size within limit", line[:limit], int64(limit), http.StatusOK, ""},
		{"declared size over limit", oversized, int64(len(oversized)), http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge},
		{"chunked body cut off while reading", oversized, -1, http.StatusBadRequest, ""},
		{"no body", "", 0, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(BodyLimit(limit))
			router.POST("/orders/1/cancel", func(c *gin.Context) {
				_, err := io.ReadAll(c.Request.Body)
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					c.String(http.StatusBadRequest, "body too large")
					return
				}
				c.String(http.StatusOK, "ok")
			})

			req := httptest.NewRequest(http.MethodPost, "/orders/1/cancel", strings.NewReader(tt.body))
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Contains(t, w.Body.String(), tt.wantCode)
			}
		})
	}
}

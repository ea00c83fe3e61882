package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopcore/backend/internal/domain/security"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
	"github.com/shopcore/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, path string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET(path, h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set(middleware.RequestIDHeader, "req-1")
	router.ServeHTTP(w, req)
	return w
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", shared.NewValidationError("INVALID_QUANTITY", "Quantity must be at least 1"), http.StatusBadRequest, "ERR_INVALID_QUANTITY"},
		{"not found", shared.ErrNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"wrapped not found", fmt.Errorf("load order: %w", shared.ErrNotFound), http.StatusNotFound, dto.ErrCodeNotFound},
		{"business rule", shared.ErrInsufficientStock, http.StatusConflict, dto.ErrCodeInsufficientStock},
		{"invalid state", shared.NewInvalidStateError("Cannot move order from SHIPPED to CONFIRMED"), http.StatusConflict, dto.ErrCodeInvalidState},
		{"conflict", shared.NewDomainError(shared.KindConflict, "ALREADY_EXISTS", "SKU taken"), http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"unauthorized", shared.NewDomainError(shared.KindUnauthorized, "TOKEN_INVALID", "Invalid or expired token"), http.StatusUnauthorized, dto.ErrCodeTokenInvalid},
		{"forbidden", shared.NewDomainError(shared.KindForbidden, "FORBIDDEN", "nope"), http.StatusForbidden, dto.ErrCodeForbidden},
		{"domain error without kind", shared.NewDomainError("", "ODD", "odd"), http.StatusInternalServerError, dto.ErrCodeInternal},
		{"plain error", errors.New("connection reset"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := serve(t, "/err", func(c *gin.Context) { h.HandleError(c, tt.err) })

			assert.Equal(t, tt.wantStatus, w.Code)

			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestHandleError_HidesInternalDetails(t *testing.T) {
	h := &BaseHandler{}
	w := serve(t, "/err", func(c *gin.Context) {
		h.HandleError(c, errors.New("pq: password authentication failed for user shop"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestHandleError_RateLimited(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantRetryAfter string
	}{
		{"blocked identity", security.NewRateLimitedError(security.Deny(90 * time.Second)), "90"},
		{"wrapped", fmt.Errorf("login: %w", security.NewRateLimitedError(security.Deny(1500*time.Millisecond))), "2"},
		{"bare rate limited kind uses the default wait", shared.ErrRateLimited, "60"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := serve(t, "/limited", func(c *gin.Context) { h.HandleError(c, tt.err) })

			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			assert.Equal(t, tt.wantRetryAfter, w.Header().Get(middleware.HeaderRetryAfter))
			assert.NotEmpty(t, w.Header().Get(middleware.HeaderRateLimitReset))

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, map[string]string{
				"error":  dto.RateLimitError,
				"detail": dto.RateLimitDetail,
				"code":   dto.ErrCodeTooManyRequests,
			}, body)
		})
	}
}

func TestParseUUIDParam(t *testing.T) {
	h := &BaseHandler{}
	router := gin.New()
	router.GET("/orders/:id", func(c *gin.Context) {
		id, ok := h.ParseUUIDParam(c, "id")
		if !ok {
			return
		}
		c.String(http.StatusOK, id.String())
	})

	t.Run("valid", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/6f1c1e4e-9a36-4d1e-bb0f-0a1d1b5b8d21", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "6f1c1e4e-9a36-4d1e-bb0f-0a1d1b5b8d21", w.Body.String())
	})

	t.Run("invalid", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/42", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeInvalidID, resp.Error.Code)
	})
}

func TestBindJSON(t *testing.T) {
	type body struct {
		Quantity int `json:"quantity" binding:"required,min=1"`
	}
	h := &BaseHandler{}
	router := gin.New()
	router.POST("/lines", func(c *gin.Context) {
		var b body
		if !h.BindJSON(c, &b) {
			return
		}
		h.Created(c, b)
	})

	tests := []struct {
		name       string
		payload    string
		wantStatus int
	}{
		{"valid", `{"quantity":2}`, http.StatusCreated},
		{"fails validation", `{"quantity":0}`, http.StatusBadRequest},
		{"malformed", `{"quantity":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/lines", strings.NewReader(tt.payload))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

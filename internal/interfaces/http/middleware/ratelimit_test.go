package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopcore/backend/internal/domain/security"
	"github.com/shopcore/backend/internal/infrastructure/auth"
	"github.com/shopcore/backend/internal/infrastructure/config"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQuotaTaker struct {
	mock.Mock
}

func (m *MockQuotaTaker) Take(ctx context.Context, scope string, id security.Identity) (security.Decision, security.QuotaResult, error) {
	args := m.Called(ctx, scope, id)
	return args.Get(0).(security.Decision), args.Get(1).(security.QuotaResult), args.Error(2)
}

type MockBlockChecker struct {
	mock.Mock
}

func (m *MockBlockChecker) Check(ctx context.Context, ids ...security.Identity) (security.Decision, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(security.Decision), args.Error(1)
}

func freezeNow(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

func withClaims(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		setClaims(c, &auth.Claims{UserID: userID, Role: "customer"})
		c.Next()
	}
}

func TestAbortRateLimited(t *testing.T) {
	at := time.Unix(1_700_000_000, 0)
	freezeNow(t, at)

	tests := []struct {
		name          string
		retryAfter    time.Duration
		wantRetry     string
		wantResetUnix int64
	}{
		{"rounds up partial seconds", 1500 * time.Millisecond, "2", at.Unix() + 2},
		{"never below one second", 0, "1", at.Unix() + 1},
		{"fifteen minute block", 15 * time.Minute, "900", at.Unix() + 900},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/test", func(c *gin.Context) {
				AbortRateLimited(c, security.Deny(tt.retryAfter))
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, http.StatusTooManyRequests, w.Code)
			assert.Equal(t, tt.wantRetry, w.Header().Get(HeaderRetryAfter))
			assert.Equal(t, strconv.FormatInt(tt.wantResetUnix, 10), w.Header().Get(HeaderRateLimitReset))

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, map[string]string{
				"error":  dto.RateLimitError,
				"detail": dto.RateLimitDetail,
				"code":   "too_many_requests",
			}, body)
		})
	}
}

func TestQuota(t *testing.T) {
	t.Run("allowed request gets limit headers", func(t *testing.T) {
		quotas := new(MockQuotaTaker)
		quotas.On("Take", mock.Anything, config.QuotaScopeLogin, security.IPIdentity("192.0.2.1")).
			Return(security.Allow(), security.QuotaResult{Allowed: true, Limit: 5, Remaining: 4}, nil)

		router := gin.New()
		router.POST("/login", Quota(quotas, config.QuotaScopeLogin), func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "5", w.Header().Get(HeaderRateLimitLimit))
		assert.Equal(t, "4", w.Header().Get(HeaderRateLimitRemaining))
		quotas.AssertExpectations(t)
	})

	t.Run("exhausted quota is a generic 429", func(t *testing.T) {
		quotas := new(MockQuotaTaker)
		quotas.On("Take", mock.Anything, config.QuotaScopeOrderConfirm, security.UserIdentity("u-1")).
			Return(security.Deny(30*time.Second), security.QuotaResult{Limit: 10, Count: 11}, nil)

		handled := false
		router := gin.New()
		router.POST("/confirm", withClaims("u-1"), Quota(quotas, config.QuotaScopeOrderConfirm), func(c *gin.Context) {
			handled = true
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/confirm", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "30", w.Header().Get(HeaderRetryAfter))
		assert.NotContains(t, w.Body.String(), config.QuotaScopeOrderConfirm)
		assert.False(t, handled)
	})

	t.Run("store failure lets the request through", func(t *testing.T) {
		quotas := new(MockQuotaTaker)
		quotas.On("Take", mock.Anything, mock.Anything, mock.Anything).
			Return(security.Decision{}, security.QuotaResult{}, errors.New("redis down"))

		router := gin.New()
		router.GET("/test", Quota(quotas, config.QuotaScopeAnon), func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGeneralQuota(t *testing.T) {
	tests := []struct {
		name      string
		userID    string
		wantScope string
	}{
		{"anonymous caller", "", config.QuotaScopeAnon},
		{"authenticated caller", "u-9", config.QuotaScopeUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quotas := new(MockQuotaTaker)
			quotas.On("Take", mock.Anything, tt.wantScope, mock.Anything).
				Return(security.Allow(), security.QuotaResult{Allowed: true}, nil)

			router := gin.New()
			if tt.userID != "" {
				router.Use(withClaims(tt.userID))
			}
			router.Use(GeneralQuota(quotas))
			router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, w.Header().Get(HeaderRateLimitLimit))
			quotas.AssertExpectations(t)
		})
	}
}

func TestBlockGuard(t *testing.T) {
	t.Run("checks address and authenticated user", func(t *testing.T) {
		blocks := new(MockBlockChecker)
		blocks.On("Check", mock.Anything, []security.Identity{
			security.IPIdentity("198.51.100.2"),
			security.UserIdentity("u-1"),
		}).Return(security.Allow(), nil)

		router := gin.New()
		router.GET("/orders", withClaims("u-1"), BlockGuard(blocks), func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.RemoteAddr = "198.51.100.2:443"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		blocks.AssertExpectations(t)
	})

	t.Run("blocked identity gets the same body as a quota rejection", func(t *testing.T) {
		blocks := new(MockBlockChecker)
		blocks.On("Check", mock.Anything, mock.Anything).Return(security.Deny(10*time.Minute), nil)

		router := gin.New()
		router.POST("/login", BlockGuard(blocks), func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "600", w.Header().Get(HeaderRetryAfter))

		expected, err := json.Marshal(dto.NewRateLimitResponse())
		require.NoError(t, err)
		assert.JSONEq(t, string(expected), w.Body.String())
	})
}

func TestDefaultRetryAfter(t *testing.T) {
	t.Cleanup(func() { defaultRetryAfter.Store(0) })

	assert.Equal(t, security.DefaultRetryAfter, DefaultRetryAfter())

	SetDefaultRetryAfter(-time.Second)
	assert.Equal(t, security.DefaultRetryAfter, DefaultRetryAfter())

	SetDefaultRetryAfter(90 * time.Second)
	assert.Equal(t, 90*time.Second, DefaultRetryAfter())
}

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopcore/backend/internal/domain/security"
	"github.com/shopcore/backend/internal/infrastructure/config"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Rate limit headers
const (
	HeaderRetryAfter         = "Retry-After"
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// QuotaTaker consumes one request from a per-scope budget
type QuotaTaker interface {
	Take(ctx context.Context, scope string, id security.Identity) (security.Decision, security.QuotaResult, error)
}

// BlockChecker reports whether any of the identities is temporarily blocked
type BlockChecker interface {
	Check(ctx context.Context, ids ...security.Identity) (security.Decision, error)
}

// now is replaced in tests
var now = time.Now

var defaultRetryAfter atomic.Int64

// SetDefaultRetryAfter sets the wait advertised for refusals that carry none.
// Non-positive values are ignored.
func SetDefaultRetryAfter(d time.Duration) {
	if d > 0 {
		defaultRetryAfter.Store(int64(d))
	}
}

// DefaultRetryAfter returns the configured fallback wait
func DefaultRetryAfter() time.Duration {
	if d := defaultRetryAfter.Load(); d > 0 {
		return time.Duration(d)
	}
	return security.DefaultRetryAfter
}

// AbortRateLimited writes the generic 429 response. The body is the same
// whichever rule refused the request.
func AbortRateLimited(c *gin.Context, d security.Decision) {
	c.Header(HeaderRetryAfter, strconv.Itoa(d.RetryAfterSeconds()))
	c.Header(HeaderRateLimitReset, strconv.FormatInt(d.ResetAt(now()).Unix(), 10))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewRateLimitResponse())
}

// RequestIdentity is the authenticated user when there is one, the client address otherwise
func RequestIdentity(c *gin.Context) security.Identity {
	if userID := GetJWTUserID(c); userID != "" {
		return security.UserIdentity(userID)
	}
	return ClientIP(c)
}

// Quota enforces the budget of one scope for the request identity.
// It must run after OptionalJWTAuth so authenticated callers are keyed by user.
func Quota(quotas QuotaTaker, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		takeQuota(c, quotas, scope)
	}
}

// GeneralQuota applies the user budget to authenticated callers and the anonymous budget to the rest
func GeneralQuota(quotas QuotaTaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := config.QuotaScopeAnon
		if GetJWTUserID(c) != "" {
			scope = config.QuotaScopeUser
		}
		takeQuota(c, quotas, scope)
	}
}

func takeQuota(c *gin.Context, quotas QuotaTaker, scope string) {
	ctx := c.Request.Context()
	decision, result, err := quotas.Take(ctx, scope, RequestIdentity(c))
	if err != nil {
		// The store being down must not take the API with it
		logger.L(ctx).Error("quota check failed", zap.String("scope", scope), zap.Error(err))
		c.Next()
		return
	}
	if !decision.Allowed {
		AbortRateLimited(c, decision)
		return
	}

	if result.Limit > 0 {
		c.Header(HeaderRateLimitLimit, strconv.Itoa(result.Limit))
		c.Header(HeaderRateLimitRemaining, strconv.Itoa(result.Remaining))
	}
	c.Next()
}

// BlockGuard refuses requests from a blocked client address or, when authenticated, a blocked user
func BlockGuard(blocks BlockChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ids := []security.Identity{ClientIP(c)}
		if userID := GetJWTUserID(c); userID != "" {
			ids = append(ids, security.UserIdentity(userID))
		}

		decision, err := blocks.Check(ctx, ids...)
		if err != nil {
			logger.L(ctx).Error("block check failed", zap.Error(err))
			c.Next()
			return
		}
		if !decision.Allowed {
			logger.L(ctx).Warn("request refused for blocked identity", zap.String("path", c.FullPath()))
			AbortRateLimited(c, decision)
			return
		}
		c.Next()
	}
}

package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/audit"
	"github.com/shopcore/backend/internal/domain/security"
)

const (
	// RequestIDKey is the gin context key holding the request ID
	RequestIDKey = "request_id"
	// RequestIDHeader carries the request ID in both directions
	RequestIDHeader = "X-Request-ID"
	// MaxRequestIDLength bounds client supplied request IDs
	MaxRequestIDLength = 128

	maxUserAgentLength = 512
)

// RequestID reuses the caller's X-Request-ID when it is sane and mints a
// UUID otherwise. The id is echoed on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > MaxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the request ID set by RequestID
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// Actor records who is calling (address and user agent) for audit records.
// JWT middleware fills in the user once the token is verified.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		ua := c.Request.UserAgent()
		if len(ua) > maxUserAgentLength {
			ua = ua[:maxUserAgentLength]
		}
		ctx := audit.WithActor(c.Request.Context(), audit.Actor{
			IPAddress: ClientIP(c).Value,
			UserAgent: ua,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// ClientIP is the caller's address as a block/quota identity. gin only
// trusts X-Forwarded-For from configured proxies.
func ClientIP(c *gin.Context) security.Identity {
	return security.IPIdentity(c.ClientIP())
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopcore/backend/internal/domain/audit"
	"github.com/shopcore/backend/internal/domain/identity"
	"github.com/shopcore/backend/internal/infrastructure/auth"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "jwt_user_id"
	JWTUsernameKey = "jwt_username"
	JWTRoleKey     = "jwt_role"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// TokenValidator checks an access token, including revocation
type TokenValidator interface {
	ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error)
}

// OptionalJWTAuth extracts claims when a valid bearer token is present.
// Requests without a usable token continue anonymously; RequireAuth rejects them where needed.
func OptionalJWTAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Next()
			return
		}

		claims, err := validator.ValidateAccessToken(c.Request.Context(), tokenString)
		if err != nil {
			logger.L(c.Request.Context()).Debug("ignoring invalid bearer token", zap.Error(err))
			c.Next()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// JWTAuth requires a valid bearer token
func JWTAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Missing or malformed authorization header")
			return
		}

		claims, err := validator.ValidateAccessToken(c.Request.Context(), tokenString)
		if err != nil {
			logger.L(c.Request.Context()).Warn("JWT authentication failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
			)
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// RequireAuth rejects requests that OptionalJWTAuth left anonymous
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetJWTClaims(c) == nil {
			abortUnauthorized(c, "Authentication required")
			return
		}
		c.Next()
	}
}

// RequireAdmin allows only tokens carrying the admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(identity.RoleAdmin)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader(AuthHeaderKey)
	if !strings.HasPrefix(header, BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	return token, token != ""
}

// setClaims stores claims for handlers and pushes the user into the logger and audit actor
func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set(JWTClaimsKey, claims)
	c.Set(JWTUserIDKey, claims.UserID)
	c.Set(JWTUsernameKey, claims.Username)
	c.Set(JWTRoleKey, claims.Role)

	ctx := logger.WithUserID(c.Request.Context(), claims.UserID)
	actor := audit.ActorFrom(ctx)
	actor.UserID = claims.UserID
	ctx = audit.WithActor(ctx, actor)
	c.Request = c.Request.WithContext(ctx)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeUnauthorized, message, GetRequestID(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUserID retrieves the user ID from JWT claims in context
func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

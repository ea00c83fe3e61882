package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/identity"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// MethodPolicy maps request methods to the roles allowed to use them
type MethodPolicy struct {
	// Read covers GET, HEAD and OPTIONS. Empty means any authenticated user.
	Read []identity.Role
	// Write covers POST, PUT and PATCH
	Write []identity.Role
	// Delete falls back to Write when empty
	Delete []identity.Role
}

// OrderPolicy lets every authenticated user read orders and everyone but
// viewers change them. Ownership of the order is checked by the handler.
var OrderPolicy = MethodPolicy{
	Write: []identity.Role{identity.RoleCustomer, identity.RoleOperator, identity.RoleAdmin},
}

// StaffRoles run fulfilment on any customer's orders
var StaffRoles = []identity.Role{identity.RoleOperator, identity.RoleAdmin}

// roles returns the roles allowed for method; open is true when any authenticated user is
func (p MethodPolicy) roles(method string) (allowed []identity.Role, open bool) {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return p.Read, len(p.Read) == 0
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return p.Write, false
	case http.MethodDelete:
		if len(p.Delete) == 0 {
			return p.Write, false
		}
		return p.Delete, false
	default:
		return nil, false
	}
}

// RequireRole allows only tokens carrying one of roles
func RequireRole(roles ...identity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortUnauthorized(c, "Authentication required")
			return
		}
		if !claims.HasAnyRole(roles...) {
			denyPermission(c, roles)
			return
		}
		c.Next()
	}
}

// RequireMethodRoles enforces policy by request method
func RequireMethodRoles(policy MethodPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortUnauthorized(c, "Authentication required")
			return
		}
		allowed, open := policy.roles(c.Request.Method)
		if !open && !claims.HasAnyRole(allowed...) {
			denyPermission(c, allowed)
			return
		}
		c.Next()
	}
}

// CallerRole returns the role of the authenticated caller, empty when anonymous
func CallerRole(c *gin.Context) identity.Role {
	if claims := GetJWTClaims(c); claims != nil {
		return claims.UserRole()
	}
	return ""
}

// CallerID returns the user ID of the authenticated caller, uuid.Nil when anonymous
func CallerID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(GetJWTUserID(c))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func denyPermission(c *gin.Context, required []identity.Role) {
	names := make([]string, len(required))
	for i, r := range required {
		names[i] = string(r)
	}
	logger.L(c.Request.Context()).Warn("permission denied",
		zap.String("role", string(CallerRole(c))),
		zap.Strings("required_roles", names),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
	)
	c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeForbidden, "Access denied: insufficient permissions", GetRequestID(c)))
}

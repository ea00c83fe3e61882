package handler

import (
	"github.com/gin-gonic/gin"
	identityapp "github.com/shopcore/backend/internal/application/identity"
	"github.com/shopcore/backend/internal/interfaces/http/middleware"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	BaseHandler
	authService *identityapp.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *identityapp.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Login verifies credentials and returns a token pair.
// A blocked client address or account gets the generic 429.
// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req identityapp.LoginRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identityapp.LoginInput{
		Username: req.Username,
		Password: req.Password,
		IP:       middleware.ClientIP(c).Value,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Refresh exchanges a refresh token for a new pair
// POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req identityapp.RefreshTokenRequest
	if !h.BindJSON(c, &req) {
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, pair)
}

// Logout revokes the presented access token and, optionally, a refresh token
// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req identityapp.LogoutRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), claims, req.RefreshToken); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

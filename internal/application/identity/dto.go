package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/identity"
	"github.com/shopcore/backend/internal/infrastructure/auth"
)

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=100"`
	Password string `json:"password" binding:"required,max=72"`
}

// LoginInput contains the input for user login
type LoginInput struct {
	Username string
	Password string
	IP       string // Client IP for attempt counting
}

// LoginResult contains the result of a successful login
type LoginResult struct {
	Token *auth.TokenPair `json:"token"`
	User  UserResponse    `json:"user"`
}

// RefreshTokenRequest is the body of POST /auth/refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke with the access token
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=customer viewer operator admin"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToUserResponse converts a domain User to UserResponse
func ToUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Role:        string(u.Role),
		Active:      u.Active,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/identity"
	"github.com/shopcore/backend/internal/infrastructure/config"
)

// TokenType tells access tokens and refresh tokens apart
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// clockSkew tolerated on exp, nbf and iat between instances
const clockSkew = 5 * time.Second

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token has expired")
	ErrInvalidTokenType   = errors.New("invalid token type")
	ErrMaxRefreshExceeded = errors.New("maximum refresh count exceeded")
)

// Claims are the claims carried by shop tokens. Role is only present on
// access tokens; a refresh reloads it from the user record.
type Claims struct {
	jwt.RegisteredClaims
	UserID       string    `json:"user_id"`
	Username     string    `json:"username,omitempty"`
	Role         string    `json:"role,omitempty"`
	TokenType    TokenType `json:"token_type"`
	RefreshCount int       `json:"refresh_count,omitempty"`
}

// UserRole returns the role the access token was issued with
func (c *Claims) UserRole() identity.Role {
	return identity.Role(c.Role)
}

// IsAdmin reports whether the token was issued to an administrator
func (c *Claims) IsAdmin() bool {
	return c.UserRole() == identity.RoleAdmin
}

// HasAnyRole reports whether the token carries one of roles
func (c *Claims) HasAnyRole(roles ...identity.Role) bool {
	return slices.Contains(roles, c.UserRole())
}

// RemainingTTL is how long the token stays valid; revocations only need to
// outlive it
func (c *Claims) RemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return max(time.Until(c.ExpiresAt.Time), 0)
}

// TokenPair is returned by login and refresh
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// GenerateTokenInput identifies the user a pair is issued to
type GenerateTokenInput struct {
	UserID   uuid.UUID
	Username string
	Role     string
}

// JWTService issues and validates HS256 token pairs. Access and refresh
// tokens are signed with separate secrets when both are configured.
type JWTService struct {
	accessSecret    []byte
	refreshSecret   []byte
	accessTTL       time.Duration
	refreshTTL      time.Duration
	issuer          string
	maxRefreshCount int
	parser          *jwt.Parser
}

// NewJWTService creates a service from the jwt config section
func NewJWTService(cfg config.JWTConfig) *JWTService {
	refreshSecret := cfg.RefreshSecret
	if refreshSecret == "" {
		refreshSecret = cfg.Secret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(clockSkew),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer), jwt.WithAudience(cfg.Issuer))
	}

	return &JWTService{
		accessSecret:    []byte(cfg.Secret),
		refreshSecret:   []byte(refreshSecret),
		accessTTL:       cfg.AccessTokenExpiration,
		refreshTTL:      cfg.RefreshTokenExpiration,
		issuer:          cfg.Issuer,
		maxRefreshCount: cfg.MaxRefreshCount,
		parser:          jwt.NewParser(opts...),
	}
}

// GenerateTokenPair issues a fresh pair after a successful login
func (s *JWTService) GenerateTokenPair(input GenerateTokenInput) (*TokenPair, error) {
	return s.issue(input, 0)
}

// RefreshTokenPair exchanges a valid refresh token for a new pair carrying
// the user's current username and role
func (s *JWTService) RefreshTokenPair(refreshToken, username, role string) (*TokenPair, error) {
	claims, err := s.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.RefreshCount >= s.maxRefreshCount {
		return nil, ErrMaxRefreshExceeded
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return s.issue(GenerateTokenInput{UserID: userID, Username: username, Role: role}, claims.RefreshCount+1)
}

// ValidateAccessToken parses an access token
func (s *JWTService) ValidateAccessToken(token string) (*Claims, error) {
	return s.parse(token, s.accessSecret, TokenTypeAccess)
}

// ValidateRefreshToken parses a refresh token
func (s *JWTService) ValidateRefreshToken(token string) (*Claims, error) {
	return s.parse(token, s.refreshSecret, TokenTypeRefresh)
}

func (s *JWTService) issue(input GenerateTokenInput, refreshCount int) (*TokenPair, error) {
	now := time.Now()

	access, err := s.sign(&Claims{
		RegisteredClaims: s.registered(input.UserID, now, s.accessTTL),
		UserID:           input.UserID.String(),
		Username:         input.Username,
		Role:             input.Role,
		TokenType:        TokenTypeAccess,
	}, s.accessSecret)
	if err != nil {
		return nil, err
	}

	refresh, err := s.sign(&Claims{
		RegisteredClaims: s.registered(input.UserID, now, s.refreshTTL),
		UserID:           input.UserID.String(),
		TokenType:        TokenTypeRefresh,
		RefreshCount:     refreshCount,
	}, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:           access,
		RefreshToken:          refresh,
		AccessTokenExpiresAt:  now.Add(s.accessTTL),
		RefreshTokenExpiresAt: now.Add(s.refreshTTL),
		TokenType:             "Bearer",
	}, nil
}

func (s *JWTService) registered(userID uuid.UUID, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		NotBefore: jwt.NewNumericDate(now),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	if s.issuer != "" {
		rc.Issuer = s.issuer
		rc.Audience = jwt.ClaimStrings{s.issuer}
	}
	return rc
}

func (s *JWTService) sign(claims *Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (s *JWTService) parse(token string, secret []byte, want TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	case claims.TokenType != want:
		return nil, ErrInvalidTokenType
	case claims.UserID == "":
		return nil, ErrInvalidToken
	}
	return claims, nil
}

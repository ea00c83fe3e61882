package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/identity"
	"github.com/shopcore/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	cfg := config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        2,
	}
	return NewJWTService(cfg)
}

func newTestInput() GenerateTokenInput {
	return GenerateTokenInput{
		UserID:   uuid.New(),
		Username: "testuser",
		Role:     "customer",
	}
}

func TestNewJWTService_UsesSecretForRefreshIfNotProvided(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{Secret: "test-secret"})
	assert.Equal(t, []byte("test-secret"), svc.refreshSecret)
}

func TestGenerateTokenPair(t *testing.T) {
	svc := newTestJWTService()

	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.True(t, pair.RefreshTokenExpiresAt.After(pair.AccessTokenExpiresAt))
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), pair.AccessTokenExpiresAt, 5*time.Second)
}

func TestValidateAccessToken(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()
	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		claims, err := svc.ValidateAccessToken(pair.AccessToken)
		require.NoError(t, err)

		assert.Equal(t, input.UserID.String(), claims.UserID)
		assert.Equal(t, input.Username, claims.Username)
		assert.Equal(t, "customer", claims.Role)
		assert.Equal(t, TokenTypeAccess, claims.TokenType)
		assert.NotEmpty(t, claims.ID)
		assert.False(t, claims.IsAdmin())

		assert.Equal(t, input.UserID.String(), claims.Subject)
		assert.Equal(t, "test-issuer", claims.Issuer)
		assert.InDelta(t, (15 * time.Minute).Seconds(), claims.RemainingTTL().Seconds(), 5)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateAccessToken("invalid-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("refresh token is rejected", func(t *testing.T) {
		_, err := svc.ValidateAccessToken(pair.RefreshToken)
		assert.Error(t, err)
	})

	t.Run("different secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "another-secret-key-of-32-chars!!",
			AccessTokenExpiration: time.Minute,
		})
		_, err := other.ValidateAccessToken(pair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		AccessTokenExpiration:  -time.Hour,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "test-issuer",
	})
	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongTokenType(t *testing.T) {
	// Same secret for both so only the type claim differs
	svc := NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-secret-key-at-least-32-chars",
		AccessTokenExpiration:  time.Minute,
		RefreshTokenExpiration: time.Hour,
	})
	pair, err := svc.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)

	_, err = svc.ValidateRefreshToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestRefreshTokenPair(t *testing.T) {
	svc := newTestJWTService()
	input := newTestInput()
	pair, err := svc.GenerateTokenPair(input)
	require.NoError(t, err)

	refreshClaims, err := svc.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	assert.Empty(t, refreshClaims.Role)

	t.Run("issues a pair with the current role", func(t *testing.T) {
		next, err := svc.RefreshTokenPair(pair.RefreshToken, "testuser", "admin")
		require.NoError(t, err)

		claims, err := svc.ValidateAccessToken(next.AccessToken)
		require.NoError(t, err)
		assert.True(t, claims.IsAdmin())
		assert.Equal(t, input.UserID.String(), claims.UserID)

		rc, err := svc.ValidateRefreshToken(next.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, 1, rc.RefreshCount)
	})

	t.Run("max refresh count", func(t *testing.T) {
		token := pair.RefreshToken
		for i := 0; i < 2; i++ {
			next, err := svc.RefreshTokenPair(token, "testuser", "customer")
			require.NoError(t, err)
			token = next.RefreshToken
		}
		_, err := svc.RefreshTokenPair(token, "testuser", "customer")
		assert.ErrorIs(t, err, ErrMaxRefreshExceeded)
	})

	t.Run("access token cannot refresh", func(t *testing.T) {
		_, err := svc.RefreshTokenPair(pair.AccessToken, "testuser", "customer")
		assert.Error(t, err)
	})
}

func TestClaims_RemainingTTL(t *testing.T) {
	tests := []struct {
		name   string
		claims Claims
		want   time.Duration
	}{
		{"no expiry", Claims{}, 0},
		{"already expired", Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.RemainingTTL())
		})
	}
}

func TestValidateAccessToken_IssuerMismatch(t *testing.T) {
	issuer := newTestJWTService()
	pair, err := issuer.GenerateTokenPair(newTestInput())
	require.NoError(t, err)

	other := NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: time.Minute,
		Issuer:                "another-shop",
	})
	_, err = other.ValidateAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_RejectsOtherAlgorithms(t *testing.T) {
	svc := newTestJWTService()
	claims := &Claims{
		RegisteredClaims: svc.registered(uuid.New(), time.Now(), time.Minute),
		UserID:           uuid.NewString(),
		TokenType:        TokenTypeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(svc.accessSecret)
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestClaims_HasAnyRole(t *testing.T) {
	tests := []struct {
		role  string
		roles []identity.Role
		want  bool
	}{
		{"operator", []identity.Role{identity.RoleOperator, identity.RoleAdmin}, true},
		{"admin", []identity.Role{identity.RoleOperator, identity.RoleAdmin}, true},
		{"customer", []identity.Role{identity.RoleOperator, identity.RoleAdmin}, false},
		{"viewer", nil, false},
		{"", []identity.Role{identity.RoleCustomer}, false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			c := &Claims{Role: tt.role}
			assert.Equal(t, tt.want, c.HasAnyRole(tt.roles...))
		})
	}
}

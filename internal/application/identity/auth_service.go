package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/audit"
	"github.com/shopcore/backend/internal/domain/identity"
	"github.com/shopcore/backend/internal/domain/security"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/auth"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AttemptGuard counts authentication failures and refuses blocked identities
type AttemptGuard interface {
	Guard(ctx context.Context, ids ...security.Identity) error
	RecordAttempt(ctx context.Context, id security.Identity, success bool) error
}

// AuditRecorder writes audit records. Implementations never fail the caller.
type AuditRecorder interface {
	Record(ctx context.Context, record *audit.Record)
}

var errInvalidToken = shared.NewDomainError(shared.KindUnauthorized, "TOKEN_INVALID", "Invalid or expired token")

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	guard      AttemptGuard
	blacklist  auth.TokenBlacklist
	audit      AuditRecorder
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	guard AttemptGuard,
	blacklist auth.TokenBlacklist,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		guard:      guard,
		blacklist:  blacklist,
	}
}

// SetAuditRecorder sets the recorder for login outcomes
func (s *AuthService) SetAuditRecorder(recorder AuditRecorder) {
	s.audit = recorder
}

// Login authenticates a user and returns tokens. The client address is
// checked for a block first, then the account, both before the password is
// verified. A failure is charged to both.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	log := logger.L(ctx)
	ip := security.IPIdentity(input.IP)

	if err := s.guard.Guard(ctx, ip); err != nil {
		log.Warn("login refused for blocked address", zap.String("username", input.Username))
		return nil, err
	}

	user, err := s.userRepo.FindByUsername(ctx, input.Username)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}
	account := accountIdentity(user, input.Username)

	if err := s.guard.Guard(ctx, account); err != nil {
		log.Warn("login refused for blocked account", zap.String("username", input.Username))
		return nil, err
	}

	ids := []security.Identity{ip, account}
	if user == nil || !user.Active || !user.VerifyPassword(input.Password) {
		s.loginFailed(ctx, input, ids)
		return nil, identity.ErrInvalidCredentials
	}

	for _, id := range ids {
		if err := s.guard.RecordAttempt(ctx, id, true); err != nil {
			log.Error("failed to clear attempt counter", zap.String("identity", id.Key()), zap.Error(err))
		}
	}

	user.RecordLogin(input.IP)
	if err := s.userRepo.Save(ctx, user); err != nil {
		log.Error("failed to update user after successful login", zap.Error(err))
	}

	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:   user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	})
	if err != nil {
		log.Error("failed to generate token pair", zap.Error(err))
		return nil, err
	}

	log.Info("user logged in", zap.String("user_id", user.ID.String()))
	s.record(ctx, audit.NewRecord(audit.EntityUser, audit.ActionLoginSucceeded, audit.OutcomeSuccess, "Login succeeded").
		WithEntity(user.ID.String()).
		WithUser(user.ID.String()).
		WithRequest(input.IP, ""))

	return &LoginResult{Token: pair, User: ToUserResponse(user)}, nil
}

// accountIdentity keys an existing account by user ID so that the block set
// at login is the one BlockGuard finds on later requests with a token
func accountIdentity(user *identity.User, username string) security.Identity {
	if user == nil {
		return security.UsernameIdentity(username)
	}
	return security.UserIdentity(user.ID.String())
}

func (s *AuthService) loginFailed(ctx context.Context, input LoginInput, ids []security.Identity) {
	log := logger.L(ctx)
	log.Warn("invalid login attempt", zap.String("username", input.Username))

	for _, id := range ids {
		if err := s.guard.RecordAttempt(ctx, id, false); err != nil {
			log.Error("failed to count login failure", zap.String("identity", id.Key()), zap.Error(err))
		}
	}

	s.record(ctx, audit.NewRecord(audit.EntityUser, audit.ActionLoginFailed, audit.OutcomeFailure, "Invalid username or password").
		WithIdentity(ids[len(ids)-1].Key()).
		WithRequest(input.IP, "").
		WithData(nil, map[string]any{"username": input.Username}))
}

// Refresh exchanges a refresh token for a new pair, reloading the user's role
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	log := logger.L(ctx)

	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		log.Warn("refresh token validation failed", zap.Error(err))
		return nil, errInvalidToken
	}
	if s.revoked(ctx, claims.ID) {
		return nil, errInvalidToken
	}
	if err := s.guard.Guard(ctx, security.UserIdentity(claims.UserID)); err != nil {
		log.Warn("refresh refused for blocked account", zap.String("user_id", claims.UserID))
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, errInvalidToken
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, errInvalidToken
		}
		return nil, err
	}
	if !user.Active {
		return nil, errInvalidToken
	}

	pair, err := s.jwtService.RefreshTokenPair(refreshToken, user.Username, string(user.Role))
	if err != nil {
		if errors.Is(err, auth.ErrMaxRefreshExceeded) {
			return nil, shared.NewDomainError(shared.KindUnauthorized, "TOKEN_MAX_REFRESH", "Maximum token refresh count exceeded. Please log in again")
		}
		return nil, errInvalidToken
	}

	// One-time use: the presented refresh token cannot be replayed
	if s.blacklist != nil {
		if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
			log.Error("failed to revoke used refresh token", zap.Error(err))
		}
	}

	return pair, nil
}

// Logout revokes the access token and, when given, the refresh token
func (s *AuthService) Logout(ctx context.Context, access *auth.Claims, refreshToken string) error {
	if s.blacklist == nil {
		return nil
	}

	if err := s.blacklist.Revoke(ctx, access.ID, access.RemainingTTL()); err != nil {
		return err
	}

	if refreshToken != "" {
		claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
		if err == nil && claims.UserID == access.UserID {
			if err := s.blacklist.Revoke(ctx, claims.ID, claims.RemainingTTL()); err != nil {
				return err
			}
		}
	}

	logger.L(ctx).Info("user logged out", zap.String("user_id", access.UserID))
	return nil
}

// ValidateAccessToken checks signature, expiry and revocation of an access token
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtService.ValidateAccessToken(token)
	if err != nil {
		return nil, errInvalidToken
	}
	if s.revoked(ctx, claims.ID) {
		return nil, errInvalidToken
	}
	return claims, nil
}

func (s *AuthService) revoked(ctx context.Context, jti string) bool {
	if s.blacklist == nil {
		return false
	}
	revoked, err := s.blacklist.IsRevoked(ctx, jti)
	if err != nil {
		// Fail closed
		logger.L(ctx).Error("failed to check token blacklist", zap.Error(err))
		return true
	}
	return revoked
}

func (s *AuthService) record(ctx context.Context, r *audit.Record) {
	if s.audit != nil {
		s.audit.Record(ctx, r)
	}
}

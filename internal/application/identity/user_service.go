package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/identity"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// UserService manages accounts
type UserService struct {
	userRepo identity.UserRepository
}

// NewUserService creates a new UserService
func NewUserService(userRepo identity.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Create registers a new account
func (s *UserService) Create(ctx context.Context, req CreateUserRequest) (*UserResponse, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.KindConflict, shared.ErrAlreadyExists.Code, "Username already exists")
	}

	role := identity.RoleCustomer
	if req.Role != "" {
		role = identity.Role(req.Role)
	}

	user, err := identity.NewUser(req.Username, req.Password, role)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	logger.L(ctx).Info("user created", zap.String("user_id", user.ID.String()), zap.String("role", string(role)))

	resp := ToUserResponse(user)
	return &resp, nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// EnsureAdmin creates the administrator account on first start.
// An existing account of that name is left untouched.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	_, err := s.userRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	admin, err := identity.NewUser(username, password, identity.RoleAdmin)
	if err != nil {
		return err
	}
	if err := s.userRepo.Save(ctx, admin); err != nil {
		return err
	}

	logger.L(ctx).Info("administrator account created", zap.String("username", admin.Username))
	return nil
}

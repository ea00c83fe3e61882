package identity

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Role is the coarse permission level of a user.
// Customers only see and change their own orders. Viewers read everything
// and change nothing. Operators run fulfilment; admins can do anything.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// Roles lists every known role
var Roles = []Role{RoleCustomer, RoleViewer, RoleOperator, RoleAdmin}

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	return slices.Contains(Roles, r)
}

// IsStaff reports whether the role works on orders of any customer
func (r Role) IsStaff() bool {
	return r == RoleOperator || r == RoleAdmin
}

// SeesAllOrders reports whether the role may read orders it does not own
func (r Role) SeesAllOrders() bool {
	return r.IsStaff() || r == RoleViewer
}

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)

// ErrInvalidCredentials is returned for an unknown user or a wrong password alike
var ErrInvalidCredentials = shared.NewDomainError(shared.KindUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")

// User is the aggregate root for an account that can log in
type User struct {
	shared.BaseAggregateRoot
	Username     string
	PasswordHash string
	Role         Role
	Active       bool
	LastLoginAt  *time.Time
	LastLoginIP  string
}

// NewUser creates an active user with a bcrypt-hashed password
func NewUser(username, password string, role Role) (*User, error) {
	username = strings.TrimSpace(username)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewValidationError("INVALID_ROLE", "Unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Username:          username,
		PasswordHash:      string(hash),
		Role:              role,
		Active:            true,
	}, nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// RecordLogin stores the time and address of a successful login
func (u *User) RecordLogin(ip string) {
	now := time.Now()
	u.LastLoginAt = &now
	u.LastLoginIP = ip
	u.Touch()
}

// IsAdmin returns true for administrators
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Deactivate prevents further logins
func (u *User) Deactivate() {
	u.Active = false
	u.Touch()
}

func validateUsername(username string) error {
	if len(username) < 3 {
		return shared.NewValidationError("INVALID_USERNAME", "Username must be at least 3 characters")
	}
	if len(username) > 100 {
		return shared.NewValidationError("INVALID_USERNAME", "Username cannot exceed 100 characters")
	}
	if !usernameRegex.MatchString(username) {
		return shared.NewValidationError("INVALID_USERNAME", "Username can only contain letters, numbers, underscores, hyphens, and dots")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewValidationError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	// bcrypt only looks at the first 72 bytes
	if len(password) > 72 {
		return shared.NewValidationError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	return nil
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Save(ctx context.Context, user *User) error
}

package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/identity"
	"github.com/shopcore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormUserRepository stores users in the users table
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) take(ctx context.Context, column string, value any) (*identity.User, error) {
	var model models.UserModel
	if err := r.db.WithContext(ctx).Where(column+" = ?", value).Take(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return r.take(ctx, "id", id)
}

// FindByUsername looks a user up by login name
func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	return r.take(ctx, "username", strings.TrimSpace(username))
}

// ExistsByUsername reports whether the login name is taken
func (r *GormUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("username = ?", strings.TrimSpace(username)).
		Limit(1).Count(&n).Error
	return n > 0, err
}

// Save inserts or updates the user
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	err := r.db.WithContext(ctx).Save(models.UserModelFromDomain(user)).Error
	return duplicate(err, "Username already exists")
}

var _ identity.UserRepository = (*GormUserRepository)(nil)

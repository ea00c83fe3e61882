package models

import (
	"time"

	"github.com/shopcore/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User domain entity.
type UserModel struct {
	AggregateModel
	Username     string        `gorm:"type:varchar(100);not null;uniqueIndex:idx_users_username"`
	PasswordHash string        `gorm:"type:varchar(255);not null"`
	Role         identity.Role `gorm:"type:varchar(20);not null;default:'customer'"`
	Active       bool          `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
	LastLoginIP  string `gorm:"column:last_login_ip;type:varchar(45)"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		BaseAggregateRoot: m.root(),
		Username:          m.Username,
		PasswordHash:      m.PasswordHash,
		Role:              m.Role,
		Active:            m.Active,
		LastLoginAt:       m.LastLoginAt,
		LastLoginIP:       m.LastLoginIP,
	}
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.setRoot(u.BaseAggregateRoot)
	m.Username = u.Username
	m.PasswordHash = u.PasswordHash
	m.Role = u.Role
	m.Active = u.Active
	m.LastLoginAt = u.LastLoginAt
	m.LastLoginIP = u.LastLoginIP
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// BaseModel holds the id and timestamps every table carries
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate fills in an id for rows built outside the domain constructors
func (m *BaseModel) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

func (m *BaseModel) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

func (m *BaseModel) setEntity(e shared.BaseEntity) {
	m.ID, m.CreatedAt, m.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// AggregateModel adds the aggregate version column
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// root rebuilds the aggregate header; pending events are never stored
func (m *AggregateModel) root() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: m.entity(), Version: m.Version}
}

func (m *AggregateModel) setRoot(a shared.BaseAggregateRoot) {
	m.setEntity(a.BaseEntity)
	m.Version = a.Version
}

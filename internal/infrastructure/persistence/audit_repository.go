package persistence

import (
	"context"
	"fmt"

	"github.com/shopcore/backend/internal/domain/audit"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository stores audit records in the audit_records table
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Save appends a record
func (r *GormAuditRepository) Save(ctx context.Context, record *audit.Record) error {
	model, err := models.AuditRecordModelFromDomain(record)
	if err != nil {
		return fmt.Errorf("encode audit payload: %w", err)
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// FindAll lists records newest first
func (r *GormAuditRepository) FindAll(ctx context.Context, filter shared.Filter) ([]audit.Record, error) {
	var recordModels []models.AuditRecordModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.AuditRecordModel{}), filter).
		Order(auditSort.by(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit())

	if err := query.Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]audit.Record, len(recordModels))
	for i := range recordModels {
		records[i] = *recordModels[i].ToDomain()
	}
	return records, nil
}

// Count counts records matching the filter
func (r *GormAuditRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.AuditRecordModel{}), filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormAuditRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for _, column := range []string{"action", "entity_type", "identity"} {
		if v, ok := filter.Filters[column].(string); ok && v != "" {
			query = query.Where(column+" = ?", v)
		}
	}
	return query
}

var _ audit.Repository = (*GormAuditRepository)(nil)

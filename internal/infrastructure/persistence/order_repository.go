package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/sales"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// FindByID finds an order by ID with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*sales.Order, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate locks the order row with SELECT ... FOR UPDATE, then loads its lines.
// The lines are owned by the order, so locking the order row serialises changes to them.
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*sales.Order, error) {
	return r.findOne(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *GormOrderRepository) findOne(query *gorm.DB) (*sales.Order, error) {
	var model models.OrderModel
	if err := query.Preload("Items", preloadItems).Take(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds all orders matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]sales.Order, error) {
	var orderModels []models.OrderModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter).
		Preload("Items", preloadItems).
		Order(orderSort.by(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit())

	if err := query.Find(&orderModels).Error; err != nil {
		return nil, err
	}

	orders := make([]sales.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, nil
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates the order row and replaces its lines.
// Inside a transaction scope gorm nests this in a savepoint.
func (r *GormOrderRepository) Save(ctx context.Context, order *sales.Order) error {
	model := models.OrderModelFromDomain(order)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItemModel{}).Error; err != nil {
			return err
		}

		if len(model.Items) > 0 {
			if err := tx.Create(&model.Items).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// applyFilter applies the "status" and "customer_id" filters
func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if status, ok := filter.Filters["status"].(sales.OrderStatus); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if customerID, ok := filter.Filters["customer_id"].(uuid.UUID); ok && customerID != uuid.Nil {
		query = query.Where("customer_id = ?", customerID)
	}
	return query
}

// Ensure GormOrderRepository implements OrderRepository
var _ sales.OrderRepository = (*GormOrderRepository)(nil)

package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/catalog"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate loads a product with SELECT ... FOR UPDATE.
// The lock is held until the surrounding transaction ends.
func (r *GormProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return r.findOne(r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

// FindBySKU finds a product by its SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	return r.findOne(r.db.WithContext(ctx).Where("sku = ?", strings.ToUpper(strings.TrimSpace(sku))))
}

func (r *GormProductRepository) findOne(query *gorm.DB) (*catalog.Product, error) {
	var model models.ProductModel
	if err := query.Take(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// ExistsBySKU checks if a product with the given SKU exists
func (r *GormProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("sku = ?", strings.ToUpper(strings.TrimSpace(sku))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAll finds all products matching the filter
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	var productModels []models.ProductModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProductModel{}), filter).
		Order(productSort.by(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.Limit())

	if err := query.Find(&productModels).Error; err != nil {
		return nil, err
	}

	products := make([]catalog.Product, len(productModels))
	for i := range productModels {
		products[i] = *productModels[i].ToDomain()
	}
	return products, nil
}

// Count counts products matching the filter
func (r *GormProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.ProductModel{}), filter).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	return duplicate(r.db.WithContext(ctx).Save(model).Error, "Product with this SKU already exists")
}

// applyFilter applies the "active" and "low_stock" filters
func (r *GormProductRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if active, ok := filter.Filters["active"].(bool); ok {
		query = query.Where("active = ?", active)
	}
	if lowStock, ok := filter.Filters["low_stock"].(bool); ok && lowStock {
		query = query.Where("stock <= min_stock")
	}
	return query
}

// Ensure GormProductRepository implements ProductRepository
var _ catalog.ProductRepository = (*GormProductRepository)(nil)

package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDForUpdate loads the product holding an exclusive row lock until
	// the surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)

	FindBySKU(ctx context.Context, sku string) (*Product, error)
	ExistsBySKU(ctx context.Context, sku string) (bool, error)

	// FindAll lists products. Supported filters: "active", "low_stock".
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	Save(ctx context.Context, product *Product) error
}

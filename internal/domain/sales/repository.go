package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/shared"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID finds an order by ID, including its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByIDForUpdate loads the order holding an exclusive row lock until the
	// surrounding transaction ends. Only meaningful inside a transaction scope.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindAll lists orders. Supported filters: "status", "customer_id".
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)

	// Count counts orders matching the same filters as FindAll
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// Save creates or updates an order and replaces its lines
	Save(ctx context.Context, order *Order) error
}

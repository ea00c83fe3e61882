package catalog

import (
	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/shared"
)

// AggregateTypeProduct is the aggregate type used on product events
const AggregateTypeProduct = "Product"

// EventTypeProductLowStock is raised when a reservation brings stock down to the minimum
const EventTypeProductLowStock = "ProductLowStock"

// ProductLowStockEvent signals that a product needs replenishment
type ProductLowStockEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Stock     int       `json:"stock"`
	MinStock  int       `json:"min_stock"`
}

// NewProductLowStockEvent creates a new ProductLowStockEvent
func NewProductLowStockEvent(p *Product) *ProductLowStockEvent {
	return &ProductLowStockEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductLowStock, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		SKU:             p.SKU,
		Stock:           p.Stock,
		MinStock:        p.MinStock,
	}
}

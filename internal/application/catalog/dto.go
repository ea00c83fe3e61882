package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	SKU         string          `json:"sku" binding:"required,max=50,sku"`
	Name        string          `json:"name" binding:"required,min=1,max=200"`
	Description string          `json:"description" binding:"max=2000"`
	Price       decimal.Decimal `json:"price" binding:"required,gte=0.01"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	Stock       int             `json:"stock" binding:"min=0"`
	MinStock    int             `json:"min_stock" binding:"min=0"`
}

// ProductListFilter represents the list query parameters
type ProductListFilter struct {
	Active   *bool `form:"active"`
	LowStock bool  `form:"low_stock"`
	Page     int   `form:"page" binding:"omitempty,min=1"`
	PageSize int   `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	SKU         string          `json:"sku"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"min_stock"`
	LowStock    bool            `json:"low_stock"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Currency:    p.Currency,
		Stock:       p.Stock,
		MinStock:    p.MinStock,
		LowStock:    p.IsLowStock(),
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Version:     p.Version,
	}
}

// ToProductResponses converts a slice of domain Products
func ToProductResponses(products []catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i := range products {
		responses[i] = ToProductResponse(&products[i])
	}
	return responses
}

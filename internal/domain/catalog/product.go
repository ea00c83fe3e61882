package catalog

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	MaxSKULength    = 50
	MaxNameLength   = 200
	DefaultCurrency = "USD"
)

// MinPrice is the smallest accepted unit price
var MinPrice = decimal.NewFromFloat(0.01)

// Product is the aggregate root holding sellable stock
type Product struct {
	shared.BaseAggregateRoot
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Currency    string
	Stock       int
	MinStock    int
	Active      bool
}

// NewProductInput carries the fields needed to create a product
type NewProductInput struct {
	SKU         string
	Name        string
	Description string
	Price       decimal.Decimal
	Currency    string
	Stock       int
	MinStock    int
}

// NewProduct creates an active product after validating its fields
func NewProduct(in NewProductInput) (*Product, error) {
	sku := strings.TrimSpace(in.SKU)
	name := strings.TrimSpace(in.Name)

	if sku == "" {
		return nil, shared.NewValidationError("INVALID_SKU", "SKU cannot be empty")
	}
	if utf8.RuneCountInString(sku) > MaxSKULength {
		return nil, shared.NewValidationError("INVALID_SKU", fmt.Sprintf("SKU cannot exceed %d characters", MaxSKULength))
	}
	if name == "" {
		return nil, shared.NewValidationError("INVALID_NAME", "Name cannot be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, shared.NewValidationError("INVALID_NAME", fmt.Sprintf("Name cannot exceed %d characters", MaxNameLength))
	}
	if in.Price.LessThan(MinPrice) {
		return nil, shared.NewValidationError("INVALID_PRICE", "Price must be at least 0.01")
	}
	if in.Stock < 0 {
		return nil, shared.NewValidationError("INVALID_STOCK", "Stock cannot be negative")
	}
	if in.MinStock < 0 {
		return nil, shared.NewValidationError("INVALID_MIN_STOCK", "Minimum stock cannot be negative")
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, shared.NewValidationError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               strings.ToUpper(sku),
		Name:              name,
		Description:       in.Description,
		Price:             in.Price,
		Currency:          currency,
		Stock:             in.Stock,
		MinStock:          in.MinStock,
		Active:            true,
	}, nil
}

// Available reports whether the product can currently be sold
func (p *Product) Available() bool {
	return p.Active && p.Stock > 0
}

// IsLowStock reports whether stock has fallen to the minimum threshold
func (p *Product) IsLowStock() bool {
	return p.Stock <= p.MinStock
}

// CanReserve checks a reservation of quantity units without changing anything
func (p *Product) CanReserve(quantity int) error {
	if quantity < 1 {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if !p.Active {
		return shared.NewBusinessRuleError("PRODUCT_INACTIVE", fmt.Sprintf("Product %s is not available", p.SKU))
	}
	if quantity > p.Stock {
		return shared.NewBusinessRuleError(
			shared.ErrInsufficientStock.Code,
			fmt.Sprintf("Insufficient stock for product %s: requested %d, available %d", p.SKU, quantity, p.Stock),
		)
	}
	return nil
}

// ReserveStock takes quantity units out of stock. Stock never goes negative.
func (p *Product) ReserveStock(quantity int) error {
	if err := p.CanReserve(quantity); err != nil {
		return err
	}

	wasLow := p.IsLowStock()
	p.Stock -= quantity
	p.Touch()
	p.IncrementVersion()

	if !wasLow && p.IsLowStock() {
		p.AddDomainEvent(NewProductLowStockEvent(p))
	}

	return nil
}

// ReleaseStock puts quantity units back, e.g. when a confirmed order is cancelled
func (p *Product) ReleaseStock(quantity int) error {
	if quantity < 1 {
		return shared.NewValidationError("INVALID_QUANTITY", "Quantity must be at least 1")
	}

	p.Stock += quantity
	p.Touch()
	p.IncrementVersion()

	return nil
}

// Deactivate hides the product from new reservations
func (p *Product) Deactivate() {
	p.Active = false
	p.Touch()
}

// Activate makes the product sellable again
func (p *Product) Activate() {
	p.Active = true
	p.Touch()
}

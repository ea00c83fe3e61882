package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/sales"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest opens an empty order for a customer.
// CustomerID is taken from the caller when a customer places the order.
type CreateOrderRequest struct {
	CustomerID uuid.UUID `json:"customer_id"`
}

// AddLineRequest adds a product line to an order
type AddLineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1"`
}

// CancelOrderRequest carries an optional cancellation reason
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// OrderListFilter represents the list query parameters
type OrderListFilter struct {
	Status     string `form:"status"`
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// LineResponse is the API view of a line item
type LineResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// OrderResponse is the API view of an order
type OrderResponse struct {
	ID           uuid.UUID       `json:"id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	Status       string          `json:"status"`
	Total        decimal.Decimal `json:"total"`
	ItemCount    int             `json:"item_count"`
	Lines        []LineResponse  `json:"lines"`
	CancelReason string          `json:"cancel_reason,omitempty"`
	ConfirmedAt  *time.Time      `json:"confirmed_at,omitempty"`
	ShippedAt    *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt  *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ToOrderResponse converts the aggregate into its API view
func ToOrderResponse(o *sales.Order) OrderResponse {
	lines := make([]LineResponse, len(o.Items))
	for i, item := range o.Items {
		lines[i] = LineResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		}
	}

	return OrderResponse{
		ID:           o.ID,
		CustomerID:   o.CustomerID,
		Status:       o.Status.String(),
		Total:        o.Total,
		ItemCount:    o.ItemCount(),
		Lines:        lines,
		CancelReason: o.CancelReason,
		ConfirmedAt:  o.ConfirmedAt,
		ShippedAt:    o.ShippedAt,
		DeliveredAt:  o.DeliveredAt,
		CancelledAt:  o.CancelledAt,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}

// ToOrderResponses converts a slice of orders
func ToOrderResponses(orders []sales.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}

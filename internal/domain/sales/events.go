package sales

import (
	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AggregateTypeOrder is the aggregate type used on order events
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated   = "OrderCreated"
	EventTypeOrderConfirmed = "OrderConfirmed"
	EventTypeOrderCancelled = "OrderCancelled"
	EventTypeOrderShipped   = "OrderShipped"
	EventTypeOrderDelivered = "OrderDelivered"
)

// ErrEmptyOrder is returned when confirming an order without lines
var ErrEmptyOrder = shared.NewBusinessRuleError("EMPTY_ORDER", "Order must have at least one item to be confirmed")

// LineInfo is the line snapshot carried by events
type LineInfo struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func lineInfos(o *Order) []LineInfo {
	infos := make([]LineInfo, len(o.Items))
	for i, item := range o.Items {
		infos[i] = LineInfo{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal(),
		}
	}
	return infos
}

// OrderCreatedEvent is raised when a new order is opened
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID `json:"customer_id"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		CustomerID:      o.CustomerID,
	}
}

// OrderConfirmedEvent is raised once stock has been reserved and the order confirmed
type OrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderID    uuid.UUID       `json:"order_id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Lines      []LineInfo      `json:"lines"`
	Total      decimal.Decimal `json:"total"`
}

// NewOrderConfirmedEvent creates a new OrderConfirmedEvent
func NewOrderConfirmedEvent(o *Order) *OrderConfirmedEvent {
	return &OrderConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderConfirmed, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		CustomerID:      o.CustomerID,
		Lines:           lineInfos(o),
		Total:           o.Total,
	}
}

// OrderCancelledEvent is raised when an order is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID  `json:"order_id"`
	Reason        string     `json:"reason"`
	StockReleased bool       `json:"stock_released"`
	Lines         []LineInfo `json:"lines"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *Order, stockReleased bool) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Reason:          o.CancelReason,
		StockReleased:   stockReleased,
		Lines:           lineInfos(o),
	}
}

// OrderShippedEvent is raised when an order leaves the warehouse
type OrderShippedEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
}

// NewOrderShippedEvent creates a new OrderShippedEvent
func NewOrderShippedEvent(o *Order) *OrderShippedEvent {
	return &OrderShippedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderShipped, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
	}
}

// OrderDeliveredEvent is raised when the customer has received the order
type OrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID uuid.UUID `json:"order_id"`
}

// NewOrderDeliveredEvent creates a new OrderDeliveredEvent
func NewOrderDeliveredEvent(o *Order) *OrderDeliveredEvent {
	return &OrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDelivered, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
	}
}

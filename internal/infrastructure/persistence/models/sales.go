package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/sales"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	CustomerID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	Total        decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Status       sales.OrderStatus `gorm:"type:varchar(20);not null;default:'CREATED';index"`
	CancelReason string            `gorm:"type:varchar(500)"`
	ConfirmedAt  *time.Time
	ShippedAt    *time.Time
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
	Items        []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order. Lines keep their stored order.
func (m *OrderModel) ToDomain() *sales.Order {
	items := make([]sales.LineItem, len(m.Items))
	for i := range m.Items {
		items[i] = m.Items[i].ToDomain()
	}
	return &sales.Order{
		BaseAggregateRoot: m.root(),
		CustomerID:        m.CustomerID,
		Items:             items,
		Total:             m.Total,
		Status:            m.Status,
		CancelReason:      m.CancelReason,
		ConfirmedAt:       m.ConfirmedAt,
		ShippedAt:         m.ShippedAt,
		DeliveredAt:       m.DeliveredAt,
		CancelledAt:       m.CancelledAt,
	}
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *sales.Order) {
	m.setRoot(o.BaseAggregateRoot)
	m.CustomerID = o.CustomerID
	m.Total = o.Total
	m.Status = o.Status
	m.CancelReason = o.CancelReason
	m.ConfirmedAt = o.ConfirmedAt
	m.ShippedAt = o.ShippedAt
	m.DeliveredAt = o.DeliveredAt
	m.CancelledAt = o.CancelledAt
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i].FromDomain(&o.Items[i])
		m.Items[i].OrderID = o.ID
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *sales.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	BaseModel
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_items_order_product,priority:1"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_order_items_order_product,priority:2;index"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain LineItem.
func (m *OrderItemModel) ToDomain() sales.LineItem {
	return sales.LineItem{
		ID:        m.ID,
		OrderID:   m.OrderID,
		ProductID: m.ProductID,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain LineItem.
func (m *OrderItemModel) FromDomain(item *sales.LineItem) {
	m.setEntity(shared.BaseEntity{ID: item.ID, CreatedAt: item.CreatedAt, UpdatedAt: item.UpdatedAt})
	m.OrderID = item.OrderID
	m.ProductID = item.ProductID
	m.Quantity = item.Quantity
	m.UnitPrice = item.UnitPrice
}

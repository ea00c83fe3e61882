package sales

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// transitions is the order state machine. A status without an entry is terminal.
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusDelivered},
}

// AllOrderStatuses lists every known status
var AllOrderStatuses = []OrderStatus{
	OrderStatusCreated,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// IsValid checks if the status is a known OrderStatus
func (s OrderStatus) IsValid() bool {
	for _, st := range AllOrderStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the state machine allows moving to target
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves this status
func (s OrderStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// ParseOrderStatus converts a raw string into an OrderStatus
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.IsValid() {
		return "", shared.NewValidationError("INVALID_STATUS", fmt.Sprintf("Unknown order status: %s", raw))
	}
	return s, nil
}

// LineItem is a product reference plus quantity, owned by exactly one order.
// UnitPrice is captured from the product when the line is added.
type LineItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	UnitPrice decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subtotal returns Quantity * UnitPrice
func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is the aggregate root for a customer order
type Order struct {
	shared.BaseAggregateRoot
	CustomerID   uuid.UUID
	Items        []LineItem
	Total        decimal.Decimal
	Status       OrderStatus
	CancelReason string
	ConfirmedAt  *time.Time
	ShippedAt    *time.Time
	DeliveredAt  *time.Time
	CancelledAt  *time.Time
}

// NewOrder creates an empty order in CREATED status
func NewOrder(customerID uuid.UUID) (*Order, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		Items:             make([]LineItem, 0),
		Total:             decimal.Zero,
		Status:            OrderStatusCreated,
	}

	order.AddDomainEvent(NewOrderCreatedEvent(order))

	return order, nil
}

// AddItem adds a line for productID. Adding a product already on the order
// merges the quantity into the existing line and keeps its original price.
func (o *Order) AddItem(productID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*LineItem, error) {
	if o.Status != OrderStatusCreated {
		return nil, shared.NewInvalidStateError(fmt.Sprintf("Cannot modify items of order in %s status", o.Status))
	}
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if quantity < 1 {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("INVALID_PRICE", "Unit price cannot be negative")
	}

	now := time.Now()
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			o.Items[i].Quantity += quantity
			o.Items[i].UpdatedAt = now
			o.recalculateTotal()
			o.Touch()
			return &o.Items[i], nil
		}
	}

	o.Items = append(o.Items, LineItem{
		ID:        uuid.New(),
		OrderID:   o.ID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		CreatedAt: now,
		UpdatedAt: now,
	})
	o.recalculateTotal()
	o.Touch()

	return &o.Items[len(o.Items)-1], nil
}

// RemoveItem removes the line for productID
func (o *Order) RemoveItem(productID uuid.UUID) error {
	if o.Status != OrderStatusCreated {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot modify items of order in %s status", o.Status))
	}

	for i, item := range o.Items {
		if item.ProductID == productID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.recalculateTotal()
			o.Touch()
			return nil
		}
	}

	return shared.NewNotFoundError("Order line not found")
}

// CanConfirm checks the preconditions of Confirm without changing the order
func (o *Order) CanConfirm() error {
	if err := o.checkTransition(OrderStatusConfirmed); err != nil {
		return err
	}
	if len(o.Items) == 0 {
		return ErrEmptyOrder
	}
	return nil
}

// Confirm moves the order to CONFIRMED. Stock reservation is the caller's job
// and must happen in the same unit of work.
func (o *Order) Confirm() error {
	if err := o.CanConfirm(); err != nil {
		return err
	}

	now := time.Now()
	o.Status = OrderStatusConfirmed
	o.ConfirmedAt = &now
	o.Touch()
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderConfirmedEvent(o))

	return nil
}

// Cancel moves the order to CANCELLED. It returns true when the order had
// already reserved stock, meaning the caller has to release it.
func (o *Order) Cancel(reason string) (bool, error) {
	if err := o.checkTransition(OrderStatusCancelled); err != nil {
		return false, err
	}

	hadReservation := o.Status == OrderStatusConfirmed

	now := time.Now()
	o.Status = OrderStatusCancelled
	o.CancelReason = reason
	o.CancelledAt = &now
	o.Touch()
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderCancelledEvent(o, hadReservation))

	return hadReservation, nil
}

// Ship moves a confirmed order to SHIPPED
func (o *Order) Ship() error {
	if err := o.checkTransition(OrderStatusShipped); err != nil {
		return err
	}

	now := time.Now()
	o.Status = OrderStatusShipped
	o.ShippedAt = &now
	o.Touch()
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderShippedEvent(o))

	return nil
}

// Deliver moves a shipped order to DELIVERED
func (o *Order) Deliver() error {
	if err := o.checkTransition(OrderStatusDelivered); err != nil {
		return err
	}

	now := time.Now()
	o.Status = OrderStatusDelivered
	o.DeliveredAt = &now
	o.Touch()
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderDeliveredEvent(o))

	return nil
}

// checkTransition validates a move against the transition table
func (o *Order) checkTransition(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewInvalidStateError(
			fmt.Sprintf("Cannot move order from %s to %s", o.Status, target),
		)
	}
	return nil
}

// recalculateTotal keeps Total equal to the sum of line subtotals
func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.Total = total
}

// ItemCount returns the total number of units across all lines
func (o *Order) ItemCount() int {
	count := 0
	for _, item := range o.Items {
		count += item.Quantity
	}
	return count
}

// Quantities returns the requested quantity per product
func (o *Order) Quantities() map[uuid.UUID]int {
	q := make(map[uuid.UUID]int, len(o.Items))
	for _, item := range o.Items {
		q[item.ProductID] += item.Quantity
	}
	return q
}

// ProductIDs returns the distinct product IDs of the order in ascending byte order.
// Row locks are always taken in this order.
func (o *Order) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.Items))
	for id := range o.Quantities() {
		ids = append(ids, id)
	}
	SortIDs(ids)
	return ids
}

// SortIDs sorts ids ascending by their byte representation
func SortIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}

// IsCreated returns true if the order is still editable
func (o *Order) IsCreated() bool {
	return o.Status == OrderStatusCreated
}

// IsConfirmed returns true if the order is confirmed
func (o *Order) IsConfirmed() bool {
	return o.Status == OrderStatusConfirmed
}

// IsCancelled returns true if the order is cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

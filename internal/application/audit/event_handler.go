package audit

import (
	"context"
	"fmt"

	"github.com/shopcore/backend/internal/domain/audit"
	"github.com/shopcore/backend/internal/domain/catalog"
	"github.com/shopcore/backend/internal/domain/sales"
	"github.com/shopcore/backend/internal/domain/shared"
)

// EventHandler turns committed order and stock events into audit records
type EventHandler struct {
	service *Service
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(service *Service) *EventHandler {
	return &EventHandler{service: service}
}

// EventTypes returns the event types this handler is interested in
func (h *EventHandler) EventTypes() []string {
	return []string{
		sales.EventTypeOrderConfirmed,
		sales.EventTypeOrderCancelled,
		sales.EventTypeOrderShipped,
		sales.EventTypeOrderDelivered,
		catalog.EventTypeProductLowStock,
	}
}

// Handle records the event
func (h *EventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var record *audit.Record

	switch e := event.(type) {
	case *sales.OrderConfirmedEvent:
		record = audit.NewRecord(audit.EntityOrder, audit.ActionOrderConfirmed, audit.OutcomeSuccess, "Order confirmed").
			WithEntity(e.OrderID.String()).
			WithData(
				map[string]any{"status": string(sales.OrderStatusCreated)},
				map[string]any{
					"status": string(sales.OrderStatusConfirmed),
					"total":  e.Total.String(),
					"lines":  linesData(e.Lines),
				},
			)
	case *sales.OrderCancelledEvent:
		record = audit.NewRecord(audit.EntityOrder, audit.ActionOrderCancelled, audit.OutcomeSuccess, "Order cancelled").
			WithEntity(e.OrderID.String()).
			WithData(nil, map[string]any{
				"status":         string(sales.OrderStatusCancelled),
				"reason":         e.Reason,
				"stock_released": e.StockReleased,
			})
	case *sales.OrderShippedEvent:
		record = audit.NewRecord(audit.EntityOrder, audit.ActionOrderShipped, audit.OutcomeSuccess, "Order shipped").
			WithEntity(e.OrderID.String())
	case *sales.OrderDeliveredEvent:
		record = audit.NewRecord(audit.EntityOrder, audit.ActionOrderDelivered, audit.OutcomeSuccess, "Order delivered").
			WithEntity(e.OrderID.String())
	case *catalog.ProductLowStockEvent:
		record = audit.NewRecord(audit.EntityProduct, audit.ActionLowStock, audit.OutcomeSuccess,
			fmt.Sprintf("Product %s is low on stock", e.SKU)).
			WithEntity(e.ProductID.String()).
			WithData(nil, map[string]any{"stock": e.Stock, "min_stock": e.MinStock})
	default:
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}

	h.service.Record(ctx, record)
	return nil
}

func linesData(lines []sales.LineInfo) []any {
	out := make([]any, len(lines))
	for i, l := range lines {
		out[i] = map[string]any{
			"product_id": l.ProductID.String(),
			"quantity":   l.Quantity,
			"unit_price": l.UnitPrice.String(),
		}
	}
	return out
}

var _ shared.EventHandler = (*EventHandler)(nil)

package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/audit"
	"github.com/shopcore/backend/internal/domain/catalog"
	"github.com/shopcore/backend/internal/domain/sales"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"github.com/shopcore/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ErrProductUnavailable is returned when an order line points at a product that no longer exists
var ErrProductUnavailable = shared.NewBusinessRuleError("PRODUCT_UNAVAILABLE", "A product on this order is no longer available")

// ConfirmationService runs the workflows that move stock: confirming an order
// reserves it, cancelling a confirmed order gives it back.
//
// Both run in a single transaction. The order row is locked first, then every
// referenced product row in ascending ID order, so two workflows touching
// overlapping products always queue on the same first lock instead of deadlocking.
type ConfirmationService struct {
	scope          TransactionScope
	eventPublisher shared.EventPublisher
	auditRecorder  AuditRecorder
	metrics        Metrics
	logger         *zap.Logger
}

// NewConfirmationService creates a new ConfirmationService
func NewConfirmationService(scope TransactionScope, log *zap.Logger) *ConfirmationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ConfirmationService{
		scope:  scope,
		logger: log,
	}
}

// SetEventPublisher sets the publisher used after commit
func (s *ConfirmationService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetAuditRecorder sets the recorder for rejected confirmations
func (s *ConfirmationService) SetAuditRecorder(recorder AuditRecorder) {
	s.auditRecorder = recorder
}

// SetMetrics sets the metrics sink
func (s *ConfirmationService) SetMetrics(m Metrics) {
	s.metrics = m
}

// Confirm reserves stock for every line of the order and moves it to CONFIRMED.
// Either every product is decremented and the order confirmed, or nothing changes.
func (s *ConfirmationService) Confirm(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	start := time.Now()

	ctx, span := telemetry.StartServiceSpan(ctx, "order", "confirm", telemetry.SpanAttrOrderID, orderID)
	defer span.End()

	var (
		order    *sales.Order
		products map[uuid.UUID]*catalog.Product
		reserved int
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := order.CanConfirm(); err != nil {
			return err
		}

		ids := order.ProductIDs()
		products, err = lockProducts(ctx, repos.ProductRepo(), ids)
		if err != nil {
			return err
		}

		// Check every line before the first write
		quantities := order.Quantities()
		for _, id := range ids {
			if err := products[id].CanReserve(quantities[id]); err != nil {
				return err
			}
		}

		for _, id := range ids {
			if err := products[id].ReserveStock(quantities[id]); err != nil {
				return err
			}
			if err := repos.ProductRepo().Save(ctx, products[id]); err != nil {
				return fmt.Errorf("save product %s: %w", id, err)
			}
			telemetry.AddEvent(span, "stock_reserved",
				telemetry.SpanAttrProductID, id,
				telemetry.SpanAttrUnits, quantities[id])
			reserved += quantities[id]
		}

		if err := order.Confirm(); err != nil {
			return err
		}
		return repos.OrderRepo().Save(ctx, order)
	})

	elapsed := time.Since(start)
	if err != nil {
		telemetry.RecordError(span, err)
		s.confirmFailed(ctx, orderID, err, elapsed)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrLines, len(order.Items),
		telemetry.SpanAttrUnits, reserved,
	)

	if s.metrics != nil {
		s.metrics.RecordConfirmation(ctx, OutcomeConfirmed, elapsed)
		s.metrics.RecordStockReserved(ctx, reserved)
	}

	logger.L(ctx).Info("order confirmed",
		zap.String("order_id", orderID.String()),
		zap.Int("lines", len(order.Items)),
		zap.Int("units", reserved),
		zap.Duration("elapsed", elapsed),
	)

	s.publish(ctx, order, products)

	response := ToOrderResponse(order)
	return &response, nil
}

// Cancel cancels the order. A confirmed order returns its reserved units to
// stock in the same transaction.
func (s *ConfirmationService) Cancel(ctx context.Context, orderID uuid.UUID, req CancelOrderRequest) (*OrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "cancel", telemetry.SpanAttrOrderID, orderID)
	defer span.End()

	var (
		order    *sales.Order
		products map[uuid.UUID]*catalog.Product
	)

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}

		ids := order.ProductIDs()
		if order.IsConfirmed() {
			products, err = lockProducts(ctx, repos.ProductRepo(), ids)
			if err != nil {
				return err
			}
		}

		release, err := order.Cancel(req.Reason)
		if err != nil {
			return err
		}

		if release {
			quantities := order.Quantities()
			for _, id := range ids {
				if err := products[id].ReleaseStock(quantities[id]); err != nil {
					return err
				}
				if err := repos.ProductRepo().Save(ctx, products[id]); err != nil {
					return fmt.Errorf("save product %s: %w", id, err)
				}
			}
		}

		return repos.OrderRepo().Save(ctx, order)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.L(ctx).Info("order cancelled",
		zap.String("order_id", orderID.String()),
		zap.Bool("stock_released", products != nil),
	)

	s.publish(ctx, order, products)

	response := ToOrderResponse(order)
	return &response, nil
}

// lockProducts takes the row lock of each product in the given order
func lockProducts(ctx context.Context, repo catalog.ProductRepository, ids []uuid.UUID) (map[uuid.UUID]*catalog.Product, error) {
	locked := make(map[uuid.UUID]*catalog.Product, len(ids))
	for _, id := range ids {
		p, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, ErrProductUnavailable
			}
			return nil, fmt.Errorf("lock product %s: %w", id, err)
		}
		locked[id] = p
	}
	return locked, nil
}

func (s *ConfirmationService) confirmFailed(ctx context.Context, orderID uuid.UUID, err error, elapsed time.Duration) {
	outcome := confirmationOutcome(err)

	if s.metrics != nil {
		s.metrics.RecordConfirmation(ctx, outcome, elapsed)
	}

	log := logger.L(ctx).With(
		zap.String("order_id", orderID.String()),
		zap.String("outcome", outcome),
	)
	if outcome == OutcomeError {
		log.Error("order confirmation failed", zap.Error(err))
	} else {
		log.Info("order confirmation rejected", zap.String("reason", err.Error()))
	}

	if s.auditRecorder == nil || outcome == OutcomeNotFound {
		return
	}

	result := audit.OutcomeDenied
	if outcome == OutcomeError {
		result = audit.OutcomeFailure
	}
	s.auditRecorder.Record(ctx,
		audit.NewRecord(audit.EntityOrder, audit.ActionOrderConfirmRejected, result, err.Error()).
			WithEntity(orderID.String()),
	)
}

func confirmationOutcome(err error) string {
	switch {
	case errors.Is(err, shared.ErrInsufficientStock):
		return OutcomeInsufficientStock
	case errors.Is(err, shared.ErrNotFound):
		return OutcomeNotFound
	case shared.KindOf(err) != "":
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// publish forwards pending events once the transaction has committed
func (s *ConfirmationService) publish(ctx context.Context, order *sales.Order, products map[uuid.UUID]*catalog.Product) {
	if s.eventPublisher == nil {
		return
	}

	events := order.PullDomainEvents()
	for _, p := range products {
		events = append(events, p.PullDomainEvents()...)
	}

	if len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		logger.L(ctx).Warn("failed to publish order events",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

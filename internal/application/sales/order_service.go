package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/sales"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// OrderService handles order CRUD and the transitions that do not move stock
type OrderService struct {
	orderRepo      sales.OrderRepository
	scope          TransactionScope
	eventPublisher shared.EventPublisher
}

// NewOrderService creates a new OrderService
func NewOrderService(orderRepo sales.OrderRepository, scope TransactionScope) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		scope:     scope,
	}
}

// SetEventPublisher sets the publisher used after commit
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create opens an empty order in CREATED status
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	order, err := sales.NewOrder(req.CustomerID)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}

	s.publish(ctx, order)

	response := ToOrderResponse(order)
	return &response, nil
}

// GetByID retrieves an order with its lines
func (s *OrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	response := ToOrderResponse(order)
	return &response, nil
}

// List retrieves orders with filtering and pagination
func (s *OrderService) List(ctx context.Context, filter OrderListFilter) ([]OrderResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}

	if filter.Status != "" {
		status, err := sales.ParseOrderStatus(filter.Status)
		if err != nil {
			return nil, 0, err
		}
		domainFilter.Filters["status"] = status
	}
	if filter.CustomerID != "" {
		customerID, err := uuid.Parse(filter.CustomerID)
		if err != nil {
			return nil, 0, shared.NewValidationError("INVALID_CUSTOMER", "Invalid customer ID")
		}
		domainFilter.Filters["customer_id"] = customerID
	}

	orders, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToOrderResponses(orders), total, nil
}

// AddLine adds a product to a CREATED order at the product's current price.
// The order row is locked so a concurrent confirmation cannot interleave.
func (s *OrderService) AddLine(ctx context.Context, orderID uuid.UUID, req AddLineRequest) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, func(ctx context.Context, repos TransactionalRepositories, order *sales.Order) error {
		product, err := repos.ProductRepo().FindByID(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewNotFoundError("Product not found")
			}
			return err
		}
		if !product.Active {
			return shared.NewBusinessRuleError("PRODUCT_INACTIVE", "Product "+product.SKU+" is not available")
		}

		_, err = order.AddItem(product.ID, req.Quantity, product.Price)
		return err
	})
}

// RemoveLine removes a product line from a CREATED order
func (s *OrderService) RemoveLine(ctx context.Context, orderID, productID uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, func(_ context.Context, _ TransactionalRepositories, order *sales.Order) error {
		return order.RemoveItem(productID)
	})
}

// Ship moves a confirmed order to SHIPPED
func (s *OrderService) Ship(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, func(_ context.Context, _ TransactionalRepositories, order *sales.Order) error {
		return order.Ship()
	})
}

// Deliver moves a shipped order to DELIVERED
func (s *OrderService) Deliver(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.mutate(ctx, orderID, func(_ context.Context, _ TransactionalRepositories, order *sales.Order) error {
		return order.Deliver()
	})
}

// mutate loads the order under its row lock, applies fn and saves the result
func (s *OrderService) mutate(
	ctx context.Context,
	orderID uuid.UUID,
	fn func(ctx context.Context, repos TransactionalRepositories, order *sales.Order) error,
) (*OrderResponse, error) {
	var order *sales.Order

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(ctx, repos, order); err != nil {
			return err
		}
		return repos.OrderRepo().Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, order)

	response := ToOrderResponse(order)
	return &response, nil
}

func (s *OrderService) publish(ctx context.Context, order *sales.Order) {
	events := order.PullDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		logger.L(ctx).Warn("failed to publish order events",
			zap.String("order_id", order.ID.String()),
			zap.Error(err),
		)
	}
}

package sales

import (
	"context"

	"github.com/shopcore/backend/internal/domain/catalog"
	"github.com/shopcore/backend/internal/domain/sales"
)

// TransactionScope runs order workflows in one database transaction.
// If fn returns an error everything done through repos is rolled back,
// including any row locks taken, which are released at transaction end.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories gives access to repositories bound to the current transaction
type TransactionalRepositories interface {
	OrderRepo() sales.OrderRepository
	ProductRepo() catalog.ProductRepository
}

// NoOpTransactionScope runs fn directly against the given repositories.
// Used in tests where atomicity is provided by the fakes themselves.
type NoOpTransactionScope struct {
	orderRepo   sales.OrderRepository
	productRepo catalog.ProductRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(orderRepo sales.OrderRepository, productRepo catalog.ProductRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{orderRepo: orderRepo, productRepo: productRepo}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// OrderRepo returns the order repository
func (s *NoOpTransactionScope) OrderRepo() sales.OrderRepository {
	return s.orderRepo
}

// ProductRepo returns the product repository
func (s *NoOpTransactionScope) ProductRepo() catalog.ProductRepository {
	return s.productRepo
}

var (
	_ TransactionScope          = (*NoOpTransactionScope)(nil)
	_ TransactionalRepositories = (*NoOpTransactionScope)(nil)
)

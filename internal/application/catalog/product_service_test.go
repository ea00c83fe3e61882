package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/catalog"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	args := m.Called(ctx, sku)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func validCreateRequest() CreateProductRequest {
	return CreateProductRequest{
		SKU:      "kb-001",
		Name:     "Mechanical Keyboard",
		Price:    decimal.NewFromFloat(89.90),
		Stock:    25,
		MinStock: 5,
	}
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo)

		repo.On("ExistsBySKU", ctx, "KB-001").Return(false, nil)
		repo.On("Save", ctx, mock.AnythingOfType("*catalog.Product")).Return(nil)

		resp, err := svc.Create(ctx, validCreateRequest())
		require.NoError(t, err)

		assert.Equal(t, "KB-001", resp.SKU)
		assert.Equal(t, "USD", resp.Currency)
		assert.Equal(t, 25, resp.Stock)
		assert.True(t, resp.Active)
		assert.False(t, resp.LowStock)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate sku", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo)

		repo.On("ExistsBySKU", ctx, "KB-001").Return(true, nil)

		_, err := svc.Create(ctx, validCreateRequest())
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
		assert.Equal(t, shared.KindConflict, shared.KindOf(err))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("invalid price", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo)

		repo.On("ExistsBySKU", ctx, "KB-001").Return(false, nil)

		req := validCreateRequest()
		req.Price = decimal.Zero
		_, err := svc.Create(ctx, req)
		assert.Equal(t, shared.KindValidation, shared.KindOf(err))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("repository error", func(t *testing.T) {
		repo := new(MockProductRepository)
		svc := NewProductService(repo)

		repo.On("ExistsBySKU", ctx, "KB-001").Return(false, errors.New("db down"))

		_, err := svc.Create(ctx, validCreateRequest())
		assert.EqualError(t, err, "db down")
	})
}

func TestProductService_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	svc := NewProductService(repo)

	product, err := catalog.NewProduct(catalog.NewProductInput{
		SKU: "A-1", Name: "A", Price: decimal.NewFromInt(3), Stock: 1, MinStock: 2,
	})
	require.NoError(t, err)
	missing := uuid.New()

	repo.On("FindByID", ctx, product.ID).Return(product, nil)
	repo.On("FindByID", ctx, missing).Return(nil, shared.ErrNotFound)

	resp, err := svc.GetByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.ID, resp.ID)
	assert.True(t, resp.LowStock)

	_, err = svc.GetByID(ctx, missing)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestProductService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(MockProductRepository)
	svc := NewProductService(repo)

	active := true
	matchFilter := mock.MatchedBy(func(f shared.Filter) bool {
		return f.Page == 2 && f.PageSize == 10 && f.Filters["active"] == true && f.Filters["low_stock"] == true
	})
	repo.On("FindAll", ctx, matchFilter).Return([]catalog.Product{}, nil)
	repo.On("Count", ctx, matchFilter).Return(int64(11), nil)

	items, total, err := svc.List(ctx, ProductListFilter{Active: &active, LowStock: true, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int64(11), total)
	repo.AssertExpectations(t)
}

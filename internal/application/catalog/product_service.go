package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/catalog"
	"github.com/shopcore/backend/internal/domain/shared"
)

// ProductService handles product-related business operations
type ProductService struct {
	productRepo catalog.ProductRepository
}

// NewProductService creates a new ProductService
func NewProductService(productRepo catalog.ProductRepository) *ProductService {
	return &ProductService{productRepo: productRepo}
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductResponse, error) {
	// SKUs are stored upper-cased
	exists, err := s.productRepo.ExistsBySKU(ctx, strings.ToUpper(strings.TrimSpace(req.SKU)))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError(shared.KindConflict, shared.ErrAlreadyExists.Code, "Product with this SKU already exists")
	}

	product, err := catalog.NewProduct(catalog.NewProductInput{
		SKU:         req.SKU,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Currency:    req.Currency,
		Stock:       req.Stock,
		MinStock:    req.MinStock,
	})
	if err != nil {
		return nil, err
	}

	if err := s.productRepo.Save(ctx, product); err != nil {
		return nil, err
	}

	response := ToProductResponse(product)
	return &response, nil
}

// GetByID retrieves a product by ID
func (s *ProductService) GetByID(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	response := ToProductResponse(product)
	return &response, nil
}

// List retrieves a list of products with filtering and pagination
func (s *ProductService) List(ctx context.Context, filter ProductListFilter) ([]ProductResponse, int64, error) {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	domainFilter.OrderBy = "sku"
	domainFilter.OrderDir = "asc"

	if filter.Active != nil {
		domainFilter.Filters["active"] = *filter.Active
	}
	if filter.LowStock {
		domainFilter.Filters["low_stock"] = true
	}

	products, err := s.productRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.productRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToProductResponses(products), total, nil
}

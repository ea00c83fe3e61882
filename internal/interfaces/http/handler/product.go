package handler

import (
	"github.com/gin-gonic/gin"
	catalogapp "github.com/shopcore/backend/internal/application/catalog"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
)

// ProductHandler handles product HTTP requests
type ProductHandler struct {
	BaseHandler
	productService *catalogapp.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService *catalogapp.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// Create adds a product to the catalog
// POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	product, err := h.productService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, product)
}

// GetByID returns one product
// GET /products/:id
func (h *ProductHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, product)
}

// List returns a page of products ordered by SKU
// GET /products
func (h *ProductHandler) List(c *gin.Context) {
	var filter catalogapp.ProductListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	filter.Page, filter.PageSize = dto.Paginate(filter.Page, filter.PageSize)

	products, total, err := h.productService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, products, total, filter.Page, filter.PageSize)
}

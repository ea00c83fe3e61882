package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	salesapp "github.com/shopcore/backend/internal/application/sales"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
	"github.com/shopcore/backend/internal/interfaces/http/middleware"
)

// errOrderNotFound hides orders of other customers
var errOrderNotFound = shared.NewNotFoundError("Order not found")

var errForeignCustomer = shared.NewDomainError(shared.KindForbidden, shared.ErrForbidden.Code,
	"Orders can only be opened for your own account")

// OrderHandler handles order HTTP requests
type OrderHandler struct {
	BaseHandler
	orderService        *salesapp.OrderService
	confirmationService *salesapp.ConfirmationService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *salesapp.OrderService, confirmationService *salesapp.ConfirmationService) *OrderHandler {
	return &OrderHandler{
		orderService:        orderService,
		confirmationService: confirmationService,
	}
}

// Create opens an empty order. Customers always order for themselves;
// staff must name the customer.
// POST /orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req salesapp.CreateOrderRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	if !middleware.CallerRole(c).IsStaff() {
		caller := middleware.CallerID(c)
		if req.CustomerID != uuid.Nil && req.CustomerID != caller {
			h.HandleError(c, errForeignCustomer)
			return
		}
		req.CustomerID = caller
	}

	order, err := h.orderService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// GetByID returns one order with its lines
// GET /orders/:id
func (h *OrderHandler) GetByID(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !h.visible(c, order) {
		h.HandleError(c, errOrderNotFound)
		return
	}
	h.Success(c, order)
}

// List returns orders filtered by status and customer
// GET /orders
func (h *OrderHandler) List(c *gin.Context) {
	var filter salesapp.OrderListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	filter.Page, filter.PageSize = dto.Paginate(filter.Page, filter.PageSize)
	if !middleware.CallerRole(c).SeesAllOrders() {
		filter.CustomerID = middleware.CallerID(c).String()
	}

	orders, total, err := h.orderService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, orders, total, filter.Page, filter.PageSize)
}

// AddLine adds a product line to a CREATED order
// POST /orders/:id/lines
func (h *OrderHandler) AddLine(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if !h.owns(c, id) {
		return
	}
	var req salesapp.AddLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orderService.AddLine(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// RemoveLine drops a product line from a CREATED order
// DELETE /orders/:id/lines/:product_id
func (h *OrderHandler) RemoveLine(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if !h.owns(c, id) {
		return
	}
	productID, ok := h.ParseUUIDParam(c, "product_id")
	if !ok {
		return
	}

	order, err := h.orderService.RemoveLine(c.Request.Context(), id, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Confirm reserves stock for every line and moves the order to CONFIRMED.
// Insufficient stock and wrong state are 409, an unknown order 404.
// POST /orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if !h.owns(c, id) {
		return
	}

	order, err := h.confirmationService.Confirm(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Cancel cancels an order, releasing reserved stock when it was confirmed
// POST /orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	if !h.owns(c, id) {
		return
	}
	var req salesapp.CancelOrderRequest
	if c.Request.ContentLength != 0 && !h.BindJSON(c, &req) {
		return
	}

	order, err := h.confirmationService.Cancel(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Ship marks a CONFIRMED order as shipped
// POST /orders/:id/ship
func (h *OrderHandler) Ship(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.Ship(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Deliver marks a SHIPPED order as delivered
// POST /orders/:id/deliver
func (h *OrderHandler) Deliver(c *gin.Context) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.Deliver(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

func (h *OrderHandler) visible(c *gin.Context, order *salesapp.OrderResponse) bool {
	return middleware.CallerRole(c).SeesAllOrders() || order.CustomerID == middleware.CallerID(c)
}

// owns answers 404 and returns false when a customer touches an order that
// is not theirs. Staff pass without a lookup.
func (h *OrderHandler) owns(c *gin.Context, orderID uuid.UUID) bool {
	if middleware.CallerRole(c).IsStaff() {
		return true
	}
	order, err := h.orderService.GetByID(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return false
	}
	if !h.visible(c, order) {
		h.HandleError(c, errOrderNotFound)
		return false
	}
	return true
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopcore/backend/internal/domain/security"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
	"github.com/shopcore/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by the RequestID middleware
func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// TooManyRequests sends the generic 429 response
func (h *BaseHandler) TooManyRequests(c *gin.Context, d security.Decision) {
	middleware.AbortRateLimited(c, d)
}

// BindJSON binds the request body, answering 400 with field details on failure
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// BindQuery binds query parameters, answering 400 with field details on failure
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// ParseUUIDParam reads a path parameter as a UUID, answering 400 when it is not one
func (h *BaseHandler) ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidID, "Invalid "+name+" format")
		return uuid.Nil, false
	}
	return id, true
}

// HandleError maps an error to its HTTP response by domain error kind.
// Rate limited errors get the generic 429 body; unknown errors are logged and hidden behind a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var limited *security.RateLimitedError
	if errors.As(err, &limited) {
		h.TooManyRequests(c, limited.Decision)
		return
	}

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		logger.L(c.Request.Context()).Error("unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		h.InternalError(c)
		return
	}

	if domainErr.Kind == shared.KindRateLimited {
		h.TooManyRequests(c, security.Deny(middleware.DefaultRetryAfter()))
		return
	}

	status := dto.StatusForKind(domainErr.Kind)
	if status == http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("domain error without kind", zap.String("code", domainErr.Code))
		h.InternalError(c)
		return
	}
	h.Error(c, status, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
}

package handler

import (
	"github.com/gin-gonic/gin"
	auditapp "github.com/shopcore/backend/internal/application/audit"
	"github.com/shopcore/backend/internal/interfaces/http/dto"
)

// AuditHandler lists audit records for administrators
type AuditHandler struct {
	BaseHandler
	auditService *auditapp.Service
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(auditService *auditapp.Service) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List returns audit records newest first
// GET /audit
func (h *AuditHandler) List(c *gin.Context) {
	var filter auditapp.ListFilter
	if !h.BindQuery(c, &filter) {
		return
	}
	filter.Page, filter.PageSize = dto.Paginate(filter.Page, filter.PageSize)

	records, total, err := h.auditService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, records, total, filter.Page, filter.PageSize)
}

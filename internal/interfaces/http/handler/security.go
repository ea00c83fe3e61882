package handler

import (
	"github.com/gin-gonic/gin"
	securityapp "github.com/shopcore/backend/internal/application/security"
	"github.com/shopcore/backend/internal/domain/security"
)

// SecurityHandler exposes block state to administrators
type SecurityHandler struct {
	BaseHandler
	blockService *securityapp.BlockService
}

// NewSecurityHandler creates a new SecurityHandler
func NewSecurityHandler(blockService *securityapp.BlockService) *SecurityHandler {
	return &SecurityHandler{blockService: blockService}
}

// GetBlock reports whether an identity is blocked
// GET /security/blocks/:kind/:value
func (h *SecurityHandler) GetBlock(c *gin.Context) {
	id, err := security.ParseIdentity(c.Param("kind"), c.Param("value"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	status, err := h.blockService.Status(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}

// UnblockIP lifts the block on a client address
// DELETE /security/blocks/ip/:ip
func (h *SecurityHandler) UnblockIP(c *gin.Context) {
	h.unblock(c, security.IdentityIP, c.Param("ip"))
}

// UnblockUser lifts the block on an account, addressed by user ID
// DELETE /security/blocks/user/:user_id
func (h *SecurityHandler) UnblockUser(c *gin.Context) {
	h.unblock(c, security.IdentityUser, c.Param("user_id"))
}

// UnblockUsername lifts the block on a login name that has no account
// DELETE /security/blocks/username/:username
func (h *SecurityHandler) UnblockUsername(c *gin.Context) {
	h.unblock(c, security.IdentityUsername, c.Param("username"))
}

func (h *SecurityHandler) unblock(c *gin.Context, kind security.IdentityKind, value string) {
	id, err := security.ParseIdentity(string(kind), value)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.blockService.Unblock(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Pinger is a dependency the health check can probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports reachability of the database and the counter store
type HealthHandler struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewHealthHandler creates a health handler probing the named dependencies
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Check answers 200 when every dependency responds, 503 otherwise
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"time": time.Now().UTC().Format(time.RFC3339)}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			logger.L(c.Request.Context()).Warn("health check failed", zap.String("dependency", name), zap.Error(err))
			body[name] = "error"
			status = http.StatusServiceUnavailable
			continue
		}
		body[name] = "ok"
	}

	if status == http.StatusOK {
		body["status"] = "healthy"
	} else {
		body["status"] = "unhealthy"
	}
	c.JSON(status, body)
}

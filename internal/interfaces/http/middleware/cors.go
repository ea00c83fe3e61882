package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopcore/backend/internal/infrastructure/config"
)

// CORSConfig holds CORS middleware configuration. An empty AllowOrigins
// list sends no CORS headers at all, so browsers refuse cross-origin calls.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig exposes the throttling headers so browser clients can
// honour Retry-After
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization", RequestIDHeader, "Accept", "Origin"},
		ExposeHeaders:    []string{RequestIDHeader, HeaderRetryAfter, HeaderRateLimitReset},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// CORSConfigFrom overlays the http config section on DefaultCORSConfig
func CORSConfigFrom(cfg config.HTTPConfig) CORSConfig {
	c := DefaultCORSConfig()
	c.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		c.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		c.AllowHeaders = cfg.CORSAllowHeaders
	}
	return c
}

// CORSWithConfig answers preflight requests with 204 and decorates
// responses to whitelisted origins. A "*" entry allows any origin but
// never with credentials.
func CORSWithConfig(cfg CORSConfig) gin.HandlerFunc {
	wildcard := slices.Contains(cfg.AllowOrigins, "*")
	shared := map[string]string{
		"Access-Control-Allow-Methods": strings.Join(cfg.AllowMethods, ", "),
		"Access-Control-Allow-Headers": strings.Join(cfg.AllowHeaders, ", "),
	}
	if len(cfg.ExposeHeaders) > 0 {
		shared["Access-Control-Expose-Headers"] = strings.Join(cfg.ExposeHeaders, ", ")
	}
	if cfg.MaxAge > 0 {
		shared["Access-Control-Max-Age"] = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}

	allowed := func(origin string) string {
		switch {
		case wildcard:
			return "*"
		case origin != "" && slices.Contains(cfg.AllowOrigins, origin):
			return origin
		}
		return ""
	}

	return func(c *gin.Context) {
		if value := allowed(c.GetHeader("Origin")); value != "" {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", value)
			if cfg.AllowCredentials && value != "*" {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			for k, v := range shared {
				h.Set(k, v)
			}
		}

		// preflights never reach the router, so unknown paths do not 404
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

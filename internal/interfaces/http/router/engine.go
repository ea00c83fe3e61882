package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopcore/backend/internal/infrastructure/config"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"github.com/shopcore/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// EngineConfig holds what the global middleware chain needs
type EngineConfig struct {
	HTTP    config.HTTPConfig
	Tracing middleware.TracingConfig
	Logger  *zap.Logger
	// RetryAfter is advertised on 429 responses whose wait is unknown
	RetryAfter time.Duration
}

// NewEngine creates a gin engine with the global middleware chain installed.
// Order matters: the request ID must exist before the logger, and the span
// must exist before anything that annotates it.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()
	middleware.SetDefaultRetryAfter(cfg.RetryAfter)

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}

	engine.Use(middleware.RequestID())
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))
	engine.Use(logger.GinMiddleware(log, logger.SkipPaths("/health")))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)))
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}
	engine.Use(middleware.Actor())

	return engine, nil
}

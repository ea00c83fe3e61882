package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	auditapp "github.com/shopcore/backend/internal/application/audit"
	catalogapp "github.com/shopcore/backend/internal/application/catalog"
	identityapp "github.com/shopcore/backend/internal/application/identity"
	salesapp "github.com/shopcore/backend/internal/application/sales"
	securityapp "github.com/shopcore/backend/internal/application/security"
	"github.com/shopcore/backend/internal/domain/security"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/auth"
	"github.com/shopcore/backend/internal/infrastructure/cache"
	"github.com/shopcore/backend/internal/infrastructure/config"
	"github.com/shopcore/backend/internal/infrastructure/event"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"github.com/shopcore/backend/internal/infrastructure/persistence"
	"github.com/shopcore/backend/internal/infrastructure/telemetry"
	"github.com/shopcore/backend/internal/interfaces/http/handler"
	"github.com/shopcore/backend/internal/interfaces/http/middleware"
	"github.com/shopcore/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.NewFromAppConfig(cfg.App, cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting shop backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		_ = tracerProvider.Shutdown(context.Background())
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(cfg.Telemetry), log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		_ = meterProvider.Shutdown(context.Background())
	}()

	metrics, err := telemetry.NewShopMetrics(meterProvider.Meter(telemetry.MeterName))
	if err != nil {
		log.Fatal("Failed to create metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel),
		logger.WithSlowThreshold(cfg.Database.SlowQueryThreshold),
		logger.WithLockWaitThreshold(cfg.Database.LockWaitThreshold),
	)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.Driver == config.DriverSQLite || cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database schema", zap.Error(err))
		}
	}

	dbTracing := telemetry.NewDBTracingPlugin(dbTracingConfig(cfg), log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	// Counter stores, shared Redis client
	var redisClient *redis.Client
	if cfg.Redis.Enabled || cfg.Security.Store == config.StoreRedis {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
	}

	factoryOpts := []cache.StoreFactoryOption{cache.WithLogger(log)}
	if redisClient != nil {
		factoryOpts = append(factoryOpts, cache.WithRedisClient(redisClient))
	}
	stores, err := cache.NewStoreFactory(cfg.Security, cfg.Redis, factoryOpts...).CreateStores()
	if err != nil {
		log.Fatal("Failed to create security stores", zap.Error(err))
	}
	defer func() {
		_ = stores.Close()
	}()

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if redisClient != nil {
		blacklist = auth.NewRedisTokenBlacklist(redisClient, cfg.Redis.KeyPrefix)
	}

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Audit
	auditService := auditapp.NewService(auditRepo, log)
	if cfg.Audit.KafkaEnabled {
		sink := event.NewKafkaAuditSink(cfg.Audit, log)
		defer func() {
			if err := sink.Close(); err != nil {
				log.Error("Error closing audit sink", zap.Error(err))
			}
		}()
		auditService.SetSink(sink)
		log.Info("Audit records forwarded to Kafka", zap.String("topic", cfg.Audit.KafkaTopic))
	}

	// Security
	blockService, err := securityapp.NewBlockService(stores.Attempts, blockPolicy(cfg.Security))
	if err != nil {
		log.Fatal("Invalid block policy", zap.Error(err))
	}
	blockService.SetAuditRecorder(auditService)
	blockService.SetMetrics(metrics)

	quotaService, err := securityapp.NewQuotaService(stores.Quotas, quotas(cfg.Security)...)
	if err != nil {
		log.Fatal("Invalid quota configuration", zap.Error(err))
	}
	quotaService.SetAuditRecorder(auditService)
	quotaService.SetMetrics(metrics)

	// Identity
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, blockService, blacklist)
	authService.SetAuditRecorder(auditService)

	userService := identityapp.NewUserService(userRepo)
	if err := userService.EnsureAdmin(ctx, cfg.App.AdminUsername, cfg.App.AdminPassword); err != nil {
		log.Fatal("Failed to create administrator", zap.Error(err))
	}

	// Catalog and sales
	productService := catalogapp.NewProductService(productRepo)
	orderService := salesapp.NewOrderService(orderRepo, txScope)
	confirmationService := salesapp.NewConfirmationService(txScope, log)
	confirmationService.SetAuditRecorder(auditService)
	confirmationService.SetMetrics(metrics)

	// Event bus: order events become audit records, each processed once
	eventBus := event.NewInMemoryEventBus(log)
	auditHandler := event.NewIdempotentHandler(auditapp.NewEventHandler(auditService), stores.Idempotency, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: true, TTL: cfg.Audit.DedupeTTL}))
	eventBus.Subscribe(auditHandler)
	log.Info("Event handlers registered", zap.Strings("audit_events", auditHandler.EventTypes()))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
		stats := auditHandler.Stats()
		log.Info("Audit event handler stopped",
			zap.Int64("processed", stats.EventsProcessed),
			zap.Int64("duplicates", stats.EventsDuplicate),
			zap.Int64("failed", stats.EventsFailed),
		)
	}()

	orderService.SetEventPublisher(eventBus)
	confirmationService.SetEventPublisher(eventBus)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine, err := router.NewEngine(router.EngineConfig{
		HTTP: cfg.HTTP,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		Logger:     log,
		RetryAfter: cfg.Security.DefaultRetryAfter,
	})
	if err != nil {
		log.Fatal("Failed to create HTTP engine", zap.Error(err))
	}

	checks := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		checks["redis"] = cache.ClientPinger{Client: redisClient}
	}

	api := router.RegisterShopRoutes(engine, router.Handlers{
		Health:   handler.NewHealthHandler(checks),
		Auth:     handler.NewAuthHandler(authService),
		Order:    handler.NewOrderHandler(orderService, confirmationService),
		Product:  handler.NewProductHandler(productService),
		Security: handler.NewSecurityHandler(blockService),
		Audit:    handler.NewAuditHandler(auditService),
	}, router.Guards{
		Tokens: authService,
		Quotas: quotaService,
		Blocks: blockService,
	})
	log.Info("HTTP routes registered", zap.Int("count", len(api.Routes())))
	for _, rt := range api.Routes() {
		log.Debug("Route", zap.String("route", rt))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// blockPolicy maps the configured failed-attempt policy
func blockPolicy(cfg config.SecurityConfig) security.BlockPolicy {
	return security.BlockPolicy{
		MaxFailedAttempts: cfg.MaxFailedAttempts,
		AttemptWindow:     cfg.AttemptWindow,
		BlockDuration:     cfg.BlockDuration,
	}
}

// quotas maps the configured request budgets. Disabled quotas yield none,
// which lets every request through.
func quotas(cfg config.SecurityConfig) []security.Quota {
	if !cfg.QuotasEnabled {
		return nil
	}
	result := make([]security.Quota, 0, len(cfg.Quotas))
	for _, scope := range config.QuotaScopes {
		q, ok := cfg.Quotas[scope]
		if !ok {
			continue
		}
		result = append(result, security.Quota{Scope: scope, Limit: q.Limit, Window: q.Window})
	}
	return result
}

func dbTracingConfig(cfg *config.Config) telemetry.DBTracingConfig {
	c := telemetry.DefaultDBTracingConfig()
	c.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	c.LogFullSQL = cfg.App.Env == "development"
	if cfg.Database.Driver == config.DriverSQLite {
		c.DBSystem = "sqlite"
	}
	return c
}

// defaultShutdownTimeout bounds how long in-flight requests may take to finish
const defaultShutdownTimeout = 30 * time.Second

package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopcore/backend/internal/domain/security"
	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Stores groups the counter stores used by the security services
type Stores struct {
	Attempts    security.AttemptStore
	Quotas      security.QuotaStore
	Idempotency shared.IdempotencyStore
	// Backend is the store kind actually in use, memory or redis
	Backend string
	client  redis.UniversalClient
	closers []func() error
}

// Ping verifies the Redis connection. In-memory stores are always reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return ClientPinger{Client: s.client}.Ping(ctx)
}

// Close releases every store created by the factory
func (s *Stores) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StoreFactory creates the security stores based on configuration
type StoreFactory struct {
	securityConfig        config.SecurityConfig
	redisConfig           config.RedisConfig
	client                redis.UniversalClient
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithRedisClient reuses an existing client instead of dialing a new one
func WithRedisClient(client redis.UniversalClient) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.client = client
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable.
// Default is false: a multi-instance deployment must not silently split its counters.
func WithInMemoryFallback(allow bool) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(securityCfg config.SecurityConfig, redisCfg config.RedisConfig, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		securityConfig: securityCfg,
		redisConfig:    redisCfg,
		logger:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// CreateStores builds the stores for the configured backend
func (f *StoreFactory) CreateStores() (*Stores, error) {
	if f.securityConfig.Store != config.StoreRedis {
		f.logger.Info("using in-memory security stores")
		return f.CreateInMemoryStores(), nil
	}

	stores, err := f.CreateRedisStores()
	if err == nil {
		f.logger.Info("using Redis security stores")
		return stores, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for security stores but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory security stores. "+
		"Blocks and quotas will not be shared between instances.",
		zap.Error(err),
	)
	return f.CreateInMemoryStores(), nil
}

// CreateRedisStores builds Redis-backed stores, dialing Redis unless a client was supplied
func (f *StoreFactory) CreateRedisStores() (*Stores, error) {
	stores := &Stores{Backend: config.StoreRedis}

	client := f.client
	if client == nil {
		c, err := NewRedisClient(f.redisConfig)
		if err != nil {
			return nil, err
		}
		client = c
		stores.closers = append(stores.closers, c.Close)
	}

	stores.client = client
	prefix := f.redisConfig.KeyPrefix
	stores.Attempts = NewRedisAttemptStore(client, prefix)
	stores.Quotas = NewRedisQuotaStore(client, prefix)
	stores.Idempotency = NewRedisIdempotencyStore(client, prefix)
	return stores, nil
}

// CreateInMemoryStores builds process-local stores.
// Suitable for single-instance deployments and testing.
func (f *StoreFactory) CreateInMemoryStores() *Stores {
	attempts := NewInMemoryAttemptStore()
	quotas := NewInMemoryQuotaStore()
	idempotency := NewInMemoryIdempotencyStore()

	return &Stores{
		Attempts:    attempts,
		Quotas:      quotas,
		Idempotency: idempotency,
		Backend:     config.StoreMemory,
		closers:     []func() error{attempts.Close, quotas.Close, idempotency.Close},
	}
}

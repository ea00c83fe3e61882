package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist revokes access tokens before they expire (logout)
type TokenBlacklist interface {
	// Revoke blacklists a token's JTI for ttl, normally its remaining lifetime
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	// IsRevoked checks if a token's JTI is blacklisted
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisTokenBlacklist implements TokenBlacklist using Redis
type RedisTokenBlacklist struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisTokenBlacklist creates a token blacklist on a shared Redis client
func NewRedisTokenBlacklist(client redis.UniversalClient, keyPrefix string) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{
		client:    client,
		keyPrefix: keyPrefix + "token:revoked:",
	}
}

// Revoke adds a token's JTI to the blacklist
func (b *RedisTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, b.keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks if a token's JTI is in the blacklist
func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := b.client.Exists(ctx, b.keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return exists > 0, nil
}

// InMemoryTokenBlacklist keeps revoked JTIs in process memory.
// Only suitable for a single instance.
type InMemoryTokenBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time // JTI -> expiration time
	now     func() time.Time
}

// NewInMemoryTokenBlacklist creates a new in-memory token blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke adds a token's JTI to the in-memory blacklist
func (b *InMemoryTokenBlacklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[jti] = b.now().Add(ttl)
	return nil
}

// IsRevoked checks if a token's JTI is blacklisted and not yet expired
func (b *InMemoryTokenBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	expiration, exists := b.revoked[jti]
	if !exists {
		return false, nil
	}
	if b.now().After(expiration) {
		delete(b.revoked, jti)
		return false, nil
	}
	return true, nil
}

var (
	_ TokenBlacklist = (*RedisTokenBlacklist)(nil)
	_ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
)

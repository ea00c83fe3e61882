package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopcore/backend/internal/domain/security"
)

// takeQuotaScript opens a fixed window on the first request and counts every request in it.
// ARGV[1] window ms. Returns {count, pttl_ms}.
var takeQuotaScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RedisQuotaStore implements security.QuotaStore on Redis
type RedisQuotaStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisQuotaStore creates a quota store on a shared client
func NewRedisQuotaStore(client redis.UniversalClient, keyPrefix string) *RedisQuotaStore {
	return &RedisQuotaStore{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Take counts one request against the quota window of key
func (s *RedisQuotaStore) Take(ctx context.Context, key string, quota security.Quota) (security.QuotaResult, error) {
	vals, err := takeQuotaScript.Run(ctx, s.client, []string{s.keyPrefix + key}, quota.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return security.QuotaResult{}, fmt.Errorf("failed to take quota: %w", err)
	}
	if len(vals) != 2 {
		return security.QuotaResult{}, fmt.Errorf("unexpected quota script reply: %v", vals)
	}

	return quotaResult(quota, int(vals[0]), time.Duration(vals[1])*time.Millisecond), nil
}

// quotaResult derives the outcome from the window count, shared by both stores
func quotaResult(quota security.Quota, count int, resetAfter time.Duration) security.QuotaResult {
	remaining := quota.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return security.QuotaResult{
		Allowed:    count <= quota.Limit,
		Limit:      quota.Limit,
		Count:      count,
		Remaining:  remaining,
		ResetAfter: resetAfter,
	}
}

var _ security.QuotaStore = (*RedisQuotaStore)(nil)

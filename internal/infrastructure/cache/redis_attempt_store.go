package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopcore/backend/internal/domain/security"
)

// incrementAttemptScript counts one failure.
// KEYS[1] counter, KEYS[2] block marker.
// ARGV[1] max attempts, ARGV[2] window ms, ARGV[3] block ms.
// Returns {attempts, blocked, retry_after_ms, just_blocked}.
var incrementAttemptScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[2])
if ttl > 0 then
	return {tonumber(redis.call('GET', KEYS[2]) or 0), 1, ttl, 0}
end
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
if n >= tonumber(ARGV[1]) then
	redis.call('SET', KEYS[2], n, 'PX', ARGV[3])
	redis.call('DEL', KEYS[1])
	return {n, 1, tonumber(ARGV[3]), 1}
end
return {n, 0, 0, 0}
`)

// checkAttemptScript reads the status without changing it.
// Returns {attempts, blocked, retry_after_ms}.
var checkAttemptScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[2])
if ttl > 0 then
	return {tonumber(redis.call('GET', KEYS[2]) or 0), 1, ttl}
end
return {tonumber(redis.call('GET', KEYS[1]) or 0), 0, 0}
`)

// RedisAttemptStore implements security.AttemptStore on Redis.
// Every instance pointed at the same Redis shares counters and blocks.
type RedisAttemptStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisAttemptStore creates an attempt store on a shared client
func NewRedisAttemptStore(client redis.UniversalClient, keyPrefix string) *RedisAttemptStore {
	return &RedisAttemptStore{
		client:    client,
		keyPrefix: keyPrefix + "attempt:",
	}
}

// keys returns the counter and block keys. The hash tag keeps both in one
// cluster slot so a single script can touch them.
func (s *RedisAttemptStore) keys(key string) []string {
	base := s.keyPrefix + "{" + key + "}"
	return []string{base + ":count", base + ":block"}
}

// Increment counts one failure and blocks the key at the threshold
func (s *RedisAttemptStore) Increment(ctx context.Context, key string, policy security.BlockPolicy) (security.AttemptStatus, error) {
	vals, err := incrementAttemptScript.Run(ctx, s.client, s.keys(key),
		policy.MaxFailedAttempts,
		policy.AttemptWindow.Milliseconds(),
		policy.BlockDuration.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return security.AttemptStatus{}, fmt.Errorf("failed to increment attempts: %w", err)
	}
	if len(vals) != 4 {
		return security.AttemptStatus{}, fmt.Errorf("unexpected attempt script reply: %v", vals)
	}

	return security.AttemptStatus{
		Attempts:    int(vals[0]),
		Blocked:     vals[1] == 1,
		RetryAfter:  time.Duration(vals[2]) * time.Millisecond,
		JustBlocked: vals[3] == 1,
	}, nil
}

// Check returns the status of key
func (s *RedisAttemptStore) Check(ctx context.Context, key string) (security.AttemptStatus, error) {
	vals, err := checkAttemptScript.Run(ctx, s.client, s.keys(key)).Int64Slice()
	if err != nil {
		return security.AttemptStatus{}, fmt.Errorf("failed to check attempts: %w", err)
	}
	if len(vals) != 3 {
		return security.AttemptStatus{}, fmt.Errorf("unexpected attempt script reply: %v", vals)
	}

	return security.AttemptStatus{
		Attempts:   int(vals[0]),
		Blocked:    vals[1] == 1,
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

// Reset deletes the counter and the block
func (s *RedisAttemptStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keys(key)...).Err(); err != nil {
		return fmt.Errorf("failed to reset attempts: %w", err)
	}
	return nil
}

var _ security.AttemptStore = (*RedisAttemptStore)(nil)

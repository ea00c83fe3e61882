package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which events a handler has already applied.
// Order events are published after commit and can reach a handler twice;
// the store keeps their side effects, such as audit records, single.
type IdempotencyStore interface {
	// MarkProcessed claims eventID for ttl and reports false when another
	// caller already holds the claim
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	Close() error
}

// DefaultProcessedTTL is how long a handled event id is remembered
const DefaultProcessedTTL = 24 * time.Hour

// IdempotencyConfig controls duplicate suppression in event handlers.
// A disabled config hands every delivery to the wrapped handler.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

// DefaultIdempotencyConfig enables suppression for DefaultProcessedTTL
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{Enabled: true, TTL: DefaultProcessedTTL}
}

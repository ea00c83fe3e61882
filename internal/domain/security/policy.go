package security

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopcore/backend/internal/domain/shared"
)

// DefaultRetryAfter is advertised when a refusal does not know how long the caller must wait
const DefaultRetryAfter = 60 * time.Second

// ErrTemporarilyBlocked is the single error for every anti-abuse refusal, blocks and quotas alike.
var ErrTemporarilyBlocked = shared.ErrRateLimited

// BlockPolicy controls failed-attempt counting
type BlockPolicy struct {
	MaxFailedAttempts int
	AttemptWindow     time.Duration
	BlockDuration     time.Duration
}

// DefaultBlockPolicy returns 5 failures within 5 minutes, blocked for 15 minutes
func DefaultBlockPolicy() BlockPolicy {
	return BlockPolicy{
		MaxFailedAttempts: 5,
		AttemptWindow:     5 * time.Minute,
		BlockDuration:     15 * time.Minute,
	}
}

// Validate checks the policy is usable
func (p BlockPolicy) Validate() error {
	if p.MaxFailedAttempts < 1 {
		return fmt.Errorf("max failed attempts must be at least 1, got %d", p.MaxFailedAttempts)
	}
	if p.AttemptWindow <= 0 {
		return fmt.Errorf("attempt window must be positive, got %s", p.AttemptWindow)
	}
	if p.BlockDuration <= 0 {
		return fmt.Errorf("block duration must be positive, got %s", p.BlockDuration)
	}
	return nil
}

// AttemptStatus is the state of one identity in the attempt store
type AttemptStatus struct {
	// Attempts is the number of failures counted in the current window
	Attempts int
	// Blocked is true while a block is in force
	Blocked bool
	// RetryAfter is the remaining block time, zero when not blocked
	RetryAfter time.Duration
	// JustBlocked is set on the increment that crossed the threshold
	JustBlocked bool
}

// AttemptStore is a shared keyed counter store with expiry.
// Implementations must serialize concurrent increments of the same key.
type AttemptStore interface {
	// Increment counts one failure for key. Once the count reaches
	// policy.MaxFailedAttempts the key is blocked for policy.BlockDuration and
	// its counter cleared. Incrementing a blocked key changes nothing.
	Increment(ctx context.Context, key string, policy BlockPolicy) (AttemptStatus, error)

	// Check returns the current status without changing it
	Check(ctx context.Context, key string) (AttemptStatus, error)

	// Reset clears both the counter and any block for key
	Reset(ctx context.Context, key string) error
}

// Quota is a per-scope request budget over a fixed window
type Quota struct {
	Scope  string
	Limit  int
	Window time.Duration
}

// QuotaResult reports the outcome of taking one unit from a quota
type QuotaResult struct {
	Allowed bool
	Limit   int
	// Count is the number of requests seen in the current window, this one included
	Count      int
	Remaining  int
	ResetAfter time.Duration
}

// FirstRejection reports whether this is the first request of the window over the limit
func (r QuotaResult) FirstRejection() bool {
	return !r.Allowed && r.Count == r.Limit+1
}

// QuotaStore counts requests per key over fixed windows
type QuotaStore interface {
	Take(ctx context.Context, key string, quota Quota) (QuotaResult, error)
}

// QuotaKey composes the store key for an identity within a scope
func QuotaKey(scope string, id Identity) string {
	return "quota:" + scope + ":" + id.Key()
}

// Decision is the allow/deny answer handed to the transport layer
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Allow is the positive decision
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny refuses with the given wait
func Deny(retryAfter time.Duration) Decision {
	return Decision{Allowed: false, RetryAfter: retryAfter}
}

// RetryAfterSeconds rounds the wait up to whole seconds, never below 1
func (d Decision) RetryAfterSeconds() int {
	secs := int(math.Ceil(d.RetryAfter.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// ResetAt returns the instant the caller may retry
func (d Decision) ResetAt(now time.Time) time.Time {
	return now.Add(time.Duration(d.RetryAfterSeconds()) * time.Second)
}

// Stricter returns whichever of the two decisions denies for longer
func Stricter(a, b Decision) Decision {
	switch {
	case a.Allowed && b.Allowed:
		return Allow()
	case a.Allowed:
		return b
	case b.Allowed:
		return a
	case a.RetryAfter >= b.RetryAfter:
		return a
	default:
		return b
	}
}

// RateLimitedError carries the retry metadata alongside the generic domain error
type RateLimitedError struct {
	Decision Decision
}

// Error returns the generic message
func (e *RateLimitedError) Error() string {
	return ErrTemporarilyBlocked.Message
}

// Unwrap lets errors.Is(err, shared.ErrRateLimited) match
func (e *RateLimitedError) Unwrap() error {
	return ErrTemporarilyBlocked
}

// NewRateLimitedError wraps a deny decision as an error
func NewRateLimitedError(d Decision) *RateLimitedError {
	return &RateLimitedError{Decision: d}
}

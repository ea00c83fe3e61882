package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopcore/backend/internal/domain/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source for the in-memory stores
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestAttemptStore(t *testing.T) (*InMemoryAttemptStore, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	store := NewInMemoryAttemptStore()
	store.now = clock.Now
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryAttemptStore_BlocksAtThreshold(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestAttemptStore(t)
	policy := security.DefaultBlockPolicy()
	key := security.IPIdentity("198.51.100.4").Key()

	for i := 1; i < policy.MaxFailedAttempts; i++ {
		status, err := store.Increment(ctx, key, policy)
		require.NoError(t, err)
		assert.Equal(t, i, status.Attempts)
		assert.False(t, status.Blocked)
	}

	status, err := store.Increment(ctx, key, policy)
	require.NoError(t, err)
	assert.True(t, status.Blocked)
	assert.True(t, status.JustBlocked)
	assert.Equal(t, policy.MaxFailedAttempts, status.Attempts)
	assert.Equal(t, policy.BlockDuration, status.RetryAfter)

	t.Run("blocked key is not counted further", func(t *testing.T) {
		clock.Advance(time.Minute)
		status, err := store.Increment(ctx, key, policy)
		require.NoError(t, err)
		assert.True(t, status.Blocked)
		assert.False(t, status.JustBlocked)
		assert.Equal(t, policy.BlockDuration-time.Minute, status.RetryAfter)
	})

	t.Run("block lifts after its duration", func(t *testing.T) {
		clock.Advance(policy.BlockDuration)
		status, err := store.Check(ctx, key)
		require.NoError(t, err)
		assert.False(t, status.Blocked)
		assert.Zero(t, status.Attempts)

		status, err = store.Increment(ctx, key, policy)
		require.NoError(t, err)
		assert.Equal(t, 1, status.Attempts)
		assert.False(t, status.Blocked)
	})
}

func TestInMemoryAttemptStore_WindowExpiry(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestAttemptStore(t)
	policy := security.DefaultBlockPolicy()

	for i := 0; i < policy.MaxFailedAttempts-1; i++ {
		_, err := store.Increment(ctx, "user:bob", policy)
		require.NoError(t, err)
	}

	clock.Advance(policy.AttemptWindow)

	status, err := store.Check(ctx, "user:bob")
	require.NoError(t, err)
	assert.Zero(t, status.Attempts)

	status, err = store.Increment(ctx, "user:bob", policy)
	require.NoError(t, err)
	assert.Equal(t, 1, status.Attempts)
	assert.False(t, status.Blocked)
}

func TestInMemoryAttemptStore_Reset(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestAttemptStore(t)
	policy := security.BlockPolicy{MaxFailedAttempts: 2, AttemptWindow: time.Minute, BlockDuration: time.Hour}

	_, _ = store.Increment(ctx, "user:eve", policy)
	status, err := store.Increment(ctx, "user:eve", policy)
	require.NoError(t, err)
	require.True(t, status.Blocked)

	require.NoError(t, store.Reset(ctx, "user:eve"))

	status, err = store.Check(ctx, "user:eve")
	require.NoError(t, err)
	assert.False(t, status.Blocked)
	assert.Zero(t, store.Size())
}

func TestInMemoryAttemptStore_ConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestAttemptStore(t)
	policy := security.BlockPolicy{MaxFailedAttempts: 50, AttemptWindow: time.Minute, BlockDuration: time.Minute}

	var wg sync.WaitGroup
	var mu sync.Mutex
	justBlocked := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := store.Increment(ctx, "ip:shared", policy)
			assert.NoError(t, err)
			if status.JustBlocked {
				mu.Lock()
				justBlocked++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, justBlocked, "exactly one increment crosses the threshold")
	status, err := store.Check(ctx, "ip:shared")
	require.NoError(t, err)
	assert.True(t, status.Blocked)
	assert.Equal(t, 50, status.Attempts)
}

func TestInMemoryAttemptStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestAttemptStore(t)
	policy := security.BlockPolicy{MaxFailedAttempts: 1, AttemptWindow: time.Minute, BlockDuration: 10 * time.Minute}

	_, _ = store.Increment(ctx, "user:a", policy)
	_, _ = store.Increment(ctx, "user:b", security.BlockPolicy{MaxFailedAttempts: 5, AttemptWindow: time.Minute, BlockDuration: time.Minute})
	require.Equal(t, 2, store.Size())

	clock.Advance(2 * time.Minute)
	store.cleanup()
	assert.Equal(t, 1, store.Size(), "blocked key survives, expired window is dropped")

	clock.Advance(10 * time.Minute)
	store.cleanup()
	assert.Zero(t, store.Size())
}

func TestInMemoryAttemptStore_Close(t *testing.T) {
	store := NewInMemoryAttemptStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}

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

func TestInMemoryQuotaStore_Take(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewInMemoryQuotaStore()
	store.now = clock.Now
	defer store.Close()

	quota := security.Quota{Scope: "login", Limit: 3, Window: time.Minute}

	for i := 1; i <= 3; i++ {
		res, err := store.Take(ctx, "quota:login:ip:x", quota)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, i, res.Count)
		assert.Equal(t, 3-i, res.Remaining)
		assert.Equal(t, time.Minute, res.ResetAfter)
	}

	clock.Advance(20 * time.Second)
	res, err := store.Take(ctx, "quota:login:ip:x", quota)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.True(t, res.FirstRejection())
	assert.Zero(t, res.Remaining)
	assert.Equal(t, 40*time.Second, res.ResetAfter)

	res, err = store.Take(ctx, "quota:login:ip:x", quota)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.False(t, res.FirstRejection())

	t.Run("other keys are independent", func(t *testing.T) {
		res, err := store.Take(ctx, "quota:login:ip:y", quota)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("a new window starts after reset", func(t *testing.T) {
		clock.Advance(40 * time.Second)
		res, err := store.Take(ctx, "quota:login:ip:x", quota)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1, res.Count)
	})
}

func TestInMemoryQuotaStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryQuotaStore()
	defer store.Close()

	quota := security.Quota{Scope: "user", Limit: 20, Window: time.Minute}

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.Take(ctx, "quota:user:user:1", quota)
			assert.NoError(t, err)
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, allowed)
}

func TestInMemoryQuotaStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewInMemoryQuotaStore()
	store.now = clock.Now
	defer store.Close()

	_, _ = store.Take(ctx, "a", security.Quota{Limit: 1, Window: time.Second})
	_, _ = store.Take(ctx, "b", security.Quota{Limit: 1, Window: time.Hour})

	clock.Advance(time.Minute)
	store.cleanup()
	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := NewInMemoryIdempotencyStore()
	store.now = clock.Now
	defer store.Close()

	isNew, err := store.MarkProcessed(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "evt-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)

	processed, err := store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, processed)

	clock.Advance(time.Hour)
	processed, err = store.IsProcessed(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, processed)

	store.cleanup()
	assert.Zero(t, store.Size())
}

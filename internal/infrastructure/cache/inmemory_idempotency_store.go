package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopcore/backend/internal/domain/shared"
)

// InMemoryIdempotencyStore records handled event IDs in process memory
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	expiresAt map[string]time.Time
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts its cleanup goroutine
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		expiresAt: make(map[string]time.Time),
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// MarkProcessed returns true if the event was newly marked
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, eventID string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expiresAt[eventID]; ok && now.Before(exp) {
		return false, nil
	}
	s.expiresAt[eventID] = now.Add(ttl)
	return true, nil
}

// IsProcessed checks if an event has already been handled
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expiresAt[eventID]
	return ok && s.now().Before(exp), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.expiresAt {
		if !now.Before(exp) {
			delete(s.expiresAt, id)
		}
	}
}

// Size returns the number of remembered events
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expiresAt)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopcore/backend/internal/domain/security"
)

type attemptEntry struct {
	count        int
	windowEnd    time.Time
	blockedUntil time.Time
	// blockedAt is the count that triggered the current block
	blockedAt int
}

func (e *attemptEntry) blocked(now time.Time) bool {
	return now.Before(e.blockedUntil)
}

func (e *attemptEntry) expired(now time.Time) bool {
	return !e.blocked(now) && !now.Before(e.windowEnd)
}

// InMemoryAttemptStore implements security.AttemptStore in process memory.
// Suitable for single-instance deployments and testing.
type InMemoryAttemptStore struct {
	mu        sync.Mutex
	entries   map[string]*attemptEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryAttemptStore creates the store and starts its cleanup goroutine
func NewInMemoryAttemptStore() *InMemoryAttemptStore {
	s := &InMemoryAttemptStore{
		entries:  make(map[string]*attemptEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Increment counts one failure and blocks the key at the threshold
func (s *InMemoryAttemptStore) Increment(_ context.Context, key string, policy security.BlockPolicy) (security.AttemptStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	if ok && e.blocked(now) {
		return security.AttemptStatus{
			Attempts:   e.blockedAt,
			Blocked:    true,
			RetryAfter: e.blockedUntil.Sub(now),
		}, nil
	}
	if !ok || !now.Before(e.windowEnd) {
		e = &attemptEntry{windowEnd: now.Add(policy.AttemptWindow)}
		s.entries[key] = e
	}

	e.count++
	if e.count < policy.MaxFailedAttempts {
		return security.AttemptStatus{Attempts: e.count}, nil
	}

	e.blockedAt = e.count
	e.blockedUntil = now.Add(policy.BlockDuration)
	e.count = 0
	e.windowEnd = time.Time{}

	return security.AttemptStatus{
		Attempts:    e.blockedAt,
		Blocked:     true,
		RetryAfter:  policy.BlockDuration,
		JustBlocked: true,
	}, nil
}

// Check returns the status of key
func (s *InMemoryAttemptStore) Check(_ context.Context, key string) (security.AttemptStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[key]
	switch {
	case !ok:
		return security.AttemptStatus{}, nil
	case e.blocked(now):
		return security.AttemptStatus{
			Attempts:   e.blockedAt,
			Blocked:    true,
			RetryAfter: e.blockedUntil.Sub(now),
		}, nil
	case now.Before(e.windowEnd):
		return security.AttemptStatus{Attempts: e.count}, nil
	default:
		return security.AttemptStatus{}, nil
	}
}

// Reset clears the counter and any block
func (s *InMemoryAttemptStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryAttemptStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryAttemptStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
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

func (s *InMemoryAttemptStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
		}
	}
}

// Size returns the number of tracked keys (for testing/monitoring)
func (s *InMemoryAttemptStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ security.AttemptStore = (*InMemoryAttemptStore)(nil)

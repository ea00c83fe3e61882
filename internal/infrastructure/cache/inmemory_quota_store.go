package cache

import (
	"context"
	"sync"
	"time"

	"github.com/shopcore/backend/internal/domain/security"
)

type quotaWindow struct {
	count   int
	resetAt time.Time
}

// InMemoryQuotaStore implements security.QuotaStore with fixed windows in process memory
type InMemoryQuotaStore struct {
	mu        sync.Mutex
	windows   map[string]*quotaWindow
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryQuotaStore creates the store and starts its cleanup goroutine
func NewInMemoryQuotaStore() *InMemoryQuotaStore {
	s := &InMemoryQuotaStore{
		windows:  make(map[string]*quotaWindow),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	s.wg.Add(1)
	go s.cleanupLoop()

	return s
}

// Take counts one request against the quota window of key
func (s *InMemoryQuotaStore) Take(_ context.Context, key string, quota security.Quota) (security.QuotaResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &quotaWindow{resetAt: now.Add(quota.Window)}
		s.windows[key] = w
	}
	w.count++

	return quotaResult(quota, w.count, w.resetAt.Sub(now)), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryQuotaStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryQuotaStore) cleanupLoop() {
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

func (s *InMemoryQuotaStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
		}
	}
}

// Size returns the number of open windows (for testing/monitoring)
func (s *InMemoryQuotaStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

var _ security.QuotaStore = (*InMemoryQuotaStore)(nil)

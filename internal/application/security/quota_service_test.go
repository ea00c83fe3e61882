package security

import (
	"context"
	"testing"
	"time"

	"github.com/shopcore/backend/internal/domain/audit"
	"github.com/shopcore/backend/internal/domain/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockQuotaStore struct {
	mock.Mock
}

func (m *MockQuotaStore) Take(ctx context.Context, key string, quota security.Quota) (security.QuotaResult, error) {
	args := m.Called(ctx, key, quota)
	return args.Get(0).(security.QuotaResult), args.Error(1)
}

func TestNewQuotaService_Validation(t *testing.T) {
	_, err := NewQuotaService(new(MockQuotaStore), security.Quota{Scope: "login", Limit: 0, Window: time.Minute})
	assert.Error(t, err)

	_, err = NewQuotaService(new(MockQuotaStore), security.Quota{Limit: 1, Window: time.Minute})
	assert.Error(t, err)
}

func TestQuotaService_Take(t *testing.T) {
	ctx := context.Background()
	login := security.Quota{Scope: ScopeLogin, Limit: 5, Window: time.Minute}
	ip := security.IPIdentity("203.0.113.1")
	key := security.QuotaKey(ScopeLogin, ip)

	t.Run("allowed", func(t *testing.T) {
		store := new(MockQuotaStore)
		svc, err := NewQuotaService(store, login)
		require.NoError(t, err)
		store.On("Take", ctx, key, login).Return(security.QuotaResult{Allowed: true, Limit: 5, Count: 1, Remaining: 4}, nil)

		decision, result, err := svc.Take(ctx, ScopeLogin, ip)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		assert.Equal(t, 4, result.Remaining)
	})

	t.Run("every rejection is audited", func(t *testing.T) {
		store := new(MockQuotaStore)
		svc, err := NewQuotaService(store, login)
		require.NoError(t, err)
		rec := &recordingAudit{}
		m := newCountingMetrics()
		svc.SetAuditRecorder(rec)
		svc.SetMetrics(m)

		store.On("Take", ctx, key, login).
			Return(security.QuotaResult{Allowed: false, Limit: 5, Count: 6, ResetAfter: 42 * time.Second}, nil).Once()
		store.On("Take", ctx, key, login).
			Return(security.QuotaResult{Allowed: false, Limit: 5, Count: 7, ResetAfter: 41 * time.Second}, nil).Once()

		decision, _, err := svc.Take(ctx, ScopeLogin, ip)
		require.NoError(t, err)
		assert.False(t, decision.Allowed)
		assert.Equal(t, 42, decision.RetryAfterSeconds())

		_, _, err = svc.Take(ctx, ScopeLogin, ip)
		require.NoError(t, err)

		require.Len(t, rec.records, 2)
		for i, r := range rec.records {
			assert.Equal(t, audit.ActionRateLimitExceeded, r.Action)
			assert.Equal(t, audit.OutcomeDenied, r.Outcome)
			assert.Equal(t, 6+i, r.NewData["count"])
		}
		assert.Equal(t, 2, m.rateLimited[ScopeLogin])
	})

	t.Run("unknown scope is allowed", func(t *testing.T) {
		store := new(MockQuotaStore)
		svc, err := NewQuotaService(store, login)
		require.NoError(t, err)

		decision, _, err := svc.Take(ctx, "reports", ip)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
		store.AssertNotCalled(t, "Take", mock.Anything, mock.Anything, mock.Anything)
	})
}

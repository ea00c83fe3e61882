package security

import (
	"context"
	"fmt"

	"github.com/shopcore/backend/internal/domain/audit"
	"github.com/shopcore/backend/internal/domain/security"
	"github.com/shopcore/backend/internal/infrastructure/config"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Quota scopes used by the HTTP layer
const (
	ScopeAnonymous    = config.QuotaScopeAnon
	ScopeUser         = config.QuotaScopeUser
	ScopeLogin        = config.QuotaScopeLogin
	ScopeRefresh      = config.QuotaScopeRefresh
	ScopeOrderCreate  = config.QuotaScopeOrderCreate
	ScopeOrderConfirm = config.QuotaScopeOrderConfirm
)

// QuotaService enforces per-scope request budgets
type QuotaService struct {
	store   security.QuotaStore
	quotas  map[string]security.Quota
	audit   AuditRecorder
	metrics Metrics
}

// NewQuotaService creates a new QuotaService for the given quotas
func NewQuotaService(store security.QuotaStore, quotas ...security.Quota) (*QuotaService, error) {
	byScope := make(map[string]security.Quota, len(quotas))
	for _, q := range quotas {
		if q.Scope == "" {
			return nil, fmt.Errorf("quota scope cannot be empty")
		}
		if q.Limit < 1 || q.Window <= 0 {
			return nil, fmt.Errorf("quota %s: limit and window must be positive", q.Scope)
		}
		byScope[q.Scope] = q
	}
	return &QuotaService{store: store, quotas: byScope}, nil
}

// SetAuditRecorder sets the recorder for exceeded quotas
func (s *QuotaService) SetAuditRecorder(recorder AuditRecorder) {
	s.audit = recorder
}

// SetMetrics sets the metrics sink
func (s *QuotaService) SetMetrics(m Metrics) {
	s.metrics = m
}

// Quota returns the configured quota for scope
func (s *QuotaService) Quota(scope string) (security.Quota, bool) {
	q, ok := s.quotas[scope]
	return q, ok
}

// Take consumes one request of scope for id. Scopes without a quota are always allowed.
func (s *QuotaService) Take(ctx context.Context, scope string, id security.Identity) (security.Decision, security.QuotaResult, error) {
	quota, ok := s.quotas[scope]
	if !ok || id.IsZero() {
		return security.Allow(), security.QuotaResult{Allowed: true}, nil
	}

	result, err := s.store.Take(ctx, security.QuotaKey(scope, id), quota)
	if err != nil {
		return security.Decision{}, security.QuotaResult{}, fmt.Errorf("take quota %s: %w", scope, err)
	}
	if result.Allowed {
		return security.Allow(), result, nil
	}

	if s.metrics != nil {
		s.metrics.RecordRateLimited(ctx, scope)
	}

	// Logged once per identity and window; every rejection is audited
	if result.FirstRejection() {
		logger.L(ctx).Warn("rate limit exceeded",
			zap.String("scope", scope),
			zap.String("identity", id.Key()),
			zap.Int("limit", quota.Limit),
		)
	}
	if s.audit != nil {
		s.audit.Record(ctx,
			audit.NewRecord(audit.EntitySecurity, audit.ActionRateLimitExceeded, audit.OutcomeDenied,
				fmt.Sprintf("Rate limit exceeded for scope %s", scope)).
				WithIdentity(id.Key()).
				WithData(nil, map[string]any{
					"scope":          scope,
					"limit":          quota.Limit,
					"count":          result.Count,
					"window_seconds": int(quota.Window.Seconds()),
				}),
		)
	}

	return security.Deny(result.ResetAfter), result, nil
}

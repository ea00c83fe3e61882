package security

import (
	"context"
	"fmt"

	"github.com/shopcore/backend/internal/domain/audit"
	"github.com/shopcore/backend/internal/domain/security"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditRecorder writes audit records. Implementations never fail the caller.
type AuditRecorder interface {
	Record(ctx context.Context, record *audit.Record)
}

// Metrics receives anti-abuse counters
type Metrics interface {
	RecordBlock(ctx context.Context, kind security.IdentityKind)
	RecordRateLimited(ctx context.Context, scope string)
}

// BlockService counts failed authentication attempts per identity and
// temporarily blocks identities that fail too often.
type BlockService struct {
	store   security.AttemptStore
	policy  security.BlockPolicy
	audit   AuditRecorder
	metrics Metrics
}

// NewBlockService creates a new BlockService
func NewBlockService(store security.AttemptStore, policy security.BlockPolicy) (*BlockService, error) {
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid block policy: %w", err)
	}
	return &BlockService{store: store, policy: policy}, nil
}

// SetAuditRecorder sets the recorder for block and unblock events
func (s *BlockService) SetAuditRecorder(recorder AuditRecorder) {
	s.audit = recorder
}

// SetMetrics sets the metrics sink
func (s *BlockService) SetMetrics(m Metrics) {
	s.metrics = m
}

// Policy returns the active policy
func (s *BlockService) Policy() security.BlockPolicy {
	return s.policy
}

// RecordAttempt records the outcome of an authentication attempt. A failure
// is counted against the identity; a success clears its counter and any block.
func (s *BlockService) RecordAttempt(ctx context.Context, id security.Identity, success bool) error {
	if id.IsZero() {
		return nil
	}

	if success {
		if err := s.store.Reset(ctx, id.Key()); err != nil {
			return fmt.Errorf("reset attempts for %s: %w", id, err)
		}
		return nil
	}

	status, err := s.store.Increment(ctx, id.Key(), s.policy)
	if err != nil {
		return fmt.Errorf("count failed attempt for %s: %w", id, err)
	}

	if status.JustBlocked {
		s.blocked(ctx, id)
	}
	return nil
}

// Check returns the decision for a set of identities; the longest block wins
func (s *BlockService) Check(ctx context.Context, ids ...security.Identity) (security.Decision, error) {
	decision := security.Allow()
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		status, err := s.store.Check(ctx, id.Key())
		if err != nil {
			return security.Decision{}, fmt.Errorf("check %s: %w", id, err)
		}
		if status.Blocked {
			decision = security.Stricter(decision, security.Deny(status.RetryAfter))
		}
	}
	return decision, nil
}

// Guard returns a *security.RateLimitedError when any identity is blocked
func (s *BlockService) Guard(ctx context.Context, ids ...security.Identity) error {
	decision, err := s.Check(ctx, ids...)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return security.NewRateLimitedError(decision)
	}
	return nil
}

// Status reports the counter and block state of one identity
func (s *BlockService) Status(ctx context.Context, id security.Identity) (*StatusResponse, error) {
	status, err := s.store.Check(ctx, id.Key())
	if err != nil {
		return nil, err
	}

	resp := &StatusResponse{
		Kind:     string(id.Kind),
		Blocked:  status.Blocked,
		Attempts: status.Attempts,
	}
	if status.Blocked {
		resp.RetryAfterSeconds = security.Deny(status.RetryAfter).RetryAfterSeconds()
	}
	return resp, nil
}

// Unblock lifts a block and clears the counter of one identity
func (s *BlockService) Unblock(ctx context.Context, id security.Identity) error {
	if err := s.store.Reset(ctx, id.Key()); err != nil {
		return fmt.Errorf("unblock %s: %w", id, err)
	}

	logger.L(ctx).Info("identity unblocked", zap.String("identity", id.Key()))

	if s.audit != nil {
		s.audit.Record(ctx,
			audit.NewRecord(audit.EntitySecurity, audit.ActionUnblock, audit.OutcomeSuccess,
				fmt.Sprintf("Manual unblock of %s identity", id.Kind)).
				WithIdentity(id.Key()),
		)
	}
	return nil
}

func (s *BlockService) blocked(ctx context.Context, id security.Identity) {
	logger.L(ctx).Warn("identity temporarily blocked",
		zap.String("identity", id.Key()),
		zap.Int("max_attempts", s.policy.MaxFailedAttempts),
		zap.Duration("block_duration", s.policy.BlockDuration),
	)

	if s.metrics != nil {
		s.metrics.RecordBlock(ctx, id.Kind)
	}

	if s.audit != nil {
		s.audit.Record(ctx,
			audit.NewRecord(audit.EntitySecurity, audit.ActionTemporaryBlock, audit.OutcomeBlocked,
				fmt.Sprintf("Temporary block after %d failed attempts", s.policy.MaxFailedAttempts)).
				WithIdentity(id.Key()).
				WithData(nil, map[string]any{
					"kind":           string(id.Kind),
					"block_seconds":  int(s.policy.BlockDuration.Seconds()),
					"window_seconds": int(s.policy.AttemptWindow.Seconds()),
				}),
		)
	}
}

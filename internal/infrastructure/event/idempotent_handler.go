package event

import (
	"context"
	"sync/atomic"

	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// IdempotencyStats is a snapshot of an IdempotentHandler's counters
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotentHandler wraps an EventHandler so each event ID is handled once
// within the configured TTL, even if it is published again.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger

	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// IdempotentHandlerOption is a functional option for IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig sets the idempotency configuration
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// NewIdempotentHandler creates a new idempotent handler wrapper
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	log *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  log,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// EventTypes returns the event types of the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle processes the event unless its ID was already marked
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled || h.store == nil {
		return h.handler.Handle(ctx, event)
	}

	log := logger.WithLogger(ctx, h.logger).With(
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	)

	isNew, err := h.store.MarkProcessed(ctx, event.EventID().String(), h.config.TTL)
	if err != nil {
		// A duplicate audit entry is preferable to a missing one
		log.Warn("failed to check idempotency, processing anyway", zap.Error(err))
	} else if !isNew {
		h.duplicate.Add(1)
		log.Debug("duplicate event detected, skipping")
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.failed.Add(1)
		// The key stays marked; the event is not retried before the TTL expires
		return err
	}

	h.processed.Add(1)
	return nil
}

// Stats returns a snapshot of the handler's counters
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: h.processed.Load(),
		EventsDuplicate: h.duplicate.Load(),
		EventsFailed:    h.failed.Load(),
	}
}

// Ensure IdempotentHandler implements EventHandler
var _ shared.EventHandler = (*IdempotentHandler)(nil)

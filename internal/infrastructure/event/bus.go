package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopcore/backend/internal/domain/shared"
	"github.com/shopcore/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ErrBusStopped is returned by Publish once Stop has been called on an async bus
var ErrBusStopped = errors.New("event bus stopped")

// InMemoryEventBus implements EventBus with in-memory pub/sub.
//
// By default handlers run synchronously in the publisher's goroutine. With
// WithAsyncDispatch events are queued and handled by a fixed set of workers;
// Stop drains the queue before returning.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
	wg       sync.WaitGroup

	workers int
	queue   chan dispatch
	mu      sync.RWMutex
}

type dispatch struct {
	ctx   context.Context
	event shared.DomainEvent
}

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithAsyncDispatch hands events to workers goroutines through a queue of the given size
func WithAsyncDispatch(workers, queueSize int) BusOption {
	return func(b *InMemoryEventBus) {
		if workers < 1 {
			workers = 1
		}
		if queueSize < 0 {
			queueSize = 0
		}
		b.workers = workers
		b.queue = make(chan dispatch, queueSize)
	}
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(log *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if log == nil {
		log = zap.NewNop()
	}
	b := &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   log.Named("event_bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers events to every registered handler. Handler failures are
// logged and never returned, so a failing subscriber cannot undo a committed change.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.queue == nil {
		for _, event := range events {
			b.deliver(ctx, event)
		}
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.running.Load() {
		return ErrBusStopped
	}

	// Handlers outlive the request that published the event
	detached := context.WithoutCancel(ctx)
	for _, event := range events {
		select {
		case b.queue <- dispatch{ctx: detached, event: event}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Subscribe registers a handler for specific event types
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	// If handler specifies its own event types, use those
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.Strings("event_types", eventTypes),
	)
}

// Unsubscribe removes a handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start starts the dispatch workers of an async bus
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running.Swap(true) {
		return nil
	}

	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.work()
	}

	b.logger.Info("event bus started", zap.Int("workers", b.workers))
	return nil
}

// Stop stops accepting events and waits for queued ones to be handled
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.running.Swap(false) {
		b.mu.Unlock()
		return nil
	}
	if b.queue != nil {
		close(b.queue)
	}
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

func (b *InMemoryEventBus) work() {
	defer b.wg.Done()
	for d := range b.queue {
		b.deliver(d.ctx, d.event)
	}
}

func (b *InMemoryEventBus) deliver(ctx context.Context, event shared.DomainEvent) {
	for _, handler := range b.registry.GetHandlers(event.EventType()) {
		if err := b.dispatchToHandler(ctx, handler, event); err != nil {
			logger.WithLogger(ctx, b.logger).Error("handler failed to process event",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID().String()),
				zap.Error(err),
			)
		}
	}
}

// dispatchToHandler dispatches an event to a handler, turning a panic into an error
func (b *InMemoryEventBus) dispatchToHandler(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler.Handle(ctx, event)
}

// Ensure InMemoryEventBus implements EventBus
var _ shared.EventBus = (*InMemoryEventBus)(nil)

package event

import (
	"slices"
	"sync"

	"github.com/shopcore/backend/internal/domain/shared"
)

// allEvents keys handlers subscribed without event types
const allEvents = "*"

// HandlerRegistry maps event types to handlers. Safe for concurrent use.
type HandlerRegistry struct {
	mu     sync.RWMutex
	byType map[string][]shared.EventHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{byType: make(map[string][]shared.EventHandler)}
}

// Register subscribes handler to eventTypes, or to every event when none are
// given. Registering twice is a no-op.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = []string{allEvents}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range eventTypes {
		if !slices.Contains(r.byType[t], handler) {
			r.byType[t] = append(r.byType[t], handler)
		}
	}
}

// Unregister drops handler from every event type
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for t, handlers := range r.byType {
		handlers = slices.DeleteFunc(handlers, func(h shared.EventHandler) bool { return h == handler })
		if len(handlers) == 0 {
			delete(r.byType, t)
			continue
		}
		r.byType[t] = handlers
	}
}

// GetHandlers returns the handlers for eventType, then the catch-all
// handlers, each handler once
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := slices.Clone(r.byType[eventType])
	for _, h := range r.byType[allEvents] {
		if !slices.Contains(out, h) {
			out = append(out, h)
		}
	}
	return out
}

// Len counts distinct registered handlers
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[shared.EventHandler]struct{})
	for _, handlers := range r.byType {
		for _, h := range handlers {
			seen[h] = struct{}{}
		}
	}
	return len(seen)
}

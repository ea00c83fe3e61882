package shared

import "context"

// EventHandler reacts to domain events once the publishing transaction has committed
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the events the handler wants. Nil means all of them.
	EventTypes() []string
}

// EventPublisher is the port the order services publish through
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus dispatches published events to the handlers subscribed to them
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

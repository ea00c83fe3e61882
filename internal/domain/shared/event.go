package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is something that happened to an aggregate. Events are raised
// inside the aggregate and published only after the transaction commits.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// BaseDomainEvent carries the envelope every event embeds
type BaseDomainEvent struct {
	id            uuid.UUID
	eventType     string
	occurredAt    time.Time
	aggregateID   uuid.UUID
	aggregateType string
}

// NewBaseDomainEvent stamps a new event for the given aggregate
func NewBaseDomainEvent(eventType, aggregateType string, aggregateID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		id:            uuid.New(),
		eventType:     eventType,
		occurredAt:    time.Now().UTC(),
		aggregateID:   aggregateID,
		aggregateType: aggregateType,
	}
}

func (e BaseDomainEvent) EventID() uuid.UUID     { return e.id }
func (e BaseDomainEvent) EventType() string      { return e.eventType }
func (e BaseDomainEvent) OccurredAt() time.Time  { return e.occurredAt }
func (e BaseDomainEvent) AggregateID() uuid.UUID { return e.aggregateID }
func (e BaseDomainEvent) AggregateType() string  { return e.aggregateType }

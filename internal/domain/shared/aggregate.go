package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity holds the identity and timestamps of a persisted entity
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity returns an entity with a fresh id, created now
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch bumps UpdatedAt to now
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// BaseAggregateRoot is embedded by Order and Product. Version is bumped by
// every state change; events recorded by a mutation stay pending until the
// application layer pulls them after its transaction commits.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRoot returns a version 1 aggregate with no pending events
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// IncrementVersion records a state change
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent queues event for publication
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the pending events without clearing them
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the pending events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}

// PullDomainEvents returns the pending events and clears them
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}

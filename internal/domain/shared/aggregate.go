package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries identity and audit timestamps. Properties, tenants and
// transactions embed it through BaseAggregateRoot.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Touch stamps UpdatedAt with the current time
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// EventSource is anything that buffers domain events until a caller publishes them
type EventSource interface {
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot is embedded by every aggregate that is persisted as one
// document. Version backs the compare-and-set in the repositories' SaveWithLock.
type BaseAggregateRoot struct {
	BaseEntity
	Version int

	pending []DomainEvent
}

// GetVersion returns the version the aggregate was loaded at
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// AddDomainEvent buffers an event; nothing is published until the owning
// service has persisted the aggregate.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the buffered events in the order they were raised
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the buffered events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}

// NewBaseAggregateRoot returns a root with a fresh ID at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	now := time.Now()
	return BaseAggregateRoot{
		BaseEntity: BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Version:    1,
	}
}

var _ EventSource = (*BaseAggregateRoot)(nil)

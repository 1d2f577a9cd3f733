package shared

import "context"

// EventHandler reacts to domain events after the aggregate that raised them was saved
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types to deliver; empty means every type
	EventTypes() []string
}

// EventPublisher is what application services publish through. Publishing
// never fails the operation that raised the events.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is the in-process dispatcher used by cmd/server
type EventBus interface {
	EventPublisher
	// Subscribe registers handler for eventTypes, or for handler.EventTypes() when none are given
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

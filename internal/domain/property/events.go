package property

import (
	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeProperty = "Property"

// Event type constants
const (
	EventTypePropertyCreated = "PropertyCreated"
	EventTypeBedOccupied     = "BedOccupied"
	EventTypeBedReleased     = "BedReleased"
	EventTypeBedNoticeMarked = "BedNoticeMarked"
	EventTypeBedBlockChanged = "BedBlockChanged"
)

// PropertyCreatedEvent is raised when a property is registered
type PropertyCreatedEvent struct {
	shared.BaseDomainEvent
	Name      string `json:"name"`
	TotalBeds int    `json:"total_beds"`
}

// NewPropertyCreatedEvent creates a new PropertyCreatedEvent
func NewPropertyCreatedEvent(p *Property) *PropertyCreatedEvent {
	return &PropertyCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePropertyCreated, AggregateTypeProperty, p.ID),
		Name:            p.Name,
		TotalBeds:       p.Stats().Total,
	}
}

// BedOccupiedEvent is raised when a bed is assigned to a tenant
type BedOccupiedEvent struct {
	shared.BaseDomainEvent
	Location BedLocation `json:"location"`
	TenantID uuid.UUID   `json:"tenant_id"`
}

// NewBedOccupiedEvent creates a new BedOccupiedEvent
func NewBedOccupiedEvent(p *Property, loc BedLocation, tenantID uuid.UUID) *BedOccupiedEvent {
	return &BedOccupiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBedOccupied, AggregateTypeProperty, p.ID),
		Location:        loc,
		TenantID:        tenantID,
	}
}

// BedReleasedEvent is raised when a bed returns to Available
type BedReleasedEvent struct {
	shared.BaseDomainEvent
	Location         BedLocation `json:"location"`
	PreviousTenantID *uuid.UUID  `json:"previous_tenant_id,omitempty"`
}

// NewBedReleasedEvent creates a new BedReleasedEvent
func NewBedReleasedEvent(p *Property, loc BedLocation, previous *uuid.UUID) *BedReleasedEvent {
	return &BedReleasedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeBedReleased, AggregateTypeProperty, p.ID),
		Location:         loc,
		PreviousTenantID: previous,
	}
}

// BedNoticeMarkedEvent is raised when the occupant of a bed gives notice
type BedNoticeMarkedEvent struct {
	shared.BaseDomainEvent
	Location BedLocation `json:"location"`
	TenantID uuid.UUID   `json:"tenant_id"`
}

// NewBedNoticeMarkedEvent creates a new BedNoticeMarkedEvent
func NewBedNoticeMarkedEvent(p *Property, loc BedLocation, tenantID uuid.UUID) *BedNoticeMarkedEvent {
	return &BedNoticeMarkedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBedNoticeMarked, AggregateTypeProperty, p.ID),
		Location:        loc,
		TenantID:        tenantID,
	}
}

// BedBlockChangedEvent is raised when an administrator blocks or unblocks a bed
type BedBlockChangedEvent struct {
	shared.BaseDomainEvent
	Location BedLocation `json:"location"`
	Blocked  bool        `json:"blocked"`
}

// NewBedBlockChangedEvent creates a new BedBlockChangedEvent
func NewBedBlockChangedEvent(p *Property, loc BedLocation, blocked bool) *BedBlockChangedEvent {
	return &BedBlockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBedBlockChanged, AggregateTypeProperty, p.ID),
		Location:        loc,
		Blocked:         blocked,
	}
}

package tenant

import (
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeTenant = "Tenant"

// Event type constants
const (
	EventTypeTenantMovedIn     = "TenantMovedIn"
	EventTypeTenantGaveNotice  = "TenantGaveNotice"
	EventTypeTenantMovedOut    = "TenantMovedOut"
	EventTypeTenantTransferred = "TenantTransferred"
	EventTypePaymentRecorded   = "PaymentRecorded"
)

// TenantMovedInEvent is raised when a tenant is created on a bed
type TenantMovedInEvent struct {
	shared.BaseDomainEvent
	PropertyID      uuid.UUID            `json:"property_id"`
	Location        property.BedLocation `json:"location"`
	JoinDate        time.Time            `json:"join_date"`
	RentAmount      decimal.Decimal      `json:"rent_amount"`
	SecurityDeposit decimal.Decimal      `json:"security_deposit"`
	TenantName      string               `json:"tenant_name"`
}

// NewTenantMovedInEvent creates a new TenantMovedInEvent
func NewTenantMovedInEvent(t *Tenant) *TenantMovedInEvent {
	return &TenantMovedInEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantMovedIn, AggregateTypeTenant, t.ID),
		PropertyID:      t.Stay.PropertyID,
		Location:        t.Stay.Location(),
		JoinDate:        t.Stay.JoinDate,
		RentAmount:      t.Stay.RentAmount,
		SecurityDeposit: t.Stay.SecurityDeposit,
		TenantName:      t.Personal.Name,
	}
}

// TenantGaveNoticeEvent is raised when an Active tenant gives notice
type TenantGaveNoticeEvent struct {
	shared.BaseDomainEvent
	PropertyID uuid.UUID `json:"property_id"`
	NoticeDate time.Time `json:"notice_date"`
}

// NewTenantGaveNoticeEvent creates a new TenantGaveNoticeEvent
func NewTenantGaveNoticeEvent(t *Tenant) *TenantGaveNoticeEvent {
	return &TenantGaveNoticeEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantGaveNotice, AggregateTypeTenant, t.ID),
		PropertyID:      t.Stay.PropertyID,
		NoticeDate:      *t.Stay.NoticeDate,
	}
}

// TenantMovedOutEvent is raised when a stay becomes Vacated.
// BedReleased is false when the referenced bed could not be found.
type TenantMovedOutEvent struct {
	shared.BaseDomainEvent
	PropertyID  uuid.UUID            `json:"property_id"`
	Location    property.BedLocation `json:"location"`
	BedReleased bool                 `json:"bed_released"`
}

// NewTenantMovedOutEvent creates a new TenantMovedOutEvent
func NewTenantMovedOutEvent(t *Tenant, bedReleased bool) *TenantMovedOutEvent {
	return &TenantMovedOutEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantMovedOut, AggregateTypeTenant, t.ID),
		PropertyID:      t.Stay.PropertyID,
		Location:        t.Stay.Location(),
		BedReleased:     bedReleased,
	}
}

// TenantTransferredEvent is raised when a tenant is re-assigned to another bed
type TenantTransferredEvent struct {
	shared.BaseDomainEvent
	FromPropertyID uuid.UUID            `json:"from_property_id"`
	From           property.BedLocation `json:"from"`
	ToPropertyID   uuid.UUID            `json:"to_property_id"`
	To             property.BedLocation `json:"to"`
}

// NewTenantTransferredEvent creates a new TenantTransferredEvent
func NewTenantTransferredEvent(t *Tenant, fromProperty uuid.UUID, from property.BedLocation) *TenantTransferredEvent {
	return &TenantTransferredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTenantTransferred, AggregateTypeTenant, t.ID),
		FromPropertyID:  fromProperty,
		From:            from,
		ToPropertyID:    t.Stay.PropertyID,
		To:              t.Stay.Location(),
	}
}

// PaymentRecordedEvent is raised when an entry is appended to the payment ledger
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PropertyID uuid.UUID    `json:"property_id"`
	TenantName string       `json:"tenant_name"`
	Entry      PaymentEntry `json:"entry"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(t *Tenant, entry PaymentEntry) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypeTenant, t.ID),
		PropertyID:      t.Stay.PropertyID,
		TenantName:      t.Personal.Name,
		Entry:           entry,
	}
}

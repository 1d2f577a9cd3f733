package tenant

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StayStatus is the lifecycle state of a tenant's stay
type StayStatus string

const (
	StayStatusActive   StayStatus = "Active"
	StayStatusOnNotice StayStatus = "On Notice"
	StayStatusVacated  StayStatus = "Vacated"
)

// IsValid checks if the stay status is valid
func (s StayStatus) IsValid() bool {
	switch s {
	case StayStatusActive, StayStatusOnNotice, StayStatusVacated:
		return true
	}
	return false
}

// Gender of a tenant
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

var mobilePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

// PersonalDetails holds the identity and contact fields of a tenant
type PersonalDetails struct {
	Name        string
	Mobile      string
	Email       string
	Gender      Gender
	DateOfBirth *time.Time
	PhotoURL    string
}

func (d *PersonalDetails) normalize() error {
	d.Name = strings.TrimSpace(d.Name)
	d.Mobile = strings.TrimSpace(d.Mobile)
	d.Email = strings.TrimSpace(d.Email)
	d.PhotoURL = strings.TrimSpace(d.PhotoURL)

	if d.Name == "" {
		return shared.NewDomainError(shared.CodeValidation, "Tenant name cannot be empty")
	}
	if len(d.Name) > 200 {
		return shared.NewDomainError(shared.CodeValidation, "Tenant name cannot exceed 200 characters")
	}
	if !mobilePattern.MatchString(d.Mobile) {
		return shared.NewDomainError(shared.CodeValidation, "Mobile number must contain 10 to 15 digits")
	}
	if d.Email != "" {
		if _, err := mail.ParseAddress(d.Email); err != nil {
			return shared.NewDomainError(shared.CodeValidation, "Invalid email address")
		}
	}
	switch d.Gender {
	case "", GenderMale, GenderFemale, GenderOther:
	default:
		return shared.NewDomainError(shared.CodeValidation, "Invalid gender: "+string(d.Gender))
	}
	return nil
}

// Stay is the tenant's occupancy record.
// PropertyID and the bed identifiers are weak references resolved through the property repository.
type Stay struct {
	PropertyID      uuid.UUID
	FloorName       string
	RoomNumber      string
	BedID           string
	JoinDate        time.Time
	RentAmount      decimal.Decimal
	SecurityDeposit decimal.Decimal
	Status          StayStatus
	NoticeDate      *time.Time
	VacatedAt       *time.Time
}

// Location returns the bed identifiers the stay refers to
func (s Stay) Location() property.BedLocation {
	return property.BedLocation{FloorName: s.FloorName, RoomNumber: s.RoomNumber, BedID: s.BedID}
}

// IsLive reports whether the tenant still holds a bed
func (s Stay) IsLive() bool {
	return s.Status == StayStatusActive || s.Status == StayStatusOnNotice
}

// Tenant is the aggregate root for a resident, their stay and their payment history
type Tenant struct {
	shared.BaseAggregateRoot
	Personal      PersonalDetails
	Stay          Stay
	Payments      PaymentLedger
	AppDownloaded bool
}

// NewTenant creates an Active tenant assigned to the given bed.
func NewTenant(personal PersonalDetails, propertyID uuid.UUID, loc property.BedLocation,
	joinDate time.Time, rent, deposit decimal.Decimal) (*Tenant, error) {
	if err := personal.normalize(); err != nil {
		return nil, err
	}
	if propertyID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeValidation, "Property ID cannot be empty")
	}
	if loc.FloorName == "" || loc.RoomNumber == "" || loc.BedID == "" {
		return nil, shared.NewDomainError(shared.CodeValidation, "Floor, room and bed are required")
	}
	if joinDate.IsZero() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Join date is required")
	}
	if !rent.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Rent amount must be positive")
	}
	if deposit.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Security deposit cannot be negative")
	}

	t := &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Personal:          personal,
		Stay: Stay{
			PropertyID:      propertyID,
			FloorName:       loc.FloorName,
			RoomNumber:      loc.RoomNumber,
			BedID:           loc.BedID,
			JoinDate:        joinDate,
			RentAmount:      rent,
			SecurityDeposit: deposit,
			Status:          StayStatusActive,
		},
		Payments: PaymentLedger{},
	}
	t.AddDomainEvent(NewTenantMovedInEvent(t))
	return t, nil
}

// GiveNotice moves an Active stay to On Notice
func (t *Tenant) GiveNotice(noticeDate time.Time) error {
	if t.Stay.Status != StayStatusActive {
		return shared.NewDomainError(shared.CodeConflict,
			fmt.Sprintf("Tenant is %s and cannot give notice", t.Stay.Status))
	}
	if noticeDate.IsZero() {
		noticeDate = time.Now()
	}
	t.Stay.Status = StayStatusOnNotice
	t.Stay.NoticeDate = &noticeDate
	t.touch()

	t.AddDomainEvent(NewTenantGaveNoticeEvent(t))
	return nil
}

// Vacate ends the stay. Nothing leaves Vacated.
func (t *Tenant) Vacate(at time.Time, bedReleased bool) error {
	if !t.Stay.IsLive() {
		return shared.NewDomainError(shared.CodeConflict, "Tenant has already vacated")
	}
	t.Stay.Status = StayStatusVacated
	t.Stay.VacatedAt = &at
	t.touch()

	t.AddDomainEvent(NewTenantMovedOutEvent(t, bedReleased))
	return nil
}

// Relocate points an Active stay at a different bed.
func (t *Tenant) Relocate(propertyID uuid.UUID, loc property.BedLocation) error {
	if t.Stay.Status != StayStatusActive {
		return shared.NewDomainError(shared.CodeConflict,
			fmt.Sprintf("Tenant is %s and cannot be transferred", t.Stay.Status))
	}
	from := t.Stay.Location()
	fromProperty := t.Stay.PropertyID

	t.Stay.PropertyID = propertyID
	t.Stay.FloorName = loc.FloorName
	t.Stay.RoomNumber = loc.RoomNumber
	t.Stay.BedID = loc.BedID
	t.touch()

	t.AddDomainEvent(NewTenantTransferredEvent(t, fromProperty, from))
	return nil
}

// RecordPayment appends to the payment ledger. It never changes the stay.
func (t *Tenant) RecordPayment(entry PaymentEntry) (PaymentEntry, error) {
	recorded, err := t.Payments.Append(entry)
	if err != nil {
		return PaymentEntry{}, err
	}
	t.touch()

	t.AddDomainEvent(NewPaymentRecordedEvent(t, recorded))
	return recorded, nil
}

// UpdatePersonalDetails replaces the personal details
func (t *Tenant) UpdatePersonalDetails(personal PersonalDetails) error {
	if err := personal.normalize(); err != nil {
		return err
	}
	t.Personal = personal
	t.touch()
	return nil
}

// SetPhoto replaces the photo reference and returns the one it replaced.
// An empty ref removes the photo.
func (t *Tenant) SetPhoto(ref string) string {
	previous := t.Personal.PhotoURL
	t.Personal.PhotoURL = strings.TrimSpace(ref)
	t.touch()
	return previous
}

// SetAppDownloaded records whether the tenant installed the companion app
func (t *Tenant) SetAppDownloaded(downloaded bool) {
	t.AppDownloaded = downloaded
	t.touch()
}

func (t *Tenant) touch() {
	t.Touch()
}

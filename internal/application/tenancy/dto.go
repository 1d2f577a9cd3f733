package tenancy

import (
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/shopspring/decimal"
)

// MoveInCommand carries a tenant draft and the bed it should claim
type MoveInCommand struct {
	Personal        tenant.PersonalDetails
	PropertyID      uuid.UUID
	Location        property.BedLocation
	JoinDate        time.Time
	RentAmount      decimal.Decimal
	SecurityDeposit decimal.Decimal
	AppDownloaded   bool
}

// PaymentCommand describes a payment to append. A zero Date means now.
type PaymentCommand struct {
	Amount  decimal.Decimal
	Date    time.Time
	Mode    tenant.PaymentMode
	Status  tenant.PaymentStatus
	Remarks string
}

// TransferCommand names the bed a tenant should move to
type TransferCommand struct {
	PropertyID uuid.UUID
	Location   property.BedLocation
}

// MoveOutResult reports the vacated tenant and whether its bed was actually released.
// Warning is set when the referenced bed could not be released.
type MoveOutResult struct {
	Tenant      *tenant.Tenant
	BedReleased bool
	Warning     string
}

// Inconsistency kinds reported by CheckConsistency
const (
	InconsistencyBedStatus         = "bed_status_mismatch"
	InconsistencyOrphanedBed       = "bed_references_missing_tenant"
	InconsistencyVacatedHoldsBed   = "bed_references_vacated_tenant"
	InconsistencyTenantWithoutBed  = "tenant_without_bed"
	InconsistencyTenantOnManyBeds  = "tenant_on_multiple_beds"
	InconsistencyLocationMismatch  = "bed_location_mismatch"
	InconsistencyCompensationFault = "compensation_failed"
)

// Inconsistency is one detected divergence between the bed tree and a tenant stay
type Inconsistency struct {
	Kind       string                `json:"kind"`
	PropertyID *uuid.UUID            `json:"property_id,omitempty"`
	TenantID   *uuid.UUID            `json:"tenant_id,omitempty"`
	Location   *property.BedLocation `json:"location,omitempty"`
	Detail     string                `json:"detail"`
}

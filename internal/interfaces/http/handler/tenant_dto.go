package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/billing"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/nivaasi/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// PersonalDetailsRequest carries the identity fields shared by move-in and update
type PersonalDetailsRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Mobile      string `json:"mobile" binding:"required,max=16"`
	Email       string `json:"email" binding:"omitempty,email,max=200"`
	Gender      string `json:"gender" binding:"omitempty,gender"`
	DateOfBirth string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	PhotoURL    string `json:"photo_url" binding:"omitempty,url,max=500"`
}

func (r PersonalDetailsRequest) toDomain() (tenant.PersonalDetails, error) {
	d := tenant.PersonalDetails{
		Name:     r.Name,
		Mobile:   r.Mobile,
		Email:    r.Email,
		Gender:   tenant.Gender(r.Gender),
		PhotoURL: r.PhotoURL,
	}
	dob, err := parseDate(r.DateOfBirth)
	if err != nil {
		return d, err
	}
	if !dob.IsZero() {
		d.DateOfBirth = &dob
	}
	return d, nil
}

// MoveInRequest creates a tenant and assigns the named bed to them
type MoveInRequest struct {
	PersonalDetailsRequest
	PropertyID      string          `json:"property_id" binding:"required,uuid"`
	FloorName       string          `json:"floor_name" binding:"required"`
	RoomNumber      string          `json:"room_number" binding:"required"`
	BedID           string          `json:"bed_id" binding:"required"`
	JoinDate        string          `json:"join_date" binding:"required,datetime=2006-01-02"`
	RentAmount      decimal.Decimal `json:"rent_amount" binding:"required,gt=0"`
	SecurityDeposit decimal.Decimal `json:"security_deposit" binding:"gte=0"`
	AppDownloaded   bool            `json:"app_downloaded"`
}

// UpdateTenantRequest replaces a tenant's personal details. The stay cannot be edited here.
type UpdateTenantRequest struct {
	PersonalDetailsRequest
	AppDownloaded *bool `json:"app_downloaded"`
}

// NoticeRequest records the date a tenant gave notice. Empty means today.
type NoticeRequest struct {
	NoticeDate string `json:"notice_date" binding:"omitempty,datetime=2006-01-02"`
}

// TransferRequest names the bed an Active tenant moves to
type TransferRequest struct {
	PropertyID string `json:"property_id" binding:"required,uuid"`
	FloorName  string `json:"floor_name" binding:"required"`
	RoomNumber string `json:"room_number" binding:"required"`
	BedID      string `json:"bed_id" binding:"required"`
}

// RecordPaymentRequest appends an entry to a tenant's payment ledger.
// Mode defaults to Cash, status to Collected and date to today.
type RecordPaymentRequest struct {
	Amount  decimal.Decimal `json:"amount" binding:"required,gt=0"`
	Date    string          `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Mode    string          `json:"mode" binding:"omitempty,paymentmode"`
	Status  string          `json:"status" binding:"omitempty,paymentstatus"`
	Remarks string          `json:"remarks" binding:"max=500"`
}

// TenantListQuery filters the tenant listing
type TenantListQuery struct {
	dto.ListRequest
	Status     string `form:"status"`
	PropertyID string `form:"property_id" binding:"omitempty,uuid"`
}

// AsOfQuery pins billing calculations to a date. Empty means today.
type AsOfQuery struct {
	AsOf string `form:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// PaymentResponse is one payment ledger entry
type PaymentResponse struct {
	Seq     int             `json:"seq"`
	Amount  decimal.Decimal `json:"amount"`
	Date    string          `json:"date"`
	Mode    string          `json:"mode"`
	Status  string          `json:"status"`
	Remarks string          `json:"remarks,omitempty"`
}

func toPaymentResponse(e tenant.PaymentEntry) PaymentResponse {
	return PaymentResponse{
		Seq:     e.Seq,
		Amount:  e.Amount,
		Date:    formatDate(e.Date),
		Mode:    string(e.Mode),
		Status:  string(e.Status),
		Remarks: e.Remarks,
	}
}

// TenantResponse is the API view of a tenant and its stay
type TenantResponse struct {
	ID              string            `json:"id"`
	Name            string            `json:"name"`
	Mobile          string            `json:"mobile"`
	Email           string            `json:"email,omitempty"`
	Gender          string            `json:"gender,omitempty"`
	DateOfBirth     *string           `json:"date_of_birth,omitempty"`
	PhotoURL        string            `json:"photo_url,omitempty"`
	PropertyID      string            `json:"property_id"`
	FloorName       string            `json:"floor_name"`
	RoomNumber      string            `json:"room_number"`
	BedID           string            `json:"bed_id"`
	JoinDate        string            `json:"join_date"`
	RentAmount      decimal.Decimal   `json:"rent_amount"`
	SecurityDeposit decimal.Decimal   `json:"security_deposit"`
	Status          string            `json:"status"`
	NoticeDate      *string           `json:"notice_date,omitempty"`
	VacatedAt       *string           `json:"vacated_at,omitempty"`
	AppDownloaded   bool              `json:"app_downloaded"`
	Payments        []PaymentResponse `json:"payments"`
	Version         int               `json:"version"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toTenantResponse(t *tenant.Tenant) TenantResponse {
	payments := make([]PaymentResponse, len(t.Payments))
	for i, e := range t.Payments {
		payments[i] = toPaymentResponse(e)
	}
	return TenantResponse{
		ID:              t.ID.String(),
		Name:            t.Personal.Name,
		Mobile:          t.Personal.Mobile,
		Email:           t.Personal.Email,
		Gender:          string(t.Personal.Gender),
		DateOfBirth:     formatDatePtr(t.Personal.DateOfBirth),
		PhotoURL:        t.Personal.PhotoURL,
		PropertyID:      t.Stay.PropertyID.String(),
		FloorName:       t.Stay.FloorName,
		RoomNumber:      t.Stay.RoomNumber,
		BedID:           t.Stay.BedID,
		JoinDate:        formatDate(t.Stay.JoinDate),
		RentAmount:      t.Stay.RentAmount,
		SecurityDeposit: t.Stay.SecurityDeposit,
		Status:          string(t.Stay.Status),
		NoticeDate:      formatDatePtr(t.Stay.NoticeDate),
		VacatedAt:       formatDatePtr(t.Stay.VacatedAt),
		AppDownloaded:   t.AppDownloaded,
		Payments:        payments,
		Version:         t.GetVersion(),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func toTenantResponses(items []tenant.Tenant) []TenantResponse {
	out := make([]TenantResponse, len(items))
	for i := range items {
		out[i] = toTenantResponse(&items[i])
	}
	return out
}

// MoveOutResponse reports the vacated tenant and what happened to its bed
type MoveOutResponse struct {
	Tenant      TenantResponse `json:"tenant"`
	BedReleased bool           `json:"bed_released"`
	Warning     string         `json:"warning,omitempty"`
}

// BillingResponse is a tenant's rent position at a date
type BillingResponse struct {
	TenantID      string          `json:"tenant_id"`
	AsOf          string          `json:"as_of"`
	NextDueDate   string          `json:"next_due_date"`
	MonthsElapsed int             `json:"months_elapsed"`
	TotalDue      decimal.Decimal `json:"total_due"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	Unpaid        bool            `json:"unpaid"`
}

func toBillingResponse(id uuid.UUID, asOf time.Time, s billing.Statement) BillingResponse {
	return BillingResponse{
		TenantID:      id.String(),
		AsOf:          formatDate(asOf),
		NextDueDate:   formatDate(s.NextDueDate),
		MonthsElapsed: s.MonthsElapsed,
		TotalDue:      s.TotalDue,
		TotalPaid:     s.TotalPaid,
		Outstanding:   s.Outstanding,
		Unpaid:        s.Unpaid,
	}
}

func bedLocation(floor, room, bed string) property.BedLocation {
	return property.BedLocation{FloorName: floor, RoomNumber: room, BedID: bed}
}

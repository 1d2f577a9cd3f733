package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/shopspring/decimal"
)

// TenantModel is the persistence model for the Tenant aggregate.
// Personal and stay fields are flat columns so they can be filtered;
// the payment ledger is a JSON document.
type TenantModel struct {
	AggregateModel
	Name            string          `gorm:"type:varchar(200);not null;index"`
	Mobile          string          `gorm:"type:varchar(20);not null;uniqueIndex"`
	Email           string          `gorm:"type:varchar(200)"`
	Gender          string          `gorm:"type:varchar(10)"`
	DateOfBirth     *time.Time      `gorm:"type:date"`
	PhotoURL        string          `gorm:"type:text"`
	PropertyID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	FloorName       string          `gorm:"type:varchar(100);not null"`
	RoomNumber      string          `gorm:"type:varchar(50);not null"`
	BedID           string          `gorm:"type:varchar(50);not null"`
	JoinDate        time.Time       `gorm:"not null"`
	RentAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SecurityDeposit decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Status          string          `gorm:"type:varchar(20);not null;index"`
	NoticeDate      *time.Time
	VacatedAt       *time.Time
	Payments        tenant.PaymentLedger `gorm:"type:jsonb;not null"`
	AppDownloaded   bool                 `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (TenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant
func (m *TenantModel) ToDomain() *tenant.Tenant {
	payments := m.Payments
	if payments == nil {
		payments = tenant.PaymentLedger{}
	}
	return &tenant.Tenant{
		BaseAggregateRoot: m.PopulateAggregateRoot(),
		Personal: tenant.PersonalDetails{
			Name:        m.Name,
			Mobile:      m.Mobile,
			Email:       m.Email,
			Gender:      tenant.Gender(m.Gender),
			DateOfBirth: m.DateOfBirth,
			PhotoURL:    m.PhotoURL,
		},
		Stay: tenant.Stay{
			PropertyID:      m.PropertyID,
			FloorName:       m.FloorName,
			RoomNumber:      m.RoomNumber,
			BedID:           m.BedID,
			JoinDate:        m.JoinDate,
			RentAmount:      m.RentAmount,
			SecurityDeposit: m.SecurityDeposit,
			Status:          tenant.StayStatus(m.Status),
			NoticeDate:      m.NoticeDate,
			VacatedAt:       m.VacatedAt,
		},
		Payments:      payments,
		AppDownloaded: m.AppDownloaded,
	}
}

// FromDomain populates the persistence model from a domain Tenant
func (m *TenantModel) FromDomain(t *tenant.Tenant) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.Name = t.Personal.Name
	m.Mobile = t.Personal.Mobile
	m.Email = t.Personal.Email
	m.Gender = string(t.Personal.Gender)
	m.DateOfBirth = t.Personal.DateOfBirth
	m.PhotoURL = t.Personal.PhotoURL
	m.PropertyID = t.Stay.PropertyID
	m.FloorName = t.Stay.FloorName
	m.RoomNumber = t.Stay.RoomNumber
	m.BedID = t.Stay.BedID
	m.JoinDate = t.Stay.JoinDate
	m.RentAmount = t.Stay.RentAmount
	m.SecurityDeposit = t.Stay.SecurityDeposit
	m.Status = string(t.Stay.Status)
	m.NoticeDate = t.Stay.NoticeDate
	m.VacatedAt = t.Stay.VacatedAt
	m.Payments = t.Payments
	m.AppDownloaded = t.AppDownloaded
}

// TenantModelFromDomain creates a new persistence model from a domain Tenant
func TenantModelFromDomain(t *tenant.Tenant) *TenantModel {
	m := &TenantModel{}
	m.FromDomain(t)
	return m
}

// UpdateColumns lists every mutable column for a versioned UPDATE
func (m *TenantModel) UpdateColumns(nextVersion int) map[string]any {
	return map[string]any{
		"name":             m.Name,
		"mobile":           m.Mobile,
		"email":            m.Email,
		"gender":           m.Gender,
		"date_of_birth":    m.DateOfBirth,
		"photo_url":        m.PhotoURL,
		"property_id":      m.PropertyID,
		"floor_name":       m.FloorName,
		"room_number":      m.RoomNumber,
		"bed_id":           m.BedID,
		"join_date":        m.JoinDate,
		"rent_amount":      m.RentAmount,
		"security_deposit": m.SecurityDeposit,
		"status":           m.Status,
		"notice_date":      m.NoticeDate,
		"vacated_at":       m.VacatedAt,
		"payments":         m.Payments,
		"app_downloaded":   m.AppDownloaded,
		"updated_at":       m.UpdatedAt,
		"version":          nextVersion,
	}
}

package models

import (
	"github.com/nivaasi/backend/internal/domain/property"
)

// PropertyModel is the persistence model for the Property aggregate.
// The whole floor/room/bed tree lives in one JSON column.
type PropertyModel struct {
	AggregateModel
	Name          string          `gorm:"type:varchar(200);not null;index"`
	Address       string          `gorm:"type:text"`
	ContactNumber string          `gorm:"type:varchar(20)"`
	Floors        property.Floors `gorm:"type:jsonb;not null"`
}

// TableName returns the table name for GORM
func (PropertyModel) TableName() string {
	return "properties"
}

// ToDomain converts the persistence model to a domain Property
func (m *PropertyModel) ToDomain() *property.Property {
	floors := m.Floors
	if floors == nil {
		floors = property.Floors{}
	}
	return &property.Property{
		BaseAggregateRoot: m.PopulateAggregateRoot(),
		Name:              m.Name,
		Address:           m.Address,
		ContactNumber:     m.ContactNumber,
		Floors:            floors,
	}
}

// FromDomain populates the persistence model from a domain Property
func (m *PropertyModel) FromDomain(p *property.Property) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.Address = p.Address
	m.ContactNumber = p.ContactNumber
	m.Floors = p.Floors
}

// PropertyModelFromDomain creates a new persistence model from a domain Property
func PropertyModelFromDomain(p *property.Property) *PropertyModel {
	m := &PropertyModel{}
	m.FromDomain(p)
	return m
}

// UpdateColumns lists every mutable column, including zero values, for a
// versioned UPDATE that bumps the stored version to nextVersion.
func (m *PropertyModel) UpdateColumns(nextVersion int) map[string]any {
	return map[string]any{
		"name":           m.Name,
		"address":        m.Address,
		"contact_number": m.ContactNumber,
		"floors":         m.Floors,
		"updated_at":     m.UpdatedAt,
		"version":        nextVersion,
	}
}

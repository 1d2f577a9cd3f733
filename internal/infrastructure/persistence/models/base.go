package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/shared"
)

// AggregateModel holds the columns every aggregate table shares. Version is
// the compare-and-set column checked by SaveWithLock.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot copies identity, timestamps and version from the domain
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.ID = a.ID
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
	m.Version = a.Version
}

// PopulateAggregateRoot rebuilds the domain root. Buffered domain events are
// never stored, so a loaded aggregate starts with none.
func (m *AggregateModel) PopulateAggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Version:    m.Version,
	}
}

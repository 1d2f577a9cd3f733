package tenant

import (
	"context"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/shared"
)

// Filter keys understood by TenantRepository.FindAll and Count.
const (
	FilterStatus     = "status"
	FilterPropertyID = "property_id"
)

// TenantRepository defines the interface for tenant persistence
type TenantRepository interface {
	// FindByID finds a tenant by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Tenant, error)

	// FindByMobile finds a tenant by mobile number
	FindByMobile(ctx context.Context, mobile string) (*Tenant, error)

	// FindAll lists tenants. filter.Search matches name or mobile case-insensitively;
	// filter.Filters may carry FilterStatus and FilterPropertyID.
	FindAll(ctx context.Context, filter shared.Filter) ([]Tenant, error)

	// Count counts tenants matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// FindByStatus returns every tenant in one of the given stay statuses
	FindByStatus(ctx context.Context, statuses ...StayStatus) ([]Tenant, error)

	// Create inserts a new tenant
	Create(ctx context.Context, t *Tenant) error

	// SaveWithLock persists the tenant if its stored version still equals t.Version,
	// then advances t.Version.
	SaveWithLock(ctx context.Context, t *Tenant) error

	// DeleteByID deletes a tenant
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

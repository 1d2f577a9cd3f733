package property

import (
	"context"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/shared"
)

// PropertyRepository defines the interface for property persistence
type PropertyRepository interface {
	// FindByID finds a property by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Property, error)

	// FindAll lists properties, searching name and address when filter.Search is set.
	// A PageSize of zero or less returns every match.
	FindAll(ctx context.Context, filter shared.Filter) ([]Property, error)

	// Count counts properties matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// FindByTenantReference finds properties whose layout references the tenant
	FindByTenantReference(ctx context.Context, tenantID uuid.UUID) ([]Property, error)

	// Create inserts a new property
	Create(ctx context.Context, p *Property) error

	// SaveWithLock persists the property if its stored version still equals p.Version,
	// then advances p.Version. A lost race yields OPTIMISTIC_LOCK_FAILED.
	SaveWithLock(ctx context.Context, p *Property) error

	// DeleteByID deletes a property
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPropertyRepository implements PropertyRepository using GORM
type GormPropertyRepository struct {
	db *gorm.DB
}

// NewGormPropertyRepository creates a new GormPropertyRepository
func NewGormPropertyRepository(db *gorm.DB) *GormPropertyRepository {
	return &GormPropertyRepository{db: db}
}

// FindByID finds a property by its ID
func (r *GormPropertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*property.Property, error) {
	var model models.PropertyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all properties matching the filter
func (r *GormPropertyRepository) FindAll(ctx context.Context, filter shared.Filter) ([]property.Property, error) {
	var propertyModels []models.PropertyModel
	query := r.applySearch(r.db.WithContext(ctx).Model(&models.PropertyModel{}), filter)
	query = applyOrderAndPage(query, filter, PropertySortFields, "created_at")

	if err := query.Find(&propertyModels).Error; err != nil {
		return nil, err
	}

	properties := make([]property.Property, len(propertyModels))
	for i := range propertyModels {
		properties[i] = *propertyModels[i].ToDomain()
	}
	return properties, nil
}

// Count counts properties matching the filter
func (r *GormPropertyRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applySearch(r.db.WithContext(ctx).Model(&models.PropertyModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindByTenantReference finds properties whose layout references the tenant.
// The JSON text match narrows candidates; the layout walk confirms them.
func (r *GormPropertyRepository) FindByTenantReference(ctx context.Context, tenantID uuid.UUID) ([]property.Property, error) {
	var candidates []models.PropertyModel
	if err := r.db.WithContext(ctx).
		Where("CAST(floors AS TEXT) LIKE ?", "%"+tenantID.String()+"%").
		Order("created_at ASC").
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	out := make([]property.Property, 0, len(candidates))
	for i := range candidates {
		p := candidates[i].ToDomain()
		if _, ok := p.FindBedByTenant(tenantID); ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

// Create inserts a new property
func (r *GormPropertyRepository) Create(ctx context.Context, p *property.Property) error {
	return r.db.WithContext(ctx).Create(models.PropertyModelFromDomain(p)).Error
}

// SaveWithLock writes the property only if the stored version still equals p.Version
func (r *GormPropertyRepository) SaveWithLock(ctx context.Context, p *property.Property) error {
	model := models.PropertyModelFromDomain(p)
	result := r.db.WithContext(ctx).
		Model(&models.PropertyModel{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(model.UpdateColumns(p.Version + 1))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeOptimisticLockFailed, "The property has been modified by another request")
	}
	p.Version++
	return nil
}

// DeleteByID deletes a property
func (r *GormPropertyRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.PropertyModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormPropertyRepository) applySearch(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(address) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	return query
}

// Ensure GormPropertyRepository implements PropertyRepository
var _ property.PropertyRepository = (*GormPropertyRepository)(nil)

package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/nivaasi/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormTenantRepository implements TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	var model models.TenantModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByMobile finds a tenant by mobile number
func (r *GormTenantRepository) FindByMobile(ctx context.Context, mobile string) (*tenant.Tenant, error) {
	if mobile == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Mobile cannot be empty")
	}
	var model models.TenantModel
	if err := r.db.WithContext(ctx).Where("mobile = ?", mobile).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all tenants matching the filter
func (r *GormTenantRepository) FindAll(ctx context.Context, filter shared.Filter) ([]tenant.Tenant, error) {
	query, err := r.applyFilter(r.db.WithContext(ctx).Model(&models.TenantModel{}), filter)
	if err != nil {
		return nil, err
	}
	var tenantModels []models.TenantModel
	if err := applyOrderAndPage(query, filter, TenantSortFields, "created_at").Find(&tenantModels).Error; err != nil {
		return nil, err
	}
	return toTenants(tenantModels), nil
}

// Count counts tenants matching the filter
func (r *GormTenantRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	query, err := r.applyFilter(r.db.WithContext(ctx).Model(&models.TenantModel{}), filter)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindByStatus returns every tenant in one of the given stay statuses
func (r *GormTenantRepository) FindByStatus(ctx context.Context, statuses ...tenant.StayStatus) ([]tenant.Tenant, error) {
	if len(statuses) == 0 {
		return []tenant.Tenant{}, nil
	}
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	var tenantModels []models.TenantModel
	if err := r.db.WithContext(ctx).
		Where("status IN ?", values).
		Order("join_date ASC").Order("id ASC").
		Find(&tenantModels).Error; err != nil {
		return nil, err
	}
	return toTenants(tenantModels), nil
}

// Create inserts a new tenant. A duplicate mobile surfaces as ALREADY_EXISTS.
func (r *GormTenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	if err := r.db.WithContext(ctx).Create(models.TenantModelFromDomain(t)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists, "A tenant with this mobile number already exists")
		}
		return err
	}
	return nil
}

// SaveWithLock writes the tenant only if the stored version still equals t.Version
func (r *GormTenantRepository) SaveWithLock(ctx context.Context, t *tenant.Tenant) error {
	model := models.TenantModelFromDomain(t)
	result := r.db.WithContext(ctx).
		Model(&models.TenantModel{}).
		Where("id = ? AND version = ?", t.ID, t.Version).
		Updates(model.UpdateColumns(t.Version + 1))

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.CodeAlreadyExists, "A tenant with this mobile number already exists")
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeOptimisticLockFailed, "The tenant has been modified by another request")
	}
	t.Version++
	return nil
}

// DeleteByID deletes a tenant
func (r *GormTenantRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.TenantModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormTenantRepository) applyFilter(query *gorm.DB, filter shared.Filter) (*gorm.DB, error) {
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\' OR mobile LIKE ? ESCAPE '\'`, pattern, pattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case tenant.FilterStatus:
			status := tenant.StayStatus(fmt.Sprint(value))
			if !status.IsValid() {
				return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown tenant status: "+string(status))
			}
			query = query.Where("status = ?", string(status))
		case tenant.FilterPropertyID:
			id, err := toUUID(value)
			if err != nil {
				return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid property_id filter")
			}
			query = query.Where("property_id = ?", id)
		}
	}
	return query, nil
}

func toTenants(tenantModels []models.TenantModel) []tenant.Tenant {
	out := make([]tenant.Tenant, len(tenantModels))
	for i := range tenantModels {
		out[i] = *tenantModels[i].ToDomain()
	}
	return out
}

func toUUID(value any) (uuid.UUID, error) {
	switch v := value.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(v)
	default:
		return uuid.Nil, fmt.Errorf("unsupported id type %T", value)
	}
}

// Ensure GormTenantRepository implements TenantRepository
var _ tenant.TenantRepository = (*GormTenantRepository)(nil)

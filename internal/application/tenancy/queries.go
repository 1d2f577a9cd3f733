package tenancy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/billing"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetTenant returns a tenant by ID
func (c *Coordinator) GetTenant(ctx context.Context, tenantID uuid.UUID) (*tenant.Tenant, error) {
	return c.tenants.FindByID(ctx, tenantID)
}

// ListTenants returns one page of tenants and the total match count
func (c *Coordinator) ListTenants(ctx context.Context, filter shared.Filter) ([]tenant.Tenant, int64, error) {
	items, err := c.tenants.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := c.tenants.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateTenantDetails replaces personal details and the app flag. The stay is untouched.
func (c *Coordinator) UpdateTenantDetails(ctx context.Context, tenantID uuid.UUID, personal tenant.PersonalDetails,
	appDownloaded *bool) (*tenant.Tenant, error) {
	unlock, err := c.lock(ctx, TenantLockKey(tenantID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	t, err := c.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := t.UpdatePersonalDetails(personal); err != nil {
		return nil, err
	}
	if err := c.ensureMobileFree(ctx, t.Personal.Mobile, t.ID); err != nil {
		return nil, err
	}
	if appDownloaded != nil {
		t.SetAppDownloaded(*appDownloaded)
	}
	if err := c.tenants.SaveWithLock(ctx, t); err != nil {
		return nil, c.classify(ctx, OpUpdateTenant, err)
	}

	c.logger.Info("Tenant details updated", zap.String("tenant_id", tenantID.String()))
	return t, nil
}

// SetTenantPhoto stores a new photo reference and returns the updated tenant with
// the reference it replaced, so the caller can remove the old object.
func (c *Coordinator) SetTenantPhoto(ctx context.Context, tenantID uuid.UUID, ref string) (*tenant.Tenant, string, error) {
	unlock, err := c.lock(ctx, TenantLockKey(tenantID))
	if err != nil {
		return nil, "", err
	}
	defer unlock()

	t, err := c.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, "", err
	}
	previous := t.SetPhoto(ref)
	if err := c.tenants.SaveWithLock(ctx, t); err != nil {
		return nil, "", c.classify(ctx, OpUpdateTenant, err)
	}
	return t, previous, nil
}

// UnpaidTenants returns Active tenants with a positive outstanding amount at asOf.
// A zero asOf means now.
func (c *Coordinator) UnpaidTenants(ctx context.Context, asOf time.Time) ([]tenant.Tenant, error) {
	if asOf.IsZero() {
		asOf = c.now()
	}
	active, err := c.tenants.FindByStatus(ctx, tenant.StayStatusActive)
	if err != nil {
		return nil, err
	}
	unpaid := make([]tenant.Tenant, 0, len(active))
	for i := range active {
		if billing.IsUnpaid(billing.AccountOf(&active[i]), asOf) {
			unpaid = append(unpaid, active[i])
		}
	}
	return unpaid, nil
}

// Stats counts a property's beds by status
func (c *Coordinator) Stats(ctx context.Context, propertyID uuid.UUID) (property.OccupancyStats, error) {
	p, err := c.properties.FindByID(ctx, propertyID)
	if err != nil {
		return property.OccupancyStats{}, err
	}
	return p.Stats(), nil
}

// NextDueDate returns when the tenant's next rent falls due
func (c *Coordinator) NextDueDate(ctx context.Context, tenantID uuid.UUID) (time.Time, error) {
	t, err := c.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return time.Time{}, err
	}
	return billing.NextDueDate(billing.AccountOf(t)), nil
}

// Outstanding returns what the tenant owes at asOf. A zero asOf means now.
func (c *Coordinator) Outstanding(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	if asOf.IsZero() {
		asOf = c.now()
	}
	t, err := c.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return decimal.Zero, err
	}
	return billing.OutstandingAmount(billing.AccountOf(t), asOf), nil
}

// Statement computes the tenant's billing position at asOf. A zero asOf means now.
func (c *Coordinator) Statement(ctx context.Context, tenantID uuid.UUID, asOf time.Time) (*tenant.Tenant, billing.Statement, error) {
	if asOf.IsZero() {
		asOf = c.now()
	}
	t, err := c.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, billing.Statement{}, err
	}
	return t, billing.Summarize(billing.AccountOf(t), asOf), nil
}

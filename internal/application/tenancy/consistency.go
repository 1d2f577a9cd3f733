package tenancy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"go.uber.org/zap"
)

type bedRef struct {
	propertyID uuid.UUID
	loc        property.BedLocation
}

// CheckConsistency scans every property and live tenant and reports where the bed tree
// and tenant stays disagree. Nothing is repaired.
func (c *Coordinator) CheckConsistency(ctx context.Context) ([]Inconsistency, error) {
	props, err := c.properties.FindAll(ctx, shared.Filter{OrderBy: "created_at", OrderDir: "asc"})
	if err != nil {
		return nil, err
	}
	all, err := c.tenants.FindByStatus(ctx, tenant.StayStatusActive, tenant.StayStatusOnNotice, tenant.StayStatusVacated)
	if err != nil {
		return nil, err
	}

	known := make(map[uuid.UUID]*tenant.Tenant, len(all))
	for i := range all {
		known[all[i].ID] = &all[i]
	}

	var found []Inconsistency
	refs := make(map[uuid.UUID][]bedRef)
	for i := range props {
		p := &props[i]
		if err := p.CheckInvariants(); err != nil {
			found = append(found, Inconsistency{Kind: InconsistencyBedStatus, PropertyID: &p.ID, Detail: err.Error()})
		}
		for loc, bed := range p.Beds() {
			if bed.TenantID == nil {
				continue
			}
			tenantID := *bed.TenantID
			refs[tenantID] = append(refs[tenantID], bedRef{propertyID: p.ID, loc: loc})

			t, ok := known[tenantID]
			switch {
			case !ok:
				found = append(found, Inconsistency{
					Kind: InconsistencyOrphanedBed, PropertyID: &p.ID, TenantID: &tenantID, Location: &loc,
					Detail: "bed references a tenant that does not exist",
				})
			case !t.Stay.IsLive():
				found = append(found, Inconsistency{
					Kind: InconsistencyVacatedHoldsBed, PropertyID: &p.ID, TenantID: &tenantID, Location: &loc,
					Detail: "bed references a vacated tenant",
				})
			}
		}
	}

	for i := range all {
		t := &all[i]
		if !t.Stay.IsLive() {
			continue
		}
		held := refs[t.ID]
		loc := t.Stay.Location()
		switch {
		case len(held) == 0:
			found = append(found, Inconsistency{
				Kind: InconsistencyTenantWithoutBed, PropertyID: &t.Stay.PropertyID, TenantID: &t.ID, Location: &loc,
				Detail: "no bed references this tenant",
			})
		case len(held) > 1:
			found = append(found, Inconsistency{
				Kind: InconsistencyTenantOnManyBeds, TenantID: &t.ID,
				Detail: fmt.Sprintf("%d beds reference this tenant", len(held)),
			})
		case held[0].propertyID != t.Stay.PropertyID || held[0].loc != loc:
			found = append(found, Inconsistency{
				Kind: InconsistencyLocationMismatch, PropertyID: &held[0].propertyID, TenantID: &t.ID, Location: &held[0].loc,
				Detail: fmt.Sprintf("stay points at %s/%s", t.Stay.PropertyID, loc),
			})
		}
	}

	for _, inc := range found {
		c.reportInconsistency(ctx, inc)
	}
	c.logger.Info("Consistency check finished",
		zap.Int("properties", len(props)),
		zap.Int("tenants", len(all)),
		zap.Int("inconsistencies", len(found)))
	return found, nil
}

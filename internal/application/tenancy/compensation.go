package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"go.uber.org/zap"
)

// bedUndo reverses one bed write of a failed unit of work. restore inspects the
// stored property and reports whether it changed anything; a rolled-back unit
// leaves nothing to restore.
type bedUndo struct {
	propertyID uuid.UUID
	loc        property.BedLocation
	tenantID   uuid.UUID
	restore    func(p *property.Property) (bool, error)
}

// undoOccupy releases a bed that a failed unit assigned to tenantID.
func undoOccupy(propertyID uuid.UUID, loc property.BedLocation, tenantID uuid.UUID) bedUndo {
	return bedUndo{
		propertyID: propertyID,
		loc:        loc,
		tenantID:   tenantID,
		restore: func(p *property.Property) (bool, error) {
			bed, err := p.FindBed(loc)
			if err != nil {
				return false, err
			}
			if bed.TenantID == nil || *bed.TenantID != tenantID {
				return false, nil
			}
			return true, p.Release(loc)
		},
	}
}

// undoRelease gives a released bed back to tenantID, restoring the notice
// state when the stay was On Notice.
func undoRelease(propertyID uuid.UUID, loc property.BedLocation, tenantID uuid.UUID, stay tenant.StayStatus) bedUndo {
	return bedUndo{
		propertyID: propertyID,
		loc:        loc,
		tenantID:   tenantID,
		restore: func(p *property.Property) (bool, error) {
			bed, err := p.FindBed(loc)
			if err != nil {
				return false, err
			}
			if bed.TenantID != nil && *bed.TenantID == tenantID {
				return false, nil
			}
			if err := p.Occupy(loc, tenantID); err != nil {
				return false, err
			}
			if stay == tenant.StayStatusOnNotice {
				if err := p.MarkNotice(loc); err != nil {
					return false, err
				}
			}
			return true, nil
		},
	}
}

// compensate applies undos in reverse order after a failed unit of work. It returns
// cause when every undo succeeds; otherwise the reference is left divergent and the
// caller receives INCONSISTENT_STATE.
func (c *Coordinator) compensate(ctx context.Context, op string, cause error, undos ...bedUndo) error {
	// a cancelled request must not leave the repair half done
	ctx = context.WithoutCancel(ctx)

	var failures []error
	changed := false
	for i := len(undos) - 1; i >= 0; i-- {
		u := undos[i]
		did, err := c.applyUndo(ctx, u)
		if err != nil {
			failures = append(failures, fmt.Errorf("restore bed %s: %w", u.loc, err))
			c.reportInconsistency(ctx, Inconsistency{
				Kind:       InconsistencyCompensationFault,
				PropertyID: &u.propertyID,
				TenantID:   &u.tenantID,
				Location:   &u.loc,
				Detail:     fmt.Sprintf("%s failed and its bed write could not be undone: %v", op, err),
			})
			continue
		}
		changed = changed || did
	}

	if len(failures) > 0 {
		c.metrics.RecordCompensation(ctx, op, false)
		c.logger.Error("Compensation failed, bed and tenant records diverge",
			zap.String("operation", op),
			zap.NamedError("cause", cause),
			zap.Error(errors.Join(failures...)))
		return shared.WrapDomainError(shared.CodeInconsistentState,
			fmt.Sprintf("%s failed and could not be rolled back", op),
			errors.Join(append([]error{cause}, failures...)...))
	}

	if changed {
		c.metrics.RecordCompensation(ctx, op, true)
		c.logger.Warn("Unit of work failed, bed writes compensated",
			zap.String("operation", op), zap.Error(cause))
	}
	return c.classify(ctx, op, cause)
}

func (c *Coordinator) applyUndo(ctx context.Context, u bedUndo) (bool, error) {
	p, err := c.properties.FindByID(ctx, u.propertyID)
	if err != nil {
		return false, err
	}
	did, err := u.restore(p)
	if err != nil || !did {
		return false, err
	}
	if err := c.properties.SaveWithLock(ctx, p); err != nil {
		return false, err
	}
	// compensation never publishes
	p.ClearDomainEvents()
	return true, nil
}

// reportInconsistency logs a detected divergence at error level and counts it
func (c *Coordinator) reportInconsistency(ctx context.Context, inc Inconsistency) {
	fields := []zap.Field{
		zap.String("kind", inc.Kind),
		zap.String("detail", inc.Detail),
	}
	if inc.PropertyID != nil {
		fields = append(fields, zap.String("property_id", inc.PropertyID.String()))
	}
	if inc.TenantID != nil {
		fields = append(fields, zap.String("tenant_id", inc.TenantID.String()))
	}
	if inc.Location != nil {
		fields = append(fields, zap.String("bed", inc.Location.String()))
	}
	c.logger.Error("Tenancy inconsistency detected", fields...)
	c.metrics.RecordInconsistency(ctx, inc.Kind)
}

// Package tenancy coordinates every change that touches both a property's bed tree
// and a tenant's stay. It is the only writer allowed to change both sides of the
// bed/tenant reference.
package tenancy

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"go.uber.org/zap"
)

// Operation names used in logs and metrics
const (
	OpMoveIn        = "move_in"
	OpMoveOut       = "move_out"
	OpGiveNotice    = "give_notice"
	OpTransfer      = "transfer"
	OpRecordPayment = "record_payment"
	OpDeleteTenant  = "delete_tenant"
	OpUpdateTenant  = "update_tenant"
)

// Coordinator runs multi-aggregate tenancy operations under per-property locks
type Coordinator struct {
	properties property.PropertyRepository
	tenants    tenant.TenantRepository
	scope      TransactionScope
	locker     Locker
	publisher  shared.EventPublisher
	metrics    Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewCoordinator creates a new Coordinator. properties and tenants are used for reads
// and for compensation outside a unit of work.
func NewCoordinator(
	properties property.PropertyRepository,
	tenants tenant.TenantRepository,
	scope TransactionScope,
	locker Locker,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		properties: properties,
		tenants:    tenants,
		scope:      scope,
		locker:     locker,
		metrics:    noopMetrics{},
		logger:     logger.Named("tenancy"),
		now:        time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (c *Coordinator) SetEventPublisher(publisher shared.EventPublisher) {
	c.publisher = publisher
}

// SetMetrics sets the metrics sink
func (c *Coordinator) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	c.metrics = m
}

// SetClock overrides the time source
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// MoveIn occupies the requested bed and persists the new tenant as one unit.
// Validation runs before any write.
func (c *Coordinator) MoveIn(ctx context.Context, cmd MoveInCommand) (*tenant.Tenant, error) {
	t, err := tenant.NewTenant(cmd.Personal, cmd.PropertyID, cmd.Location, cmd.JoinDate, cmd.RentAmount, cmd.SecurityDeposit)
	if err != nil {
		return nil, err
	}
	t.AppDownloaded = cmd.AppDownloaded

	if err := c.ensureMobileFree(ctx, t.Personal.Mobile, uuid.Nil); err != nil {
		return nil, err
	}

	unlock, err := c.lock(ctx, PropertyLockKey(cmd.PropertyID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		prop       *property.Property
		bedWritten bool
	)
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PropertyRepo().FindByID(ctx, cmd.PropertyID)
		if err != nil {
			return err
		}
		if err := p.Occupy(cmd.Location, t.ID); err != nil {
			return err
		}
		if err := repos.PropertyRepo().SaveWithLock(ctx, p); err != nil {
			return err
		}
		bedWritten = true
		prop = p
		return repos.TenantRepo().Create(ctx, t)
	})
	if err != nil {
		if !bedWritten {
			return nil, c.classify(ctx, OpMoveIn, err)
		}
		if _, findErr := c.tenants.FindByID(ctx, t.ID); findErr == nil {
			// the tenant write landed despite the error; both sides agree
			c.logger.Warn("Move-in reported failure after tenant was stored",
				zap.String("tenant_id", t.ID.String()), zap.Error(err))
		} else {
			return nil, c.compensate(ctx, OpMoveIn, err, undoOccupy(cmd.PropertyID, cmd.Location, t.ID))
		}
	}

	c.logger.Info("Tenant moved in",
		zap.String("tenant_id", t.ID.String()),
		zap.String("property_id", cmd.PropertyID.String()),
		zap.String("bed", cmd.Location.String()))

	c.publish(ctx, prop, t)
	return t, nil
}

// MoveOut vacates the tenant and releases the bed its stay references.
// A bed that can no longer be found is reported as a warning and the tenant is still vacated.
func (c *Coordinator) MoveOut(ctx context.Context, tenantID uuid.UUID) (*MoveOutResult, error) {
	t, unlock, err := c.loadLocked(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !t.Stay.IsLive() {
		return nil, shared.NewDomainError(shared.CodeConflict, "Tenant has already vacated").
			WithDetail("tenant_id", tenantID.String())
	}

	loc := t.Stay.Location()
	propertyID := t.Stay.PropertyID
	previous := t.Stay.Status
	result := &MoveOutResult{Tenant: t}

	var (
		prop       *property.Property
		bedWritten bool
	)
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PropertyRepo().FindByID(ctx, propertyID)
		switch {
		case shared.IsNotFound(err):
			result.Warning = "property no longer exists"
		case err != nil:
			return err
		default:
			released, warning, err := c.releaseHeldBed(ctx, p, loc, tenantID)
			if err != nil {
				return err
			}
			result.Warning = warning
			if released {
				if err := repos.PropertyRepo().SaveWithLock(ctx, p); err != nil {
					return err
				}
				bedWritten = true
				prop = p
			}
		}
		result.BedReleased = bedWritten
		if err := t.Vacate(c.now(), bedWritten); err != nil {
			return err
		}
		return repos.TenantRepo().SaveWithLock(ctx, t)
	})
	if err != nil {
		if bedWritten {
			return nil, c.compensate(ctx, OpMoveOut, err, undoRelease(propertyID, loc, tenantID, previous))
		}
		return nil, c.classify(ctx, OpMoveOut, err)
	}

	if result.Warning != "" {
		c.logger.Warn("Tenant vacated without releasing a bed",
			zap.String("tenant_id", tenantID.String()),
			zap.String("property_id", propertyID.String()),
			zap.String("bed", loc.String()),
			zap.String("reason", result.Warning))
	} else {
		c.logger.Info("Tenant moved out",
			zap.String("tenant_id", tenantID.String()),
			zap.String("property_id", propertyID.String()),
			zap.String("bed", loc.String()))
	}

	c.publish(ctx, prop, t)
	return result, nil
}

// releaseHeldBed releases loc only while it still points at tenantID.
func (c *Coordinator) releaseHeldBed(ctx context.Context, p *property.Property, loc property.BedLocation,
	tenantID uuid.UUID) (bool, string, error) {
	bed, err := p.FindBed(loc)
	if shared.IsNotFound(err) {
		return false, "bed no longer exists", nil
	}
	if err != nil {
		return false, "", err
	}
	switch {
	case bed.TenantID == nil:
		return false, "bed was already released", nil
	case *bed.TenantID != tenantID:
		c.reportInconsistency(ctx, Inconsistency{
			Kind:       InconsistencyLocationMismatch,
			PropertyID: &p.ID,
			TenantID:   &tenantID,
			Location:   &loc,
			Detail:     fmt.Sprintf("bed is held by tenant %s", *bed.TenantID),
		})
		return false, "bed is held by another tenant", nil
	}
	if err := p.Release(loc); err != nil {
		return false, "", err
	}
	return true, "", nil
}

// GiveNotice moves an Active tenant and its bed to the notice state.
func (c *Coordinator) GiveNotice(ctx context.Context, tenantID uuid.UUID, noticeDate time.Time) (*tenant.Tenant, error) {
	t, unlock, err := c.loadLocked(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if noticeDate.IsZero() {
		noticeDate = c.now()
	}
	if err := t.GiveNotice(noticeDate); err != nil {
		return nil, err
	}

	loc := t.Stay.Location()
	var prop *property.Property
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PropertyRepo().FindByID(ctx, t.Stay.PropertyID)
		if err != nil {
			return c.missingBed(ctx, t, err)
		}
		bed, err := p.FindBed(loc)
		if err != nil {
			return c.missingBed(ctx, t, err)
		}
		if err := c.checkHolder(ctx, p, bed, t); err != nil {
			return err
		}
		// a retried notice finds the bed already marked
		if bed.Status != property.BedStatusNotice {
			if err := p.MarkNotice(loc); err != nil {
				return err
			}
			if err := repos.PropertyRepo().SaveWithLock(ctx, p); err != nil {
				return err
			}
			prop = p
		}
		return repos.TenantRepo().SaveWithLock(ctx, t)
	})
	if err != nil {
		return nil, c.classify(ctx, OpGiveNotice, err)
	}

	c.logger.Info("Tenant gave notice",
		zap.String("tenant_id", tenantID.String()),
		zap.Time("notice_date", noticeDate))

	c.publish(ctx, prop, t)
	return t, nil
}

// checkHolder fails with INCONSISTENT_STATE unless bed is held by t.
func (c *Coordinator) checkHolder(ctx context.Context, p *property.Property, bed *property.Bed, t *tenant.Tenant) error {
	if bed.TenantID != nil && *bed.TenantID == t.ID {
		return nil
	}
	loc := t.Stay.Location()
	inc := Inconsistency{
		Kind:       InconsistencyLocationMismatch,
		PropertyID: &p.ID,
		TenantID:   &t.ID,
		Location:   &loc,
		Detail:     "bed is not held by any tenant",
	}
	if bed.TenantID == nil {
		inc.Kind = InconsistencyTenantWithoutBed
	} else {
		inc.Detail = fmt.Sprintf("bed is held by tenant %s", *bed.TenantID)
	}
	c.reportInconsistency(ctx, inc)
	return shared.NewDomainError(shared.CodeInconsistentState,
		fmt.Sprintf("Tenant %s does not hold bed %s", t.ID, loc)).
		WithDetail("bed_status", string(bed.Status))
}

// missingBed turns a failed bed lookup for a live tenant into an inconsistency
func (c *Coordinator) missingBed(ctx context.Context, t *tenant.Tenant, err error) error {
	if !shared.IsNotFound(err) {
		return err
	}
	loc := t.Stay.Location()
	c.reportInconsistency(ctx, Inconsistency{
		Kind:       InconsistencyTenantWithoutBed,
		PropertyID: &t.Stay.PropertyID,
		TenantID:   &t.ID,
		Location:   &loc,
		Detail:     "referenced bed not found",
	})
	return shared.WrapDomainError(shared.CodeInconsistentState,
		fmt.Sprintf("Tenant %s references missing bed %s", t.ID, loc), err)
}

// Transfer moves an Active tenant to another bed, possibly in another property.
// The target bed is claimed before the old one is released.
func (c *Coordinator) Transfer(ctx context.Context, tenantID uuid.UUID, cmd TransferCommand) (*tenant.Tenant, error) {
	t, err := c.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	unlock, err := c.lock(ctx,
		PropertyLockKey(t.Stay.PropertyID), PropertyLockKey(cmd.PropertyID), TenantLockKey(tenantID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if t, err = c.tenants.FindByID(ctx, tenantID); err != nil {
		return nil, err
	}
	if t.Stay.Status != tenant.StayStatusActive {
		return nil, shared.NewDomainError(shared.CodeConflict,
			fmt.Sprintf("Tenant is %s and cannot be transferred", t.Stay.Status))
	}
	from, fromProperty := t.Stay.Location(), t.Stay.PropertyID
	if fromProperty == cmd.PropertyID && from == cmd.Location {
		return nil, shared.NewDomainError(shared.CodeValidation, "Tenant already occupies this bed")
	}

	var (
		touched []*property.Property
		undos   []bedUndo
	)
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		target, err := repos.PropertyRepo().FindByID(ctx, cmd.PropertyID)
		if err != nil {
			return err
		}
		if err := target.Occupy(cmd.Location, tenantID); err != nil {
			return err
		}

		source := target
		if fromProperty != cmd.PropertyID {
			if err := repos.PropertyRepo().SaveWithLock(ctx, target); err != nil {
				return err
			}
			undos = append(undos, undoOccupy(cmd.PropertyID, cmd.Location, tenantID))
			touched = append(touched, target)

			source, err = repos.PropertyRepo().FindByID(ctx, fromProperty)
			if err != nil && !shared.IsNotFound(err) {
				return err
			}
		}
		if source != nil {
			released, warning, err := c.releaseHeldBed(ctx, source, from, tenantID)
			if err != nil {
				return err
			}
			if warning != "" {
				c.logger.Warn("Old bed not released on transfer",
					zap.String("tenant_id", tenantID.String()),
					zap.String("bed", from.String()),
					zap.String("reason", warning))
			}
			if released || source == target {
				if err := repos.PropertyRepo().SaveWithLock(ctx, source); err != nil {
					return err
				}
				if source == target {
					undos = append(undos, undoOccupy(cmd.PropertyID, cmd.Location, tenantID))
				}
				if released {
					undos = append(undos, undoRelease(fromProperty, from, tenantID, tenant.StayStatusActive))
				}
				touched = append(touched, source)
			}
		}

		if err := t.Relocate(cmd.PropertyID, cmd.Location); err != nil {
			return err
		}
		return repos.TenantRepo().SaveWithLock(ctx, t)
	})
	if err != nil {
		if len(undos) > 0 {
			return nil, c.compensate(ctx, OpTransfer, err, undos...)
		}
		return nil, c.classify(ctx, OpTransfer, err)
	}

	c.logger.Info("Tenant transferred",
		zap.String("tenant_id", tenantID.String()),
		zap.String("from", fromProperty.String()+"/"+from.String()),
		zap.String("to", cmd.PropertyID.String()+"/"+cmd.Location.String()))

	sources := make([]shared.EventSource, 0, len(touched)+1)
	for _, p := range touched {
		sources = append(sources, p)
	}
	c.publish(ctx, append(sources, t)...)
	return t, nil
}

// RecordPayment appends a payment to the tenant's ledger under the tenant lock.
func (c *Coordinator) RecordPayment(ctx context.Context, tenantID uuid.UUID, cmd PaymentCommand) (tenant.PaymentEntry, error) {
	unlock, err := c.lock(ctx, TenantLockKey(tenantID))
	if err != nil {
		return tenant.PaymentEntry{}, err
	}
	defer unlock()

	t, err := c.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return tenant.PaymentEntry{}, err
	}
	date := cmd.Date
	if date.IsZero() {
		date = c.now()
	}
	entry, err := t.RecordPayment(tenant.PaymentEntry{
		Amount:  cmd.Amount,
		Date:    date,
		Mode:    cmd.Mode,
		Status:  cmd.Status,
		Remarks: cmd.Remarks,
	})
	if err != nil {
		return tenant.PaymentEntry{}, err
	}
	if err := c.tenants.SaveWithLock(ctx, t); err != nil {
		return tenant.PaymentEntry{}, c.classify(ctx, OpRecordPayment, err)
	}

	c.logger.Info("Payment recorded",
		zap.String("tenant_id", tenantID.String()),
		zap.String("amount", entry.Amount.String()),
		zap.String("status", string(entry.Status)),
		zap.Int("seq", entry.Seq))

	c.publish(ctx, t)
	return entry, nil
}

// DeleteTenant removes a tenant and releases every bed that still references it.
func (c *Coordinator) DeleteTenant(ctx context.Context, tenantID uuid.UUID) error {
	t, unlock, err := c.loadLocked(ctx, tenantID)
	if err != nil {
		return err
	}
	defer unlock()

	held, err := c.properties.FindByTenantReference(ctx, tenantID)
	if err != nil {
		return err
	}
	// beds found outside the stay's property need their own locks
	extra := make([]string, 0, len(held))
	for _, p := range held {
		if p.ID != t.Stay.PropertyID {
			extra = append(extra, PropertyLockKey(p.ID))
		}
	}
	if len(extra) > 0 {
		unlockExtra, err := c.lock(ctx, extra...)
		if err != nil {
			return err
		}
		defer unlockExtra()
	}

	var (
		undos   []bedUndo
		touched []shared.EventSource
	)
	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		for _, h := range held {
			p, err := repos.PropertyRepo().FindByID(ctx, h.ID)
			if shared.IsNotFound(err) {
				continue
			}
			if err != nil {
				return err
			}
			var released []property.BedLocation
			for loc, bed := range p.Beds() {
				if bed.TenantID != nil && *bed.TenantID == tenantID {
					released = append(released, loc)
				}
			}
			if len(released) == 0 {
				continue
			}
			for _, loc := range released {
				if err := p.Release(loc); err != nil {
					return err
				}
			}
			if err := repos.PropertyRepo().SaveWithLock(ctx, p); err != nil {
				return err
			}
			for _, loc := range released {
				undos = append(undos, undoRelease(p.ID, loc, tenantID, t.Stay.Status))
			}
			touched = append(touched, p)
		}
		return repos.TenantRepo().DeleteByID(ctx, tenantID)
	})
	if err != nil {
		if len(undos) > 0 {
			return c.compensate(ctx, OpDeleteTenant, err, undos...)
		}
		return c.classify(ctx, OpDeleteTenant, err)
	}

	c.logger.Info("Tenant deleted",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("beds_released", len(undos)))

	c.publish(ctx, touched...)
	return nil
}

// maxRelock bounds how often loadLocked chases a tenant that keeps moving
const maxRelock = 3

// loadLocked loads a tenant, locks its property and tenant keys, then reloads it
// so the returned copy is current under the lock. A tenant transferred while we
// waited has all keys released and the new set locked from scratch.
func (c *Coordinator) loadLocked(ctx context.Context, tenantID uuid.UUID) (*tenant.Tenant, func(), error) {
	t, err := c.tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	for range maxRelock {
		unlock, err := c.lock(ctx, PropertyLockKey(t.Stay.PropertyID), TenantLockKey(tenantID))
		if err != nil {
			return nil, nil, err
		}
		fresh, err := c.tenants.FindByID(ctx, tenantID)
		if err != nil {
			unlock()
			return nil, nil, err
		}
		if fresh.Stay.PropertyID == t.Stay.PropertyID {
			return fresh, unlock, nil
		}
		unlock()
		c.logger.Debug("Tenant moved while waiting for lock, relocking",
			zap.String("tenant_id", tenantID.String()),
			zap.String("property_id", fresh.Stay.PropertyID.String()))
		t = fresh
	}
	return nil, nil, shared.NewDomainError(shared.CodeConflict,
		"Tenant kept moving between properties, retry the operation")
}

// lock acquires keys in sorted order so concurrent multi-key callers cannot deadlock
func (c *Coordinator) lock(ctx context.Context, keys ...string) (func(), error) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	unlocks := make([]func(), 0, len(keys))
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, key := range keys {
		unlock, err := c.locker.Lock(ctx, key)
		if err != nil {
			release()
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

func (c *Coordinator) ensureMobileFree(ctx context.Context, mobile string, self uuid.UUID) error {
	existing, err := c.tenants.FindByMobile(ctx, mobile)
	if shared.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == self {
		return nil
	}
	return shared.NewDomainError(shared.CodeAlreadyExists, "A tenant with this mobile number already exists").
		WithDetail("mobile", mobile)
}

// classify maps a lost optimistic-lock race to a retryable conflict
func (c *Coordinator) classify(ctx context.Context, op string, err error) error {
	if shared.HasCode(err, shared.CodeOptimisticLockFailed) {
		c.metrics.RecordConflict(ctx, op)
		c.logger.Debug("Concurrent modification", zap.String("operation", op), zap.Error(err))
		return shared.WrapDomainError(shared.CodeConflict, "Concurrent modification, retry the operation", err)
	}
	if shared.IsConflict(err) {
		c.metrics.RecordConflict(ctx, op)
	}
	return err
}

// publish publishes and clears pending events of every non-nil aggregate
func (c *Coordinator) publish(ctx context.Context, aggregates ...shared.EventSource) {
	var events []shared.DomainEvent
	for _, a := range aggregates {
		if a == nil || isNilProperty(a) {
			continue
		}
		events = append(events, a.GetDomainEvents()...)
		a.ClearDomainEvents()
	}
	if c.publisher == nil || len(events) == 0 {
		return
	}
	// Publish events (errors are logged by the event bus, not propagated)
	_ = c.publisher.Publish(ctx, events...)
}

func isNilProperty(a shared.EventSource) bool {
	p, ok := a.(*property.Property)
	return ok && p == nil
}

type noopMetrics struct{}

func (noopMetrics) RecordConflict(context.Context, string)            {}
func (noopMetrics) RecordInconsistency(context.Context, string)       {}
func (noopMetrics) RecordCompensation(context.Context, string, bool) {}

package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
)

// memPropertyRepo stores detached copies and enforces the version check like the SQL repository
type memPropertyRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]property.Property
	// failSave makes the n-th SaveWithLock call (1-based) fail; zero disables
	failSave  int
	saveCalls int
}

func newMemPropertyRepo() *memPropertyRepo {
	return &memPropertyRepo{items: map[uuid.UUID]property.Property{}}
}

func copyProperty(p *property.Property) property.Property {
	out := *p
	raw, _ := json.Marshal(p.Floors)
	out.Floors = nil
	_ = json.Unmarshal(raw, &out.Floors)
	out.ClearDomainEvents()
	return out
}

func (r *memPropertyRepo) FindByID(_ context.Context, id uuid.UUID) (*property.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[id]
	if !ok {
		return nil, shared.NewDomainError(shared.CodeNotFound, "property not found")
	}
	out := copyProperty(&p)
	return &out, nil
}

func (r *memPropertyRepo) FindAll(_ context.Context, _ shared.Filter) ([]property.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]property.Property, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, copyProperty(&p))
	}
	return out, nil
}

func (r *memPropertyRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

func (r *memPropertyRepo) FindByTenantReference(_ context.Context, tenantID uuid.UUID) ([]property.Property, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []property.Property
	for _, p := range r.items {
		if _, ok := p.FindBedByTenant(tenantID); ok {
			out = append(out, copyProperty(&p))
		}
	}
	return out, nil
}

func (r *memPropertyRepo) Create(_ context.Context, p *property.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[p.ID] = copyProperty(p)
	return nil
}

func (r *memPropertyRepo) SaveWithLock(_ context.Context, p *property.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.failSave > 0 && r.saveCalls == r.failSave {
		return errors.New("property store unavailable")
	}
	stored, ok := r.items[p.ID]
	if !ok {
		return shared.NewDomainError(shared.CodeNotFound, "property not found")
	}
	if stored.Version != p.Version {
		return shared.NewDomainError(shared.CodeOptimisticLockFailed, "version mismatch")
	}
	p.Version++
	r.items[p.ID] = copyProperty(p)
	return nil
}

func (r *memPropertyRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

type memTenantRepo struct {
	mu         sync.Mutex
	items      map[uuid.UUID]tenant.Tenant
	failCreate error
	failSave   error
	failDelete error
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{items: map[uuid.UUID]tenant.Tenant{}}
}

func copyTenant(t *tenant.Tenant) tenant.Tenant {
	out := *t
	out.Payments = append(tenant.PaymentLedger{}, t.Payments...)
	out.ClearDomainEvents()
	return out
}

func (r *memTenantRepo) FindByID(_ context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok {
		return nil, shared.NewDomainError(shared.CodeNotFound, "tenant not found")
	}
	out := copyTenant(&t)
	return &out, nil
}

func (r *memTenantRepo) FindByMobile(_ context.Context, mobile string) (*tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.items {
		if t.Personal.Mobile == mobile {
			out := copyTenant(&t)
			return &out, nil
		}
	}
	return nil, shared.NewDomainError(shared.CodeNotFound, "tenant not found")
}

func (r *memTenantRepo) FindAll(_ context.Context, filter shared.Filter) ([]tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tenant.Tenant
	for _, t := range r.items {
		if filter.Search != "" && !strings.Contains(strings.ToLower(t.Personal.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, copyTenant(&t))
	}
	return out, nil
}

func (r *memTenantRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	items, err := r.FindAll(ctx, filter)
	return int64(len(items)), err
}

func (r *memTenantRepo) FindByStatus(_ context.Context, statuses ...tenant.StayStatus) ([]tenant.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []tenant.Tenant
	for _, t := range r.items {
		for _, s := range statuses {
			if t.Stay.Status == s {
				out = append(out, copyTenant(&t))
				break
			}
		}
	}
	return out, nil
}

func (r *memTenantRepo) Create(_ context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate != nil {
		return r.failCreate
	}
	r.items[t.ID] = copyTenant(t)
	return nil
}

func (r *memTenantRepo) SaveWithLock(_ context.Context, t *tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return r.failSave
	}
	stored, ok := r.items[t.ID]
	if !ok {
		return shared.NewDomainError(shared.CodeNotFound, "tenant not found")
	}
	if stored.Version != t.Version {
		return shared.NewDomainError(shared.CodeOptimisticLockFailed, "version mismatch")
	}
	t.Version++
	r.items[t.ID] = copyTenant(t)
	return nil
}

func (r *memTenantRepo) DeleteByID(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDelete != nil {
		return r.failDelete
	}
	delete(r.items, id)
	return nil
}

// keyedLocker is a minimal per-key mutex
type keyedLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newKeyedLocker() *keyedLocker {
	return &keyedLocker{locks: map[string]chan struct{}{}}
}

func (l *keyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[key] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type recordingMetrics struct {
	mu              sync.Mutex
	conflicts       []string
	inconsistencies []string
	compensations   map[string][]bool
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{compensations: map[string][]bool{}}
}

func (m *recordingMetrics) RecordConflict(_ context.Context, op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conflicts = append(m.conflicts, op)
}

func (m *recordingMetrics) RecordInconsistency(_ context.Context, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inconsistencies = append(m.inconsistencies, kind)
}

func (m *recordingMetrics) RecordCompensation(_ context.Context, op string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compensations[op] = append(m.compensations[op], ok)
}

// orderedLocker wraps a Locker, runs beforeFirst once ahead of the first Lock
// and records any key taken while a greater key was already held.
type orderedLocker struct {
	inner       Locker
	beforeFirst func()

	mu         sync.Mutex
	held       map[string]int
	acquired   []string
	outOfOrder []string
}

func newOrderedLocker(inner Locker, beforeFirst func()) *orderedLocker {
	return &orderedLocker{inner: inner, beforeFirst: beforeFirst, held: map[string]int{}}
}

func (l *orderedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	hook := l.beforeFirst
	l.beforeFirst = nil
	l.mu.Unlock()
	if hook != nil {
		hook()
	}

	unlock, err := l.inner.Lock(ctx, key)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	for k, n := range l.held {
		if n > 0 && k > key {
			l.outOfOrder = append(l.outOfOrder, key)
		}
	}
	l.held[key]++
	l.acquired = append(l.acquired, key)
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		l.held[key]--
		l.mu.Unlock()
		unlock()
	}, nil
}

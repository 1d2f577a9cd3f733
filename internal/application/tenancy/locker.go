package tenancy

import (
	"context"

	"github.com/google/uuid"
)

// Locker provides keyed mutual exclusion. Lock blocks until the key is held or ctx ends;
// the returned function releases the key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// PropertyLockKey guards every bed transition inside one property.
func PropertyLockKey(id uuid.UUID) string {
	return "property:" + id.String()
}

// TenantLockKey serializes payment appends for one tenant.
func TenantLockKey(id uuid.UUID) string {
	return "tenant:" + id.String()
}

// Metrics receives coordinator outcomes that are not visible as domain events.
type Metrics interface {
	RecordConflict(ctx context.Context, operation string)
	RecordInconsistency(ctx context.Context, kind string)
	RecordCompensation(ctx context.Context, operation string, succeeded bool)
}

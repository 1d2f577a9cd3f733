package tenancy

import (
	"context"

	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/tenant"
)

// TransactionScope runs a unit of work against the property and tenant repositories.
// A transactional implementation commits or rolls back every write made by fn together;
// a non-transactional one applies writes as they happen, which is why the coordinator
// still verifies and compensates after a failed unit.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories bound to one unit of work.
type TransactionalRepositories interface {
	PropertyRepo() property.PropertyRepository
	TenantRepo() tenant.TenantRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
type NoOpTransactionScope struct {
	propertyRepo property.PropertyRepository
	tenantRepo   tenant.TenantRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(propertyRepo property.PropertyRepository, tenantRepo tenant.TenantRepository) *NoOpTransactionScope {
	return &NoOpTransactionScope{propertyRepo: propertyRepo, tenantRepo: tenantRepo}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// PropertyRepo returns the property repository.
func (s *NoOpTransactionScope) PropertyRepo() property.PropertyRepository {
	return s.propertyRepo
}

// TenantRepo returns the tenant repository.
func (s *NoOpTransactionScope) TenantRepo() tenant.TenantRepository {
	return s.tenantRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)

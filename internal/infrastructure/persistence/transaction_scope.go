package persistence

import (
	"context"

	"github.com/nivaasi/backend/internal/application/tenancy"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Property and tenant writes made through the scoped repositories commit or
// roll back together.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction, rolling back if it returns an error.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos tenancy.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) PropertyRepo() property.PropertyRepository {
	return NewGormPropertyRepository(r.tx)
}

func (r *gormTransactionalRepositories) TenantRepo() tenant.TenantRepository {
	return NewGormTenantRepository(r.tx)
}

var (
	_ tenancy.TransactionScope          = (*GormTransactionScope)(nil)
	_ tenancy.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)

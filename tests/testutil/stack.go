package testutil

import (
	"testing"

	financeapp "github.com/nivaasi/backend/internal/application/finance"
	propertyapp "github.com/nivaasi/backend/internal/application/property"
	"github.com/nivaasi/backend/internal/application/tenancy"
	"github.com/nivaasi/backend/internal/infrastructure/cache"
	"github.com/nivaasi/backend/internal/infrastructure/config"
	"github.com/nivaasi/backend/internal/infrastructure/event"
	"github.com/nivaasi/backend/internal/infrastructure/lock"
	"github.com/nivaasi/backend/internal/infrastructure/persistence"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"go.uber.org/zap/zapcore"
)

// Stack is the application wired over a private in-memory sqlite database.
// Events are dispatched synchronously so projections are visible as soon as a command returns.
type Stack struct {
	DB           *persistence.Database
	Properties   *persistence.GormPropertyRepository
	Tenants      *persistence.GormTenantRepository
	Transactions *persistence.GormTransactionRepository
	Bus          *event.InMemoryEventBus
	Logger       *zap.Logger
	Logs         *observer.ObservedLogs

	Coordinator        *tenancy.Coordinator
	PropertyService    *propertyapp.PropertyService
	TransactionService *financeapp.TransactionService
}

// NewStack builds a Stack over a fresh sqlite database and closes it when t ends
func NewStack(t *testing.T) *Stack {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err, "open sqlite")
	require.NoError(t, db.AutoMigrate(), "migrate sqlite")
	t.Cleanup(func() { _ = db.Close() })

	return NewStackOn(t, db)
}

// NewStackOn builds a Stack over an already migrated database. The caller owns db.
func NewStackOn(t *testing.T, db *persistence.Database) *Stack {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	s := &Stack{
		DB:           db,
		Properties:   persistence.NewGormPropertyRepository(db.DB),
		Tenants:      persistence.NewGormTenantRepository(db.DB),
		Transactions: persistence.NewGormTransactionRepository(db.DB),
		Bus:          event.NewInMemoryEventBus(log),
		Logger:       log,
		Logs:         logs,
	}

	store := cache.NewInMemoryIdempotencyStore(0)
	projection := financeapp.NewTenancyProjectionHandler(s.Transactions, log)
	s.Bus.Subscribe(event.NewIdempotentHandler(projection, store, log))

	locker := lock.NewMemoryLocker(0)
	s.Coordinator = tenancy.NewCoordinator(s.Properties, s.Tenants, persistence.NewGormTransactionScope(db.DB), locker, log)
	s.Coordinator.SetEventPublisher(s.Bus)

	s.PropertyService = propertyapp.NewPropertyService(s.Properties, locker, log)
	s.PropertyService.SetEventPublisher(s.Bus)
	s.TransactionService = financeapp.NewTransactionService(s.Transactions, log)

	t.Cleanup(func() { _ = store.Close() })
	return s
}

package persistence

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/application/tenancy"
	"github.com/nivaasi/backend/internal/domain/finance"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/nivaasi/backend/internal/infrastructure/lock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bedA = property.BedLocation{FloorName: "Ground", RoomNumber: "G1", BedID: "A"}

func newTestProperty(t *testing.T, name string) *property.Property {
	t.Helper()
	p, err := property.NewProperty(name, "12 MG Road, Bengaluru", "9800000000", []property.Floor{
		{Name: "Ground", Rooms: []property.Room{
			{Number: "G1", Capacity: 2, Beds: []property.Bed{{ID: "A"}, {ID: "B"}}},
		}},
	})
	require.NoError(t, err)
	return p
}

func newTestTenant(t *testing.T, name, mobile string, propertyID uuid.UUID) *tenant.Tenant {
	t.Helper()
	tn, err := tenant.NewTenant(
		tenant.PersonalDetails{Name: name, Mobile: mobile},
		propertyID, bedA,
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(8000), decimal.NewFromInt(16000),
	)
	require.NoError(t, err)
	return tn
}

func TestGormPropertyRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewGormPropertyRepository(newSQLiteDatabase(t).DB)
	p := newTestProperty(t, "Sunrise PG")
	tenantID := uuid.New()
	require.NoError(t, p.Occupy(bedA, tenantID))

	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunrise PG", got.Name)
	assert.Equal(t, 1, got.Version)
	assert.Empty(t, got.GetDomainEvents())
	bed, err := got.FindBed(bedA)
	require.NoError(t, err)
	assert.Equal(t, property.BedStatusOccupied, bed.Status)
	require.NotNil(t, bed.TenantID)
	assert.Equal(t, tenantID, *bed.TenantID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, shared.IsNotFound(err))
}

func TestGormPropertyRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()
	repo := NewGormPropertyRepository(newSQLiteDatabase(t).DB)
	p := newTestProperty(t, "Sunrise PG")
	require.NoError(t, repo.Create(ctx, p))

	first, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, first.Block(bedA))
	require.NoError(t, repo.SaveWithLock(ctx, first))
	assert.Equal(t, 2, first.Version)

	require.NoError(t, second.Occupy(bedA, uuid.New()))
	err = repo.SaveWithLock(ctx, second)
	assert.True(t, shared.HasCode(err, shared.CodeOptimisticLockFailed))
	assert.Equal(t, 1, second.Version)

	stored, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	bed, _ := stored.FindBed(bedA)
	assert.Equal(t, property.BedStatusBlocked, bed.Status)
	assert.Equal(t, 2, stored.Version)
}

func TestGormPropertyRepository_FindAll(t *testing.T) {
	ctx := context.Background()
	repo := NewGormPropertyRepository(newSQLiteDatabase(t).DB)
	for _, name := range []string{"Sunrise PG", "Moonlight Residency", "Sunset Hostel"} {
		require.NoError(t, repo.Create(ctx, newTestProperty(t, name)))
	}

	t.Run("search is case-insensitive", func(t *testing.T) {
		filter := shared.Filter{Search: "SUN", OrderBy: "name", OrderDir: "asc", PageSize: 10, Page: 1}
		items, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Sunrise PG", items[0].Name)
		assert.Equal(t, "Sunset Hostel", items[1].Name)

		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("zero page size returns every match", func(t *testing.T) {
		items, err := repo.FindAll(ctx, shared.Filter{})
		require.NoError(t, err)
		assert.Len(t, items, 3)
	})

	t.Run("pagination", func(t *testing.T) {
		items, err := repo.FindAll(ctx, shared.Filter{OrderBy: "name", OrderDir: "asc", Page: 2, PageSize: 2})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Sunset Hostel", items[0].Name)
	})

	t.Run("wildcards are literal", func(t *testing.T) {
		items, err := repo.FindAll(ctx, shared.Filter{Search: "%"})
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestGormPropertyRepository_FindByTenantReference(t *testing.T) {
	ctx := context.Background()
	repo := NewGormPropertyRepository(newSQLiteDatabase(t).DB)
	tenantID := uuid.New()

	holding := newTestProperty(t, "Sunrise PG")
	require.NoError(t, holding.Occupy(bedA, tenantID))
	require.NoError(t, repo.Create(ctx, holding))
	other := newTestProperty(t, "Moonlight")
	require.NoError(t, other.Occupy(bedA, uuid.New()))
	require.NoError(t, repo.Create(ctx, other))

	found, err := repo.FindByTenantReference(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, holding.ID, found[0].ID)

	none, err := repo.FindByTenantReference(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormPropertyRepository_DeleteByID(t *testing.T) {
	ctx := context.Background()
	repo := NewGormPropertyRepository(newSQLiteDatabase(t).DB)
	p := newTestProperty(t, "Sunrise PG")
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, repo.DeleteByID(ctx, p.ID))
	assert.True(t, shared.IsNotFound(repo.DeleteByID(ctx, p.ID)))
}

func TestGormPropertyRepository_SaveWithLock_SQL(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t, false)
	defer mockDB.Close()
	repo := NewGormPropertyRepository(db.DB)
	p := newTestProperty(t, "Sunrise PG")
	p.Version = 4

	mock.ExpectExec(`UPDATE "properties" SET .*"version"=\$\d+.* WHERE \(?id = \$\d+ AND version = \$\d+\)?`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveWithLock(context.Background(), p)

	assert.True(t, shared.HasCode(err, shared.CodeOptimisticLockFailed))
	assert.Equal(t, 4, p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormTenantRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewGormTenantRepository(newSQLiteDatabase(t).DB)
	tn := newTestTenant(t, "Ravi Kumar", "9876543210", uuid.New())
	_, err := tn.RecordPayment(tenant.PaymentEntry{
		Amount: decimal.NewFromInt(8000), Date: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), Mode: tenant.PaymentModeUPI,
	})
	require.NoError(t, err)

	require.NoError(t, repo.Create(ctx, tn))

	got, err := repo.FindByID(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", got.Personal.Name)
	assert.Equal(t, tenant.StayStatusActive, got.Stay.Status)
	assert.True(t, got.Stay.RentAmount.Equal(decimal.NewFromInt(8000)))
	assert.True(t, got.Stay.JoinDate.Equal(tn.Stay.JoinDate))
	assert.Equal(t, bedA, got.Stay.Location())
	require.Len(t, got.Payments, 1)
	assert.Equal(t, tenant.PaymentModeUPI, got.Payments[0].Mode)

	byMobile, err := repo.FindByMobile(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, tn.ID, byMobile.ID)

	_, err = repo.FindByMobile(ctx, "9000000000")
	assert.True(t, shared.IsNotFound(err))
}

func TestGormTenantRepository_DuplicateMobile(t *testing.T) {
	ctx := context.Background()
	repo := NewGormTenantRepository(newSQLiteDatabase(t).DB)
	require.NoError(t, repo.Create(ctx, newTestTenant(t, "Ravi", "9876543210", uuid.New())))

	err := repo.Create(ctx, newTestTenant(t, "Someone Else", "9876543210", uuid.New()))

	assert.True(t, shared.HasCode(err, shared.CodeAlreadyExists))
}

func TestGormTenantRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()
	repo := NewGormTenantRepository(newSQLiteDatabase(t).DB)
	tn := newTestTenant(t, "Ravi", "9876543210", uuid.New())
	require.NoError(t, repo.Create(ctx, tn))

	stale, err := repo.FindByID(ctx, tn.ID)
	require.NoError(t, err)

	require.NoError(t, tn.GiveNotice(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, repo.SaveWithLock(ctx, tn))

	stale.AppDownloaded = true
	err = repo.SaveWithLock(ctx, stale)
	assert.True(t, shared.HasCode(err, shared.CodeOptimisticLockFailed))

	got, err := repo.FindByID(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StayStatusOnNotice, got.Stay.Status)
	require.NotNil(t, got.Stay.NoticeDate)
	assert.False(t, got.AppDownloaded)
	assert.Equal(t, 2, got.Version)
}

func TestGormTenantRepository_Filters(t *testing.T) {
	ctx := context.Background()
	repo := NewGormTenantRepository(newSQLiteDatabase(t).DB)
	propA, propB := uuid.New(), uuid.New()

	ravi := newTestTenant(t, "Ravi Kumar", "9876543210", propA)
	priya := newTestTenant(t, "Priya Sharma", "9123456780", propA)
	arjun := newTestTenant(t, "Arjun Rao", "9988776655", propB)
	require.NoError(t, arjun.Vacate(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true))
	for _, tn := range []*tenant.Tenant{ravi, priya, arjun} {
		require.NoError(t, repo.Create(ctx, tn))
	}

	tests := []struct {
		name   string
		filter shared.Filter
		want   int
	}{
		{"search by name", shared.Filter{Search: "ravi"}, 1},
		{"search by mobile", shared.Filter{Search: "91234"}, 1},
		{"by status", shared.Filter{Filters: map[string]interface{}{tenant.FilterStatus: "Active"}}, 2},
		{"by property", shared.Filter{Filters: map[string]interface{}{tenant.FilterPropertyID: propA.String()}}, 2},
		{"status and property", shared.Filter{Filters: map[string]interface{}{
			tenant.FilterStatus: tenant.StayStatusVacated, tenant.FilterPropertyID: propB,
		}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := repo.FindAll(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
			count, err := repo.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.want), count)
		})
	}

	t.Run("invalid status", func(t *testing.T) {
		_, err := repo.FindAll(ctx, shared.Filter{Filters: map[string]interface{}{tenant.FilterStatus: "Evicted"}})
		assert.True(t, shared.HasCode(err, shared.CodeInvalidInput))
	})

	t.Run("find by status", func(t *testing.T) {
		live, err := repo.FindByStatus(ctx, tenant.StayStatusActive, tenant.StayStatusOnNotice)
		require.NoError(t, err)
		assert.Len(t, live, 2)
		none, err := repo.FindByStatus(ctx)
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestGormTransactionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormTransactionRepository(newSQLiteDatabase(t).DB)
	tenantID, propertyID := uuid.New(), uuid.New()
	jan := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	rent, err := finance.NewTransaction(finance.TransactionTypeRent, decimal.NewFromInt(8000), jan,
		finance.TransactionStatusCollected, finance.TransactionModeUPI, "Rent payment from Ravi")
	require.NoError(t, err)
	eventID := uuid.New()
	rent.ForTenant(tenantID, propertyID).FromEvent(eventID)
	require.NoError(t, repo.Save(ctx, rent))

	expense, err := finance.NewTransaction(finance.TransactionTypeExpense, decimal.NewFromInt(1500), jan.AddDate(0, 1, 0),
		"", "", "Plumbing")
	require.NoError(t, err)
	expense.ForProperty(propertyID)
	require.NoError(t, repo.Save(ctx, expense))

	t.Run("exists for event", func(t *testing.T) {
		exists, err := repo.ExistsForEvent(ctx, eventID)
		require.NoError(t, err)
		assert.True(t, exists)
		exists, err = repo.ExistsForEvent(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("second projection of an event is rejected", func(t *testing.T) {
		dup, err := finance.NewTransaction(finance.TransactionTypeRent, decimal.NewFromInt(8000), jan,
			finance.TransactionStatusCollected, finance.TransactionModeUPI, "")
		require.NoError(t, err)
		dup.FromEvent(eventID)
		assert.True(t, shared.HasCode(repo.Save(ctx, dup), shared.CodeAlreadyExists))
	})

	t.Run("filters", func(t *testing.T) {
		items, err := repo.FindAll(ctx, finance.TransactionFilter{TenantID: &tenantID})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, rent.ID, items[0].ID)

		from := jan.AddDate(0, 0, 10)
		items, err = repo.FindAll(ctx, finance.TransactionFilter{From: &from})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, finance.TransactionTypeExpense, items[0].Type)

		count, err := repo.Count(ctx, finance.TransactionFilter{PropertyID: &propertyID})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("update status", func(t *testing.T) {
		require.NoError(t, expense.UpdateStatus(finance.TransactionStatusCollected))
		require.NoError(t, repo.Save(ctx, expense))
		got, err := repo.FindByID(ctx, expense.ID)
		require.NoError(t, err)
		assert.Equal(t, finance.TransactionStatusCollected, got.Status)
	})

	t.Run("summary rows", func(t *testing.T) {
		rows, err := repo.SummaryRows(ctx, finance.TransactionFilter{})
		require.NoError(t, err)
		summary := finance.Summarize(rows)
		require.Len(t, summary, 3)
		assert.True(t, summary[0].Collected.Equal(decimal.NewFromInt(8000)))
		assert.True(t, summary[2].Total.Equal(decimal.NewFromInt(1500)))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.DeleteByID(ctx, expense.ID))
		_, err := repo.FindByID(ctx, expense.ID)
		assert.True(t, shared.IsNotFound(err))
	})
}

func TestGormTransactionScope_RollsBack(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	properties := NewGormPropertyRepository(db.DB)
	p := newTestProperty(t, "Sunrise PG")
	require.NoError(t, properties.Create(ctx, p))
	tenantID := uuid.New()

	err := NewGormTransactionScope(db.DB).Execute(ctx, func(repos tenancy.TransactionalRepositories) error {
		loaded, err := repos.PropertyRepo().FindByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := loaded.Occupy(bedA, tenantID); err != nil {
			return err
		}
		if err := repos.PropertyRepo().SaveWithLock(ctx, loaded); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	stored, err := properties.FindByID(ctx, p.ID)
	require.NoError(t, err)
	bed, _ := stored.FindBed(bedA)
	assert.Equal(t, property.BedStatusAvailable, bed.Status)
	assert.Equal(t, 1, stored.Version)
}

// Move-ins racing for one bed through the real coordinator: exactly one wins.
func TestCoordinator_ConcurrentMoveIn_SQLite(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)
	properties := NewGormPropertyRepository(db.DB)
	tenants := NewGormTenantRepository(db.DB)
	p := newTestProperty(t, "Sunrise PG")
	require.NoError(t, properties.Create(ctx, p))

	coord := tenancy.NewCoordinator(properties, tenants, NewGormTransactionScope(db.DB), lock.NewMemoryLocker(0), nil)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := coord.MoveIn(ctx, tenancy.MoveInCommand{
				Personal:   tenant.PersonalDetails{Name: "Resident", Mobile: fmt.Sprintf("98765432%02d", i)},
				PropertyID: p.ID,
				Location:   bedA,
				JoinDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				RentAmount: decimal.NewFromInt(8000),
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	live, err := tenants.FindByStatus(ctx, tenant.StayStatusActive)
	require.NoError(t, err)
	assert.Len(t, live, 1)
}

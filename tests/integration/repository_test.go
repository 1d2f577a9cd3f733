package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/nivaasi/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLayout() []property.Floor {
	return []property.Floor{{
		Name: "Ground",
		Rooms: []property.Room{{
			Number:   "101",
			Capacity: 2,
			Beds:     []property.Bed{{ID: "A"}, {ID: "B", Status: property.BedStatusBlocked}},
		}},
	}}
}

func TestPropertyRepository_JSONBRoundTrip(t *testing.T) {
	tdb := NewSharedTestDB(t)
	repo := persistence.NewGormPropertyRepository(tdb.DB)
	ctx := context.Background()

	p, err := property.NewProperty("Sunrise PG", "12 MG Road", "9800000000", newLayout())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, p))

	loaded, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunrise PG", loaded.Name)
	require.Len(t, loaded.Floors, 1)
	require.Len(t, loaded.Floors[0].Rooms[0].Beds, 2)
	assert.Equal(t, property.BedStatusAvailable, loaded.Floors[0].Rooms[0].Beds[0].Status)
	assert.Equal(t, property.BedStatusBlocked, loaded.Floors[0].Rooms[0].Beds[1].Status)

	tenantID := uuid.New()
	loc := property.BedLocation{FloorName: "Ground", RoomNumber: "101", BedID: "A"}
	require.NoError(t, loaded.Occupy(loc, tenantID))
	require.NoError(t, repo.SaveWithLock(ctx, loaded))

	found, err := repo.FindByTenantReference(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, p.ID, found[0].ID)

	bed, err := found[0].FindBed(loc)
	require.NoError(t, err)
	assert.Equal(t, property.BedStatusOccupied, bed.Status)
	require.NotNil(t, bed.TenantID)
	assert.Equal(t, tenantID, *bed.TenantID)
}

func TestPropertyRepository_OptimisticLock(t *testing.T) {
	tdb := NewSharedTestDB(t)
	repo := persistence.NewGormPropertyRepository(tdb.DB)
	ctx := context.Background()

	p, err := property.NewProperty("Sunrise PG", "", "", newLayout())
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, p))

	first, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, first.Occupy(property.BedLocation{FloorName: "Ground", RoomNumber: "101", BedID: "A"}, uuid.New()))
	require.NoError(t, repo.SaveWithLock(ctx, first))

	require.NoError(t, second.Unblock(property.BedLocation{FloorName: "Ground", RoomNumber: "101", BedID: "B"}))
	err = repo.SaveWithLock(ctx, second)
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeOptimisticLockFailed))

	stored, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Version, stored.Version)
	assert.Equal(t, 1, stored.Stats().Occupied)
	assert.Equal(t, 1, stored.Stats().Blocked)
}

func TestTenantRepository_PaymentsAndUniqueMobile(t *testing.T) {
	tdb := NewSharedTestDB(t)
	repo := persistence.NewGormTenantRepository(tdb.DB)
	ctx := context.Background()

	loc := property.BedLocation{FloorName: "Ground", RoomNumber: "101", BedID: "A"}
	join := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	tn, err := tenant.NewTenant(tenant.PersonalDetails{Name: "Asha Rao", Mobile: "9876543210"},
		uuid.New(), loc, join, decimal.NewFromInt(8000), decimal.NewFromInt(16000))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tn))

	_, err = tn.RecordPayment(tenant.PaymentEntry{
		Amount:  decimal.RequireFromString("8000.50"),
		Date:    join,
		Mode:    tenant.PaymentModeUPI,
		Remarks: "January",
	})
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLock(ctx, tn))

	loaded, err := repo.FindByID(ctx, tn.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Payments, 1)
	assert.True(t, loaded.Payments[0].Amount.Equal(decimal.RequireFromString("8000.50")))
	assert.Equal(t, tenant.PaymentModeUPI, loaded.Payments[0].Mode)
	assert.Equal(t, tenant.PaymentStatusCollected, loaded.Payments[0].Status)
	assert.Equal(t, 1, loaded.Payments[0].Seq)
	assert.True(t, loaded.Stay.JoinDate.Equal(join))
	assert.True(t, loaded.Stay.RentAmount.Equal(decimal.NewFromInt(8000)))

	byMobile, err := repo.FindByMobile(ctx, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, tn.ID, byMobile.ID)

	dup, err := tenant.NewTenant(tenant.PersonalDetails{Name: "Someone Else", Mobile: "9876543210"},
		uuid.New(), loc, join, decimal.NewFromInt(5000), decimal.Zero)
	require.NoError(t, err)
	err = repo.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, shared.HasCode(err, shared.CodeAlreadyExists))
}

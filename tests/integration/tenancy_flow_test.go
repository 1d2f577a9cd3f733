package integration

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/application/tenancy"
	"github.com/nivaasi/backend/internal/domain/finance"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/nivaasi/backend/internal/interfaces/http/handler"
	"github.com/nivaasi/backend/internal/interfaces/http/middleware"
	"github.com/nivaasi/backend/internal/interfaces/http/router"
	"github.com/nivaasi/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPI(t *testing.T, s *testutil.Stack) *gin.Engine {
	t.Helper()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	router.Mount(engine, router.NewRouter(engine), router.Handlers{
		Property:    handler.NewPropertyHandler(s.PropertyService),
		Tenant:      handler.NewTenantHandler(s.Coordinator),
		Transaction: handler.NewTransactionHandler(s.TransactionService),
		System:      handler.NewSystemHandler("nivaasi", "integration", s.DB, nil),
	})
	return engine
}

func TestTenancyLifecycle_Postgres(t *testing.T) {
	tdb := NewSharedTestDB(t)
	s := testutil.NewStackOn(t, tdb.Database)
	api := newAPI(t, s)

	w := testutil.Do(t, api, http.MethodGet, "/health", nil)
	testutil.AssertSuccess(t, w, http.StatusOK)

	w = testutil.Do(t, api, http.MethodPost, "/api/v1/properties", map[string]any{
		"name": "Sunrise PG",
		"floors": []map[string]any{{
			"floor_name": "Ground",
			"rooms": []map[string]any{
				{"room_number": "101", "beds": []map[string]any{{"bed_id": "A"}, {"bed_id": "B"}}},
				{"room_number": "102", "beds": []map[string]any{{"bed_id": "A"}}},
			},
		}},
	})
	testutil.AssertSuccess(t, w, http.StatusCreated)
	p := testutil.DecodeData[handler.PropertyResponse](t, w)

	w = testutil.Do(t, api, http.MethodPost, "/api/v1/tenants", map[string]any{
		"name": "Asha Rao", "mobile": "9876543210", "property_id": p.ID,
		"floor_name": "Ground", "room_number": "101", "bed_id": "A",
		"join_date": "2024-01-15", "rent_amount": "8000", "security_deposit": "16000",
	})
	testutil.AssertSuccess(t, w, http.StatusCreated)
	tn := testutil.DecodeData[handler.TenantResponse](t, w)
	base := "/api/v1/tenants/" + tn.ID

	w = testutil.Do(t, api, http.MethodPost, base+"/payments", map[string]any{"amount": 8000, "date": "2024-01-15", "mode": "UPI"})
	testutil.AssertSuccess(t, w, http.StatusCreated)

	w = testutil.Do(t, api, http.MethodGet, base+"/billing?as_of=2024-03-20", nil)
	testutil.AssertSuccess(t, w, http.StatusOK)
	bill := testutil.DecodeData[handler.BillingResponse](t, w)
	assert.Equal(t, 3, bill.MonthsElapsed)
	assert.Equal(t, "16000", bill.Outstanding.String())
	assert.Equal(t, "2024-02-15", bill.NextDueDate)

	w = testutil.Do(t, api, http.MethodPost, base+"/transfer", map[string]any{
		"property_id": p.ID, "floor_name": "Ground", "room_number": "102", "bed_id": "A",
	})
	testutil.AssertSuccess(t, w, http.StatusOK)

	w = testutil.Do(t, api, http.MethodGet, "/api/v1/properties/"+p.ID+"/stats", nil)
	stats := testutil.DecodeData[property.OccupancyStats](t, w)
	assert.Equal(t, property.OccupancyStats{Total: 3, Available: 2, Occupied: 1}, stats)

	w = testutil.Do(t, api, http.MethodPost, base+"/notice", map[string]any{"notice_date": "2024-03-01"})
	testutil.AssertSuccess(t, w, http.StatusOK)
	w = testutil.Do(t, api, http.MethodPost, base+"/move-out", nil)
	testutil.AssertSuccess(t, w, http.StatusOK)

	w = testutil.Do(t, api, http.MethodGet, "/api/v1/properties/"+p.ID+"/stats", nil)
	stats = testutil.DecodeData[property.OccupancyStats](t, w)
	assert.Equal(t, 3, stats.Available)

	w = testutil.Do(t, api, http.MethodGet, "/api/v1/transactions/summary", nil)
	testutil.AssertSuccess(t, w, http.StatusOK)
	summary := testutil.DecodeData[[]finance.TypeSummary](t, w)
	require.Len(t, summary, 3)
	assert.True(t, summary[0].Collected.Equal(decimal.NewFromInt(8000)), summary[0].Collected.String())
	assert.True(t, summary[1].Collected.Equal(decimal.NewFromInt(16000)), summary[1].Collected.String())

	inconsistencies, err := s.Coordinator.CheckConsistency(context.Background())
	require.NoError(t, err)
	assert.Empty(t, inconsistencies)
}

func TestConcurrentMoveIn_OneWinnerPerBed(t *testing.T) {
	tdb := NewSharedTestDB(t)
	s := testutil.NewStackOn(t, tdb.Database)
	ctx := context.Background()

	p, err := property.NewProperty("Sunrise PG", "", "", []property.Floor{{
		Name:  "Ground",
		Rooms: []property.Room{{Number: "101", Beds: []property.Bed{{ID: "A"}}}},
	}})
	require.NoError(t, err)
	require.NoError(t, s.Properties.Create(ctx, p))

	const contenders = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []uuid.UUID
		failures []error
	)
	for i := range contenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tn, err := s.Coordinator.MoveIn(ctx, tenancy.MoveInCommand{
				Personal:   tenant.PersonalDetails{Name: fmt.Sprintf("Resident %d", i), Mobile: fmt.Sprintf("90000000%02d", i)},
				PropertyID: p.ID,
				Location:   property.BedLocation{FloorName: "Ground", RoomNumber: "101", BedID: "A"},
				JoinDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				RentAmount: decimal.NewFromInt(7000),
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			winners = append(winners, tn.ID)
		}()
	}
	wg.Wait()

	require.Len(t, winners, 1)
	require.Len(t, failures, contenders-1)
	for _, err := range failures {
		assert.True(t, shared.HasCode(err, shared.CodeConflict), err.Error())
	}

	live, err := s.Tenants.FindByStatus(ctx, tenant.StayStatusActive)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, winners[0], live[0].ID)

	stored, err := s.Properties.FindByID(ctx, p.ID)
	require.NoError(t, err)
	owner, ok := stored.FindBedByTenant(winners[0])
	require.True(t, ok)
	assert.Equal(t, "A", owner.BedID)
}

package property

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPropertyRepository is a mock implementation of property.PropertyRepository
type MockPropertyRepository struct {
	mock.Mock
}

func (m *MockPropertyRepository) FindByID(ctx context.Context, id uuid.UUID) (*property.Property, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*property.Property), args.Error(1)
}

func (m *MockPropertyRepository) FindAll(ctx context.Context, filter shared.Filter) ([]property.Property, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]property.Property), args.Error(1)
}

func (m *MockPropertyRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPropertyRepository) FindByTenantReference(ctx context.Context, tenantID uuid.UUID) ([]property.Property, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]property.Property), args.Error(1)
}

func (m *MockPropertyRepository) Create(ctx context.Context, p *property.Property) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPropertyRepository) SaveWithLock(ctx context.Context, p *property.Property) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPropertyRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) Lock(ctx context.Context, key string) (func(), error) {
	args := m.Called(ctx, key)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	return func() {}, nil
}

type capturePublisher struct {
	events []shared.DomainEvent
}

func (c *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	c.events = append(c.events, events...)
	return nil
}

func testProperty(t *testing.T) *property.Property {
	t.Helper()
	p, err := property.NewProperty("Sunrise PG", "12 MG Road", "9800000000", []property.Floor{
		{Name: "Ground", Rooms: []property.Room{
			{Number: "G1", Capacity: 2, Beds: []property.Bed{{ID: "A"}, {ID: "B", Status: property.BedStatusBlocked}}},
		}},
	})
	require.NoError(t, err)
	p.ClearDomainEvents()
	return p
}

func newService() (*PropertyService, *MockPropertyRepository, *MockLocker, *capturePublisher) {
	repo := new(MockPropertyRepository)
	locker := new(MockLocker)
	locker.On("Lock", mock.Anything, mock.Anything).Return(nil, nil)
	pub := &capturePublisher{}
	svc := NewPropertyService(repo, locker, nil)
	svc.SetEventPublisher(pub)
	return svc, repo, locker, pub
}

func TestPropertyService_Create(t *testing.T) {
	svc, repo, _, pub := newService()
	repo.On("Create", mock.Anything, mock.AnythingOfType("*property.Property")).Return(nil)

	p, err := svc.Create(context.Background(), CreatePropertyInput{
		Name: "Sunrise PG",
		Floors: []property.Floor{{Name: "Ground", Rooms: []property.Room{
			{Number: "G1", Capacity: 1, Beds: []property.Bed{{ID: "A"}}},
		}}},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, p.Stats().Total)
	require.Len(t, pub.events, 1)
	assert.Equal(t, property.EventTypePropertyCreated, pub.events[0].EventType())
	repo.AssertExpectations(t)
}

func TestPropertyService_Create_InvalidLayout(t *testing.T) {
	svc, repo, _, _ := newService()

	_, err := svc.Create(context.Background(), CreatePropertyInput{
		Name: "Sunrise PG",
		Floors: []property.Floor{{Name: "Ground", Rooms: []property.Room{
			{Number: "G1", Capacity: 1, Beds: []property.Bed{{ID: "A", Status: property.BedStatusOccupied}}},
		}}},
	})

	assert.True(t, shared.HasCode(err, shared.CodeValidation))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPropertyService_BlockBed(t *testing.T) {
	ctx := context.Background()
	loc := property.BedLocation{FloorName: "Ground", RoomNumber: "G1", BedID: "A"}

	t.Run("saves under the property lock", func(t *testing.T) {
		svc, repo, locker, pub := newService()
		p := testProperty(t)
		repo.On("FindByID", ctx, p.ID).Return(p, nil)
		repo.On("SaveWithLock", ctx, p).Return(nil)

		out, err := svc.BlockBed(ctx, p.ID, loc)

		require.NoError(t, err)
		bed, _ := out.FindBed(loc)
		assert.Equal(t, property.BedStatusBlocked, bed.Status)
		locker.AssertCalled(t, "Lock", ctx, "property:"+p.ID.String())
		require.Len(t, pub.events, 1)
		assert.Equal(t, property.EventTypeBedBlockChanged, pub.events[0].EventType())
	})

	t.Run("blocking a blocked bed does not write", func(t *testing.T) {
		svc, repo, _, pub := newService()
		p := testProperty(t)
		repo.On("FindByID", ctx, p.ID).Return(p, nil)

		_, err := svc.BlockBed(ctx, p.ID, property.BedLocation{FloorName: "Ground", RoomNumber: "G1", BedID: "B"})

		require.NoError(t, err)
		repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		assert.Empty(t, pub.events)
	})

	t.Run("lost version race is a conflict", func(t *testing.T) {
		svc, repo, _, _ := newService()
		p := testProperty(t)
		repo.On("FindByID", ctx, p.ID).Return(p, nil)
		repo.On("SaveWithLock", ctx, p).Return(shared.NewDomainError(shared.CodeOptimisticLockFailed, "stale"))

		_, err := svc.BlockBed(ctx, p.ID, loc)

		assert.True(t, shared.HasCode(err, shared.CodeConflict))
	})
}

func TestPropertyService_UnblockBed(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newService()
	p := testProperty(t)
	repo.On("FindByID", ctx, p.ID).Return(p, nil)

	_, err := svc.UnblockBed(ctx, p.ID, property.BedLocation{FloorName: "Ground", RoomNumber: "G1", BedID: "A"})

	assert.True(t, shared.IsConflict(err))
	repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestPropertyService_AddBed(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newService()
	p := testProperty(t)
	repo.On("FindByID", ctx, p.ID).Return(p, nil)

	_, err := svc.AddBed(ctx, p.ID, "Ground", "G1", "C")

	require.Error(t, err, "room is at capacity")
	repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestPropertyService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses while residents remain", func(t *testing.T) {
		svc, repo, _, _ := newService()
		p := testProperty(t)
		require.NoError(t, p.Occupy(property.BedLocation{FloorName: "Ground", RoomNumber: "G1", BedID: "A"}, uuid.New()))
		repo.On("FindByID", ctx, p.ID).Return(p, nil)

		err := svc.Delete(ctx, p.ID)

		assert.True(t, shared.IsConflict(err))
		repo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
	})

	t.Run("deletes an empty property", func(t *testing.T) {
		svc, repo, _, _ := newService()
		p := testProperty(t)
		repo.On("FindByID", ctx, p.ID).Return(p, nil)
		repo.On("DeleteByID", ctx, p.ID).Return(nil)

		require.NoError(t, svc.Delete(ctx, p.ID))
		repo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		svc, repo, _, _ := newService()
		id := uuid.New()
		repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		assert.True(t, shared.IsNotFound(svc.Delete(ctx, id)))
	})
}

func TestPropertyService_List(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _ := newService()
	filter := shared.DefaultFilter()
	repo.On("FindAll", ctx, filter).Return([]property.Property{*testProperty(t)}, nil)
	repo.On("Count", ctx, filter).Return(int64(1), nil)

	items, total, err := svc.List(ctx, filter)

	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int64(1), total)
}

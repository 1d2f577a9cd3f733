package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventHandler) EventTypes() []string {
	args := m.Called()
	return args.Get(0).([]string)
}

type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Forget(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

func TestIdempotentHandler_NewEvent(t *testing.T) {
	handler := new(MockEventHandler)
	store := new(MockIdempotencyStore)
	event := newTestEvent(tenant.EventTypePaymentRecorded)

	store.On("MarkProcessed", mock.Anything, event.EventID().String(), 24*time.Hour).Return(true, nil)
	handler.On("Handle", mock.Anything, event).Return(nil)

	h := NewIdempotentHandler(handler, store, zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), event))

	assert.Equal(t, int64(1), h.GetMetrics().Stats().EventsProcessed)
	handler.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestIdempotentHandler_DuplicateSkipped(t *testing.T) {
	handler := new(MockEventHandler)
	store := new(MockIdempotencyStore)
	event := newTestEvent(tenant.EventTypePaymentRecorded)

	store.On("MarkProcessed", mock.Anything, event.EventID().String(), mock.Anything).Return(false, nil)

	h := NewIdempotentHandler(handler, store, zap.NewNop())
	require.NoError(t, h.Handle(context.Background(), event))

	handler.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
	assert.Equal(t, int64(1), h.GetMetrics().Stats().EventsDuplicate)
}

func TestIdempotentHandler_FailureReleasesClaim(t *testing.T) {
	handler := new(MockEventHandler)
	store := new(MockIdempotencyStore)
	event := newTestEvent(tenant.EventTypePaymentRecorded)
	id := event.EventID().String()

	store.On("MarkProcessed", mock.Anything, id, mock.Anything).Return(true, nil)
	store.On("Forget", mock.Anything, id).Return(nil)
	handler.On("Handle", mock.Anything, event).Return(errors.New("db down"))

	h := NewIdempotentHandler(handler, store, zap.NewNop())
	err := h.Handle(context.Background(), event)

	assert.EqualError(t, err, "db down")
	assert.Equal(t, int64(1), h.GetMetrics().Stats().EventsFailed)
	store.AssertCalled(t, "Forget", mock.Anything, id)
}

func TestIdempotentHandler_StoreErrorStillProcesses(t *testing.T) {
	handler := new(MockEventHandler)
	store := new(MockIdempotencyStore)
	event := newTestEvent(tenant.EventTypeTenantMovedIn)

	store.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down"))
	handler.On("Handle", mock.Anything, event).Return(errors.New("still failing"))

	h := NewIdempotentHandler(handler, store, zap.NewNop())
	require.Error(t, h.Handle(context.Background(), event))

	// Nothing was claimed, so there is nothing to forget.
	store.AssertNotCalled(t, "Forget", mock.Anything, mock.Anything)
}

func TestIdempotentHandler_Disabled(t *testing.T) {
	handler := new(MockEventHandler)
	store := new(MockIdempotencyStore)
	event := newTestEvent(tenant.EventTypeTenantMovedIn)
	handler.On("Handle", mock.Anything, event).Return(nil)

	h := NewIdempotentHandler(handler, store, zap.NewNop(),
		WithIdempotencyConfig(shared.IdempotencyConfig{Enabled: false}))
	require.NoError(t, h.Handle(context.Background(), event))
	require.NoError(t, h.Handle(context.Background(), event))

	handler.AssertNumberOfCalls(t, "Handle", 2)
	store.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything, mock.Anything)
}

func TestIdempotentHandler_SharedMetricsAndTypes(t *testing.T) {
	handler := new(MockEventHandler)
	handler.On("EventTypes").Return([]string{tenant.EventTypePaymentRecorded})
	metrics := &IdempotencyMetrics{}

	h := NewIdempotentHandler(handler, new(MockIdempotencyStore), nil, WithIdempotencyMetrics(metrics))
	assert.Same(t, metrics, h.GetMetrics())
	assert.Equal(t, []string{tenant.EventTypePaymentRecorded}, h.EventTypes())
}

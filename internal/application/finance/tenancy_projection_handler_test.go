package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/finance"
	"github.com/nivaasi/backend/internal/domain/property"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*finance.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindAll(ctx context.Context, filter finance.TransactionFilter) ([]finance.Transaction, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]finance.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Count(ctx context.Context, filter finance.TransactionFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) ExistsForEvent(ctx context.Context, eventID uuid.UUID) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockTransactionRepository) SummaryRows(ctx context.Context, filter finance.TransactionFilter) ([]finance.SummaryRow, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]finance.SummaryRow), args.Error(1)
}

func (m *MockTransactionRepository) Save(ctx context.Context, tx *finance.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestTenant(t *testing.T, deposit int64) *tenant.Tenant {
	t.Helper()
	tn, err := tenant.NewTenant(
		tenant.PersonalDetails{Name: "Ravi Kumar", Mobile: "9876543210"},
		uuid.New(),
		property.BedLocation{FloorName: "Ground", RoomNumber: "G1", BedID: "A"},
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		decimal.NewFromInt(8000),
		decimal.NewFromInt(deposit),
	)
	require.NoError(t, err)
	return tn
}

func TestTenancyProjectionHandler_EventTypes(t *testing.T) {
	h := NewTenancyProjectionHandler(new(MockTransactionRepository), zap.NewNop())
	assert.ElementsMatch(t, []string{tenant.EventTypePaymentRecorded, tenant.EventTypeTenantMovedIn}, h.EventTypes())
}

func TestTenancyProjectionHandler_Payment(t *testing.T) {
	ctx := context.Background()
	tn := newTestTenant(t, 0)
	entry, err := tn.RecordPayment(tenant.PaymentEntry{
		Amount: decimal.NewFromInt(8000), Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Mode: tenant.PaymentModeUPI, Remarks: "January",
	})
	require.NoError(t, err)
	event := tenant.NewPaymentRecordedEvent(tn, entry)

	repo := new(MockTransactionRepository)
	repo.On("ExistsForEvent", ctx, event.EventID()).Return(false, nil)
	repo.On("Save", ctx, mock.MatchedBy(func(tx *finance.Transaction) bool {
		return tx.Type == finance.TransactionTypeRent &&
			tx.Status == finance.TransactionStatusCollected &&
			tx.Mode == finance.TransactionModeUPI &&
			tx.Amount.Equal(decimal.NewFromInt(8000)) &&
			*tx.TenantID == tn.ID &&
			*tx.PropertyID == tn.Stay.PropertyID &&
			*tx.SourceEventID == event.EventID() &&
			tx.Description == "Rent payment from Ravi Kumar (January)"
	})).Return(nil)

	h := NewTenancyProjectionHandler(repo, zap.NewNop())
	require.NoError(t, h.Handle(ctx, event))
	repo.AssertExpectations(t)
}

func TestTenancyProjectionHandler_PendingPayment(t *testing.T) {
	ctx := context.Background()
	tn := newTestTenant(t, 0)
	entry, err := tn.RecordPayment(tenant.PaymentEntry{
		Amount: decimal.NewFromInt(500), Date: time.Now(), Status: tenant.PaymentStatusPending,
	})
	require.NoError(t, err)
	event := tenant.NewPaymentRecordedEvent(tn, entry)

	repo := new(MockTransactionRepository)
	repo.On("ExistsForEvent", ctx, event.EventID()).Return(false, nil)
	repo.On("Save", ctx, mock.MatchedBy(func(tx *finance.Transaction) bool {
		return tx.Status == finance.TransactionStatusPending
	})).Return(nil)

	require.NoError(t, NewTenancyProjectionHandler(repo, zap.NewNop()).Handle(ctx, event))
	repo.AssertExpectations(t)
}

func TestTenancyProjectionHandler_Deposit(t *testing.T) {
	ctx := context.Background()

	t.Run("deposit becomes a Deposit transaction", func(t *testing.T) {
		tn := newTestTenant(t, 16000)
		event := tenant.NewTenantMovedInEvent(tn)
		repo := new(MockTransactionRepository)
		repo.On("ExistsForEvent", ctx, event.EventID()).Return(false, nil)
		repo.On("Save", ctx, mock.MatchedBy(func(tx *finance.Transaction) bool {
			return tx.Type == finance.TransactionTypeDeposit &&
				tx.Amount.Equal(decimal.NewFromInt(16000)) &&
				tx.Date.Equal(tn.Stay.JoinDate)
		})).Return(nil)

		require.NoError(t, NewTenancyProjectionHandler(repo, zap.NewNop()).Handle(ctx, event))
		repo.AssertExpectations(t)
	})

	t.Run("no deposit, no transaction", func(t *testing.T) {
		tn := newTestTenant(t, 0)
		repo := new(MockTransactionRepository)

		require.NoError(t, NewTenancyProjectionHandler(repo, zap.NewNop()).Handle(ctx, tenant.NewTenantMovedInEvent(tn)))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestTenancyProjectionHandler_Idempotent(t *testing.T) {
	ctx := context.Background()
	event := tenant.NewTenantMovedInEvent(newTestTenant(t, 1000))
	repo := new(MockTransactionRepository)
	repo.On("ExistsForEvent", ctx, event.EventID()).Return(true, nil)

	require.NoError(t, NewTenancyProjectionHandler(repo, zap.NewNop()).Handle(ctx, event))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestTenancyProjectionHandler_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unexpected event", func(t *testing.T) {
		other := &shared.BaseDomainEvent{ID: uuid.New(), Type: "Other"}
		err := NewTenancyProjectionHandler(new(MockTransactionRepository), zap.NewNop()).Handle(ctx, other)
		assert.Error(t, err)
	})

	t.Run("save failure is returned", func(t *testing.T) {
		event := tenant.NewTenantMovedInEvent(newTestTenant(t, 1000))
		repo := new(MockTransactionRepository)
		repo.On("ExistsForEvent", ctx, event.EventID()).Return(false, nil)
		repo.On("Save", ctx, mock.Anything).Return(errors.New("db down"))

		err := NewTenancyProjectionHandler(repo, zap.NewNop()).Handle(ctx, event)
		assert.ErrorContains(t, err, "db down")
	})
}

func TestTransactionService(t *testing.T) {
	ctx := context.Background()

	t.Run("create links property only", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		repo.On("Save", ctx, mock.AnythingOfType("*finance.Transaction")).Return(nil)
		propertyID := uuid.New()

		tx, err := NewTransactionService(repo, nil).Create(ctx, CreateTransactionInput{
			Type: finance.TransactionTypeExpense, Amount: decimal.NewFromInt(1500), PropertyID: &propertyID,
			Description: "Plumbing",
		})

		require.NoError(t, err)
		assert.Nil(t, tx.TenantID)
		assert.Equal(t, propertyID, *tx.PropertyID)
		assert.False(t, tx.Date.IsZero())
	})

	t.Run("create validates", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		_, err := NewTransactionService(repo, nil).Create(ctx, CreateTransactionInput{
			Type: finance.TransactionTypeExpense, Amount: decimal.Zero,
		})
		assert.True(t, shared.HasCode(err, shared.CodeValidation))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("update status", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		existing, err := finance.NewTransaction(finance.TransactionTypeRent, decimal.NewFromInt(10), time.Now(), "", "", "")
		require.NoError(t, err)
		repo.On("FindByID", ctx, existing.ID).Return(existing, nil)
		repo.On("Save", ctx, existing).Return(nil)

		tx, err := NewTransactionService(repo, nil).UpdateStatus(ctx, existing.ID, finance.TransactionStatusCollected)

		require.NoError(t, err)
		assert.Equal(t, finance.TransactionStatusCollected, tx.Status)
	})

	t.Run("delete missing", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		id := uuid.New()
		repo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		assert.True(t, shared.IsNotFound(NewTransactionService(repo, nil).Delete(ctx, id)))
	})

	t.Run("summary folds rows", func(t *testing.T) {
		repo := new(MockTransactionRepository)
		filter := finance.TransactionFilter{}
		repo.On("SummaryRows", ctx, filter).Return([]finance.SummaryRow{
			{Type: finance.TransactionTypeDeposit, Status: finance.TransactionStatusCollected, Total: decimal.NewFromInt(5000), Count: 1},
		}, nil)

		out, err := NewTransactionService(repo, nil).Summary(ctx, filter)

		require.NoError(t, err)
		require.Len(t, out, 3)
		assert.True(t, out[1].Collected.Equal(decimal.NewFromInt(5000)))
	})
}

package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateTransactionInput describes a manually entered transaction
type CreateTransactionInput struct {
	Type        finance.TransactionType
	Amount      decimal.Decimal
	Date        time.Time
	Status      finance.TransactionStatus
	Mode        finance.TransactionMode
	TenantID    *uuid.UUID
	PropertyID  *uuid.UUID
	Description string
}

// TransactionService manages the reporting transaction log
type TransactionService struct {
	repo   finance.TransactionRepository
	logger *zap.Logger
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(repo finance.TransactionRepository, logger *zap.Logger) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{repo: repo, logger: logger}
}

// Create stores a transaction. A zero date means today.
func (s *TransactionService) Create(ctx context.Context, in CreateTransactionInput) (*finance.Transaction, error) {
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	tx, err := finance.NewTransaction(in.Type, in.Amount, date, in.Status, in.Mode, in.Description)
	if err != nil {
		return nil, err
	}
	switch {
	case in.TenantID != nil && in.PropertyID != nil:
		tx.ForTenant(*in.TenantID, *in.PropertyID)
	case in.TenantID != nil:
		tx.TenantID = in.TenantID
	case in.PropertyID != nil:
		tx.ForProperty(*in.PropertyID)
	}

	if err := s.repo.Save(ctx, tx); err != nil {
		return nil, err
	}
	s.logger.Info("Transaction created",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("type", string(tx.Type)),
		zap.String("amount", tx.Amount.String()))
	return tx, nil
}

// GetByID returns a transaction
func (s *TransactionService) GetByID(ctx context.Context, id uuid.UUID) (*finance.Transaction, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns one page of transactions and the total match count
func (s *TransactionService) List(ctx context.Context, filter finance.TransactionFilter) ([]finance.Transaction, int64, error) {
	items, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// UpdateStatus marks a transaction Collected or Pending
func (s *TransactionService) UpdateStatus(ctx context.Context, id uuid.UUID, status finance.TransactionStatus) (*finance.Transaction, error) {
	tx, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.UpdateStatus(status); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Delete removes a transaction
func (s *TransactionService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteByID(ctx, id)
}

// Summary returns per-type totals for the filtered transactions
func (s *TransactionService) Summary(ctx context.Context, filter finance.TransactionFilter) ([]finance.TypeSummary, error) {
	rows, err := s.repo.SummaryRows(ctx, filter)
	if err != nil {
		return nil, err
	}
	return finance.Summarize(rows), nil
}

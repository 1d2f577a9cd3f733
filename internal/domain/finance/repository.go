package finance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/shared"
)

// TransactionFilter narrows transaction listings and summaries
type TransactionFilter struct {
	shared.Filter
	Type       TransactionType
	Status     TransactionStatus
	TenantID   *uuid.UUID
	PropertyID *uuid.UUID
	From       *time.Time
	To         *time.Time
}

// TransactionRepository defines the interface for transaction persistence
type TransactionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	FindAll(ctx context.Context, filter TransactionFilter) ([]Transaction, error)
	Count(ctx context.Context, filter TransactionFilter) (int64, error)
	// ExistsForEvent reports whether a projection for the event was already stored
	ExistsForEvent(ctx context.Context, eventID uuid.UUID) (bool, error)
	// SummaryRows aggregates amounts grouped by type and status
	SummaryRows(ctx context.Context, filter TransactionFilter) ([]SummaryRow, error)
	Save(ctx context.Context, tx *Transaction) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
}

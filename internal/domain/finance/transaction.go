// Package finance holds the transaction log used for reporting.
// It is a projection of tenancy activity plus manually entered expenses and is
// never consulted for a tenant's outstanding balance.
package finance

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction
type TransactionType string

const (
	TransactionTypeRent    TransactionType = "Rent"
	TransactionTypeDeposit TransactionType = "Deposit"
	TransactionTypeExpense TransactionType = "Expense"
)

// IsValid checks if the transaction type is valid
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeRent, TransactionTypeDeposit, TransactionTypeExpense:
		return true
	}
	return false
}

// TransactionStatus tells whether money actually moved
type TransactionStatus string

const (
	TransactionStatusCollected TransactionStatus = "Collected"
	TransactionStatusPending   TransactionStatus = "Pending"
)

// IsValid checks if the transaction status is valid
func (s TransactionStatus) IsValid() bool {
	return s == TransactionStatusCollected || s == TransactionStatusPending
}

// TransactionMode is the payment channel
type TransactionMode string

const (
	TransactionModeCash         TransactionMode = "Cash"
	TransactionModeUPI          TransactionMode = "UPI"
	TransactionModeBankTransfer TransactionMode = "Bank Transfer"
	TransactionModeCard         TransactionMode = "Card"
	TransactionModeNA           TransactionMode = "N/A"
)

// IsValid checks if the transaction mode is valid
func (m TransactionMode) IsValid() bool {
	switch m {
	case TransactionModeCash, TransactionModeUPI, TransactionModeBankTransfer, TransactionModeCard, TransactionModeNA:
		return true
	}
	return false
}

// Transaction is an independent ledger line kept for reporting
type Transaction struct {
	shared.BaseAggregateRoot
	Type        TransactionType
	Amount      decimal.Decimal
	Date        time.Time
	Status      TransactionStatus
	Mode        TransactionMode
	TenantID    *uuid.UUID
	PropertyID  *uuid.UUID
	Description string
	// SourceEventID links a projected transaction to the domain event that produced it.
	SourceEventID *uuid.UUID
}

// NewTransaction creates a transaction. Status defaults to Pending and mode to N/A.
func NewTransaction(txType TransactionType, amount decimal.Decimal, date time.Time, status TransactionStatus,
	mode TransactionMode, description string) (*Transaction, error) {
	if !txType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid transaction type: "+string(txType))
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Transaction amount must be positive")
	}
	if date.IsZero() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Transaction date is required")
	}
	if status == "" {
		status = TransactionStatusPending
	}
	if !status.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid transaction status: "+string(status))
	}
	if mode == "" {
		mode = TransactionModeNA
	}
	if !mode.IsValid() {
		return nil, shared.NewDomainError(shared.CodeValidation, "Invalid transaction mode: "+string(mode))
	}

	return &Transaction{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Type:              txType,
		Amount:            amount,
		Date:              date,
		Status:            status,
		Mode:              mode,
		Description:       strings.TrimSpace(description),
	}, nil
}

// ForTenant links the transaction to a tenant and property
func (t *Transaction) ForTenant(tenantID, propertyID uuid.UUID) *Transaction {
	t.TenantID = &tenantID
	t.PropertyID = &propertyID
	return t
}

// ForProperty links the transaction to a property only
func (t *Transaction) ForProperty(propertyID uuid.UUID) *Transaction {
	t.PropertyID = &propertyID
	return t
}

// FromEvent records the domain event that produced this transaction
func (t *Transaction) FromEvent(eventID uuid.UUID) *Transaction {
	t.SourceEventID = &eventID
	return t
}

// UpdateStatus changes the collection status
func (t *Transaction) UpdateStatus(status TransactionStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError(shared.CodeValidation, "Invalid transaction status: "+string(status))
	}
	t.Status = status
	t.Touch()
	return nil
}

// TypeSummary aggregates transactions of one type
type TypeSummary struct {
	Type      TransactionType `json:"type"`
	Total     decimal.Decimal `json:"total"`
	Collected decimal.Decimal `json:"collected"`
	Pending   decimal.Decimal `json:"pending"`
	Count     int64           `json:"count"`
}

// SummaryRow is one (type, status) bucket as aggregated by storage
type SummaryRow struct {
	Type   TransactionType
	Status TransactionStatus
	Total  decimal.Decimal
	Count  int64
}

// Summarize folds (type, status) buckets into per-type totals.
// Every type is present, even with no rows.
func Summarize(rows []SummaryRow) []TypeSummary {
	order := []TransactionType{TransactionTypeRent, TransactionTypeDeposit, TransactionTypeExpense}
	out := make([]TypeSummary, len(order))
	byType := make(map[TransactionType]*TypeSummary, len(order))
	for i, typ := range order {
		out[i] = TypeSummary{Type: typ, Total: decimal.Zero, Collected: decimal.Zero, Pending: decimal.Zero}
		byType[typ] = &out[i]
	}
	for _, row := range rows {
		s, ok := byType[row.Type]
		if !ok {
			continue
		}
		s.Count += row.Count
		s.Total = s.Total.Add(row.Total)
		switch row.Status {
		case TransactionStatusCollected:
			s.Collected = s.Collected.Add(row.Total)
		case TransactionStatusPending:
			s.Pending = s.Pending.Add(row.Total)
		}
	}
	return out
}

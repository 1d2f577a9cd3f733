package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// TransactionModel is the persistence model for the reporting transaction log
type TransactionModel struct {
	AggregateModel
	Type          string          `gorm:"type:varchar(20);not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Date          time.Time       `gorm:"not null;index"`
	Status        string          `gorm:"type:varchar(20);not null;index"`
	Mode          string          `gorm:"type:varchar(20);not null"`
	TenantID      *uuid.UUID      `gorm:"type:uuid;index"`
	PropertyID    *uuid.UUID      `gorm:"type:uuid;index"`
	Description   string          `gorm:"type:text"`
	SourceEventID *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TransactionModel) ToDomain() *finance.Transaction {
	return &finance.Transaction{
		BaseAggregateRoot: m.PopulateAggregateRoot(),
		Type:              finance.TransactionType(m.Type),
		Amount:            m.Amount,
		Date:              m.Date,
		Status:            finance.TransactionStatus(m.Status),
		Mode:              finance.TransactionMode(m.Mode),
		TenantID:          m.TenantID,
		PropertyID:        m.PropertyID,
		Description:       m.Description,
		SourceEventID:     m.SourceEventID,
	}
}

// TransactionModelFromDomain creates a new persistence model from a domain Transaction
func TransactionModelFromDomain(tx *finance.Transaction) *TransactionModel {
	m := &TransactionModel{
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		Date:          tx.Date,
		Status:        string(tx.Status),
		Mode:          string(tx.Mode),
		TenantID:      tx.TenantID,
		PropertyID:    tx.PropertyID,
		Description:   tx.Description,
		SourceEventID: tx.SourceEventID,
	}
	m.FromDomainAggregateRoot(tx.BaseAggregateRoot)
	return m
}

// SummaryRowModel receives one GROUP BY type, status bucket
type SummaryRowModel struct {
	Type   string
	Status string
	Total  decimal.Decimal
	Count  int64
}

// ToDomain converts the bucket to a domain SummaryRow
func (r SummaryRowModel) ToDomain() finance.SummaryRow {
	return finance.SummaryRow{
		Type:   finance.TransactionType(r.Type),
		Status: finance.TransactionStatus(r.Status),
		Total:  r.Total,
		Count:  r.Count,
	}
}

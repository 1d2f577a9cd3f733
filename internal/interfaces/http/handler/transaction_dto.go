package handler

import (
	"time"

	"github.com/nivaasi/backend/internal/domain/finance"
	"github.com/nivaasi/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// CreateTransactionRequest records a manual ledger line, typically an expense
type CreateTransactionRequest struct {
	Type        string          `json:"type" binding:"required,txtype"`
	Amount      decimal.Decimal `json:"amount" binding:"required,gt=0"`
	Date        string          `json:"date" binding:"omitempty,datetime=2006-01-02"`
	Status      string          `json:"status" binding:"omitempty,txstatus"`
	Mode        string          `json:"mode" binding:"omitempty,txmode"`
	TenantID    string          `json:"tenant_id" binding:"omitempty,uuid"`
	PropertyID  string          `json:"property_id" binding:"omitempty,uuid"`
	Description string          `json:"description" binding:"max=500"`
}

// UpdateTransactionStatusRequest marks a transaction Collected or Pending
type UpdateTransactionStatusRequest struct {
	Status string `json:"status" binding:"required,txstatus"`
}

// TransactionQuery filters listings and summaries. from and to are inclusive dates.
type TransactionQuery struct {
	dto.ListRequest
	Type       string `form:"type" binding:"omitempty,txtype"`
	Status     string `form:"status" binding:"omitempty,txstatus"`
	TenantID   string `form:"tenant_id" binding:"omitempty,uuid"`
	PropertyID string `form:"property_id" binding:"omitempty,uuid"`
	From       string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To         string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

func (q TransactionQuery) toFilter() (finance.TransactionFilter, error) {
	f := finance.TransactionFilter{
		Filter: toFilter(q.ListRequest),
		Type:   finance.TransactionType(q.Type),
		Status: finance.TransactionStatus(q.Status),
	}
	var err error
	if f.TenantID, err = parseOptionalUUID(q.TenantID); err != nil {
		return f, err
	}
	if f.PropertyID, err = parseOptionalUUID(q.PropertyID); err != nil {
		return f, err
	}
	from, err := parseDate(q.From)
	if err != nil {
		return f, err
	}
	if !from.IsZero() {
		f.From = &from
	}
	to, err := parseDate(q.To)
	if err != nil {
		return f, err
	}
	if !to.IsZero() {
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		f.To = &end
	}
	return f, nil
}

// TransactionResponse is the API view of a ledger line
type TransactionResponse struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Status      string          `json:"status"`
	Mode        string          `json:"mode"`
	TenantID    *string         `json:"tenant_id,omitempty"`
	PropertyID  *string         `json:"property_id,omitempty"`
	Description string          `json:"description,omitempty"`
	Projected   bool            `json:"projected"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toTransactionResponse(tx *finance.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:          tx.ID.String(),
		Type:        string(tx.Type),
		Amount:      tx.Amount,
		Date:        formatDate(tx.Date),
		Status:      string(tx.Status),
		Mode:        string(tx.Mode),
		Description: tx.Description,
		Projected:   tx.SourceEventID != nil,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
	if tx.TenantID != nil {
		s := tx.TenantID.String()
		resp.TenantID = &s
	}
	if tx.PropertyID != nil {
		s := tx.PropertyID.String()
		resp.PropertyID = &s
	}
	return resp
}

func toTransactionResponses(items []finance.Transaction) []TransactionResponse {
	out := make([]TransactionResponse, len(items))
	for i := range items {
		out[i] = toTransactionResponse(&items[i])
	}
	return out
}

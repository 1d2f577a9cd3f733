package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	financeapp "github.com/nivaasi/backend/internal/application/finance"
	"github.com/nivaasi/backend/internal/domain/finance"
	"github.com/nivaasi/backend/internal/interfaces/http/dto"
)

// TransactionService is the application surface the transaction endpoints need
type TransactionService interface {
	Create(ctx context.Context, in financeapp.CreateTransactionInput) (*finance.Transaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*finance.Transaction, error)
	List(ctx context.Context, filter finance.TransactionFilter) ([]finance.Transaction, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status finance.TransactionStatus) (*finance.Transaction, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Summary(ctx context.Context, filter finance.TransactionFilter) ([]finance.TypeSummary, error)
}

// TransactionHandler handles the reporting transaction log
type TransactionHandler struct {
	BaseHandler
	service TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(service TransactionService) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// Create records a manual transaction.
// POST /transactions
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		h.BadRequest(c, "Invalid date")
		return
	}
	tenantID, err := parseOptionalUUID(req.TenantID)
	if err != nil {
		h.BadRequest(c, "Invalid tenant_id")
		return
	}
	propertyID, err := parseOptionalUUID(req.PropertyID)
	if err != nil {
		h.BadRequest(c, "Invalid property_id")
		return
	}

	tx, err := h.service.Create(c.Request.Context(), financeapp.CreateTransactionInput{
		Type:        finance.TransactionType(req.Type),
		Amount:      req.Amount,
		Date:        date,
		Status:      finance.TransactionStatus(req.Status),
		Mode:        finance.TransactionMode(req.Mode),
		TenantID:    tenantID,
		PropertyID:  propertyID,
		Description: req.Description,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toTransactionResponse(tx))
}

// List returns a page of transactions, newest first by default.
// GET /transactions
func (h *TransactionHandler) List(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toTransactionResponses(items), total, filter.Page, filter.PageSize)
}

// Summary returns per-type totals for the matching transactions.
// GET /transactions/summary
func (h *TransactionHandler) Summary(c *gin.Context) {
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}
	summary, err := h.service.Summary(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// GetByID returns one transaction.
// GET /transactions/:id
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	tx, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTransactionResponse(tx))
}

// UpdateStatus marks a transaction Collected or Pending.
// PATCH /transactions/:id/status
func (h *TransactionHandler) UpdateStatus(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	var req UpdateTransactionStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	tx, err := h.service.UpdateStatus(c.Request.Context(), id, finance.TransactionStatus(req.Status))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTransactionResponse(tx))
}

// Delete removes a transaction.
// DELETE /transactions/:id
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *TransactionHandler) bindFilter(c *gin.Context) (finance.TransactionFilter, bool) {
	query := TransactionQuery{ListRequest: dto.DefaultListRequest()}
	if !bindQuery(c, &query) {
		return finance.TransactionFilter{}, false
	}
	filter, err := query.toFilter()
	if err != nil {
		h.BadRequest(c, "Invalid filter: "+err.Error())
		return finance.TransactionFilter{}, false
	}
	return filter, true
}

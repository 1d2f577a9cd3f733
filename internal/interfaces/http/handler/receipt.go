package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nivaasi/backend/internal/application/receipt"
	"github.com/nivaasi/backend/internal/infrastructure/logger"
	"github.com/nivaasi/backend/internal/interfaces/http/dto"
)

// ReceiptService renders payment receipts
type ReceiptService interface {
	Render(ctx context.Context, tenantID uuid.UUID, seq int, format receipt.Format) (*receipt.Document, error)
}

// ReceiptQuery selects the receipt format
type ReceiptQuery struct {
	Format string `form:"format" binding:"omitempty,oneof=html pdf"`
}

// ReceiptHandler serves printable payment receipts
type ReceiptHandler struct {
	BaseHandler
	service ReceiptService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(service ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{service: service}
}

// Get renders the receipt of one collected payment.
// GET /tenants/:id/payments/:seq/receipt?format=html|pdf
func (h *ReceiptHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq <= 0 {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "Payment sequence must be a positive integer")
		return
	}
	var q ReceiptQuery
	if !bindQuery(c, &q) {
		return
	}
	format := receipt.FormatHTML
	if q.Format != "" {
		format = receipt.Format(q.Format)
	}

	ctx := logger.WithResidentID(c.Request.Context(), id.String())
	doc, err := h.service.Render(ctx, id, seq, format)
	if errors.Is(err, receipt.ErrPDFUnavailable) {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "PDF receipts are not configured")
		return
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="`+doc.Filename+`"`)
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, doc.ContentType, doc.Body)
}

package finance

import (
	"context"
	"fmt"

	"github.com/nivaasi/backend/internal/domain/finance"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/domain/tenant"
	"go.uber.org/zap"
)

// TenancyProjectionHandler mirrors tenancy events into the transaction log:
// every recorded payment becomes a Rent transaction and a move-in with a
// security deposit becomes a Deposit transaction.
type TenancyProjectionHandler struct {
	repo   finance.TransactionRepository
	logger *zap.Logger
}

// NewTenancyProjectionHandler creates a new handler for tenancy events
func NewTenancyProjectionHandler(repo finance.TransactionRepository, logger *zap.Logger) *TenancyProjectionHandler {
	return &TenancyProjectionHandler{repo: repo, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *TenancyProjectionHandler) EventTypes() []string {
	return []string{tenant.EventTypePaymentRecorded, tenant.EventTypeTenantMovedIn}
}

// Handle projects one tenancy event. Replayed events are skipped.
func (h *TenancyProjectionHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var (
		tx  *finance.Transaction
		err error
	)
	switch e := event.(type) {
	case *tenant.PaymentRecordedEvent:
		tx, err = h.fromPayment(e)
	case *tenant.TenantMovedInEvent:
		if !e.SecurityDeposit.IsPositive() {
			return nil
		}
		tx, err = h.fromMoveIn(e)
	default:
		h.logger.Error("unexpected event type",
			zap.Strings("expected", h.EventTypes()),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	if err != nil {
		return fmt.Errorf("failed to build transaction from %s: %w", event.EventType(), err)
	}

	exists, err := h.repo.ExistsForEvent(ctx, event.EventID())
	if err != nil {
		return fmt.Errorf("failed to check existing transaction: %w", err)
	}
	if exists {
		h.logger.Warn("transaction already projected for event, skipping",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.repo.Save(ctx, tx.FromEvent(event.EventID())); err != nil {
		h.logger.Error("failed to save projected transaction",
			zap.String("event_id", event.EventID().String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save transaction: %w", err)
	}

	h.logger.Info("transaction projected",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("type", string(tx.Type)),
		zap.String("tenant_id", event.AggregateID().String()),
		zap.String("amount", tx.Amount.String()),
	)
	return nil
}

func (h *TenancyProjectionHandler) fromPayment(e *tenant.PaymentRecordedEvent) (*finance.Transaction, error) {
	status := finance.TransactionStatusPending
	if e.Entry.IsCollected() {
		status = finance.TransactionStatusCollected
	}
	desc := fmt.Sprintf("Rent payment from %s", e.TenantName)
	if e.Entry.Remarks != "" {
		desc += " (" + e.Entry.Remarks + ")"
	}
	tx, err := finance.NewTransaction(finance.TransactionTypeRent, e.Entry.Amount, e.Entry.Date, status,
		finance.TransactionMode(e.Entry.Mode), desc)
	if err != nil {
		return nil, err
	}
	return tx.ForTenant(e.AggregateID(), e.PropertyID), nil
}

func (h *TenancyProjectionHandler) fromMoveIn(e *tenant.TenantMovedInEvent) (*finance.Transaction, error) {
	tx, err := finance.NewTransaction(finance.TransactionTypeDeposit, e.SecurityDeposit, e.JoinDate,
		finance.TransactionStatusCollected, finance.TransactionModeNA,
		fmt.Sprintf("Security deposit from %s", e.TenantName))
	if err != nil {
		return nil, err
	}
	return tx.ForTenant(e.AggregateID(), e.PropertyID), nil
}

// Ensure TenancyProjectionHandler implements shared.EventHandler
var _ shared.EventHandler = (*TenancyProjectionHandler)(nil)

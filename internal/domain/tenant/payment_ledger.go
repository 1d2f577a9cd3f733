package tenant

import (
	"cmp"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMode is how a payment was made
type PaymentMode string

const (
	PaymentModeCash         PaymentMode = "Cash"
	PaymentModeUPI          PaymentMode = "UPI"
	PaymentModeBankTransfer PaymentMode = "Bank Transfer"
	PaymentModeCard         PaymentMode = "Card"
)

// IsValid checks if the payment mode is valid
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeUPI, PaymentModeBankTransfer, PaymentModeCard:
		return true
	}
	return false
}

// PaymentStatus tells whether money was actually received
type PaymentStatus string

const (
	PaymentStatusCollected PaymentStatus = "Collected"
	PaymentStatusPending   PaymentStatus = "Pending"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusCollected || s == PaymentStatusPending
}

// PaymentEntry is one immutable line of a tenant's payment history.
// Seq is the insertion order assigned by the ledger.
type PaymentEntry struct {
	Seq     int             `json:"seq"`
	Amount  decimal.Decimal `json:"amount"`
	Date    time.Time       `json:"date"`
	Mode    PaymentMode     `json:"mode"`
	Status  PaymentStatus   `json:"status"`
	Remarks string          `json:"remarks,omitempty"`
}

// IsCollected reports whether the entry counts as paid
func (e PaymentEntry) IsCollected() bool {
	return e.Status == PaymentStatusCollected
}

// PaymentLedger is the append-only payment history of a tenant, stored as JSONB.
// It records facts: overpayments and duplicate entries are accepted.
type PaymentLedger []PaymentEntry

// Append validates and appends an entry, returning it with its sequence number.
// Mode defaults to Cash and status defaults to Collected.
func (l *PaymentLedger) Append(entry PaymentEntry) (PaymentEntry, error) {
	if !entry.Amount.IsPositive() {
		return PaymentEntry{}, shared.NewDomainError(shared.CodeValidation, "Payment amount must be positive").
			WithDetail("amount", entry.Amount.String())
	}
	if entry.Date.IsZero() {
		return PaymentEntry{}, shared.NewDomainError(shared.CodeValidation, "Payment date is required")
	}
	if entry.Mode == "" {
		entry.Mode = PaymentModeCash
	}
	if !entry.Mode.IsValid() {
		return PaymentEntry{}, shared.NewDomainError(shared.CodeValidation, "Invalid payment mode: "+string(entry.Mode))
	}
	if entry.Status == "" {
		entry.Status = PaymentStatusCollected
	}
	if !entry.Status.IsValid() {
		return PaymentEntry{}, shared.NewDomainError(shared.CodeValidation, "Invalid payment status: "+string(entry.Status))
	}
	entry.Remarks = strings.TrimSpace(entry.Remarks)

	next := 1
	for _, e := range *l {
		if e.Seq >= next {
			next = e.Seq + 1
		}
	}
	entry.Seq = next

	*l = append(*l, entry)
	return entry, nil
}

// CollectedEntries yields Collected entries, most recent date first.
// Entries sharing a date are yielded latest insertion first.
// Each iteration re-derives the order, so the sequence can be ranged over repeatedly.
func (l PaymentLedger) CollectedEntries() iter.Seq[PaymentEntry] {
	return func(yield func(PaymentEntry) bool) {
		collected := make([]PaymentEntry, 0, len(l))
		for _, e := range l {
			if e.IsCollected() {
				collected = append(collected, e)
			}
		}
		slices.SortStableFunc(collected, func(a, b PaymentEntry) int {
			if c := b.Date.Compare(a.Date); c != 0 {
				return c
			}
			return cmp.Compare(b.Seq, a.Seq)
		})
		for _, e := range collected {
			if !yield(e) {
				return
			}
		}
	}
}

// LatestCollected returns the most recent Collected entry, if any.
func (l PaymentLedger) LatestCollected() (PaymentEntry, bool) {
	for e := range l.CollectedEntries() {
		return e, true
	}
	return PaymentEntry{}, false
}

// TotalCollected sums the amounts of Collected entries. Pending entries are excluded.
func (l PaymentLedger) TotalCollected() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l {
		if e.IsCollected() {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Value implements driver.Valuer interface for GORM to store as JSONB
func (l PaymentLedger) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner interface for GORM to read from JSONB
func (l *PaymentLedger) Scan(value any) error {
	if value == nil {
		*l = PaymentLedger{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentLedger: unsupported type")
	}

	if len(bytes) == 0 {
		*l = PaymentLedger{}
		return nil
	}
	return json.Unmarshal(bytes, l)
}

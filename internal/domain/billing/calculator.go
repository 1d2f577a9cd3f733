// Package billing derives a tenant's billing state from the join date, the monthly rent
// and the payment ledger. Everything here is a pure function of its inputs.
//
// Dues follow a coarse month-counting model: every calendar month from the join month
// up to and including the evaluation month owes one full rent. There is no proration.
package billing

import (
	"time"

	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/shopspring/decimal"
)

// Account is the slice of tenant state the calculator reads.
type Account struct {
	JoinDate   time.Time
	RentAmount decimal.Decimal
	Ledger     tenant.PaymentLedger
	StayStatus tenant.StayStatus
}

// AccountOf builds the calculator view of a tenant.
func AccountOf(t *tenant.Tenant) Account {
	return Account{
		JoinDate:   t.Stay.JoinDate,
		RentAmount: t.Stay.RentAmount,
		Ledger:     t.Payments,
		StayStatus: t.Stay.Status,
	}
}

// Statement bundles the derived billing values for display.
type Statement struct {
	NextDueDate   time.Time       `json:"next_due_date"`
	MonthsElapsed int             `json:"months_elapsed"`
	TotalDue      decimal.Decimal `json:"total_due"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	Unpaid        bool            `json:"unpaid"`
}

// NextDueDate returns the join date when nothing has been collected yet,
// otherwise the latest Collected payment date plus one calendar month.
func NextDueDate(a Account) time.Time {
	latest, ok := a.Ledger.LatestCollected()
	if !ok {
		return a.JoinDate
	}
	return AddMonth(latest.Date)
}

// AddMonth advances t by one calendar month keeping the day of month.
// When the target month is shorter the result is its last day, so Jan 31 becomes
// Feb 29 in a leap year and Feb 28 otherwise. Time of day and location are kept.
func AddMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(firstOfNext); day > last {
		day = last
	}
	hour, minute, sec := t.Clock()
	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, hour, minute, sec, t.Nanosecond(), t.Location())
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// MonthsElapsed counts calendar months from the join month through asOf's month, inclusive.
// The result is zero or negative when asOf precedes the join month.
func MonthsElapsed(joinDate, asOf time.Time) int {
	return (asOf.Year()-joinDate.Year())*12 + int(asOf.Month()) - int(joinDate.Month()) + 1
}

// TotalDue is the rent owed for every elapsed month, never negative.
func TotalDue(a Account, asOf time.Time) decimal.Decimal {
	months := MonthsElapsed(a.JoinDate, asOf)
	if months <= 0 {
		return decimal.Zero
	}
	return a.RentAmount.Mul(decimal.NewFromInt(int64(months)))
}

// OutstandingAmount is max(0, totalDue - totalCollected). Pending payments are not counted as paid.
func OutstandingAmount(a Account, asOf time.Time) decimal.Decimal {
	remaining := TotalDue(a, asOf).Sub(a.Ledger.TotalCollected())
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsUnpaid reports whether an Active tenant owes money at asOf.
// Tenants on notice or vacated are never reported.
func IsUnpaid(a Account, asOf time.Time) bool {
	return a.StayStatus == tenant.StayStatusActive && OutstandingAmount(a, asOf).IsPositive()
}

// Summarize computes every derived value at asOf.
func Summarize(a Account, asOf time.Time) Statement {
	months := MonthsElapsed(a.JoinDate, asOf)
	if months < 0 {
		months = 0
	}
	return Statement{
		NextDueDate:   NextDueDate(a),
		MonthsElapsed: months,
		TotalDue:      TotalDue(a, asOf),
		TotalPaid:     a.Ledger.TotalCollected(),
		Outstanding:   OutstandingAmount(a, asOf),
		Unpaid:        IsUnpaid(a, asOf),
	}
}

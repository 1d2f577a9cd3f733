package billing

import (
	"testing"
	"time"

	"github.com/nivaasi/backend/internal/domain/tenant"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func account(t *testing.T, rent int64, join time.Time, payments ...tenant.PaymentEntry) Account {
	t.Helper()
	var ledger tenant.PaymentLedger
	for _, p := range payments {
		_, err := ledger.Append(p)
		require.NoError(t, err)
	}
	return Account{
		JoinDate:   join,
		RentAmount: decimal.NewFromInt(rent),
		Ledger:     ledger,
		StayStatus: tenant.StayStatusActive,
	}
}

func collected(amount int64, on time.Time) tenant.PaymentEntry {
	return tenant.PaymentEntry{Amount: decimal.NewFromInt(amount), Date: on, Status: tenant.PaymentStatusCollected}
}

func pending(amount int64, on time.Time) tenant.PaymentEntry {
	return tenant.PaymentEntry{Amount: decimal.NewFromInt(amount), Date: on, Status: tenant.PaymentStatusPending}
}

func TestNextDueDate(t *testing.T) {
	t.Run("empty history returns join date exactly", func(t *testing.T) {
		a := account(t, 8000, date(2024, 1, 1))
		assert.Equal(t, date(2024, 1, 1), NextDueDate(a))
	})

	t.Run("pending payments are ignored", func(t *testing.T) {
		a := account(t, 8000, date(2024, 1, 1), pending(8000, date(2024, 1, 3)))
		assert.Equal(t, date(2024, 1, 1), NextDueDate(a))
	})

	t.Run("latest collected date plus one month", func(t *testing.T) {
		a := account(t, 8000, date(2024, 1, 1),
			collected(8000, date(2024, 1, 5)),
			collected(8000, date(2024, 2, 7)),
			pending(8000, date(2024, 3, 9)),
		)
		assert.Equal(t, date(2024, 3, 7), NextDueDate(a))
	})

	t.Run("insertion order does not matter", func(t *testing.T) {
		a := account(t, 8000, date(2024, 1, 1),
			collected(8000, date(2024, 2, 7)),
			collected(8000, date(2024, 1, 5)),
		)
		assert.Equal(t, date(2024, 3, 7), NextDueDate(a))
	})
}

func TestAddMonth(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"plain month", date(2024, 1, 5), date(2024, 2, 5)},
		{"jan 31 in leap year", date(2024, 1, 31), date(2024, 2, 29)},
		{"jan 31 in common year", date(2023, 1, 31), date(2023, 2, 28)},
		{"jan 30 in common year", date(2023, 1, 30), date(2023, 2, 28)},
		{"mar 31 to apr 30", date(2024, 3, 31), date(2024, 4, 30)},
		{"feb 29 to mar 29", date(2024, 2, 29), date(2024, 3, 29)},
		{"dec rolls year", date(2024, 12, 31), date(2025, 1, 31)},
		{"keeps time of day", time.Date(2024, 5, 31, 18, 30, 0, 0, time.UTC), time.Date(2024, 6, 30, 18, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonth(tt.in))
		})
	}
}

func TestMonthsElapsed(t *testing.T) {
	assert.Equal(t, 1, MonthsElapsed(date(2024, 1, 1), date(2024, 1, 20)))
	assert.Equal(t, 2, MonthsElapsed(date(2024, 1, 31), date(2024, 2, 1)))
	assert.Equal(t, 13, MonthsElapsed(date(2024, 1, 1), date(2025, 1, 1)))
	assert.Equal(t, 0, MonthsElapsed(date(2024, 2, 1), date(2024, 1, 31)))
}

func TestOutstandingAmount(t *testing.T) {
	t.Run("paid in full for the first month", func(t *testing.T) {
		a := account(t, 8000, date(2024, 1, 1), collected(8000, date(2024, 1, 5)))

		assert.True(t, OutstandingAmount(a, date(2024, 1, 20)).IsZero())
		assert.True(t, OutstandingAmount(a, date(2024, 2, 20)).Equal(decimal.NewFromInt(8000)))
	})

	t.Run("never negative on overpayment", func(t *testing.T) {
		a := account(t, 8000, date(2024, 1, 1), collected(50000, date(2024, 1, 5)))
		assert.True(t, OutstandingAmount(a, date(2024, 2, 1)).IsZero())
	})

	t.Run("pending payments are not paid", func(t *testing.T) {
		a := account(t, 8000, date(2024, 1, 1), pending(8000, date(2024, 1, 5)))
		assert.True(t, OutstandingAmount(a, date(2024, 1, 20)).Equal(decimal.NewFromInt(8000)))
	})

	t.Run("zero before the join month", func(t *testing.T) {
		a := account(t, 8000, date(2024, 3, 1))
		assert.True(t, OutstandingAmount(a, date(2024, 1, 1)).IsZero())
	})

	t.Run("zero right after paying the total due", func(t *testing.T) {
		a := account(t, 7500, date(2023, 11, 15))
		asOf := date(2024, 2, 10)
		due := TotalDue(a, asOf)
		_, err := a.Ledger.Append(collected(due.IntPart(), asOf))
		require.NoError(t, err)

		assert.True(t, OutstandingAmount(a, asOf).IsZero())
	})

	t.Run("monotonically non-decreasing in asOf", func(t *testing.T) {
		a := account(t, 6000, date(2024, 1, 10),
			collected(6000, date(2024, 1, 10)),
			collected(9000, date(2024, 3, 2)),
			pending(6000, date(2024, 4, 2)),
		)
		prev := decimal.Zero
		for d := date(2023, 12, 1); d.Before(date(2025, 3, 1)); d = d.AddDate(0, 0, 9) {
			cur := OutstandingAmount(a, d)
			assert.False(t, cur.LessThan(prev), "outstanding decreased at %s", d.Format(time.DateOnly))
			prev = cur
		}
	})
}

func TestIsUnpaid(t *testing.T) {
	a := account(t, 8000, date(2024, 1, 1))
	asOf := date(2024, 1, 20)

	assert.True(t, IsUnpaid(a, asOf))

	a.StayStatus = tenant.StayStatusOnNotice
	assert.False(t, IsUnpaid(a, asOf))

	a.StayStatus = tenant.StayStatusVacated
	assert.False(t, IsUnpaid(a, asOf))

	a = account(t, 8000, date(2024, 1, 1), collected(8000, date(2024, 1, 2)))
	assert.False(t, IsUnpaid(a, asOf))
}

func TestSummarize(t *testing.T) {
	a := account(t, 8000, date(2024, 1, 1), collected(8000, date(2024, 1, 5)), pending(100, date(2024, 1, 6)))

	s := Summarize(a, date(2024, 2, 20))

	assert.Equal(t, date(2024, 2, 5), s.NextDueDate)
	assert.Equal(t, 2, s.MonthsElapsed)
	assert.True(t, s.TotalDue.Equal(decimal.NewFromInt(16000)))
	assert.True(t, s.TotalPaid.Equal(decimal.NewFromInt(8000)))
	assert.True(t, s.Outstanding.Equal(decimal.NewFromInt(8000)))
	assert.True(t, s.Unpaid)
}

func TestAccountOf(t *testing.T) {
	tn := &tenant.Tenant{Stay: tenant.Stay{JoinDate: date(2024, 1, 1), RentAmount: decimal.NewFromInt(5), Status: tenant.StayStatusActive}}
	a := AccountOf(tn)
	assert.Equal(t, date(2024, 1, 1), a.JoinDate)
	assert.True(t, a.RentAmount.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, tenant.StayStatusActive, a.StayStatus)
}

package tenant

import (
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentLedger_Append(t *testing.T) {
	t.Run("assigns increasing sequence and defaults", func(t *testing.T) {
		var l PaymentLedger

		first, err := l.Append(PaymentEntry{Amount: decimal.NewFromInt(100), Date: date(2024, 1, 1)})
		require.NoError(t, err)
		second, err := l.Append(PaymentEntry{Amount: decimal.NewFromInt(100), Date: date(2024, 1, 1), Status: PaymentStatusPending})
		require.NoError(t, err)

		assert.Equal(t, 1, first.Seq)
		assert.Equal(t, 2, second.Seq)
		assert.Equal(t, PaymentModeCash, first.Mode)
		assert.Equal(t, PaymentStatusCollected, first.Status)
		assert.Equal(t, PaymentStatusPending, second.Status)
		assert.Len(t, l, 2)
	})

	t.Run("accepts duplicates and overpayment", func(t *testing.T) {
		var l PaymentLedger
		e := PaymentEntry{Amount: decimal.NewFromInt(1_000_000), Date: date(2024, 1, 1)}

		_, err := l.Append(e)
		require.NoError(t, err)
		_, err = l.Append(e)
		require.NoError(t, err)

		assert.True(t, l.TotalCollected().Equal(decimal.NewFromInt(2_000_000)))
	})

	tests := []struct {
		name  string
		entry PaymentEntry
	}{
		{"zero amount", PaymentEntry{Amount: decimal.Zero, Date: date(2024, 1, 1)}},
		{"negative amount", PaymentEntry{Amount: decimal.NewFromInt(-5), Date: date(2024, 1, 1)}},
		{"missing date", PaymentEntry{Amount: decimal.NewFromInt(5)}},
		{"unknown mode", PaymentEntry{Amount: decimal.NewFromInt(5), Date: date(2024, 1, 1), Mode: "Cheque"}},
		{"unknown status", PaymentEntry{Amount: decimal.NewFromInt(5), Date: date(2024, 1, 1), Status: "Refunded"}},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			var l PaymentLedger
			_, err := l.Append(tt.entry)
			require.Error(t, err)
			assert.Empty(t, l)
		})
	}
}

func TestPaymentLedger_CollectedEntries(t *testing.T) {
	var l PaymentLedger
	add := func(amount int64, y, m, d int, status PaymentStatus) {
		_, err := l.Append(PaymentEntry{Amount: decimal.NewFromInt(amount), Date: date(y, time.Month(m), d), Status: status})
		require.NoError(t, err)
	}
	add(1, 2024, 1, 5, PaymentStatusCollected)
	add(2, 2024, 3, 5, PaymentStatusCollected)
	add(3, 2024, 4, 1, PaymentStatusPending)
	add(4, 2024, 3, 5, PaymentStatusCollected)
	add(5, 2024, 2, 5, PaymentStatusCollected)

	amounts := func() []int64 {
		var out []int64
		for e := range l.CollectedEntries() {
			out = append(out, e.Amount.IntPart())
		}
		return out
	}

	t.Run("orders by date descending with latest insertion first on ties", func(t *testing.T) {
		assert.Equal(t, []int64{4, 2, 5, 1}, amounts())
	})

	t.Run("is restartable", func(t *testing.T) {
		seq := l.CollectedEntries()
		first := slices.Collect(seq)
		second := slices.Collect(seq)
		assert.Equal(t, first, second)
	})

	t.Run("early break stops iteration", func(t *testing.T) {
		count := 0
		for range l.CollectedEntries() {
			count++
			break
		}
		assert.Equal(t, 1, count)
	})

	t.Run("latest collected ignores pending", func(t *testing.T) {
		latest, ok := l.LatestCollected()
		require.True(t, ok)
		assert.Equal(t, int64(4), latest.Amount.IntPart())
	})

	t.Run("total excludes pending", func(t *testing.T) {
		assert.True(t, l.TotalCollected().Equal(decimal.NewFromInt(12)))
	})

	t.Run("empty ledger yields nothing", func(t *testing.T) {
		var empty PaymentLedger
		_, ok := empty.LatestCollected()
		assert.False(t, ok)
		assert.Empty(t, slices.Collect(empty.CollectedEntries()))
	})
}

func TestPaymentLedger_ScanValue(t *testing.T) {
	var l PaymentLedger
	_, err := l.Append(PaymentEntry{Amount: decimal.RequireFromString("8000.50"), Date: date(2024, 1, 5), Mode: PaymentModeBankTransfer, Remarks: "jan"})
	require.NoError(t, err)

	raw, err := l.Value()
	require.NoError(t, err)

	var restored PaymentLedger
	require.NoError(t, restored.Scan(raw))
	require.Len(t, restored, 1)
	assert.True(t, restored[0].Amount.Equal(l[0].Amount))
	assert.True(t, restored[0].Date.Equal(l[0].Date))
	assert.Equal(t, l[0].Mode, restored[0].Mode)
	assert.Equal(t, 1, restored[0].Seq)

	require.NoError(t, restored.Scan("[]"))
	assert.Empty(t, restored)

	var nilLedger PaymentLedger
	v, err := nilLedger.Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

package finance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
)

func d(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func note(orderID uuid.UUID, index int, amount int64) NoteSummary {
	return NoteSummary{
		ID:           uuid.New(),
		Code:         "GIN-" + string(rune('A'+index)),
		SalesOrderID: orderID,
		ExportIndex:  index,
		Amount:       d(amount),
		DueDate:      time.Date(2025, 3, index, 0, 0, 0, 0, time.UTC),
	}
}

func createTestInvoice(t *testing.T, amounts ...int64) (*Invoice, []NoteSummary) {
	t.Helper()
	orderID := uuid.New()
	inv, err := NewInvoice(orderID)
	require.NoError(t, err)
	notes := make([]NoteSummary, 0, len(amounts))
	for i, amount := range amounts {
		n := note(orderID, i+1, amount)
		added, err := inv.AddGoodsIssueNote(n)
		require.NoError(t, err)
		require.True(t, added)
		notes = append(notes, n)
	}
	return inv, notes
}

func assertDecimal(t *testing.T, expected int64, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, d(expected).Equal(actual), append([]any{"expected %d, got %s", expected, actual.String()}, msgAndArgs...)...)
}

// ============================================
// Aggregation
// ============================================

func TestInvoice_AddGoodsIssueNote(t *testing.T) {
	orderID := uuid.New()
	inv, err := NewInvoice(orderID)
	require.NoError(t, err)

	second := note(orderID, 2, 400000)
	first := note(orderID, 1, 600000)

	added, err := inv.AddGoodsIssueNote(second)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = inv.AddGoodsIssueNote(first)
	require.NoError(t, err)
	assert.True(t, added)

	require.Len(t, inv.Details, 2)
	assert.Equal(t, 1, inv.Details[0].ExportIndex)
	assert.Equal(t, 2, inv.Details[1].ExportIndex)
	assertDecimal(t, 1000000, inv.TotalAmount)
	assertDecimal(t, 1000000, inv.TotalRemain)
	assert.Equal(t, first.DueDate, inv.DueDate)

	t.Run("re-adding a note is skipped", func(t *testing.T) {
		added, err := inv.AddGoodsIssueNote(first)
		require.NoError(t, err)
		assert.False(t, added)
		assert.Len(t, inv.Details, 2)
	})

	t.Run("note from another order is rejected", func(t *testing.T) {
		_, err := inv.AddGoodsIssueNote(note(uuid.New(), 3, 10))
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("export index collision is rejected", func(t *testing.T) {
		_, err := inv.AddGoodsIssueNote(note(orderID, 2, 10))
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	require.NoError(t, inv.CheckInvariants())
}

// ============================================
// Deposit allocation
// ============================================

func TestInvoice_AllocateDeposit(t *testing.T) {
	tests := []struct {
		name     string
		amounts  []int64
		pool     int64
		consumed int64
		deposits []int64
		balances []int64
	}{
		{"pool within first note", []int64{600000, 400000}, 200000, 200000, []int64{200000, 0}, []int64{400000, 400000}},
		{"pool spills to second note", []int64{300000, 400000}, 500000, 500000, []int64{300000, 200000}, []int64{0, 200000}},
		{"pool larger than invoice", []int64{100, 200}, 1000, 300, []int64{100, 200}, []int64{0, 0}},
		{"empty pool", []int64{100}, 0, 0, []int64{0}, []int64{100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, _ := createTestInvoice(t, tt.amounts...)
			consumed := inv.AllocateDeposit(d(tt.pool))
			assertDecimal(t, tt.consumed, consumed)
			for i := range tt.amounts {
				assertDecimal(t, tt.deposits[i], inv.Details[i].AllocatedDeposit)
				assertDecimal(t, tt.balances[i], inv.Details[i].NoteBalance)
			}
			assertDecimal(t, tt.consumed, inv.TotalDeposit)
			require.NoError(t, inv.CheckInvariants())
		})
	}
}

func TestInvoice_ReleaseDeposit(t *testing.T) {
	inv, _ := createTestInvoice(t, 300000, 400000)
	inv.AllocateDeposit(d(500000))

	released := inv.ReleaseDeposit(d(250000))
	assertDecimal(t, 250000, released)
	// latest export index gives back first
	assertDecimal(t, 0, inv.Details[1].AllocatedDeposit)
	assertDecimal(t, 250000, inv.Details[0].AllocatedDeposit)
	assertDecimal(t, 50000, inv.Details[0].NoteBalance)
	assertDecimal(t, 250000, inv.TotalDeposit)

	released = inv.ReleaseDeposit(d(1000000))
	assertDecimal(t, 250000, released)
	assertDecimal(t, 700000, inv.TotalRemain)
	require.NoError(t, inv.CheckInvariants())
}

// ============================================
// Remainder allocation
// ============================================

func TestInvoice_ReconciliationScenario(t *testing.T) {
	inv, notes := createTestInvoice(t, 600000, 400000)

	inv.AllocateDeposit(d(200000))
	assertDecimal(t, 200000, inv.Details[0].AllocatedDeposit)
	assertDecimal(t, 400000, inv.Details[0].NoteBalance)
	assertDecimal(t, 400000, inv.Details[1].NoteBalance)

	remain, err := inv.ApplyRemainder(d(400000), nil)
	require.NoError(t, err)
	require.Len(t, remain.Allocations, 1)
	assert.Equal(t, notes[0].ID, remain.Allocations[0].GoodsIssueNoteID)
	assertDecimal(t, 0, remain.Excess)
	assert.True(t, inv.Details[0].IsSettled())

	full, err := inv.ApplyRemainder(d(400000), nil)
	require.NoError(t, err)
	require.Len(t, full.Allocations, 1)
	assert.Equal(t, notes[1].ID, full.Allocations[0].GoodsIssueNoteID)

	assertDecimal(t, 0, inv.TotalRemain)
	assertDecimal(t, 1000000, inv.TotalPaid)
	assertDecimal(t, 200000, inv.TotalDeposit)
	assert.True(t, inv.IsSettled())
	require.NoError(t, inv.CheckInvariants())
}

func TestInvoice_Overpayment(t *testing.T) {
	inv, _ := createTestInvoice(t, 150000, 250000)

	result, err := inv.ApplyRemainder(d(500000), nil)
	require.NoError(t, err)

	assertDecimal(t, 400000, result.Applied)
	assertDecimal(t, 100000, result.Excess)
	require.Len(t, result.Allocations, 2)
	for _, detail := range inv.Details {
		assert.False(t, detail.NoteBalance.IsNegative())
		assertDecimal(t, 0, detail.NoteBalance)
	}
	require.NoError(t, inv.CheckInvariants())

	overErr := NewOverpaymentError(result.Excess)
	assert.True(t, shared.IsKind(overErr, shared.KindOverpayment))
	assert.Equal(t, "100000", overErr.Details["excess"])
}

func TestInvoice_ApplyRemainderToTarget(t *testing.T) {
	inv, notes := createTestInvoice(t, 100, 200)

	result, err := inv.ApplyRemainder(d(250), &notes[1].ID)
	require.NoError(t, err)
	assertDecimal(t, 200, result.Applied)
	assertDecimal(t, 50, result.Excess)
	assertDecimal(t, 100, inv.Details[0].NoteBalance)
	assertDecimal(t, 0, inv.Details[1].NoteBalance)

	missing := uuid.New()
	_, err = inv.ApplyRemainder(d(1), &missing)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))

	_, err = inv.ApplyRemainder(d(0), nil)
	assert.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestInvoice_ReverseRemainder(t *testing.T) {
	inv, _ := createTestInvoice(t, 100, 200)
	result, err := inv.ApplyRemainder(d(250), nil)
	require.NoError(t, err)

	require.NoError(t, inv.ReverseRemainder(result.Allocations))
	assertDecimal(t, 300, inv.TotalRemain)
	assertDecimal(t, 0, inv.TotalPaid)
	require.NoError(t, inv.CheckInvariants())

	err = inv.ReverseRemainder(result.Allocations)
	assert.True(t, shared.IsKind(err, shared.KindStateConflict))
	assertDecimal(t, 300, inv.TotalRemain)
}

func TestInvoice_NoteBalanceNeverNegative(t *testing.T) {
	inv, _ := createTestInvoice(t, 1000, 2500, 700)
	payments := []int64{300, 1, 999, 2000, 50, 4000, 17}

	for i, p := range payments {
		if i%2 == 0 {
			inv.AllocateDeposit(d(p))
		} else {
			_, err := inv.ApplyRemainder(d(p), nil)
			require.NoError(t, err)
		}
		require.NoError(t, inv.CheckInvariants())
	}
	assert.True(t, inv.IsSettled())
}

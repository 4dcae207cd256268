package fulfillment

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
)

// Test helpers
func createTestSEO(t *testing.T, lines ...NewSEOLine) *StockExportOrder {
	t.Helper()
	if len(lines) == 0 {
		lines = []NewSEOLine{{ProductID: uuid.New(), Quantity: 8}}
	}
	seo, err := NewStockExportOrder("SEO-TEST-001", uuid.New(), time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), lines)
	require.NoError(t, err)
	return seo
}

func planFor(line SEOLine, shortfall int64) *inventory.AllocationPlan {
	taken := line.RequestedQuantity - shortfall
	plan := &inventory.AllocationPlan{
		ProductID: line.ProductID,
		Requested: line.RequestedQuantity,
		Shortfall: shortfall,
	}
	if taken > 0 {
		plan.Lines = []inventory.AllocationLine{{
			LotID:             uuid.New(),
			ProductID:         line.ProductID,
			Quantity:          taken,
			UnitSalePrice:     decimal.NewFromInt(1000),
			ObservedRemaining: taken,
		}}
	}
	return plan
}

func plansFor(seo *StockExportOrder, shortfall int64) []*inventory.AllocationPlan {
	plans := make([]*inventory.AllocationPlan, len(seo.Lines))
	for i, line := range seo.Lines {
		plans[i] = planFor(line, shortfall)
	}
	return plans
}

// ============================================
// SEOStatus Tests
// ============================================

func TestSEOStatus_CanTransitionTo(t *testing.T) {
	all := []SEOStatus{
		SEOStatusDraft, SEOStatusSent, SEOStatusReadyToExport, SEOStatusNotEnough,
		SEOStatusAwait, SEOStatusExported, SEOStatusCancel,
	}
	legal := map[SEOStatus]map[SEOStatus]bool{
		SEOStatusDraft:         {SEOStatusSent: true, SEOStatusCancel: true},
		SEOStatusSent:          {SEOStatusReadyToExport: true, SEOStatusNotEnough: true, SEOStatusCancel: true},
		SEOStatusReadyToExport: {SEOStatusExported: true, SEOStatusNotEnough: true, SEOStatusCancel: true},
		SEOStatusNotEnough:     {SEOStatusAwait: true, SEOStatusCancel: true},
		SEOStatusAwait:         {SEOStatusReadyToExport: true, SEOStatusCancel: true},
	}

	for _, from := range all {
		for _, to := range all {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				assert.Equal(t, legal[from][to], from.CanTransitionTo(to))
			})
		}
	}
}

func TestSEOStatus_IsValid(t *testing.T) {
	assert.True(t, SEOStatusAwait.IsValid())
	assert.False(t, SEOStatus("SHIPPED").IsValid())
	assert.True(t, SEOStatusExported.IsTerminal())
	assert.True(t, SEOStatusCancel.IsTerminal())
	assert.False(t, SEOStatusNotEnough.IsTerminal())
}

// ============================================
// Construction
// ============================================

func TestNewStockExportOrder_Validation(t *testing.T) {
	productID := uuid.New()
	tests := []struct {
		name  string
		code  string
		order uuid.UUID
		due   time.Time
		lines []NewSEOLine
	}{
		{"empty code", "", uuid.New(), time.Now(), []NewSEOLine{{ProductID: productID, Quantity: 1}}},
		{"missing sales order", "SEO-1", uuid.Nil, time.Now(), []NewSEOLine{{ProductID: productID, Quantity: 1}}},
		{"missing due date", "SEO-1", uuid.New(), time.Time{}, []NewSEOLine{{ProductID: productID, Quantity: 1}}},
		{"no lines", "SEO-1", uuid.New(), time.Now(), nil},
		{"zero quantity", "SEO-1", uuid.New(), time.Now(), []NewSEOLine{{ProductID: productID, Quantity: 0}}},
		{"duplicate product", "SEO-1", uuid.New(), time.Now(), []NewSEOLine{
			{ProductID: productID, Quantity: 1}, {ProductID: productID, Quantity: 2},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStockExportOrder(tt.code, tt.order, tt.due, tt.lines)
			assert.True(t, shared.IsKind(err, shared.KindValidation))
		})
	}
}

// ============================================
// Lifecycle
// ============================================

func TestStockExportOrder_HappyPath(t *testing.T) {
	seo := createTestSEO(t)
	assert.Equal(t, SEOStatusDraft, seo.Status)

	require.NoError(t, seo.Submit())
	assert.Equal(t, SEOStatusSent, seo.Status)
	assert.NotNil(t, seo.SubmittedAt)

	ready, err := seo.ApplyAvailability(plansFor(seo, 0))
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, SEOStatusReadyToExport, seo.Status)
	assert.Len(t, seo.Lines[0].Allocations, 1)

	require.NoError(t, seo.RecordDeduction(LotDeduction{LotID: uuid.New(), ProductID: seo.Lines[0].ProductID, Quantity: 8}))
	noteID := uuid.New()
	require.NoError(t, seo.MarkExported(noteID, time.Now()))
	assert.Equal(t, SEOStatusExported, seo.Status)
	assert.Equal(t, noteID, *seo.GoodsIssueNoteID)
	assert.False(t, seo.HasPendingDeductions())

	types := make([]string, 0)
	for _, e := range seo.GetDomainEvents() {
		types = append(types, e.EventType())
	}
	assert.Equal(t, []string{EventTypeSEOSubmitted, EventTypeSEOReady, EventTypeSEOExported}, types)
}

func TestStockExportOrder_ShortfallAndAwait(t *testing.T) {
	seo := createTestSEO(t)
	require.NoError(t, seo.Submit())

	ready, err := seo.ApplyAvailability(plansFor(seo, 5))
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, SEOStatusNotEnough, seo.Status)
	assert.Equal(t, int64(5), seo.Shortfalls()[seo.Lines[0].ProductID])

	require.NoError(t, seo.Await())
	assert.Equal(t, SEOStatusAwait, seo.Status)

	// a failing re-check keeps the order waiting
	ready, err = seo.ApplyAvailability(plansFor(seo, 2))
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, SEOStatusAwait, seo.Status)

	ready, err = seo.ApplyAvailability(plansFor(seo, 0))
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, SEOStatusReadyToExport, seo.Status)
	assert.Empty(t, seo.Shortfalls())
}

func TestStockExportOrder_ReadyLosesStock(t *testing.T) {
	seo := createTestSEO(t)
	require.NoError(t, seo.Submit())
	_, err := seo.ApplyAvailability(plansFor(seo, 0))
	require.NoError(t, err)

	ready, err := seo.ApplyAvailability(plansFor(seo, 3))
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, SEOStatusNotEnough, seo.Status)
}

func TestStockExportOrder_IllegalTransitions(t *testing.T) {
	t.Run("draft cannot export", func(t *testing.T) {
		seo := createTestSEO(t)
		err := seo.MarkExported(uuid.New(), time.Now())
		assert.True(t, shared.IsKind(err, shared.KindStateConflict))
		assert.Equal(t, SEOStatusDraft, seo.Status)
	})

	t.Run("draft cannot be checked", func(t *testing.T) {
		seo := createTestSEO(t)
		_, err := seo.ApplyAvailability(plansFor(seo, 0))
		assert.True(t, shared.IsKind(err, shared.KindStateConflict))
	})

	t.Run("sent cannot await", func(t *testing.T) {
		seo := createTestSEO(t)
		require.NoError(t, seo.Submit())
		assert.True(t, shared.IsKind(seo.Await(), shared.KindStateConflict))
	})

	t.Run("exported cannot cancel", func(t *testing.T) {
		seo := createTestSEO(t)
		require.NoError(t, seo.Submit())
		_, err := seo.ApplyAvailability(plansFor(seo, 0))
		require.NoError(t, err)
		require.NoError(t, seo.MarkExported(uuid.New(), time.Now()))
		assert.True(t, shared.IsKind(seo.Cancel("late", true), shared.KindStateConflict))
	})

	t.Run("cancelled cannot submit", func(t *testing.T) {
		seo := createTestSEO(t)
		require.NoError(t, seo.Cancel("customer withdrew", false))
		assert.True(t, shared.IsKind(seo.Submit(), shared.KindStateConflict))
	})

	t.Run("deduction outside ready state", func(t *testing.T) {
		seo := createTestSEO(t)
		err := seo.RecordDeduction(LotDeduction{LotID: uuid.New(), Quantity: 1})
		assert.True(t, shared.IsKind(err, shared.KindStateConflict))
	})
}

func TestStockExportOrder_PlanMismatch(t *testing.T) {
	seo := createTestSEO(t, NewSEOLine{ProductID: uuid.New(), Quantity: 1}, NewSEOLine{ProductID: uuid.New(), Quantity: 2})
	require.NoError(t, seo.Submit())

	_, err := seo.ApplyAvailability(plansFor(seo, 0)[:1])
	assert.True(t, shared.IsKind(err, shared.KindValidation))

	swapped := plansFor(seo, 0)
	swapped[0], swapped[1] = swapped[1], swapped[0]
	_, err = seo.ApplyAvailability(swapped)
	assert.True(t, shared.IsKind(err, shared.KindValidation))
	assert.Equal(t, SEOStatusSent, seo.Status)
}

func TestStockExportOrder_CancelWithDeductions(t *testing.T) {
	seo := createTestSEO(t)
	require.NoError(t, seo.Submit())
	_, err := seo.ApplyAvailability(plansFor(seo, 0))
	require.NoError(t, err)

	lotID := uuid.New()
	require.NoError(t, seo.RecordDeduction(LotDeduction{LotID: lotID, ProductID: seo.Lines[0].ProductID, Quantity: 3}))
	require.NoError(t, seo.RecordDeduction(LotDeduction{LotID: lotID, ProductID: seo.Lines[0].ProductID, Quantity: 2}))
	assert.Equal(t, int64(5), seo.DeductedQuantity(lotID))

	err = seo.Cancel("stock damaged", false)
	assert.True(t, shared.IsKind(err, shared.KindStateConflict))
	assert.Equal(t, SEOStatusReadyToExport, seo.Status)

	require.NoError(t, seo.Cancel("stock damaged", true))
	assert.Equal(t, SEOStatusCancel, seo.Status)
	assert.False(t, seo.HasPendingDeductions())
	assert.Equal(t, "stock damaged", seo.CancelReason)

	events := seo.GetDomainEvents()
	cancelled, ok := events[len(events)-1].(*SEOCancelledEvent)
	require.True(t, ok)
	assert.Len(t, cancelled.Returned, 2)
}

func TestStockExportOrder_PickedOrderIsPinned(t *testing.T) {
	seo := createTestSEO(t)
	require.NoError(t, seo.Submit())
	_, err := seo.ApplyAvailability(plansFor(seo, 0))
	require.NoError(t, err)

	line := seo.Lines[0].Allocations[0]
	require.NoError(t, seo.RecordDeduction(DeductionFromAllocation(line)))

	assert.False(t, seo.CanCheckAvailability())
	_, err = seo.ApplyAvailability(plansFor(seo, 3))
	assert.True(t, shared.IsKind(err, shared.KindStateConflict))
	assert.Equal(t, SEOStatusReadyToExport, seo.Status)

	issue := seo.IssueLines()
	require.Len(t, issue, 1)
	assert.Equal(t, line.LotID, issue[0].LotID)
	assert.Equal(t, line.LotNumber, issue[0].LotNumber)
	assert.Equal(t, line.Quantity, issue[0].Quantity)
	assert.True(t, line.UnitSalePrice.Equal(issue[0].UnitSalePrice))
}

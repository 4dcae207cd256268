package fulfillment

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
)

func TestNewGoodsIssueNote(t *testing.T) {
	seo := createTestSEO(t)
	exportedAt := time.Date(2025, 2, 10, 9, 0, 0, 0, time.UTC)
	lines := []GINLine{
		{LotID: uuid.New(), ProductID: seo.Lines[0].ProductID, Quantity: 5, UnitSalePrice: decimal.NewFromInt(60000)},
		{LotID: uuid.New(), ProductID: seo.Lines[0].ProductID, Quantity: 3, UnitSalePrice: decimal.NewFromInt(100000)},
	}

	note, err := NewGoodsIssueNote(seo, 2, exportedAt, lines)
	require.NoError(t, err)

	assert.Equal(t, 2, note.ExportIndex())
	assert.Equal(t, seo.SalesOrderID, note.SalesOrderID())
	assert.Equal(t, seo.ID, note.StockExportOrderID())
	assert.Equal(t, seo.DueDate, note.DueDate())
	assert.Equal(t, exportedAt, note.ExportedAt())
	assert.True(t, strings.HasPrefix(note.Code(), "GIN-"))
	assert.True(t, strings.HasSuffix(note.Code(), "-002"))
	assert.True(t, decimal.NewFromInt(600000).Equal(note.Amount()))
	assert.Equal(t, int64(8), note.TotalQuantity())
}

func TestGoodsIssueNote_IsImmutable(t *testing.T) {
	seo := createTestSEO(t)
	lines := []GINLine{{LotID: uuid.New(), ProductID: uuid.New(), Quantity: 2, UnitSalePrice: decimal.NewFromInt(500)}}

	note, err := NewGoodsIssueNote(seo, 1, time.Now(), lines)
	require.NoError(t, err)

	// changing the caller's slice does not reach the note
	lines[0].Quantity = 99
	assert.Equal(t, int64(2), note.Lines()[0].Quantity)

	// nor does changing a returned copy
	copied := note.Lines()
	copied[0].UnitSalePrice = decimal.NewFromInt(1)
	assert.True(t, decimal.NewFromInt(1000).Equal(note.Amount()))
}

func TestNewGoodsIssueNote_Validation(t *testing.T) {
	seo := createTestSEO(t)
	good := GINLine{LotID: uuid.New(), ProductID: uuid.New(), Quantity: 1, UnitSalePrice: decimal.NewFromInt(10)}

	tests := []struct {
		name  string
		seo   *StockExportOrder
		index int
		lines []GINLine
	}{
		{"nil order", nil, 1, []GINLine{good}},
		{"zero index", seo, 0, []GINLine{good}},
		{"no lines", seo, 1, nil},
		{"zero quantity", seo, 1, []GINLine{{LotID: uuid.New(), Quantity: 0}}},
		{"negative price", seo, 1, []GINLine{{LotID: uuid.New(), Quantity: 1, UnitSalePrice: decimal.NewFromInt(-1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGoodsIssueNote(tt.seo, tt.index, time.Now(), tt.lines)
			assert.True(t, shared.IsKind(err, shared.KindValidation))
		})
	}
}

func TestGoodsIssueNoteCode(t *testing.T) {
	orderID := uuid.MustParse("3f2a9c1e-0000-4000-8000-000000000000")
	assert.Equal(t, "GIN-3F2A9C1E-001", GoodsIssueNoteCode(orderID, 1))
	assert.Equal(t, "GIN-3F2A9C1E-012", GoodsIssueNoteCode(orderID, 12))
}

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSEO(t *testing.T, code string, salesOrderID uuid.UUID) *fulfillment.StockExportOrder {
	t.Helper()
	seo, err := fulfillment.NewStockExportOrder(code, salesOrderID, time.Now().AddDate(0, 0, 30),
		[]fulfillment.NewSEOLine{{ProductID: uuid.New(), Quantity: 4}})
	require.NoError(t, err)
	return seo
}

func newTestGIN(t *testing.T, seo *fulfillment.StockExportOrder, exportIndex int) *fulfillment.GoodsIssueNote {
	t.Helper()
	note, err := fulfillment.NewGoodsIssueNote(seo, exportIndex, time.Now(), []fulfillment.GINLine{{
		LotID:         uuid.New(),
		LotNumber:     "L-1",
		ProductID:     seo.Lines[0].ProductID,
		Quantity:      4,
		ExpiryDate:    time.Now().AddDate(1, 0, 0),
		UnitSalePrice: decimal.NewFromFloat(12.5),
	}})
	require.NoError(t, err)
	return note
}

func TestGormStockExportOrderRepository_RoundTrip(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormStockExportOrderRepository(db)
	ctx := context.Background()
	salesOrderID := uuid.New()

	seo := newTestSEO(t, "SEO-001", salesOrderID)
	require.NoError(t, repo.Create(ctx, seo))

	err := repo.Create(ctx, newTestSEO(t, "SEO-001", uuid.New()))
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindStateConflict))

	require.NoError(t, seo.Submit())
	require.NoError(t, repo.SaveWithLock(ctx, seo))
	assert.Equal(t, 2, seo.Version)

	loaded, err := repo.FindByCode(ctx, "SEO-001")
	require.NoError(t, err)
	assert.Equal(t, fulfillment.SEOStatusSent, loaded.Status)
	assert.Equal(t, 2, loaded.Version)
	require.Len(t, loaded.Lines, 1)
	assert.Equal(t, int64(4), loaded.Lines[0].RequestedQuantity)

	sent, err := repo.FindByStatus(ctx, fulfillment.SEOStatusSent, 10)
	require.NoError(t, err)
	assert.Len(t, sent, 1)

	bySO, err := repo.FindBySalesOrder(ctx, salesOrderID)
	require.NoError(t, err)
	assert.Len(t, bySO, 1)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestGormStockExportOrderRepository_StaleVersion(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormStockExportOrderRepository(db)
	ctx := context.Background()

	seo := newTestSEO(t, "SEO-STALE", uuid.New())
	require.NoError(t, repo.Create(ctx, seo))

	first, err := repo.FindByID(ctx, seo.ID)
	require.NoError(t, err)
	second, err := repo.FindByID(ctx, seo.ID)
	require.NoError(t, err)

	require.NoError(t, first.Submit())
	require.NoError(t, repo.SaveWithLock(ctx, first))

	require.NoError(t, second.Submit())
	err = repo.SaveWithLock(ctx, second)
	assert.True(t, shared.IsKind(err, shared.KindConcurrencyConflict))
	assert.Equal(t, 1, second.Version, "a rejected save leaves the version untouched")
}

func TestGormStockExportOrderRepository_SaveWithLock_SQL(t *testing.T) {
	tests := []struct {
		name     string
		rows     int64
		wantKind shared.ErrorKind
	}{
		{name: "version matches", rows: 1},
		{name: "version moved on", rows: 0, wantKind: shared.KindConcurrencyConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectExec(`UPDATE "stock_export_orders" SET .* WHERE version = \$\d+ AND .*"id" = \$\d+`).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			seo := newTestSEO(t, "SEO-SQL", uuid.New())
			err := NewGormStockExportOrderRepository(db).SaveWithLock(context.Background(), seo)

			if tt.wantKind != "" {
				assert.True(t, shared.IsKind(err, tt.wantKind))
				assert.Equal(t, 1, seo.Version)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 2, seo.Version)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormGoodsIssueNoteRepository(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormGoodsIssueNoteRepository(db)
	ctx := context.Background()
	salesOrderID := uuid.New()
	seo := newTestSEO(t, "SEO-GIN", salesOrderID)

	next, err := repo.NextExportIndex(ctx, salesOrderID)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	first := newTestGIN(t, seo, 1)
	require.NoError(t, repo.Create(ctx, first))
	second := newTestGIN(t, seo, 2)
	require.NoError(t, repo.Create(ctx, second))

	next, err = repo.NextExportIndex(ctx, salesOrderID)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	t.Run("reused export index is a concurrency conflict", func(t *testing.T) {
		err := repo.Create(ctx, newTestGIN(t, seo, 2))
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindConcurrencyConflict))
	})

	t.Run("notes come back in export order", func(t *testing.T) {
		notes, err := repo.FindBySalesOrder(ctx, salesOrderID)
		require.NoError(t, err)
		require.Len(t, notes, 2)
		assert.Equal(t, 1, notes[0].ExportIndex())
		assert.Equal(t, 2, notes[1].ExportIndex())
		assert.True(t, decimal.NewFromInt(50).Equal(notes[0].Amount()))
	})

	t.Run("find by codes", func(t *testing.T) {
		notes, err := repo.FindByCodes(ctx, []string{second.Code(), "GIN-MISSING"})
		require.NoError(t, err)
		require.Len(t, notes, 1)
		assert.Equal(t, second.ID(), notes[0].ID())

		empty, err := repo.FindByCodes(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("lookup by id and code", func(t *testing.T) {
		byID, err := repo.FindByID(ctx, first.ID())
		require.NoError(t, err)
		assert.Equal(t, first.Code(), byID.Code())
		assert.Equal(t, seo.ID, byID.StockExportOrderID())

		_, err = repo.FindByCode(ctx, "GIN-NOPE")
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
	})
}

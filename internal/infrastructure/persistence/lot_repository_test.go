package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLot(t *testing.T, productID uuid.UUID, number string, expiry time.Time, qty int64) *inventory.Lot {
	t.Helper()
	lot, err := inventory.NewLot(inventory.NewLotParams{
		ProductID:      productID,
		LotNumber:      number,
		ExpiryDate:     expiry,
		InputDate:      time.Now().Add(-24 * time.Hour),
		UnitInputPrice: decimal.NewFromInt(5),
		UnitSalePrice:  decimal.NewFromInt(8),
		Quantity:       qty,
	})
	require.NoError(t, err)
	return lot
}

func TestGormLotRepository_FEFOOrder(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormLotRepository(db)
	ctx := context.Background()
	productID := uuid.New()
	now := time.Now()

	late := newTestLot(t, productID, "L-LATE", now.AddDate(0, 6, 0), 10)
	early := newTestLot(t, productID, "L-EARLY", now.AddDate(0, 1, 0), 5)
	empty := newTestLot(t, productID, "L-EMPTY", now.AddDate(0, 2, 0), 3)
	empty.RemainingQuantity = 0
	other := newTestLot(t, uuid.New(), "L-OTHER", now.AddDate(0, 1, 0), 7)
	for _, l := range []*inventory.Lot{late, early, empty, other} {
		require.NoError(t, repo.Save(ctx, l))
	}

	available, err := repo.FindAvailableByProduct(ctx, productID)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, "L-EARLY", available[0].LotNumber)
	assert.Equal(t, "L-LATE", available[1].LotNumber)

	all, err := repo.FindByProduct(ctx, productID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"L-EARLY", "L-EMPTY", "L-LATE"},
		[]string{all[0].LotNumber, all[1].LotNumber, all[2].LotNumber})

	found, err := repo.FindByID(ctx, early.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(8).Equal(found.UnitSalePrice))
	assert.Equal(t, int64(5), found.RemainingQuantity)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestGormLotRepository_DeductAndRestore(t *testing.T) {
	db := newSQLiteDB(t)
	repo := NewGormLotRepository(db)
	ctx := context.Background()
	lot := newTestLot(t, uuid.New(), "L-1", time.Now().AddDate(1, 0, 0), 10)
	require.NoError(t, repo.Save(ctx, lot))

	ok, err := repo.DeductIfAvailable(ctx, lot.ID, 6)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.DeductIfAvailable(ctx, lot.ID, 5)
	require.NoError(t, err)
	assert.False(t, ok, "only 4 remain")

	stored, err := repo.FindByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stored.RemainingQuantity)
	assert.Equal(t, lot.Version+1, stored.Version)

	ok, err = repo.Restore(ctx, lot.ID, 7)
	require.NoError(t, err)
	assert.False(t, ok, "restore cannot exceed the initial quantity")

	ok, err = repo.Restore(ctx, lot.ID, 6)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err = repo.FindByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.RemainingQuantity)

	_, err = repo.DeductIfAvailable(ctx, uuid.New(), 1)
	assert.True(t, shared.IsKind(err, shared.KindNotFound))
}

func TestGormLotRepository_DeductIfAvailable_SQL(t *testing.T) {
	lotID := uuid.New()

	tests := []struct {
		name     string
		rows     int64
		existing int
		wantOK   bool
		wantKind shared.ErrorKind
	}{
		{name: "guard passes", rows: 1, wantOK: true},
		{name: "guard fails on existing lot", rows: 0, existing: 1, wantOK: false},
		{name: "lot missing", rows: 0, existing: 0, wantKind: shared.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectExec(`UPDATE "lots" SET .*remaining_quantity.*WHERE id = \$\d+ AND remaining_quantity >= \$\d+`).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))
			if tt.rows == 0 {
				mock.ExpectQuery(`SELECT count\(\*\) FROM "lots" WHERE id = \$1`).
					WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(tt.existing))
			}

			ok, err := NewGormLotRepository(db).DeductIfAvailable(context.Background(), lotID, 3)

			if tt.wantKind != "" {
				assert.True(t, shared.IsKind(err, tt.wantKind))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantOK, ok)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

package persistence

import (
	"context"

	appshared "github.com/minhtran291/PMS-Backend-sub002/internal/application/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appshared.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepositories{tx: tx})
	})
}

// gormRepositories provides access to all repositories within a transaction.
type gormRepositories struct {
	tx *gorm.DB
}

func (r *gormRepositories) Lots() inventory.LotRepository {
	return NewGormLotRepository(r.tx)
}

func (r *gormRepositories) StockExportOrders() fulfillment.StockExportOrderRepository {
	return NewGormStockExportOrderRepository(r.tx)
}

func (r *gormRepositories) GoodsIssueNotes() fulfillment.GoodsIssueNoteRepository {
	return NewGormGoodsIssueNoteRepository(r.tx)
}

func (r *gormRepositories) Invoices() finance.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormRepositories) Payments() finance.PaymentRecordRepository {
	return NewGormPaymentRecordRepository(r.tx)
}

func (r *gormRepositories) Debts() finance.CustomerDebtRepository {
	return NewGormCustomerDebtRepository(r.tx)
}

var (
	_ appshared.TransactionScope = (*GormTransactionScope)(nil)
	_ appshared.Repositories     = (*gormRepositories)(nil)
)

package shared

import (
	"context"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
)

// TransactionScope provides transactional access to every repository of the core.
// All repository operations made through the Repositories handed to fn are part
// of one transaction and are committed or rolled back together.
type TransactionScope interface {
	// Execute runs fn within a transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying transaction.
type Repositories interface {
	Lots() inventory.LotRepository
	StockExportOrders() fulfillment.StockExportOrderRepository
	GoodsIssueNotes() fulfillment.GoodsIssueNoteRepository
	Invoices() finance.InvoiceRepository
	Payments() finance.PaymentRecordRepository
	Debts() finance.CustomerDebtRepository
}

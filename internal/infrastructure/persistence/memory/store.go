// Package memory provides an in-process implementation of every repository of
// the core. It backs single-node runs and the service and property tests.
//
// Each Execute call records an undo entry per write; a failed transaction
// replays them in reverse. Reads see other transactions' uncommitted writes,
// so callers rely on the application locks for aggregate isolation. Lot
// quantity changes are commutative and stay correct under that model.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	appshared "github.com/minhtran291/PMS-Backend-sub002/internal/application/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
)

// Store holds all aggregates in memory
type Store struct {
	mu       sync.RWMutex
	lots     map[uuid.UUID]*inventory.Lot
	orders   map[uuid.UUID]*fulfillment.StockExportOrder
	notes    map[uuid.UUID]*fulfillment.GoodsIssueNote
	invoices map[uuid.UUID]*finance.Invoice
	payments map[uuid.UUID]*finance.PaymentRecord
	debts    map[uuid.UUID]*finance.CustomerDebt
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		lots:     make(map[uuid.UUID]*inventory.Lot),
		orders:   make(map[uuid.UUID]*fulfillment.StockExportOrder),
		notes:    make(map[uuid.UUID]*fulfillment.GoodsIssueNote),
		invoices: make(map[uuid.UUID]*finance.Invoice),
		payments: make(map[uuid.UUID]*finance.PaymentRecord),
		debts:    make(map[uuid.UUID]*finance.CustomerDebt),
	}
}

// Execute runs fn as one unit of work. If fn fails, every write it made is undone.
func (s *Store) Execute(ctx context.Context, fn func(repos appshared.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &transaction{store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// transaction implements appshared.Repositories over the store
type transaction struct {
	store *Store
	mu    sync.Mutex
	undo  []func()
}

// record registers an undo step. Called with store.mu held.
func (t *transaction) record(step func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.undo = append(t.undo, step)
}

func (t *transaction) rollback() {
	t.mu.Lock()
	steps := t.undo
	t.undo = nil
	t.mu.Unlock()

	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for i := len(steps) - 1; i >= 0; i-- {
		steps[i]()
	}
}

func (t *transaction) Lots() inventory.LotRepository {
	return &lotRepository{tx: t}
}

func (t *transaction) StockExportOrders() fulfillment.StockExportOrderRepository {
	return &stockExportOrderRepository{tx: t}
}

func (t *transaction) GoodsIssueNotes() fulfillment.GoodsIssueNoteRepository {
	return &goodsIssueNoteRepository{tx: t}
}

func (t *transaction) Invoices() finance.InvoiceRepository {
	return &invoiceRepository{tx: t}
}

func (t *transaction) Payments() finance.PaymentRecordRepository {
	return &paymentRecordRepository{tx: t}
}

func (t *transaction) Debts() finance.CustomerDebtRepository {
	return &customerDebtRepository{tx: t}
}

// Ensure Store implements TransactionScope
var _ appshared.TransactionScope = (*Store)(nil)

// Ensure transaction implements Repositories
var _ appshared.Repositories = (*transaction)(nil)

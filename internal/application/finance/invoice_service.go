package finance

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	appshared "github.com/minhtran291/PMS-Backend-sub002/internal/application/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DebtTracker refreshes the debt of a sales order after its invoice changed
type DebtTracker interface {
	RecomputeDebtStatus(ctx context.Context, salesOrderID uuid.UUID) (*finance.CustomerDebt, error)
}

// InvoiceService aggregates goods issue notes into the invoice of a sales order
type InvoiceService struct {
	txScope   appshared.TransactionScope
	locker    appshared.Locker
	retry     appshared.RetryPolicy
	publisher shared.EventPublisher
	debts     DebtTracker
	logger    *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(txScope appshared.TransactionScope, locker appshared.Locker, retry appshared.RetryPolicy, logger *zap.Logger) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		txScope: txScope,
		locker:  locker,
		retry:   retry,
		logger:  logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetDebtTracker sets the tracker refreshed after each aggregation
func (s *InvoiceService) SetDebtTracker(debts DebtTracker) {
	s.debts = debts
}

// AggregateInvoice adds the named goods issue notes to the invoice of the sales
// order, creating it on first use, and allocates any unallocated deposit to the
// notes in export index order. Notes already invoiced are skipped.
func (s *InvoiceService) AggregateInvoice(ctx context.Context, salesOrderID uuid.UUID, ginCodes []string) (*finance.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "aggregate")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrSalesOrderID, salesOrderID.String())

	if len(ginCodes) == 0 {
		return nil, shared.NewValidationError("NO_NOTES", "at least one goods issue note code is required")
	}

	var (
		invoice *finance.Invoice
		added   []string
	)
	keys := []string{appshared.SalesOrderLockKey(salesOrderID)}
	err := appshared.WithLocks(ctx, s.locker, keys, func() error {
		return appshared.RetryOnConflict(ctx, s.retry, func(int) error {
			return s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
				var err error
				invoice, added, err = s.aggregate(ctx, repos, salesOrderID, ginCodes)
				return err
			})
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if len(added) > 0 {
		invoice.AddDomainEvent(finance.NewInvoiceAggregatedEvent(invoice, added))
		s.logger.Info("Invoice aggregated",
			zap.String("invoice_code", invoice.Code),
			zap.String("sales_order_id", salesOrderID.String()),
			zap.Strings("note_codes", added),
			zap.String("total_amount", invoice.TotalAmount.String()),
			zap.String("total_remain", invoice.TotalRemain.String()))
	}
	appshared.PublishEvents(ctx, s.publisher, s.logger, appshared.CollectEvents(invoice))
	refreshDebt(ctx, s.debts, s.logger, salesOrderID)
	return invoice, nil
}

func (s *InvoiceService) aggregate(ctx context.Context, repos appshared.Repositories, salesOrderID uuid.UUID, ginCodes []string) (*finance.Invoice, []string, error) {
	notes, err := repos.GoodsIssueNotes().FindByCodes(ctx, ginCodes)
	if err != nil {
		return nil, nil, err
	}
	if err := checkNotes(notes, salesOrderID, ginCodes); err != nil {
		return nil, nil, err
	}

	invoice, isNew, err := loadOrNewInvoice(ctx, repos, salesOrderID)
	if err != nil {
		return nil, nil, err
	}

	added := make([]string, 0, len(notes))
	for _, note := range notes {
		ok, err := invoice.AddGoodsIssueNote(noteSummary(note))
		if err != nil {
			return nil, nil, err
		}
		if ok {
			added = append(added, note.Code())
		}
	}

	if _, err := allocateDepositPool(ctx, repos, invoice); err != nil {
		return nil, nil, err
	}
	if err := invoice.CheckInvariants(); err != nil {
		return nil, nil, err
	}
	if isNew {
		err = repos.Invoices().Create(ctx, invoice)
	} else {
		err = repos.Invoices().SaveWithLock(ctx, invoice)
	}
	return invoice, added, err
}

// GetInvoice returns the invoice of a sales order
func (s *InvoiceService) GetInvoice(ctx context.Context, salesOrderID uuid.UUID) (*finance.Invoice, error) {
	var invoice *finance.Invoice
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		invoice, err = repos.Invoices().FindBySalesOrder(ctx, salesOrderID)
		return err
	})
	return invoice, err
}

func checkNotes(notes []*fulfillment.GoodsIssueNote, salesOrderID uuid.UUID, codes []string) error {
	found := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		if n.SalesOrderID() != salesOrderID {
			return shared.NewValidationError("NOTE_ORDER_MISMATCH",
				fmt.Sprintf("goods issue note %s belongs to another sales order", n.Code()))
		}
		found[n.Code()] = struct{}{}
	}
	for _, code := range codes {
		if _, ok := found[code]; !ok {
			return shared.NewNotFoundError("goods issue note", code)
		}
	}
	return nil
}

func noteSummary(n *fulfillment.GoodsIssueNote) finance.NoteSummary {
	return finance.NoteSummary{
		ID:           n.ID(),
		Code:         n.Code(),
		SalesOrderID: n.SalesOrderID(),
		ExportIndex:  n.ExportIndex(),
		Amount:       n.Amount(),
		DueDate:      n.DueDate(),
	}
}

// loadOrNewInvoice returns the invoice of the sales order, or a new one when none exists yet
func loadOrNewInvoice(ctx context.Context, repos appshared.Repositories, salesOrderID uuid.UUID) (*finance.Invoice, bool, error) {
	invoice, err := repos.Invoices().FindBySalesOrder(ctx, salesOrderID)
	if err == nil {
		return invoice, false, nil
	}
	if !shared.IsKind(err, shared.KindNotFound) {
		return nil, false, err
	}
	invoice, err = finance.NewInvoice(salesOrderID)
	return invoice, true, err
}

// findInvoice returns the invoice of the sales order or nil when none exists yet
func findInvoice(ctx context.Context, repos appshared.Repositories, salesOrderID uuid.UUID) (*finance.Invoice, error) {
	invoice, err := repos.Invoices().FindBySalesOrder(ctx, salesOrderID)
	if shared.IsKind(err, shared.KindNotFound) {
		return nil, nil
	}
	return invoice, err
}

// depositPool is the successful deposit money not yet allocated to any note
func depositPool(ctx context.Context, repos appshared.Repositories, invoice *finance.Invoice) (decimal.Decimal, error) {
	paid, err := repos.Payments().SumSucceeded(ctx, invoice.SalesOrderID, finance.PaymentTypeDeposit)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Max(decimal.Zero, paid.Sub(invoice.TotalDeposit)), nil
}

// allocateDepositPool spreads the unallocated deposit over the open notes
func allocateDepositPool(ctx context.Context, repos appshared.Repositories, invoice *finance.Invoice) (decimal.Decimal, error) {
	pool, err := depositPool(ctx, repos, invoice)
	if err != nil {
		return decimal.Zero, err
	}
	if !pool.IsPositive() {
		return decimal.Zero, nil
	}
	return invoice.AllocateDeposit(pool), nil
}

func refreshDebt(ctx context.Context, debts DebtTracker, logger *zap.Logger, salesOrderID uuid.UUID) {
	if debts == nil {
		return
	}
	if _, err := debts.RecomputeDebtStatus(ctx, salesOrderID); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("Failed to refresh customer debt",
			zap.String("sales_order_id", salesOrderID.String()),
			zap.Error(err))
	}
}

package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	appinventory "github.com/minhtran291/PMS-Backend-sub002/internal/application/inventory"
	appshared "github.com/minhtran291/PMS-Backend-sub002/internal/application/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// StockExportService drives stock export orders through their lifecycle
type StockExportService struct {
	txScope   appshared.TransactionScope
	locker    appshared.Locker
	allocator *appinventory.AllocatorService
	generator *GoodsIssueNoteGenerator
	retry     appshared.RetryPolicy
	publisher shared.EventPublisher
	metrics   appshared.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewStockExportService creates a new StockExportService
func NewStockExportService(
	txScope appshared.TransactionScope,
	locker appshared.Locker,
	allocator *appinventory.AllocatorService,
	logger *zap.Logger,
) *StockExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockExportService{
		txScope:   txScope,
		locker:    locker,
		allocator: allocator,
		generator: NewGoodsIssueNoteGenerator(allocator, logger),
		retry:     allocator.RetryPolicy(),
		metrics:   appshared.NopMetrics{},
		logger:    logger,
		now:       time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *StockExportService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the business metrics sink
func (s *StockExportService) SetMetrics(metrics appshared.Metrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// CreateSEO creates a draft stock export order
func (s *StockExportService) CreateSEO(ctx context.Context, req CreateSEORequest) (*fulfillment.StockExportOrder, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		code = generateSEOCode(s.now())
	}
	lines := make([]fulfillment.NewSEOLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, fulfillment.NewSEOLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}

	seo, err := fulfillment.NewStockExportOrder(code, req.SalesOrderID, req.DueDate, lines)
	if err != nil {
		return nil, err
	}
	err = s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		return repos.StockExportOrders().Create(ctx, seo)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock export order created",
		zap.String("stock_export_order_id", seo.ID.String()),
		zap.String("code", seo.Code),
		zap.String("sales_order_id", seo.SalesOrderID.String()),
		zap.Int("lines", len(seo.Lines)))
	return seo, nil
}

// GetSEO returns a stock export order by ID
func (s *StockExportService) GetSEO(ctx context.Context, id uuid.UUID) (*fulfillment.StockExportOrder, error) {
	var seo *fulfillment.StockExportOrder
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		seo, err = repos.StockExportOrders().FindByID(ctx, id)
		return err
	})
	return seo, err
}

// ListBySalesOrder returns the stock export orders of a sales order
func (s *StockExportService) ListBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) ([]fulfillment.StockExportOrder, error) {
	var orders []fulfillment.StockExportOrder
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		orders, err = repos.StockExportOrders().FindBySalesOrder(ctx, salesOrderID)
		return err
	})
	return orders, err
}

// GetGoodsIssueNote returns a goods issue note by code
func (s *StockExportService) GetGoodsIssueNote(ctx context.Context, code string) (*fulfillment.GoodsIssueNote, error) {
	var note *fulfillment.GoodsIssueNote
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		note, err = repos.GoodsIssueNotes().FindByCode(ctx, code)
		return err
	})
	return note, err
}

// ListGoodsIssueNotes returns the goods issue notes of a sales order by export index
func (s *StockExportService) ListGoodsIssueNotes(ctx context.Context, salesOrderID uuid.UUID) ([]*fulfillment.GoodsIssueNote, error) {
	var notes []*fulfillment.GoodsIssueNote
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		notes, err = repos.GoodsIssueNotes().FindBySalesOrder(ctx, salesOrderID)
		return err
	})
	return notes, err
}

// mutate runs fn on a freshly loaded order under the order lock, saves it and
// publishes its events. The whole read-modify-write is retried on conflict.
func (s *StockExportService) mutate(ctx context.Context, id uuid.UUID, fn func(repos appshared.Repositories, seo *fulfillment.StockExportOrder) error) (*fulfillment.StockExportOrder, error) {
	var seo *fulfillment.StockExportOrder
	err := appshared.WithLocks(ctx, s.locker, []string{appshared.SEOLockKey(id)}, func() error {
		return appshared.RetryOnConflict(ctx, s.retry, func(int) error {
			return s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
				var err error
				seo, err = repos.StockExportOrders().FindByID(ctx, id)
				if err != nil {
					return err
				}
				if err := fn(repos, seo); err != nil {
					return err
				}
				return repos.StockExportOrders().SaveWithLock(ctx, seo)
			})
		})
	})
	if err != nil {
		return nil, err
	}
	appshared.PublishEvents(ctx, s.publisher, s.logger, appshared.CollectEvents(seo))
	return seo, nil
}

// SubmitSEO sends a draft order for fulfillment
func (s *StockExportService) SubmitSEO(ctx context.Context, id uuid.UUID) (*fulfillment.StockExportOrder, error) {
	return s.mutate(ctx, id, func(_ appshared.Repositories, seo *fulfillment.StockExportOrder) error {
		return seo.Submit()
	})
}

// CheckAvailability dry-runs a FEFO plan for every line and moves the order to
// READY_TO_EXPORT or NOT_ENOUGH. No lot is changed. A shortfall is not an
// error here: the order carries it.
func (s *StockExportService) CheckAvailability(ctx context.Context, id uuid.UUID) (*fulfillment.StockExportOrder, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_export", "check_availability")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrStockExportOrderID, id.String())

	seo, err := s.mutate(ctx, id, func(repos appshared.Repositories, seo *fulfillment.StockExportOrder) error {
		plans, err := s.planLines(ctx, repos.Lots(), seo)
		if err != nil {
			return err
		}
		_, err = seo.ApplyAvailability(plans)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderStatus, seo.Status.String())
	return seo, nil
}

func (s *StockExportService) planLines(ctx context.Context, lots inventory.LotRepository, seo *fulfillment.StockExportOrder) ([]*inventory.AllocationPlan, error) {
	plans := make([]*inventory.AllocationPlan, 0, len(seo.Lines))
	for _, req := range seo.Requests(time.Time{}) {
		plan, err := s.allocator.Plan(ctx, lots, req)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

// AwaitRestock parks a NOT_ENOUGH order until stock arrives
func (s *StockExportService) AwaitRestock(ctx context.Context, id uuid.UUID) (*fulfillment.StockExportOrder, error) {
	return s.mutate(ctx, id, func(_ appshared.Repositories, seo *fulfillment.StockExportOrder) error {
		return seo.Await()
	})
}

// ReserveExport picks stock for a ready order: lots are deducted and the
// deductions recorded, but no goods issue note is created yet. The order stays
// READY_TO_EXPORT until CommitExport issues it or CancelSEO returns the stock.
// If stock ran out since the last check the order moves to NOT_ENOUGH and an
// InsufficientStock error is returned.
func (s *StockExportService) ReserveExport(ctx context.Context, id uuid.UUID) (*fulfillment.StockExportOrder, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_export", "reserve_export")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrStockExportOrderID, id.String())

	short := false
	seo, err := s.mutate(ctx, id, func(repos appshared.Repositories, seo *fulfillment.StockExportOrder) error {
		result, err := s.generator.Pick(ctx, repos, seo)
		if err != nil {
			return err
		}
		short = result.Short
		if short {
			_, err = seo.ApplyAvailability(result.Plans)
		}
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if short {
		return seo, shortfallError(seo)
	}
	return seo, nil
}

// CommitExport deducts the planned lots, creates the goods issue note and
// marks the order EXPORTED in one transaction. Stock picked earlier by
// ReserveExport is issued as is. A lot that changed since planning is retried
// from a fresh plan; if stock ran out the order moves to NOT_ENOUGH and an
// InsufficientStock error is returned with nothing deducted.
func (s *StockExportService) CommitExport(ctx context.Context, id uuid.UUID) (*ExportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_export", "commit_export")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrStockExportOrderID, id.String())

	current, err := s.GetSEO(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrSalesOrderID, current.SalesOrderID.String())

	var (
		seo   *fulfillment.StockExportOrder
		note  *fulfillment.GoodsIssueNote
		short bool
	)
	keys := []string{appshared.SEOLockKey(id), appshared.SalesOrderLockKey(current.SalesOrderID)}
	err = appshared.WithLocks(ctx, s.locker, keys, func() error {
		return appshared.RetryOnConflict(ctx, s.retry, func(attempt int) error {
			note, short = nil, false
			return s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
				var err error
				seo, err = repos.StockExportOrders().FindByID(ctx, id)
				if err != nil {
					return err
				}
				pick, err := s.generator.Pick(ctx, repos, seo)
				if err != nil {
					if attempt > 1 {
						s.logger.Debug("Export retry failed", zap.Int("attempt", attempt), zap.Error(err))
					}
					return err
				}
				if pick.Short {
					short = true
					if _, err := seo.ApplyAvailability(pick.Plans); err != nil {
						return err
					}
					return repos.StockExportOrders().SaveWithLock(ctx, seo)
				}
				note, err = s.generator.Issue(ctx, repos, seo, s.now())
				if err != nil {
					return err
				}
				return repos.StockExportOrders().SaveWithLock(ctx, seo)
			})
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Stock export failed",
			zap.String("stock_export_order_id", id.String()),
			zap.Error(err))
		return nil, err
	}

	events := appshared.CollectEvents(seo)
	if short {
		appshared.PublishEvents(ctx, s.publisher, s.logger, events)
		return &ExportResult{Order: seo}, shortfallError(seo)
	}
	events = append(events, fulfillment.NewGoodsIssueNoteCreatedEvent(note))
	appshared.PublishEvents(ctx, s.publisher, s.logger, events)

	s.metrics.StockExported(ctx, len(note.Lines()), note.TotalQuantity())
	telemetry.SetAttributes(span, telemetry.SpanAttrGoodsIssueNoteCode, note.Code())
	return &ExportResult{Order: seo, Note: note}, nil
}

// CancelSEO abandons an order. With return, every recorded lot deduction is
// restored before the order is cancelled; without return the cancel is refused
// while deductions exist.
func (s *StockExportService) CancelSEO(ctx context.Context, id uuid.UUID, withReturn bool, reason string) (*fulfillment.StockExportOrder, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_export", "cancel")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrStockExportOrderID, id.String(),
		telemetry.SpanAttrWithReturn, withReturn,
	)

	var returned int
	seo, err := s.mutate(ctx, id, func(repos appshared.Repositories, seo *fulfillment.StockExportOrder) error {
		if err := seo.EnsureCancellable(withReturn); err != nil {
			return err
		}
		returned = len(seo.Deductions)
		for _, d := range seo.Deductions {
			if err := s.allocator.Release(ctx, repos.Lots(), d.LotID, d.Quantity); err != nil {
				return err
			}
		}
		return seo.Cancel(reason, withReturn)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.OrderCancelled(ctx, withReturn)
	s.logger.Info("Stock export order cancelled",
		zap.String("stock_export_order_id", seo.ID.String()),
		zap.Bool("with_return", withReturn),
		zap.Int("returned_deductions", returned),
		zap.String("reason", reason))
	return seo, nil
}

// RecheckAwaiting re-runs the availability check of up to limit AWAIT orders,
// oldest first. A failure on one order is logged and the rest continue.
// Returns how many orders became ready.
func (s *StockExportService) RecheckAwaiting(ctx context.Context, limit int) (int, error) {
	var waiting []fulfillment.StockExportOrder
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		waiting, err = repos.StockExportOrders().FindByStatus(ctx, fulfillment.SEOStatusAwait, limit)
		return err
	})
	if err != nil {
		return 0, err
	}

	readied := 0
	for _, o := range waiting {
		if ctx.Err() != nil {
			return readied, ctx.Err()
		}
		seo, err := s.CheckAvailability(ctx, o.ID)
		if err != nil {
			s.logger.Warn("Re-check of awaiting order failed",
				zap.String("stock_export_order_id", o.ID.String()),
				zap.Error(err))
			continue
		}
		if seo.Status == fulfillment.SEOStatusReadyToExport {
			readied++
		}
	}
	return readied, nil
}

func shortfallError(seo *fulfillment.StockExportOrder) *shared.DomainError {
	shortfalls := make(map[string]int64)
	for productID, qty := range seo.Shortfalls() {
		shortfalls[productID.String()] = qty
	}
	return shared.NewDomainError(shared.KindInsufficientStock, "INSUFFICIENT_STOCK",
		"available lots cannot cover the stock export order").
		WithDetail("stock_export_order_id", seo.ID.String()).
		WithDetail("shortfalls", shortfalls)
}

func generateSEOCode(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("SEO-%s-%s", now.Format("20060102"), suffix)
}

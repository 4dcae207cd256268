package finance

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	appshared "github.com/minhtran291/PMS-Backend-sub002/internal/application/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultEvaluationConcurrency is the number of debts evaluated at once by EvaluateOpenDebts
const DefaultEvaluationConcurrency = 4

// DebtServiceConfig holds the settings of the debt service
type DebtServiceConfig struct {
	// Policy carries the bad debt grace period. It has no default.
	Policy finance.DebtPolicy
	// Concurrency bounds EvaluateOpenDebts
	Concurrency int
}

// DebtService keeps the customer debt of each sales order in line with its invoice
type DebtService struct {
	txScope   appshared.TransactionScope
	locker    appshared.Locker
	retry     appshared.RetryPolicy
	config    DebtServiceConfig
	publisher shared.EventPublisher
	metrics   appshared.Metrics
	logger    *zap.Logger
	now       func() time.Time
	warnOnce  sync.Once
}

// NewDebtService creates a new DebtService
func NewDebtService(txScope appshared.TransactionScope, locker appshared.Locker, retry appshared.RetryPolicy, config DebtServiceConfig, logger *zap.Logger) *DebtService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultEvaluationConcurrency
	}
	return &DebtService{
		txScope: txScope,
		locker:  locker,
		retry:   retry,
		config:  config,
		metrics: appshared.NopMetrics{},
		logger:  logger,
		now:     time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *DebtService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// SetMetrics sets the recorder of debt transitions
func (s *DebtService) SetMetrics(metrics appshared.Metrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// SetClock replaces the time source used for overdue evaluation
func (s *DebtService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// RecomputeDebtStatus refreshes the debt of a sales order from its invoice.
// A debt is opened the first time the invoice carries an unpaid balance, and
// again whenever a settled order owes money after a later shipment or a refund.
// Returns nil without error when nothing is owed and no debt exists.
func (s *DebtService) RecomputeDebtStatus(ctx context.Context, salesOrderID uuid.UUID) (*finance.CustomerDebt, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "debt", "recompute")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrSalesOrderID, salesOrderID.String())

	s.checkPolicy()

	var debt *finance.CustomerDebt
	keys := []string{appshared.SalesOrderLockKey(salesOrderID)}
	err := appshared.WithLocks(ctx, s.locker, keys, func() error {
		return appshared.RetryOnConflict(ctx, s.retry, func(int) error {
			return s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
				var err error
				debt, err = s.recompute(ctx, repos, salesOrderID)
				return err
			})
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if debt == nil {
		return nil, nil
	}
	s.publish(ctx, debt)
	return debt, nil
}

func (s *DebtService) recompute(ctx context.Context, repos appshared.Repositories, salesOrderID uuid.UUID) (*finance.CustomerDebt, error) {
	invoice, err := repos.Invoices().FindBySalesOrder(ctx, salesOrderID)
	if err != nil {
		return nil, err
	}

	debt, err := repos.Debts().FindBySalesOrder(ctx, salesOrderID)
	isNew := false
	switch {
	case err == nil && debt.OwesAgain(invoice.TotalRemain):
		s.logger.Info("Settled debt owes again, opening a new debt",
			zap.String("sales_order_id", salesOrderID.String()),
			zap.String("settled_debt_id", debt.ID.String()),
			zap.String("total_remain", invoice.TotalRemain.String()))
		fallthrough
	case shared.IsKind(err, shared.KindNotFound):
		if !invoice.TotalRemain.IsPositive() {
			return nil, nil
		}
		debt, err = finance.NewCustomerDebt(salesOrderID, invoice.TotalAmount, invoice.DueDate)
		if err != nil {
			return nil, err
		}
		isNew = true
	case err != nil:
		return nil, err
	}

	if _, err := debt.Recompute(invoice.TotalAmount, invoice.TotalPaid, s.now(), s.config.Policy); err != nil {
		return nil, err
	}
	if isNew {
		return debt, repos.Debts().Create(ctx, debt)
	}
	return debt, repos.Debts().SaveWithLock(ctx, debt)
}

// DisableDebt retires the debt of a rejected or cancelled sales order
func (s *DebtService) DisableDebt(ctx context.Context, salesOrderID uuid.UUID, reason string) (*finance.CustomerDebt, error) {
	var debt *finance.CustomerDebt
	keys := []string{appshared.SalesOrderLockKey(salesOrderID)}
	err := appshared.WithLocks(ctx, s.locker, keys, func() error {
		return appshared.RetryOnConflict(ctx, s.retry, func(int) error {
			return s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
				var err error
				debt, err = repos.Debts().FindBySalesOrder(ctx, salesOrderID)
				if err != nil {
					return err
				}
				if err := debt.Disable(reason); err != nil {
					return err
				}
				return repos.Debts().SaveWithLock(ctx, debt)
			})
		})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, debt)
	s.logger.Info("Customer debt disabled",
		zap.String("sales_order_id", salesOrderID.String()),
		zap.String("reason", reason))
	return debt, nil
}

// GetDebt returns the debt of a sales order
func (s *DebtService) GetDebt(ctx context.Context, salesOrderID uuid.UUID) (*finance.CustomerDebt, error) {
	var debt *finance.CustomerDebt
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		debt, err = repos.Debts().FindBySalesOrder(ctx, salesOrderID)
		return err
	})
	return debt, err
}

// EvaluateOpenDebts re-evaluates up to limit open debts. A failure on one debt
// is logged and the others still run. Returns the number of debts whose status changed.
func (s *DebtService) EvaluateOpenDebts(ctx context.Context, limit int) (int, error) {
	var open []finance.CustomerDebt
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		open, err = repos.Debts().FindOpen(ctx, limit)
		return err
	})
	if err != nil {
		return 0, err
	}

	var changed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i := range open {
		before := open[i].Status
		salesOrderID := open[i].SalesOrderID
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			debt, err := s.RecomputeDebtStatus(gctx, salesOrderID)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				s.logger.Error("Failed to evaluate customer debt",
					zap.String("sales_order_id", salesOrderID.String()),
					zap.Error(err))
				return nil
			}
			if debt != nil && debt.Status != before {
				changed.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()
	return int(changed.Load()), err
}

func (s *DebtService) publish(ctx context.Context, debt *finance.CustomerDebt) {
	events := appshared.CollectEvents(debt)
	for _, e := range events {
		if changed, ok := e.(*finance.DebtStatusChangedEvent); ok {
			s.metrics.DebtTransition(ctx, changed.From.String(), changed.To.String())
			s.logger.Info("Customer debt status changed",
				zap.String("sales_order_id", debt.SalesOrderID.String()),
				zap.String("from", changed.From.String()),
				zap.String("to", changed.To.String()),
				zap.String("debt_amount", debt.DebtAmount.String()))
		}
	}
	appshared.PublishEvents(ctx, s.publisher, s.logger, events)
}

func (s *DebtService) checkPolicy() {
	if s.config.Policy.BadDebtEnabled {
		return
	}
	s.warnOnce.Do(func() {
		s.logger.Warn("Bad debt grace period is not configured; overdue debts will not be escalated to BAD_DEBT")
	})
}

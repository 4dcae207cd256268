package finance

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	appshared "github.com/minhtran291/PMS-Backend-sub002/internal/application/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentServiceConfig holds the collaborators of the payment service
type PaymentServiceConfig struct {
	TxScope     appshared.TransactionScope
	Locker      appshared.Locker
	Retry       appshared.RetryPolicy
	Idempotency shared.IdempotencyStore
	// IdempotencyConfig controls how long applied gateway references are remembered
	IdempotencyConfig shared.IdempotencyConfig
	EventPublisher    shared.EventPublisher
	Metrics           appshared.Metrics
	Debts             DebtTracker
	Logger            *zap.Logger
}

// PaymentService applies gateway-confirmed payments to invoices
type PaymentService struct {
	txScope     appshared.TransactionScope
	locker      appshared.Locker
	retry       appshared.RetryPolicy
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	publisher   shared.EventPublisher
	metrics     appshared.Metrics
	debts       DebtTracker
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(config PaymentServiceConfig) *PaymentService {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := config.Metrics
	if metrics == nil {
		metrics = appshared.NopMetrics{}
	}
	idemConfig := config.IdempotencyConfig
	if idemConfig.TTL <= 0 {
		idemConfig = shared.DefaultIdempotencyConfig()
	}
	return &PaymentService{
		txScope:     config.TxScope,
		locker:      config.Locker,
		retry:       config.Retry,
		idempotency: config.Idempotency,
		idemConfig:  idemConfig,
		publisher:   config.EventPublisher,
		metrics:     metrics,
		debts:       config.Debts,
		logger:      logger,
	}
}

// SetDebtTracker sets the tracker refreshed after each payment change
func (s *PaymentService) SetDebtTracker(debts DebtTracker) {
	s.debts = debts
}

// ApplyPayment records a confirmed payment and allocates it.
//
// A gateway reference already applied (SUCCESS or REFUNDED) is a DuplicatePayment
// error. A deposit joins the deposit pool and is allocated to invoiced notes in
// export index order. A remain or full payment is spread over open notes, or
// over the target note only. Money that fits no open balance is kept on the
// payment as overpaid and the result is returned together with an Overpayment error.
func (s *PaymentService) ApplyPayment(ctx context.Context, cmd ApplyPaymentCommand) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "apply")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSalesOrderID, cmd.SalesOrderID.String(),
		telemetry.SpanAttrGatewayRef, cmd.GatewayRef,
		telemetry.SpanAttrPaymentType, string(cmd.Type),
		telemetry.SpanAttrAmount, cmd.Amount.String(),
	)

	ref := strings.TrimSpace(cmd.GatewayRef)
	if ref == "" {
		return nil, shared.NewValidationError("INVALID_GATEWAY_REF", "gateway reference is required")
	}
	if s.seen(ctx, ref) {
		err := duplicatePaymentError(ref)
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *PaymentResult
	keys := []string{appshared.PaymentLockKey(ref), appshared.SalesOrderLockKey(cmd.SalesOrderID)}
	err := appshared.WithLocks(ctx, s.locker, keys, func() error {
		return appshared.RetryOnConflict(ctx, s.retry, func(int) error {
			return s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
				var err error
				result, err = s.apply(ctx, repos, cmd, ref)
				return err
			})
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.remember(ctx, ref)
	appshared.PublishEvents(ctx, s.publisher, s.logger, resultEvents(result))
	s.metrics.PaymentApplied(ctx, string(result.Payment.Type), result.Applied)
	refreshDebt(ctx, s.debts, s.logger, cmd.SalesOrderID)

	s.logger.Info("Payment applied",
		zap.String("gateway_ref", ref),
		zap.String("sales_order_id", cmd.SalesOrderID.String()),
		zap.String("type", string(result.Payment.Type)),
		zap.String("amount", result.Payment.Amount.String()),
		zap.String("applied", result.Applied.String()),
		zap.String("excess", result.Excess.String()))

	if result.Excess.IsPositive() {
		s.metrics.PaymentOverpaid(ctx, result.Excess)
		s.logger.Warn("Payment exceeds outstanding balance; manual resolution required",
			zap.String("gateway_ref", ref),
			zap.String("excess", result.Excess.String()))
		err := finance.NewOverpaymentError(result.Excess).WithDetail("gateway_ref", ref)
		telemetry.RecordError(span, err)
		return result, err
	}
	return result, nil
}

func (s *PaymentService) apply(ctx context.Context, repos appshared.Repositories, cmd ApplyPaymentCommand, ref string) (*PaymentResult, error) {
	payment, isNew, err := s.loadOrNewPayment(ctx, repos, cmd, ref)
	if err != nil {
		return nil, err
	}
	if payment.Status != finance.PaymentStatusPending {
		return nil, shared.NewStateConflictError("payment", payment.Status, finance.PaymentStatusSuccess)
	}
	if cmd.GoodsIssueNoteID != nil {
		if err := payment.TargetNote(*cmd.GoodsIssueNoteID); err != nil {
			return nil, err
		}
	}

	invoice, err := findInvoice(ctx, repos, cmd.SalesOrderID)
	if err != nil {
		return nil, err
	}
	if cmd.InvoiceID != nil && (invoice == nil || invoice.ID != *cmd.InvoiceID) {
		return nil, shared.NewValidationError("INVOICE_ORDER_MISMATCH", "invoice does not belong to the sales order")
	}

	if invoice == nil && !payment.Type.IsDeposit() {
		return nil, shared.NewNotFoundError("invoice", cmd.SalesOrderID)
	}

	result := &PaymentResult{Payment: payment, Invoice: invoice, Applied: decimal.Zero, Excess: decimal.Zero}
	var invoiceID *uuid.UUID
	if invoice != nil {
		invoiceID = &invoice.ID
	}

	// persist first so SumSucceeded sees this deposit
	if isNew {
		if err := repos.Payments().Create(ctx, payment); err != nil {
			return nil, err
		}
	}

	var allocations []finance.PaymentAllocation
	if payment.Type.IsDeposit() {
		if err := payment.MarkSucceeded(invoiceID, nil, payment.Amount, decimal.Zero); err != nil {
			return nil, err
		}
		result.Applied = payment.Amount
		if err := repos.Payments().SaveWithLock(ctx, payment); err != nil {
			return nil, err
		}
		if invoice != nil {
			if _, err := allocateDepositPool(ctx, repos, invoice); err != nil {
				return nil, err
			}
		}
	} else {
		applied, err := invoice.ApplyRemainder(payment.Amount, payment.GoodsIssueNoteID)
		if err != nil {
			return nil, err
		}
		allocations = applied.Allocations
		result.Applied = applied.Applied
		result.Excess = applied.Excess
		if err := payment.MarkSucceeded(invoiceID, allocations, applied.Applied, applied.Excess); err != nil {
			return nil, err
		}
		if err := repos.Payments().SaveWithLock(ctx, payment); err != nil {
			return nil, err
		}
	}

	if invoice != nil {
		if err := invoice.CheckInvariants(); err != nil {
			return nil, err
		}
		if err := repos.Invoices().SaveWithLock(ctx, invoice); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *PaymentService) loadOrNewPayment(ctx context.Context, repos appshared.Repositories, cmd ApplyPaymentCommand, ref string) (*finance.PaymentRecord, bool, error) {
	existing, err := repos.Payments().FindByGatewayRef(ctx, ref)
	if err == nil {
		if existing.IsApplied() {
			return nil, false, duplicatePaymentError(ref)
		}
		if existing.SalesOrderID != cmd.SalesOrderID || existing.Type != cmd.Type || !existing.Amount.Equal(cmd.Amount) {
			return nil, false, shared.NewValidationError("PAYMENT_MISMATCH",
				"gateway reference is registered for a different payment")
		}
		return existing, false, nil
	}
	if !shared.IsKind(err, shared.KindNotFound) {
		return nil, false, err
	}
	payment, err := finance.NewPaymentRecord(cmd.SalesOrderID, cmd.Type, cmd.Amount, ref)
	return payment, true, err
}

// RegisterPayment records a PENDING payment when the gateway transaction starts.
// A later ApplyPayment or FailPayment with the same reference completes it.
func (s *PaymentService) RegisterPayment(ctx context.Context, cmd ApplyPaymentCommand) (*finance.PaymentRecord, error) {
	payment, err := finance.NewPaymentRecord(cmd.SalesOrderID, cmd.Type, cmd.Amount, cmd.GatewayRef)
	if err != nil {
		return nil, err
	}
	if cmd.GoodsIssueNoteID != nil {
		if err := payment.TargetNote(*cmd.GoodsIssueNoteID); err != nil {
			return nil, err
		}
	}
	err = appshared.WithLocks(ctx, s.locker, []string{appshared.PaymentLockKey(payment.GatewayRef)}, func() error {
		return s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
			return repos.Payments().Create(ctx, payment)
		})
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// FailPayment records a gateway failure. An unknown reference is recorded as a failed payment.
func (s *PaymentService) FailPayment(ctx context.Context, cmd ApplyPaymentCommand, reason string) (*finance.PaymentRecord, error) {
	ref := strings.TrimSpace(cmd.GatewayRef)
	var payment *finance.PaymentRecord
	err := appshared.WithLocks(ctx, s.locker, []string{appshared.PaymentLockKey(ref)}, func() error {
		return appshared.RetryOnConflict(ctx, s.retry, func(int) error {
			return s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
				var (
					isNew bool
					err   error
				)
				payment, isNew, err = s.loadOrNewPayment(ctx, repos, cmd, ref)
				if err != nil {
					return err
				}
				if err := payment.MarkFailed(reason); err != nil {
					return err
				}
				if isNew {
					return repos.Payments().Create(ctx, payment)
				}
				return repos.Payments().SaveWithLock(ctx, payment)
			})
		})
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Payment failed",
		zap.String("gateway_ref", ref),
		zap.String("reason", reason))
	return payment, nil
}

// RefundPayment moves a successful payment to REFUNDED and reverses its allocations.
// A deposit refund is taken from the unallocated pool first, then from the
// notes with the highest export index down.
func (s *PaymentService) RefundPayment(ctx context.Context, gatewayRef string) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "refund")
	defer span.End()
	ref := strings.TrimSpace(gatewayRef)
	telemetry.SetAttributes(span, telemetry.SpanAttrGatewayRef, ref)

	current, err := s.GetPayment(ctx, ref)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *PaymentResult
	keys := []string{appshared.PaymentLockKey(ref), appshared.SalesOrderLockKey(current.SalesOrderID)}
	err = appshared.WithLocks(ctx, s.locker, keys, func() error {
		return appshared.RetryOnConflict(ctx, s.retry, func(int) error {
			return s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
				var err error
				result, err = s.refund(ctx, repos, ref)
				return err
			})
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	appshared.PublishEvents(ctx, s.publisher, s.logger, resultEvents(result))
	refreshDebt(ctx, s.debts, s.logger, current.SalesOrderID)
	s.logger.Info("Payment refunded",
		zap.String("gateway_ref", ref),
		zap.String("amount", result.Payment.Amount.String()))
	return result, nil
}

func (s *PaymentService) refund(ctx context.Context, repos appshared.Repositories, ref string) (*PaymentResult, error) {
	payment, err := repos.Payments().FindByGatewayRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	invoice, err := findInvoice(ctx, repos, payment.SalesOrderID)
	if err != nil {
		return nil, err
	}
	if err := payment.MarkRefunded(); err != nil {
		return nil, err
	}

	result := &PaymentResult{Payment: payment, Invoice: invoice, Applied: decimal.Zero, Excess: decimal.Zero}
	if invoice != nil {
		if payment.Type.IsDeposit() {
			// the pool still counts this payment until it is saved as refunded
			pool, err := depositPool(ctx, repos, invoice)
			if err != nil {
				return nil, err
			}
			fromPool := decimal.Min(pool, payment.Amount)
			invoice.ReleaseDeposit(payment.Amount.Sub(fromPool))
		} else if err := invoice.ReverseRemainder(payment.Allocations); err != nil {
			return nil, err
		}
		if err := invoice.CheckInvariants(); err != nil {
			return nil, err
		}
		if err := repos.Invoices().SaveWithLock(ctx, invoice); err != nil {
			return nil, err
		}
	}
	if err := repos.Payments().SaveWithLock(ctx, payment); err != nil {
		return nil, err
	}
	return result, nil
}

// GetPayment returns a payment by gateway reference
func (s *PaymentService) GetPayment(ctx context.Context, gatewayRef string) (*finance.PaymentRecord, error) {
	var payment *finance.PaymentRecord
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		payment, err = repos.Payments().FindByGatewayRef(ctx, strings.TrimSpace(gatewayRef))
		return err
	})
	return payment, err
}

// ListPayments returns the payments of a sales order, oldest first
func (s *PaymentService) ListPayments(ctx context.Context, salesOrderID uuid.UUID) ([]finance.PaymentRecord, error) {
	var payments []finance.PaymentRecord
	err := s.txScope.Execute(ctx, func(repos appshared.Repositories) error {
		var err error
		payments, err = repos.Payments().FindBySalesOrder(ctx, salesOrderID)
		return err
	})
	return payments, err
}

// seen checks the idempotency store. Store failures fall through to the database check.
func (s *PaymentService) seen(ctx context.Context, ref string) bool {
	if s.idempotency == nil || !s.idemConfig.Enabled {
		return false
	}
	processed, err := s.idempotency.IsProcessed(ctx, ref)
	if err != nil {
		s.logger.Warn("Idempotency store lookup failed", zap.String("gateway_ref", ref), zap.Error(err))
		return false
	}
	return processed
}

func (s *PaymentService) remember(ctx context.Context, ref string) {
	if s.idempotency == nil || !s.idemConfig.Enabled {
		return
	}
	if _, err := s.idempotency.MarkProcessed(ctx, ref, s.idemConfig.TTL); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("Failed to remember gateway reference", zap.String("gateway_ref", ref), zap.Error(err))
	}
}

func resultEvents(result *PaymentResult) []shared.DomainEvent {
	if result.Invoice == nil {
		return appshared.CollectEvents(result.Payment)
	}
	return appshared.CollectEvents(result.Payment, result.Invoice)
}

func duplicatePaymentError(ref string) *shared.DomainError {
	return shared.NewDomainError(shared.KindDuplicatePayment, "DUPLICATE_PAYMENT",
		"payment already applied for gateway reference "+ref).
		WithDetail("gateway_ref", ref)
}

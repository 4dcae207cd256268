package telemetry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys for the order-to-cash metrics.
var (
	AttrProductID   = attribute.Key("product_id")
	AttrPaymentType = attribute.Key("payment_type")
	AttrWithReturn  = attribute.Key("with_return")
	AttrDebtFrom    = attribute.Key("debt.from")
	AttrDebtTo      = attribute.Key("debt.to")
)

// FulfillmentMetrics records the business counters of the order-to-cash flow.
// It satisfies the application Metrics interface.
type FulfillmentMetrics struct {
	allocationConflicts *Counter
	exports             *Counter
	exportedUnits       *Counter
	cancellations       *Counter
	payments            *Counter
	paymentAmount       *Histogram
	overpayments        *Counter
	overpaidAmount      *Histogram
	debtTransitions     *Counter
}

// NewFulfillmentMetrics creates the instruments on meter.
func NewFulfillmentMetrics(meter metric.Meter) (*FulfillmentMetrics, error) {
	if meter == nil {
		return nil, errors.New("NewFulfillmentMetrics: meter cannot be nil")
	}

	b := instruments{meter: meter}
	m := &FulfillmentMetrics{
		allocationConflicts: b.counter("allocation_conflicts_total",
			"Lot deductions that lost a concurrent update and were retried", "{conflict}"),
		exports: b.counter("stock_exports_total", "Goods issue notes created", "{note}"),
		exportedUnits: b.counter("stock_exported_units_total",
			"Units deducted from lots by exports", "{unit}"),
		cancellations: b.counter("stock_export_cancellations_total", "Cancelled stock export orders", "{order}"),
		payments:      b.counter("payments_applied_total", "Successful payments by type", "{payment}"),
		paymentAmount: b.histogram(HistogramOpts{
			Name:        "payment_amount",
			Description: "Amount of successful payments",
			Unit:        "{currency}",
		}),
		overpayments: b.counter("payments_overpaid_total",
			"Payments that exceeded the outstanding balance", "{payment}"),
		overpaidAmount: b.histogram(HistogramOpts{
			Name:        "payment_overpaid_amount",
			Description: "Excess left for manual resolution",
			Unit:        "{currency}",
		}),
		debtTransitions: b.counter("debt_transitions_total", "Customer debt status changes", "{transition}"),
	}
	if b.err != nil {
		return nil, b.err
	}
	return m, nil
}

func (m *FulfillmentMetrics) AllocationConflict(ctx context.Context, productID uuid.UUID) {
	m.allocationConflicts.Inc(ctx, AttrProductID.String(productID.String()))
}

func (m *FulfillmentMetrics) StockExported(ctx context.Context, lines int, quantity int64) {
	m.exports.Inc(ctx)
	m.exportedUnits.Add(ctx, quantity)
}

func (m *FulfillmentMetrics) OrderCancelled(ctx context.Context, withReturn bool) {
	m.cancellations.Inc(ctx, AttrWithReturn.Bool(withReturn))
}

func (m *FulfillmentMetrics) PaymentApplied(ctx context.Context, paymentType string, amount decimal.Decimal) {
	m.payments.Inc(ctx, AttrPaymentType.String(paymentType))
	m.paymentAmount.Record(ctx, amount.InexactFloat64(), AttrPaymentType.String(paymentType))
}

func (m *FulfillmentMetrics) PaymentOverpaid(ctx context.Context, excess decimal.Decimal) {
	m.overpayments.Inc(ctx)
	m.overpaidAmount.Record(ctx, excess.InexactFloat64())
}

func (m *FulfillmentMetrics) DebtTransition(ctx context.Context, from, to string) {
	m.debtTransitions.Inc(ctx, AttrDebtFrom.String(from), AttrDebtTo.String(to))
}

package shared

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Metrics receives business measurements from application services
type Metrics interface {
	AllocationConflict(ctx context.Context, productID uuid.UUID)
	StockExported(ctx context.Context, lines int, quantity int64)
	OrderCancelled(ctx context.Context, withReturn bool)
	PaymentApplied(ctx context.Context, paymentType string, amount decimal.Decimal)
	PaymentOverpaid(ctx context.Context, amount decimal.Decimal)
	DebtTransition(ctx context.Context, from, to string)
}

// NopMetrics discards every measurement
type NopMetrics struct{}

func (NopMetrics) AllocationConflict(context.Context, uuid.UUID)           {}
func (NopMetrics) StockExported(context.Context, int, int64)               {}
func (NopMetrics) OrderCancelled(context.Context, bool)                    {}
func (NopMetrics) PaymentApplied(context.Context, string, decimal.Decimal) {}
func (NopMetrics) PaymentOverpaid(context.Context, decimal.Decimal)        {}
func (NopMetrics) DebtTransition(context.Context, string, string)          {}

var _ Metrics = NopMetrics{}

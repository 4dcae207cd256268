package telemetry_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	return reader, mp
}

// sumOf totals the int64 data points of a counter, optionally filtered by one attribute
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string, filter ...attribute.KeyValue) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "metric %s is not an int64 sum", name)
			for _, dp := range sum.DataPoints {
				if matches(dp.Attributes, filter) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func matches(set attribute.Set, filter []attribute.KeyValue) bool {
	for _, kv := range filter {
		v, ok := set.Value(kv.Key)
		if !ok || v != kv.Value {
			return false
		}
	}
	return true
}

func TestNewFulfillmentMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewFulfillmentMetrics(nil)
	require.Error(t, err)
	assert.Nil(t, m)
}

func TestFulfillmentMetrics(t *testing.T) {
	reader, mp := newTestMeter(t)
	m, err := telemetry.NewFulfillmentMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.AllocationConflict(ctx, uuid.New())
	m.AllocationConflict(ctx, uuid.New())
	m.StockExported(ctx, 2, 40)
	m.StockExported(ctx, 1, 10)
	m.OrderCancelled(ctx, true)
	m.OrderCancelled(ctx, false)
	m.PaymentApplied(ctx, "DEPOSIT", decimal.NewFromInt(100))
	m.PaymentApplied(ctx, "REMAIN", decimal.NewFromInt(50))
	m.PaymentOverpaid(ctx, decimal.NewFromInt(5))
	m.DebtTransition(ctx, "UN_PAID", "OVER_TIME")

	assert.Equal(t, int64(2), sumOf(t, reader, "allocation_conflicts_total"))
	assert.Equal(t, int64(2), sumOf(t, reader, "stock_exports_total"))
	assert.Equal(t, int64(50), sumOf(t, reader, "stock_exported_units_total"))
	assert.Equal(t, int64(1), sumOf(t, reader, "stock_export_cancellations_total", telemetry.AttrWithReturn.Bool(true)))
	assert.Equal(t, int64(1), sumOf(t, reader, "payments_applied_total", telemetry.AttrPaymentType.String("DEPOSIT")))
	assert.Equal(t, int64(2), sumOf(t, reader, "payments_applied_total"))
	assert.Equal(t, int64(1), sumOf(t, reader, "payments_overpaid_total"))
	assert.Equal(t, int64(1), sumOf(t, reader, "debt_transitions_total",
		telemetry.AttrDebtFrom.String("UN_PAID"), telemetry.AttrDebtTo.String("OVER_TIME")))
}

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{Enabled: false}, nil)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))
	assert.NoError(t, mp.Shutdown(ctx))
}

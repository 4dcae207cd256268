package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs an in-memory span recorder as the global provider
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	m := make(map[string]attribute.Value, len(attrs))
	for _, a := range attrs {
		m[string(a.Key)] = a.Value
	}
	return m
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartServiceSpan(context.Background(), "stock_export", "export",
		telemetry.WithAttribute(telemetry.SpanAttrWithReturn, false))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "stock_export.export", spans[0].Name())
	assert.False(t, attrMap(spans[0].Attributes())[telemetry.SpanAttrWithReturn].AsBool())
}

func TestSetAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	salesOrderID := uuid.New()

	_, span := telemetry.StartSpan(context.Background(), "payment.apply")
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSalesOrderID, salesOrderID,
		telemetry.SpanAttrQuantity, int64(12),
		telemetry.SpanAttrGatewayRef, "GW-1",
		42, "ignored non-string key",
		"dangling",
	)
	span.End()

	attrs := attrMap(sr.Ended()[0].Attributes())
	assert.Equal(t, salesOrderID.String(), attrs[telemetry.SpanAttrSalesOrderID].AsString())
	assert.Equal(t, int64(12), attrs[telemetry.SpanAttrQuantity].AsInt64())
	assert.Equal(t, "GW-1", attrs[telemetry.SpanAttrGatewayRef].AsString())
	assert.Len(t, attrs, 3)
}

func TestRecordError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus codes.Code
		wantEvent  string
	}{
		{"infrastructure failure", errors.New("connection reset"), codes.Error, "exception"},
		{"wrapped internal error", shared.NewInternalError("save lot", errors.New("disk full")), codes.Error, "exception"},
		{"stock shortfall", shared.NewDomainError(shared.KindInsufficientStock, "INSUFFICIENT_STOCK", "short by 30"), codes.Unset, telemetry.RejectionEventName},
		{"duplicate gateway ref", shared.NewDomainError(shared.KindDuplicatePayment, "DUPLICATE_PAYMENT", "GW-1 already applied"), codes.Unset, telemetry.RejectionEventName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := setupTestTracer(t)

			_, span := telemetry.StartSpan(context.Background(), "allocator.commit")
			telemetry.RecordError(span, tt.err)
			telemetry.RecordError(span, nil)
			span.End()

			ended := sr.Ended()[0]
			assert.Equal(t, tt.wantStatus, ended.Status().Code)
			require.Len(t, ended.Events(), 1)
			assert.Equal(t, tt.wantEvent, ended.Events()[0].Name)
		})
	}

	t.Run("nil span", func(t *testing.T) {
		assert.NotPanics(t, func() { telemetry.RecordError(nil, errors.New("no span")) })
	})
}

func TestRecordError_RejectionAttributes(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "payment.apply")
	telemetry.RecordError(span, shared.NewDomainError(shared.KindOverpayment, "OVERPAYMENT", "excess 50"))
	span.End()

	attrs := attrMap(sr.Ended()[0].Events()[0].Attributes)
	assert.Equal(t, "OVERPAYMENT", attrs["error.kind"].AsString())
	assert.Contains(t, attrs["error.message"].AsString(), "excess 50")
}

func TestTraceAndSpanIDs(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
	assert.Empty(t, telemetry.GetSpanID(context.Background()))

	setupTestTracer(t)
	ctx, span := telemetry.StartSpan(context.Background(), "debt.recompute")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), telemetry.GetTraceID(ctx))
	assert.Equal(t, span.SpanContext().SpanID().String(), telemetry.GetSpanID(ctx))
}

func TestNestedSpans(t *testing.T) {
	sr := setupTestTracer(t)

	ctx, parent := telemetry.StartServiceSpan(context.Background(), "invoice", "aggregate")
	_, child := telemetry.StartServiceSpan(ctx, "debt", "recompute")
	child.End()
	parent.End()

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}

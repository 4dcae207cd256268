package telemetry

import (
	"context"
	"fmt"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer used for service spans
const TracerName = "pms-backend"

// Span attribute keys shared by the application services.
const (
	SpanAttrSalesOrderID       = "sales_order_id"
	SpanAttrStockExportOrderID = "stock_export_order_id"
	SpanAttrOrderStatus        = "order_status"
	SpanAttrGoodsIssueNoteCode = "goods_issue_note_code"
	SpanAttrWithReturn         = "with_return"
	SpanAttrProductID          = "product_id"
	SpanAttrQuantity           = "quantity"
	SpanAttrGatewayRef         = "gateway_ref"
	SpanAttrPaymentType        = "payment_type"
	SpanAttrAmount             = "amount"
)

// RejectionEventName is the span event recorded for an expected business
// rejection such as a stock shortfall or a duplicate gateway reference.
const RejectionEventName = "business_rejection"

// SpanOption configures a span at start
type SpanOption func(*[]attribute.KeyValue)

// WithAttribute sets an attribute when the span starts
func WithAttribute(key string, value any) SpanOption {
	return func(attrs *[]attribute.KeyValue) {
		*attrs = append(*attrs, toAttribute(key, value))
	}
}

// StartSpan starts an internal span. Callers must End it.
func StartSpan(ctx context.Context, spanName string, opts ...SpanOption) (context.Context, trace.Span) {
	var attrs []attribute.KeyValue
	for _, opt := range opts {
		opt(&attrs)
	}
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...))
}

// StartServiceSpan starts a span named "{service}.{method}", e.g.
// "stock_export.export" or "payment.apply".
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, opts...)
}

// SetAttributes adds alternating key/value pairs to span. Pairs with a
// non-string key and a trailing key without value are skipped.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span == nil {
		return
	}
	span.SetAttributes(pairs(keyValues)...)
}

// RecordError records err on span. Domain rejections (validation, shortfall,
// state and concurrency conflicts, overpayment, duplicates, not found) become a
// RejectionEventName event and leave the status unset; anything else marks
// the span as failed.
func RecordError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	kind := shared.KindOf(err)
	if kind != shared.KindInternal {
		span.AddEvent(RejectionEventName, trace.WithAttributes(
			attribute.String("error.kind", kind.String()),
			attribute.String("error.message", err.Error()),
		))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent adds a named event with alternating key/value attributes
func AddEvent(span trace.Span, name string, keyValues ...any) {
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(pairs(keyValues)...))
}

// GetTraceID returns the trace ID of the span in ctx, or ""
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

// GetSpanID returns the span ID of the span in ctx, or ""
func GetSpanID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasSpanID() {
		return ""
	}
	return sc.SpanID().String()
}

func pairs(keyValues []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		if key, ok := keyValues[i].(string); ok {
			attrs = append(attrs, toAttribute(key, keyValues[i+1]))
		}
	}
	return attrs
}

func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case bool:
		return attribute.Bool(key, v)
	case []string:
		return attribute.StringSlice(key, v)
	case fmt.Stringer:
		// uuid.UUID, decimal.Decimal and the status enums
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}

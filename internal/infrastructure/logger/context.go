package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey       contextKey = "logger"
	requestIDKey    contextKey = "request_id"
	salesOrderIDKey contextKey = "sales_order_id"
	gatewayRefKey   contextKey = "gateway_ref"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID and returns the enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, requestIDKey, requestID)
}

// WithSalesOrderID stores the sales order being worked on and returns the enriched logger
func WithSalesOrderID(ctx context.Context, logger *zap.Logger, salesOrderID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, salesOrderIDKey, salesOrderID)
}

// WithGatewayRef stores the payment gateway reference and returns the enriched logger
func WithGatewayRef(ctx context.Context, logger *zap.Logger, gatewayRef string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, gatewayRefKey, gatewayRef)
}

func withField(ctx context.Context, logger *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	enriched := logger.With(zap.String(string(key), value))
	return WithContext(ctx, enriched), enriched
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

// GetSalesOrderID retrieves the sales order ID from context
func GetSalesOrderID(ctx context.Context) string { return stringValue(ctx, salesOrderIDKey) }

// GetGatewayRef retrieves the gateway reference from context
func GetGatewayRef(ctx context.Context) string { return stringValue(ctx, gatewayRefKey) }

// GetTraceID extracts the trace ID of the active span, or ""
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// GetSpanID extracts the span ID of the active span, or ""
func GetSpanID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.SpanID().String()
}

// WithTraceContext adds trace_id and span_id to the logger when ctx carries a valid span
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// For returns base enriched with the trace span and the correlation values
// stored in ctx. A nil base falls back to the logger carried by ctx.
func For(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = FromContext(ctx)
	}
	l := WithTraceContext(ctx, base)
	for _, key := range []contextKey{requestIDKey, salesOrderIDKey, gatewayRefKey} {
		if v := stringValue(ctx, key); v != "" {
			l = l.With(zap.String(string(key), v))
		}
	}
	return l
}

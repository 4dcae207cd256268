package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

// setupTestTracer returns a provider that records every span it ends.
func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})
	return tp, sr
}

func newTracedRouter(tp *sdktrace.TracerProvider, status int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(
		Tracing(TracingConfig{Enabled: true, ServiceName: "test-service", TracerProvider: tp}),
		logger.GinMiddleware(zap.NewNop()),
		SpanAttributes(),
		SpanErrorMarker(),
	)
	router.POST("/invoices/:salesOrderId", func(c *gin.Context) {
		c.Status(status)
	})
	return router
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func TestTracing_Disabled(t *testing.T) {
	tp, sr := setupTestTracer(t)

	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: false, TracerProvider: tp}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_SpanCarriesCorrelationIDs(t *testing.T) {
	tp, sr := setupTestTracer(t)
	router := newTracedRouter(tp, http.StatusOK)

	req := httptest.NewRequest(http.MethodPost, "/invoices/so-42", nil)
	req.Header.Set(logger.RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Len(t, sr.Ended(), 1)
	span := sr.Ended()[0]
	assert.Contains(t, span.Name(), "/invoices/:salesOrderId")

	attrs := spanAttrs(span)
	assert.Equal(t, "req-123", attrs["request_id"].AsString())
	assert.Equal(t, "so-42", attrs["sales_order_id"].AsString())
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantError bool
	}{
		{"success", http.StatusOK, false},
		{"business rule rejection", http.StatusUnprocessableEntity, false},
		{"conflict", http.StatusConflict, false},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, sr := setupTestTracer(t)
			router := newTracedRouter(tp, tt.status)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/invoices/so-1", nil))

			require.Len(t, sr.Ended(), 1)
			span := sr.Ended()[0]
			assert.Equal(t, int64(tt.status), spanAttrs(span)["http.status_code"].AsInt64())
			assert.Equal(t, tt.wantError, span.Status().Code == codes.Error)
		})
	}
}

func TestSpanErrorMarker_WithoutSpan(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SpanAttributes(), SpanErrorMarker())
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

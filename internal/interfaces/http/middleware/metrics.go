// Package middleware provides HTTP middleware for the pharmacy API.
package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type httpMetrics struct {
	requests   *telemetry.Counter
	duration   *telemetry.Histogram
	size       *telemetry.Histogram
	rejections *telemetry.Counter
	inFlight   metric.Int64UpDownCounter
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	var errs []error
	must := func(err error) { errs = append(errs, err) }

	m := &httpMetrics{}
	var err error
	m.requests, err = telemetry.NewCounter(meter, "http_server_request_total", "Total number of HTTP requests", "{request}")
	must(err)
	m.duration, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency in seconds",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	must(err)
	m.size, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_response_size_bytes",
		Description: "HTTP response body size in bytes",
		Unit:        "By",
		Boundaries:  []float64{100, 500, 1000, 5000, 10000, 50000, 100000},
	})
	must(err)
	m.rejections, err = telemetry.NewCounter(meter, "http_server_business_rejections_total",
		"Requests refused by a business rule (409 conflict or 422 shortfall/overpayment)", "{request}")
	must(err)
	m.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Number of HTTP requests currently being processed"),
		metric.WithUnit("{request}"))
	must(err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return m, nil
}

// HTTPMetrics returns middleware recording request count, latency, response
// size, in-flight requests and business rejections per matched route. A nil
// meter yields a pass-through middleware.
func HTTPMetrics(meter metric.Meter) (gin.HandlerFunc, error) {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }, nil
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		m.inFlight.Add(ctx, 1)
		defer m.inFlight.Add(ctx, -1)

		c.Next()

		status := c.Writer.Status()
		attrs := []attribute.KeyValue{
			telemetry.AttrHTTPMethod.String(c.Request.Method),
			telemetry.AttrHTTPRoute.String(routePattern(c)),
		}
		m.requests.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(status))...)
		m.duration.RecordDuration(ctx, time.Since(start), attrs...)
		if size := c.Writer.Size(); size > 0 {
			m.size.Record(ctx, float64(size), attrs...)
		}
		if isBusinessRejection(status) {
			m.rejections.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(status))...)
		}
	}, nil
}

func isBusinessRejection(status int) bool {
	return status == http.StatusConflict || status == http.StatusUnprocessableEntity
}

// routePattern returns the matched route (e.g. /api/v1/lots/:id) to keep cardinality low
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

// StatusGroup buckets a status code into its class (2xx, 4xx, 5xx).
func StatusGroup(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "other"
	}
}

package router

import (
	"github.com/gin-gonic/gin"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/logger"
	"github.com/minhtran291/PMS-Backend-sub002/internal/interfaces/http/handler"
	"github.com/minhtran291/PMS-Backend-sub002/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Handlers bundles the API handlers
type Handlers struct {
	Lots         *handler.LotHandler
	StockExports *handler.StockExportHandler
	Invoices     *handler.InvoiceHandler
	Payments     *handler.PaymentHandler
	Debts        *handler.DebtHandler
	Health       *handler.HealthHandler
}

// EngineConfig controls the middleware chain of the API engine
type EngineConfig struct {
	ServiceName    string
	TracingEnabled bool
	TracerProvider trace.TracerProvider
	// Meter records HTTP metrics when set
	Meter          metric.Meter
	MaxBodySize    int64
	TrustedProxies []string
}

// NewEngine builds the gin engine with the middleware chain and every route
func NewEngine(cfg EngineConfig, h Handlers, log *zap.Logger) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	httpMetrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName:    cfg.ServiceName,
			Enabled:        cfg.TracingEnabled,
			TracerProvider: cfg.TracerProvider,
		}),
		logger.GinMiddleware(log),
		middleware.SpanAttributes(),
		middleware.SpanErrorMarker(),
		httpMetrics,
		middleware.BodyLimit(cfg.MaxBodySize),
	)

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}

	r := NewRouter(engine)
	for _, group := range apiGroups(h) {
		r.Register(group)
	}
	routes := r.Setup()
	log.Debug("API routes mounted", zap.Int("count", len(routes)), zap.Strings("routes", routes))
	return engine, nil
}

func apiGroups(h Handlers) []*DomainGroup {
	var groups []*DomainGroup

	if h.Lots != nil {
		groups = append(groups,
			NewDomainGroup("lots", "/lots").
				POST("", h.Lots.ReceiveLot).
				GET("", h.Lots.ListLots).
				GET("/:id", h.Lots.GetLot),
			NewDomainGroup("allocations", "/allocations").
				POST("/dry-run", h.Lots.DryRunAllocation),
		)
	}

	if h.StockExports != nil {
		groups = append(groups,
			NewDomainGroup("stock-export-orders", "/stock-export-orders").
				POST("", h.StockExports.Create).
				GET("", h.StockExports.ListBySalesOrder).
				GET("/:id", h.StockExports.Get).
				POST("/:id/submit", h.StockExports.Submit).
				POST("/:id/check", h.StockExports.Check).
				POST("/:id/await", h.StockExports.Await).
				POST("/:id/reserve", h.StockExports.Reserve).
				POST("/:id/export", h.StockExports.Export).
				POST("/:id/cancel", h.StockExports.Cancel),
			NewDomainGroup("goods-issue-notes", "/goods-issue-notes").
				GET("", h.StockExports.ListGoodsIssueNotes).
				GET("/:code", h.StockExports.GetGoodsIssueNote),
		)
	}

	if h.Invoices != nil {
		groups = append(groups, NewDomainGroup("invoices", "/invoices").
			POST("/aggregate", h.Invoices.Aggregate).
			GET("/:salesOrderId", h.Invoices.Get))
	}

	if h.Payments != nil {
		groups = append(groups, NewDomainGroup("payments", "/payments").
			POST("/callback", h.Payments.Callback).
			POST("/failed", h.Payments.Fail).
			GET("", h.Payments.List).
			GET("/:ref", h.Payments.Get).
			POST("/:ref/refund", h.Payments.Refund))
	}

	if h.Debts != nil {
		groups = append(groups, NewDomainGroup("debts", "/debts").
			GET("/:salesOrderId", h.Debts.Get).
			POST("/:salesOrderId/recompute", h.Debts.Recompute).
			POST("/:salesOrderId/disable", h.Debts.Disable))
	}

	return groups
}

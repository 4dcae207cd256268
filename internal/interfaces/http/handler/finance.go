package handler

import (
	"github.com/gin-gonic/gin"
	financeapp "github.com/minhtran291/PMS-Backend-sub002/internal/application/finance"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/logger"
)

// InvoiceHandler handles invoice aggregation and lookup
type InvoiceHandler struct {
	BaseHandler
	service *financeapp.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(service *financeapp.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// Aggregate adds goods issue notes to the sales order's invoice, creating it on first use
// POST /invoices/aggregate
func (h *InvoiceHandler) Aggregate(c *gin.Context) {
	var req financeapp.AggregateInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx, _ := logger.WithSalesOrderID(c.Request.Context(), logger.GetGinLogger(c), req.SalesOrderID.String())

	inv, err := h.service.AggregateInvoice(ctx, req.SalesOrderID, req.GoodsIssueNoteCodes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, financeapp.ToInvoiceResponse(inv))
}

// Get returns the invoice of a sales order
// GET /invoices/:salesOrderId
func (h *InvoiceHandler) Get(c *gin.Context) {
	soID, ok := h.uuidParam(c, "salesOrderId")
	if !ok {
		return
	}

	inv, err := h.service.GetInvoice(c.Request.Context(), soID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, financeapp.ToInvoiceResponse(inv))
}

// PaymentHandler handles gateway callbacks, refunds and payment lookup
type PaymentHandler struct {
	BaseHandler
	service *financeapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service *financeapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Callback applies a payment confirmed by the gateway. Replaying a reference
// that was already applied yields a 409. An overpayment is recorded and answered
// with a 422 carrying the result.
// POST /payments/callback
func (h *PaymentHandler) Callback(c *gin.Context) {
	var cmd financeapp.ApplyPaymentCommand
	if !h.bindJSON(c, &cmd) {
		return
	}
	ctx, reqLogger := logger.WithGatewayRef(c.Request.Context(), logger.GetGinLogger(c), cmd.GatewayRef)
	ctx, _ = logger.WithSalesOrderID(ctx, reqLogger, cmd.SalesOrderID.String())

	result, err := h.service.ApplyPayment(ctx, cmd)
	if err != nil {
		if result != nil {
			h.HandleErrorWithData(c, err, financeapp.ToPaymentResultResponse(result))
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, financeapp.ToPaymentResultResponse(result))
}

// Fail records a payment the gateway reported as failed
// POST /payments/failed
func (h *PaymentHandler) Fail(c *gin.Context) {
	var req financeapp.FailPaymentRequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx, _ := logger.WithGatewayRef(c.Request.Context(), logger.GetGinLogger(c), req.GatewayRef)

	payment, err := h.service.FailPayment(ctx, req.ApplyPaymentCommand, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, financeapp.ToPaymentResponse(payment))
}

// Refund reverses a successful payment and its allocations
// POST /payments/:ref/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	ref := c.Param("ref")
	ctx, _ := logger.WithGatewayRef(c.Request.Context(), logger.GetGinLogger(c), ref)

	result, err := h.service.RefundPayment(ctx, ref)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, financeapp.ToPaymentResultResponse(result))
}

// Get returns a payment by gateway reference
// GET /payments/:ref
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.service.GetPayment(c.Request.Context(), c.Param("ref"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, financeapp.ToPaymentResponse(payment))
}

// List returns the payments of a sales order
// GET /payments?sales_order_id=
func (h *PaymentHandler) List(c *gin.Context) {
	soID, ok := h.uuidQuery(c, "sales_order_id")
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(c.Request.Context(), soID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, financeapp.ToPaymentResponses(payments))
}

// DebtHandler handles customer debt evaluation
type DebtHandler struct {
	BaseHandler
	service *financeapp.DebtService
}

// NewDebtHandler creates a new DebtHandler
func NewDebtHandler(service *financeapp.DebtService) *DebtHandler {
	return &DebtHandler{service: service}
}

// Get returns the debt record of a sales order
// GET /debts/:salesOrderId
func (h *DebtHandler) Get(c *gin.Context) {
	soID, ok := h.uuidParam(c, "salesOrderId")
	if !ok {
		return
	}

	debt, err := h.service.GetDebt(c.Request.Context(), soID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, financeapp.ToDebtResponse(debt, h.clock()))
}

// Recompute re-derives the debt status from the invoice and due date.
// A sales order that owes nothing and has no debt record answers with null data.
// POST /debts/:salesOrderId/recompute
func (h *DebtHandler) Recompute(c *gin.Context) {
	soID, ok := h.uuidParam(c, "salesOrderId")
	if !ok {
		return
	}

	debt, err := h.service.RecomputeDebtStatus(c.Request.Context(), soID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if debt == nil {
		h.Success(c, nil)
		return
	}
	h.Success(c, financeapp.ToDebtResponse(debt, h.clock()))
}

// Disable retires a debt from evaluation
// POST /debts/:salesOrderId/disable
func (h *DebtHandler) Disable(c *gin.Context) {
	soID, ok := h.uuidParam(c, "salesOrderId")
	if !ok {
		return
	}
	var req financeapp.DisableDebtRequest
	if !h.bindJSON(c, &req) {
		return
	}

	debt, err := h.service.DisableDebt(c.Request.Context(), soID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, financeapp.ToDebtResponse(debt, h.clock()))
}

package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	fulfillmentapp "github.com/minhtran291/PMS-Backend-sub002/internal/application/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/logger"
)

// StockExportHandler handles the stock export order lifecycle and goods issue notes
type StockExportHandler struct {
	BaseHandler
	service *fulfillmentapp.StockExportService
}

// NewStockExportHandler creates a new StockExportHandler
func NewStockExportHandler(service *fulfillmentapp.StockExportService) *StockExportHandler {
	return &StockExportHandler{service: service}
}

// Create creates a DRAFT stock export order
// POST /stock-export-orders
func (h *StockExportHandler) Create(c *gin.Context) {
	var req fulfillmentapp.CreateSEORequest
	if !h.bindJSON(c, &req) {
		return
	}
	ctx, _ := logger.WithSalesOrderID(c.Request.Context(), logger.GetGinLogger(c), req.SalesOrderID.String())

	seo, err := h.service.CreateSEO(ctx, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, fulfillmentapp.ToSEOResponse(seo))
}

// Get returns a stock export order by ID
// GET /stock-export-orders/:id
func (h *StockExportHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	seo, err := h.service.GetSEO(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, fulfillmentapp.ToSEOResponse(seo))
}

// ListBySalesOrder returns the orders of a sales order
// GET /stock-export-orders?sales_order_id=
func (h *StockExportHandler) ListBySalesOrder(c *gin.Context) {
	soID, ok := h.uuidQuery(c, "sales_order_id")
	if !ok {
		return
	}

	orders, err := h.service.ListBySalesOrder(c.Request.Context(), soID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, fulfillmentapp.ToSEOResponses(orders))
}

// Submit moves a DRAFT order to SENT
// POST /stock-export-orders/:id/submit
func (h *StockExportHandler) Submit(c *gin.Context) {
	h.transition(c, h.service.SubmitSEO)
}

// Check runs the availability check, ending in READY_TO_EXPORT or NOT_ENOUGH
// POST /stock-export-orders/:id/check
func (h *StockExportHandler) Check(c *gin.Context) {
	h.transition(c, h.service.CheckAvailability)
}

// Await parks a NOT_ENOUGH order until restock
// POST /stock-export-orders/:id/await
func (h *StockExportHandler) Await(c *gin.Context) {
	h.transition(c, h.service.AwaitRestock)
}

// Reserve picks stock for a ready order without issuing it
// POST /stock-export-orders/:id/reserve
func (h *StockExportHandler) Reserve(c *gin.Context) {
	h.transition(c, h.service.ReserveExport)
}

func (h *StockExportHandler) transition(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) (*fulfillment.StockExportOrder, error)) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	seo, err := fn(c.Request.Context(), id)
	if err != nil {
		if seo != nil {
			h.HandleErrorWithData(c, err, fulfillmentapp.ToSEOResponse(seo))
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, fulfillmentapp.ToSEOResponse(seo))
}

// Export issues the goods issue note and marks the order EXPORTED. When stock ran
// short the order, now NOT_ENOUGH, is returned with a 422.
// POST /stock-export-orders/:id/export
func (h *StockExportHandler) Export(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.service.CommitExport(c.Request.Context(), id)
	if err != nil {
		if result != nil {
			h.HandleErrorWithData(c, err, fulfillmentapp.ToExportResponse(result))
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Created(c, fulfillmentapp.ToExportResponse(result))
}

// Cancel cancels an order, restoring picked stock when with_return is set.
// The body is optional.
// POST /stock-export-orders/:id/cancel
func (h *StockExportHandler) Cancel(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req fulfillmentapp.CancelSEORequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	seo, err := h.service.CancelSEO(c.Request.Context(), id, req.WithReturn, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, fulfillmentapp.ToSEOResponse(seo))
}

// GetGoodsIssueNote returns a goods issue note by code
// GET /goods-issue-notes/:code
func (h *StockExportHandler) GetGoodsIssueNote(c *gin.Context) {
	note, err := h.service.GetGoodsIssueNote(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, fulfillmentapp.ToGoodsIssueNoteResponse(note))
}

// ListGoodsIssueNotes returns the notes of a sales order in export index order
// GET /goods-issue-notes?sales_order_id=
func (h *StockExportHandler) ListGoodsIssueNotes(c *gin.Context) {
	soID, ok := h.uuidQuery(c, "sales_order_id")
	if !ok {
		return
	}

	notes, err := h.service.ListGoodsIssueNotes(c.Request.Context(), soID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, fulfillmentapp.ToGoodsIssueNoteResponses(notes))
}

package handler

import (
	"github.com/gin-gonic/gin"
	inventoryapp "github.com/minhtran291/PMS-Backend-sub002/internal/application/inventory"
)

// LotHandler handles lot receipt, lookup and FEFO dry runs
type LotHandler struct {
	BaseHandler
	allocator *inventoryapp.AllocatorService
}

// NewLotHandler creates a new LotHandler
func NewLotHandler(allocator *inventoryapp.AllocatorService) *LotHandler {
	return &LotHandler{allocator: allocator}
}

// ReceiveLot records a received lot
// POST /lots
func (h *LotHandler) ReceiveLot(c *gin.Context) {
	var req inventoryapp.ReceiveLotRequest
	if !h.bindJSON(c, &req) {
		return
	}

	lot, err := h.allocator.ReceiveLot(c.Request.Context(), req.ToParams())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, inventoryapp.ToLotResponse(lot, h.clock()))
}

// GetLot returns a lot by ID
// GET /lots/:id
func (h *LotHandler) GetLot(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	lot, err := h.allocator.GetLot(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inventoryapp.ToLotResponse(lot, h.clock()))
}

// ListLots returns every lot of a product in FEFO order
// GET /lots?product_id=
func (h *LotHandler) ListLots(c *gin.Context) {
	productID, ok := h.uuidQuery(c, "product_id")
	if !ok {
		return
	}

	lots, err := h.allocator.ListLots(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, inventoryapp.ToLotResponses(lots, h.clock()))
}

// DryRunAllocation plans a FEFO allocation without touching stock.
// A plan that cannot be fully covered is returned with a 422 and its shortfall.
// POST /allocations/dry-run
func (h *LotHandler) DryRunAllocation(c *gin.Context) {
	var req inventoryapp.AllocateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	plan, err := h.allocator.AllocateLots(c.Request.Context(), req.ToDomain())
	if err != nil {
		if plan != nil {
			h.HandleErrorWithData(c, err, inventoryapp.ToAllocationPlanResponse(plan))
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, inventoryapp.ToAllocationPlanResponse(plan))
}

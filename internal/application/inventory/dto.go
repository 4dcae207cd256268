package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// LotResponse represents a lot in API responses
type LotResponse struct {
	ID                uuid.UUID       `json:"id"`
	ProductID         uuid.UUID       `json:"product_id"`
	SupplierID        uuid.UUID       `json:"supplier_id"`
	LotNumber         string          `json:"lot_number"`
	ExpiryDate        time.Time       `json:"expiry_date"`
	InputDate         time.Time       `json:"input_date"`
	UnitInputPrice    decimal.Decimal `json:"unit_input_price"`
	UnitSalePrice     decimal.Decimal `json:"unit_sale_price"`
	InitialQuantity   int64           `json:"initial_quantity"`
	RemainingQuantity int64           `json:"remaining_quantity"`
	IsExpired         bool            `json:"is_expired"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	Version           int             `json:"version"`
}

// ReceiveLotRequest represents a request to receive a lot into stock
type ReceiveLotRequest struct {
	ProductID      uuid.UUID       `json:"product_id" binding:"required"`
	SupplierID     uuid.UUID       `json:"supplier_id"`
	LotNumber      string          `json:"lot_number" binding:"required,min=1,max=50"`
	ExpiryDate     time.Time       `json:"expiry_date" binding:"required"`
	InputDate      *time.Time      `json:"input_date"`
	UnitInputPrice decimal.Decimal `json:"unit_input_price"`
	UnitSalePrice  decimal.Decimal `json:"unit_sale_price" binding:"required"`
	Quantity       int64           `json:"quantity" binding:"required,gt=0"`
}

// ToParams converts the request to domain lot parameters
func (r ReceiveLotRequest) ToParams() inventory.NewLotParams {
	params := inventory.NewLotParams{
		ProductID:      r.ProductID,
		SupplierID:     r.SupplierID,
		LotNumber:      r.LotNumber,
		ExpiryDate:     r.ExpiryDate,
		UnitInputPrice: r.UnitInputPrice,
		UnitSalePrice:  r.UnitSalePrice,
		Quantity:       r.Quantity,
	}
	if r.InputDate != nil {
		params.InputDate = *r.InputDate
	}
	return params
}

// AllocateRequest represents a FEFO allocation request
type AllocateRequest struct {
	ProductID  uuid.UUID  `json:"product_id" binding:"required"`
	Quantity   int64      `json:"quantity" binding:"required,gt=0"`
	SupplierID *uuid.UUID `json:"supplier_id"`
	// NotExpiredAt skips lots expiring before this instant
	NotExpiredAt *time.Time `json:"not_expired_at"`
}

// ToDomain converts the request to a domain allocation request
func (r AllocateRequest) ToDomain() inventory.AllocationRequest {
	req := inventory.AllocationRequest{
		ProductID:  r.ProductID,
		Quantity:   r.Quantity,
		SupplierID: r.SupplierID,
	}
	if r.NotExpiredAt != nil {
		req.NotExpiredAt = *r.NotExpiredAt
	}
	return req
}

// AllocationLineResponse represents one lot's share of a plan
type AllocationLineResponse struct {
	LotID             uuid.UUID       `json:"lot_id"`
	LotNumber         string          `json:"lot_number"`
	Quantity          int64           `json:"quantity"`
	ExpiryDate        time.Time       `json:"expiry_date"`
	UnitSalePrice     decimal.Decimal `json:"unit_sale_price"`
	Amount            decimal.Decimal `json:"amount"`
	ObservedRemaining int64           `json:"observed_remaining"`
}

// AllocationPlanResponse represents an allocation plan in API responses
type AllocationPlanResponse struct {
	ProductID uuid.UUID                `json:"product_id"`
	Requested int64                    `json:"requested"`
	Allocated int64                    `json:"allocated"`
	Shortfall int64                    `json:"shortfall"`
	Satisfied bool                     `json:"satisfied"`
	Lines     []AllocationLineResponse `json:"lines"`
}

// ToLotResponse converts a domain Lot to LotResponse
func ToLotResponse(lot *inventory.Lot, now time.Time) LotResponse {
	return LotResponse{
		ID:                lot.ID,
		ProductID:         lot.ProductID,
		SupplierID:        lot.SupplierID,
		LotNumber:         lot.LotNumber,
		ExpiryDate:        lot.ExpiryDate,
		InputDate:         lot.InputDate,
		UnitInputPrice:    lot.UnitInputPrice,
		UnitSalePrice:     lot.UnitSalePrice,
		InitialQuantity:   lot.InitialQuantity,
		RemainingQuantity: lot.RemainingQuantity,
		IsExpired:         lot.IsExpiredAt(now),
		CreatedAt:         lot.CreatedAt,
		UpdatedAt:         lot.UpdatedAt,
		Version:           lot.Version,
	}
}

// ToLotResponses converts a slice of lots
func ToLotResponses(lots []inventory.Lot, now time.Time) []LotResponse {
	result := make([]LotResponse, len(lots))
	for i := range lots {
		result[i] = ToLotResponse(&lots[i], now)
	}
	return result
}

// ToAllocationPlanResponse converts a domain AllocationPlan
func ToAllocationPlanResponse(plan *inventory.AllocationPlan) AllocationPlanResponse {
	lines := make([]AllocationLineResponse, len(plan.Lines))
	for i, l := range plan.Lines {
		lines[i] = AllocationLineResponse{
			LotID:             l.LotID,
			LotNumber:         l.LotNumber,
			Quantity:          l.Quantity,
			ExpiryDate:        l.ExpiryDate,
			UnitSalePrice:     l.UnitSalePrice,
			Amount:            l.Amount(),
			ObservedRemaining: l.ObservedRemaining,
		}
	}
	return AllocationPlanResponse{
		ProductID: plan.ProductID,
		Requested: plan.Requested,
		Allocated: plan.Allocated(),
		Shortfall: plan.Shortfall,
		Satisfied: plan.IsSatisfied(),
		Lines:     lines,
	}
}

package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/shopspring/decimal"
)

// CreateSEORequest represents a request to create a stock export order
type CreateSEORequest struct {
	Code         string                 `json:"code"`
	SalesOrderID uuid.UUID              `json:"sales_order_id" binding:"required"`
	DueDate      time.Time              `json:"due_date" binding:"required"`
	Lines        []CreateSEOLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// CreateSEOLineRequest is one requested product
type CreateSEOLineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,gt=0"`
}

// CancelSEORequest represents a request to cancel a stock export order
type CancelSEORequest struct {
	WithReturn bool   `json:"with_return"`
	Reason     string `json:"reason" binding:"max=500"`
}

// ExportResult is the outcome of CommitExport. Note is nil when stock ran short.
type ExportResult struct {
	Order *fulfillment.StockExportOrder
	Note  *fulfillment.GoodsIssueNote
}

// AllocationLineResponse represents one planned lot in API responses
type AllocationLineResponse struct {
	LotID         uuid.UUID       `json:"lot_id"`
	LotNumber     string          `json:"lot_number"`
	Quantity      int64           `json:"quantity"`
	ExpiryDate    time.Time       `json:"expiry_date"`
	UnitSalePrice decimal.Decimal `json:"unit_sale_price"`
}

// SEOLineResponse represents a stock export order line in API responses
type SEOLineResponse struct {
	ID                uuid.UUID                `json:"id"`
	ProductID         uuid.UUID                `json:"product_id"`
	RequestedQuantity int64                    `json:"requested_quantity"`
	Shortfall         int64                    `json:"shortfall"`
	Allocations       []AllocationLineResponse `json:"allocations"`
}

// LotDeductionResponse represents picked stock not yet issued
type LotDeductionResponse struct {
	LotID     uuid.UUID `json:"lot_id"`
	LotNumber string    `json:"lot_number"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
}

// SEOResponse represents a stock export order in API responses
type SEOResponse struct {
	ID               uuid.UUID              `json:"id"`
	Code             string                 `json:"code"`
	SalesOrderID     uuid.UUID              `json:"sales_order_id"`
	DueDate          time.Time              `json:"due_date"`
	Status           string                 `json:"status"`
	Lines            []SEOLineResponse      `json:"lines"`
	Deductions       []LotDeductionResponse `json:"deductions,omitempty"`
	GoodsIssueNoteID *uuid.UUID             `json:"goods_issue_note_id,omitempty"`
	SubmittedAt      *time.Time             `json:"submitted_at,omitempty"`
	CheckedAt        *time.Time             `json:"checked_at,omitempty"`
	ExportedAt       *time.Time             `json:"exported_at,omitempty"`
	CancelledAt      *time.Time             `json:"cancelled_at,omitempty"`
	CancelReason     string                 `json:"cancel_reason,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
	Version          int                    `json:"version"`
}

// GINLineResponse represents a goods issue note line in API responses
type GINLineResponse struct {
	LotID         uuid.UUID       `json:"lot_id"`
	LotNumber     string          `json:"lot_number"`
	ProductID     uuid.UUID       `json:"product_id"`
	Quantity      int64           `json:"quantity"`
	ExpiryDate    time.Time       `json:"expiry_date"`
	UnitSalePrice decimal.Decimal `json:"unit_sale_price"`
	Amount        decimal.Decimal `json:"amount"`
}

// GoodsIssueNoteResponse represents a goods issue note in API responses
type GoodsIssueNoteResponse struct {
	ID                 uuid.UUID         `json:"id"`
	Code               string            `json:"code"`
	SalesOrderID       uuid.UUID         `json:"sales_order_id"`
	StockExportOrderID uuid.UUID         `json:"stock_export_order_id"`
	ExportIndex        int               `json:"export_index"`
	ExportedAt         time.Time         `json:"exported_at"`
	DueDate            time.Time         `json:"due_date"`
	Amount             decimal.Decimal   `json:"amount"`
	Lines              []GINLineResponse `json:"lines"`
}

// ExportResponse is the response to a commit export request
type ExportResponse struct {
	Order          SEOResponse             `json:"order"`
	GoodsIssueNote *GoodsIssueNoteResponse `json:"goods_issue_note,omitempty"`
}

// ToSEOResponse converts a domain StockExportOrder to SEOResponse
func ToSEOResponse(o *fulfillment.StockExportOrder) SEOResponse {
	lines := make([]SEOLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		allocations := make([]AllocationLineResponse, len(l.Allocations))
		for j, a := range l.Allocations {
			allocations[j] = AllocationLineResponse{
				LotID:         a.LotID,
				LotNumber:     a.LotNumber,
				Quantity:      a.Quantity,
				ExpiryDate:    a.ExpiryDate,
				UnitSalePrice: a.UnitSalePrice,
			}
		}
		lines[i] = SEOLineResponse{
			ID:                l.ID,
			ProductID:         l.ProductID,
			RequestedQuantity: l.RequestedQuantity,
			Shortfall:         l.Shortfall,
			Allocations:       allocations,
		}
	}

	var deductions []LotDeductionResponse
	for _, d := range o.Deductions {
		deductions = append(deductions, LotDeductionResponse{
			LotID:     d.LotID,
			LotNumber: d.LotNumber,
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
		})
	}

	return SEOResponse{
		ID:               o.ID,
		Code:             o.Code,
		SalesOrderID:     o.SalesOrderID,
		DueDate:          o.DueDate,
		Status:           o.Status.String(),
		Lines:            lines,
		Deductions:       deductions,
		GoodsIssueNoteID: o.GoodsIssueNoteID,
		SubmittedAt:      o.SubmittedAt,
		CheckedAt:        o.CheckedAt,
		ExportedAt:       o.ExportedAt,
		CancelledAt:      o.CancelledAt,
		CancelReason:     o.CancelReason,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Version:          o.Version,
	}
}

// ToSEOResponses converts a slice of orders
func ToSEOResponses(orders []fulfillment.StockExportOrder) []SEOResponse {
	result := make([]SEOResponse, len(orders))
	for i := range orders {
		result[i] = ToSEOResponse(&orders[i])
	}
	return result
}

// ToGoodsIssueNoteResponse converts a domain GoodsIssueNote to GoodsIssueNoteResponse
func ToGoodsIssueNoteResponse(n *fulfillment.GoodsIssueNote) GoodsIssueNoteResponse {
	src := n.Lines()
	lines := make([]GINLineResponse, len(src))
	for i, l := range src {
		lines[i] = GINLineResponse{
			LotID:         l.LotID,
			LotNumber:     l.LotNumber,
			ProductID:     l.ProductID,
			Quantity:      l.Quantity,
			ExpiryDate:    l.ExpiryDate,
			UnitSalePrice: l.UnitSalePrice,
			Amount:        l.Amount(),
		}
	}
	return GoodsIssueNoteResponse{
		ID:                 n.ID(),
		Code:               n.Code(),
		SalesOrderID:       n.SalesOrderID(),
		StockExportOrderID: n.StockExportOrderID(),
		ExportIndex:        n.ExportIndex(),
		ExportedAt:         n.ExportedAt(),
		DueDate:            n.DueDate(),
		Amount:             n.Amount(),
		Lines:              lines,
	}
}

// ToGoodsIssueNoteResponses converts a slice of notes
func ToGoodsIssueNoteResponses(notes []*fulfillment.GoodsIssueNote) []GoodsIssueNoteResponse {
	result := make([]GoodsIssueNoteResponse, len(notes))
	for i, n := range notes {
		result[i] = ToGoodsIssueNoteResponse(n)
	}
	return result
}

// ToExportResponse converts an ExportResult
func ToExportResponse(r *ExportResult) ExportResponse {
	resp := ExportResponse{Order: ToSEOResponse(r.Order)}
	if r.Note != nil {
		note := ToGoodsIssueNoteResponse(r.Note)
		resp.GoodsIssueNote = &note
	}
	return resp
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// SEOLineRecord is the stored form of a stock export order line
type SEOLineRecord struct {
	ID                uuid.UUID              `json:"id"`
	ProductID         uuid.UUID              `json:"product_id"`
	RequestedQuantity int64                  `json:"requested_quantity"`
	Allocations       []AllocationLineRecord `json:"allocations"`
	Shortfall         int64                  `json:"shortfall"`
}

// AllocationLineRecord is the stored form of a planned lot share
type AllocationLineRecord struct {
	LotID             uuid.UUID       `json:"lot_id"`
	LotNumber         string          `json:"lot_number"`
	ProductID         uuid.UUID       `json:"product_id"`
	Quantity          int64           `json:"quantity"`
	ExpiryDate        time.Time       `json:"expiry_date"`
	UnitSalePrice     decimal.Decimal `json:"unit_sale_price"`
	ObservedRemaining int64           `json:"observed_remaining"`
}

// LotDeductionRecord is the stored form of picked stock awaiting issue
type LotDeductionRecord struct {
	LotID         uuid.UUID       `json:"lot_id"`
	LotNumber     string          `json:"lot_number"`
	ProductID     uuid.UUID       `json:"product_id"`
	Quantity      int64           `json:"quantity"`
	ExpiryDate    time.Time       `json:"expiry_date"`
	UnitSalePrice decimal.Decimal `json:"unit_sale_price"`
}

// StockExportOrderModel is the persistence model for the StockExportOrder aggregate root.
type StockExportOrderModel struct {
	AggregateModel
	Code             string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	SalesOrderID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	DueDate          time.Time            `gorm:"not null"`
	Status           string               `gorm:"type:varchar(20);not null;index"`
	Lines            []SEOLineRecord      `gorm:"type:jsonb;serializer:json;not null"`
	Deductions       []LotDeductionRecord `gorm:"type:jsonb;serializer:json"`
	GoodsIssueNoteID *uuid.UUID           `gorm:"type:uuid"`
	SubmittedAt      *time.Time
	CheckedAt        *time.Time
	ExportedAt       *time.Time
	CancelledAt      *time.Time
	CancelReason     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (StockExportOrderModel) TableName() string {
	return "stock_export_orders"
}

// ToDomain converts the persistence model to a domain StockExportOrder
func (m *StockExportOrderModel) ToDomain() *fulfillment.StockExportOrder {
	lines := make([]fulfillment.SEOLine, len(m.Lines))
	for i, l := range m.Lines {
		allocations := make([]inventory.AllocationLine, len(l.Allocations))
		for j, a := range l.Allocations {
			allocations[j] = inventory.AllocationLine{
				LotID:             a.LotID,
				LotNumber:         a.LotNumber,
				ProductID:         a.ProductID,
				Quantity:          a.Quantity,
				ExpiryDate:        a.ExpiryDate,
				UnitSalePrice:     a.UnitSalePrice,
				ObservedRemaining: a.ObservedRemaining,
			}
		}
		lines[i] = fulfillment.SEOLine{
			ID:                l.ID,
			ProductID:         l.ProductID,
			RequestedQuantity: l.RequestedQuantity,
			Allocations:       allocations,
			Shortfall:         l.Shortfall,
		}
	}
	var deductions []fulfillment.LotDeduction
	for _, d := range m.Deductions {
		deductions = append(deductions, fulfillment.LotDeduction{
			LotID:         d.LotID,
			LotNumber:     d.LotNumber,
			ProductID:     d.ProductID,
			Quantity:      d.Quantity,
			ExpiryDate:    d.ExpiryDate,
			UnitSalePrice: d.UnitSalePrice,
		})
	}

	return &fulfillment.StockExportOrder{
		BaseAggregateRoot: m.root(),
		Code:              m.Code,
		SalesOrderID:      m.SalesOrderID,
		DueDate:           m.DueDate,
		Status:            fulfillment.SEOStatus(m.Status),
		Lines:             lines,
		Deductions:        deductions,
		GoodsIssueNoteID:  m.GoodsIssueNoteID,
		SubmittedAt:       m.SubmittedAt,
		CheckedAt:         m.CheckedAt,
		ExportedAt:        m.ExportedAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain StockExportOrder
func (m *StockExportOrderModel) FromDomain(o *fulfillment.StockExportOrder) {
	m.setRoot(o.BaseAggregateRoot)
	m.Code = o.Code
	m.SalesOrderID = o.SalesOrderID
	m.DueDate = o.DueDate
	m.Status = string(o.Status)
	m.Lines = make([]SEOLineRecord, len(o.Lines))
	for i, l := range o.Lines {
		allocations := make([]AllocationLineRecord, len(l.Allocations))
		for j, a := range l.Allocations {
			allocations[j] = AllocationLineRecord{
				LotID:             a.LotID,
				LotNumber:         a.LotNumber,
				ProductID:         a.ProductID,
				Quantity:          a.Quantity,
				ExpiryDate:        a.ExpiryDate,
				UnitSalePrice:     a.UnitSalePrice,
				ObservedRemaining: a.ObservedRemaining,
			}
		}
		m.Lines[i] = SEOLineRecord{
			ID:                l.ID,
			ProductID:         l.ProductID,
			RequestedQuantity: l.RequestedQuantity,
			Allocations:       allocations,
			Shortfall:         l.Shortfall,
		}
	}
	m.Deductions = make([]LotDeductionRecord, len(o.Deductions))
	for i, d := range o.Deductions {
		m.Deductions[i] = LotDeductionRecord{
			LotID:         d.LotID,
			LotNumber:     d.LotNumber,
			ProductID:     d.ProductID,
			Quantity:      d.Quantity,
			ExpiryDate:    d.ExpiryDate,
			UnitSalePrice: d.UnitSalePrice,
		}
	}
	m.GoodsIssueNoteID = o.GoodsIssueNoteID
	m.SubmittedAt = o.SubmittedAt
	m.CheckedAt = o.CheckedAt
	m.ExportedAt = o.ExportedAt
	m.CancelledAt = o.CancelledAt
	m.CancelReason = o.CancelReason
}

// StockExportOrderModelFromDomain creates a new persistence model from a domain StockExportOrder
func StockExportOrderModelFromDomain(o *fulfillment.StockExportOrder) *StockExportOrderModel {
	m := &StockExportOrderModel{}
	m.FromDomain(o)
	return m
}

// GINLineRecord is the stored form of a goods issue note line
type GINLineRecord struct {
	LotID         uuid.UUID       `json:"lot_id"`
	LotNumber     string          `json:"lot_number"`
	ProductID     uuid.UUID       `json:"product_id"`
	Quantity      int64           `json:"quantity"`
	ExpiryDate    time.Time       `json:"expiry_date"`
	UnitSalePrice decimal.Decimal `json:"unit_sale_price"`
}

// GoodsIssueNoteModel is the persistence model for an immutable goods issue note.
// (sales_order_id, export_index) is unique so two exports can never share an index.
type GoodsIssueNoteModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primary_key"`
	Code               string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	SalesOrderID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_gin_sales_order_index,priority:1"`
	StockExportOrderID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ExportIndex        int             `gorm:"not null;uniqueIndex:idx_gin_sales_order_index,priority:2"`
	ExportedAt         time.Time       `gorm:"not null"`
	DueDate            time.Time       `gorm:"not null"`
	Amount             decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Lines              []GINLineRecord `gorm:"type:jsonb;serializer:json;not null"`
	CreatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (GoodsIssueNoteModel) TableName() string {
	return "goods_issue_notes"
}

// ToDomain converts the persistence model to a domain GoodsIssueNote
func (m *GoodsIssueNoteModel) ToDomain() *fulfillment.GoodsIssueNote {
	lines := make([]fulfillment.GINLine, len(m.Lines))
	for i, l := range m.Lines {
		lines[i] = fulfillment.GINLine{
			LotID:         l.LotID,
			LotNumber:     l.LotNumber,
			ProductID:     l.ProductID,
			Quantity:      l.Quantity,
			ExpiryDate:    l.ExpiryDate,
			UnitSalePrice: l.UnitSalePrice,
		}
	}
	return fulfillment.RestoreGoodsIssueNote(
		m.ID, m.Code,
		m.SalesOrderID, m.StockExportOrderID,
		m.ExportIndex,
		m.ExportedAt, m.DueDate, m.CreatedAt,
		lines,
	)
}

// GoodsIssueNoteModelFromDomain creates a new persistence model from a domain GoodsIssueNote
func GoodsIssueNoteModelFromDomain(n *fulfillment.GoodsIssueNote) *GoodsIssueNoteModel {
	src := n.Lines()
	lines := make([]GINLineRecord, len(src))
	for i, l := range src {
		lines[i] = GINLineRecord{
			LotID:         l.LotID,
			LotNumber:     l.LotNumber,
			ProductID:     l.ProductID,
			Quantity:      l.Quantity,
			ExpiryDate:    l.ExpiryDate,
			UnitSalePrice: l.UnitSalePrice,
		}
	}
	return &GoodsIssueNoteModel{
		ID:                 n.ID(),
		Code:               n.Code(),
		SalesOrderID:       n.SalesOrderID(),
		StockExportOrderID: n.StockExportOrderID(),
		ExportIndex:        n.ExportIndex(),
		ExportedAt:         n.ExportedAt(),
		DueDate:            n.DueDate(),
		Amount:             n.Amount(),
		Lines:              lines,
		CreatedAt:          n.CreatedAt(),
	}
}

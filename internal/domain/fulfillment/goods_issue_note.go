package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// GINLine is one lot's contribution to a shipment, frozen at commit time
type GINLine struct {
	LotID         uuid.UUID
	LotNumber     string
	ProductID     uuid.UUID
	Quantity      int64
	ExpiryDate    time.Time
	UnitSalePrice decimal.Decimal
}

// Amount returns quantity times unit sale price
func (l GINLine) Amount() decimal.Decimal {
	return l.UnitSalePrice.Mul(decimal.NewFromInt(l.Quantity))
}

// GoodsIssueNote is the immutable record of an actual shipment.
// It has no mutators; lines are only handed out as copies.
type GoodsIssueNote struct {
	id                 uuid.UUID
	code               string
	salesOrderID       uuid.UUID
	stockExportOrderID uuid.UUID
	exportIndex        int
	exportedAt         time.Time
	dueDate            time.Time
	lines              []GINLine
	createdAt          time.Time
}

// GoodsIssueNoteCode formats the note code from the sales order and export index
func GoodsIssueNoteCode(salesOrderID uuid.UUID, exportIndex int) string {
	prefix := strings.ToUpper(strings.ReplaceAll(salesOrderID.String(), "-", "")[:8])
	return fmt.Sprintf("GIN-%s-%03d", prefix, exportIndex)
}

// NewGoodsIssueNote snapshots the committed lines of an exported order
func NewGoodsIssueNote(seo *StockExportOrder, exportIndex int, exportedAt time.Time, lines []GINLine) (*GoodsIssueNote, error) {
	if seo == nil {
		return nil, shared.NewValidationError("INVALID_ORDER", "stock export order is required")
	}
	if exportIndex < 1 {
		return nil, shared.NewValidationError("INVALID_EXPORT_INDEX", "export index must start at 1")
	}
	if len(lines) == 0 {
		return nil, shared.NewValidationError("NO_LINES", "goods issue note needs at least one line")
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, shared.NewValidationError("INVALID_QUANTITY", "goods issue line quantity must be positive")
		}
		if l.UnitSalePrice.IsNegative() {
			return nil, shared.NewValidationError("INVALID_PRICE", "unit sale price cannot be negative")
		}
	}

	return &GoodsIssueNote{
		id:                 uuid.New(),
		code:               GoodsIssueNoteCode(seo.SalesOrderID, exportIndex),
		salesOrderID:       seo.SalesOrderID,
		stockExportOrderID: seo.ID,
		exportIndex:        exportIndex,
		exportedAt:         exportedAt,
		dueDate:            seo.DueDate,
		lines:              append([]GINLine(nil), lines...),
		createdAt:          time.Now(),
	}, nil
}

// RestoreGoodsIssueNote rebuilds a note from storage
func RestoreGoodsIssueNote(
	id uuid.UUID,
	code string,
	salesOrderID, stockExportOrderID uuid.UUID,
	exportIndex int,
	exportedAt, dueDate, createdAt time.Time,
	lines []GINLine,
) *GoodsIssueNote {
	return &GoodsIssueNote{
		id:                 id,
		code:               code,
		salesOrderID:       salesOrderID,
		stockExportOrderID: stockExportOrderID,
		exportIndex:        exportIndex,
		exportedAt:         exportedAt,
		dueDate:            dueDate,
		lines:              append([]GINLine(nil), lines...),
		createdAt:          createdAt,
	}
}

func (n *GoodsIssueNote) ID() uuid.UUID                 { return n.id }
func (n *GoodsIssueNote) Code() string                  { return n.code }
func (n *GoodsIssueNote) SalesOrderID() uuid.UUID       { return n.salesOrderID }
func (n *GoodsIssueNote) StockExportOrderID() uuid.UUID { return n.stockExportOrderID }
func (n *GoodsIssueNote) ExportIndex() int              { return n.exportIndex }
func (n *GoodsIssueNote) ExportedAt() time.Time         { return n.exportedAt }
func (n *GoodsIssueNote) DueDate() time.Time            { return n.dueDate }
func (n *GoodsIssueNote) CreatedAt() time.Time          { return n.createdAt }

// Lines returns a copy of the note lines
func (n *GoodsIssueNote) Lines() []GINLine {
	return append([]GINLine(nil), n.lines...)
}

// Amount returns the goods issue amount, the sum of quantity times unit sale price
func (n *GoodsIssueNote) Amount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range n.lines {
		total = total.Add(l.Amount())
	}
	return total
}

// TotalQuantity returns the number of units shipped
func (n *GoodsIssueNote) TotalQuantity() int64 {
	var total int64
	for _, l := range n.lines {
		total += l.Quantity
	}
	return total
}

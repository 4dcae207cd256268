package fulfillment

import (
	"context"

	"github.com/google/uuid"
)

// StockExportOrderRepository defines the interface for stock export order persistence
type StockExportOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockExportOrder, error)

	FindByCode(ctx context.Context, code string) (*StockExportOrder, error)

	// FindByStatus lists orders in a status, oldest first, up to limit (0 means no limit)
	FindByStatus(ctx context.Context, status SEOStatus, limit int) ([]StockExportOrder, error)

	FindBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) ([]StockExportOrder, error)

	// Create inserts a new order
	Create(ctx context.Context, order *StockExportOrder) error

	// SaveWithLock updates an existing order, failing with a concurrency
	// conflict if the stored version is not order.Version
	SaveWithLock(ctx context.Context, order *StockExportOrder) error
}

// GoodsIssueNoteRepository stores immutable goods issue notes.
// Notes are inserted once and never updated.
type GoodsIssueNoteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*GoodsIssueNote, error)

	FindByCode(ctx context.Context, code string) (*GoodsIssueNote, error)

	// FindByCodes returns the notes with the given codes, ordered by export index
	FindByCodes(ctx context.Context, codes []string) ([]*GoodsIssueNote, error)

	// FindBySalesOrder returns all notes of a sales order ordered by export index
	FindBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) ([]*GoodsIssueNote, error)

	// NextExportIndex returns one more than the highest export index of the sales order
	NextExportIndex(ctx context.Context, salesOrderID uuid.UUID) (int, error)

	Create(ctx context.Context, note *GoodsIssueNote) error
}

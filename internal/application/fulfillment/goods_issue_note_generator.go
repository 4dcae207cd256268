package fulfillment

import (
	"context"
	"time"

	appinventory "github.com/minhtran291/PMS-Backend-sub002/internal/application/inventory"
	appshared "github.com/minhtran291/PMS-Backend-sub002/internal/application/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"go.uber.org/zap"
)

// PickResult is the outcome of picking stock for a ready order
type PickResult struct {
	// Plans holds the fresh FEFO plan of every line, in line order.
	// Empty when the order was already picked.
	Plans []*inventory.AllocationPlan
	Short bool
}

// GoodsIssueNoteGenerator turns a ready stock export order into lot deductions
// and an immutable goods issue note. It works inside the caller's transaction.
type GoodsIssueNoteGenerator struct {
	allocator *appinventory.AllocatorService
	logger    *zap.Logger
}

// NewGoodsIssueNoteGenerator creates a new GoodsIssueNoteGenerator
func NewGoodsIssueNoteGenerator(allocator *appinventory.AllocatorService, logger *zap.Logger) *GoodsIssueNoteGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoodsIssueNoteGenerator{
		allocator: allocator,
		logger:    logger,
	}
}

// Pick re-plans every line against current stock and, when all of them are
// covered, deducts the lots and records the deductions on the order.
// A short line deducts nothing and reports Short with the plans.
// If a lot changed since planning, the lines already deducted are put back
// and the ConcurrencyConflict is returned.
func (g *GoodsIssueNoteGenerator) Pick(ctx context.Context, repos appshared.Repositories, seo *fulfillment.StockExportOrder) (*PickResult, error) {
	if seo.Status != fulfillment.SEOStatusReadyToExport {
		return nil, shared.NewDomainError(shared.KindStateConflict, "NOT_READY",
			"stock export order must be READY_TO_EXPORT to pick stock").
			WithDetail("status", seo.Status.String())
	}
	if seo.HasPendingDeductions() {
		return &PickResult{}, nil
	}

	plans := make([]*inventory.AllocationPlan, 0, len(seo.Lines))
	short := false
	for _, req := range seo.Requests(time.Time{}) {
		plan, err := g.allocator.Plan(ctx, repos.Lots(), req)
		if err != nil {
			return nil, err
		}
		if !plan.IsSatisfied() {
			short = true
		}
		plans = append(plans, plan)
	}
	if short {
		return &PickResult{Plans: plans, Short: true}, nil
	}

	for _, plan := range plans {
		committed, err := g.allocator.CommitPlan(ctx, repos.Lots(), plan)
		for _, line := range committed {
			if recErr := seo.RecordDeduction(fulfillment.DeductionFromAllocation(line)); recErr != nil && err == nil {
				err = recErr
			}
		}
		if err != nil {
			g.ReturnDeductions(ctx, repos, seo)
			return nil, err
		}
	}
	return &PickResult{Plans: plans}, nil
}

// ReturnDeductions restores every recorded deduction to its lot and clears
// them from the order. Restore failures are logged; the surrounding
// transaction rollback still brings the lots back.
func (g *GoodsIssueNoteGenerator) ReturnDeductions(ctx context.Context, repos appshared.Repositories, seo *fulfillment.StockExportOrder) {
	for _, d := range seo.Deductions {
		if err := g.allocator.Release(ctx, repos.Lots(), d.LotID, d.Quantity); err != nil {
			g.logger.Error("Failed to restore lot deduction",
				zap.String("stock_export_order_id", seo.ID.String()),
				zap.String("lot_id", d.LotID.String()),
				zap.Int64("quantity", d.Quantity),
				zap.Error(err))
		}
	}
	seo.ClearDeductions()
}

// Issue snapshots the picked deductions into the next goods issue note of the
// sales order and marks the order exported.
func (g *GoodsIssueNoteGenerator) Issue(ctx context.Context, repos appshared.Repositories, seo *fulfillment.StockExportOrder, exportedAt time.Time) (*fulfillment.GoodsIssueNote, error) {
	if !seo.HasPendingDeductions() {
		return nil, shared.NewDomainError(shared.KindStateConflict, "NOTHING_PICKED",
			"stock export order has no picked stock to issue")
	}

	exportIndex, err := repos.GoodsIssueNotes().NextExportIndex(ctx, seo.SalesOrderID)
	if err != nil {
		return nil, err
	}
	note, err := fulfillment.NewGoodsIssueNote(seo, exportIndex, exportedAt, seo.IssueLines())
	if err != nil {
		return nil, err
	}
	if err := repos.GoodsIssueNotes().Create(ctx, note); err != nil {
		return nil, err
	}
	if err := seo.MarkExported(note.ID(), exportedAt); err != nil {
		return nil, err
	}

	g.logger.Info("Goods issue note created",
		zap.String("code", note.Code()),
		zap.String("sales_order_id", note.SalesOrderID().String()),
		zap.Int("export_index", note.ExportIndex()),
		zap.Int64("quantity", note.TotalQuantity()),
		zap.String("amount", note.Amount().String()))
	return note, nil
}

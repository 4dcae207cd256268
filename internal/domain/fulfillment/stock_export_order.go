package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SEOStatus represents the status of a stock export order
type SEOStatus string

const (
	SEOStatusDraft         SEOStatus = "DRAFT"
	SEOStatusSent          SEOStatus = "SENT"
	SEOStatusReadyToExport SEOStatus = "READY_TO_EXPORT"
	SEOStatusNotEnough     SEOStatus = "NOT_ENOUGH"
	SEOStatusAwait         SEOStatus = "AWAIT"
	SEOStatusExported      SEOStatus = "EXPORTED"
	SEOStatusCancel        SEOStatus = "CANCEL"
)

// seoTransitions lists every legal edge. Anything absent is rejected.
var seoTransitions = map[SEOStatus][]SEOStatus{
	SEOStatusDraft:         {SEOStatusSent, SEOStatusCancel},
	SEOStatusSent:          {SEOStatusReadyToExport, SEOStatusNotEnough, SEOStatusCancel},
	SEOStatusReadyToExport: {SEOStatusExported, SEOStatusNotEnough, SEOStatusCancel},
	SEOStatusNotEnough:     {SEOStatusAwait, SEOStatusCancel},
	SEOStatusAwait:         {SEOStatusReadyToExport, SEOStatusCancel},
	SEOStatusExported:      {},
	SEOStatusCancel:        {},
}

// IsValid checks if the status is a valid SEOStatus
func (s SEOStatus) IsValid() bool {
	_, ok := seoTransitions[s]
	return ok
}

// String returns the string representation of SEOStatus
func (s SEOStatus) String() string {
	return string(s)
}

// IsTerminal returns true for EXPORTED and CANCEL
func (s SEOStatus) IsTerminal() bool {
	return s == SEOStatusExported || s == SEOStatusCancel
}

// CanTransitionTo checks if the status can transition to the target status
func (s SEOStatus) CanTransitionTo(target SEOStatus) bool {
	for _, next := range seoTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// SEOLine is one product requested by a stock export order
type SEOLine struct {
	ID                uuid.UUID
	ProductID         uuid.UUID
	RequestedQuantity int64
	// Allocations holds the latest dry-run plan for this line
	Allocations []inventory.AllocationLine
	Shortfall   int64
}

// LotDeduction is a committed lot decrement that has not yet been issued as a GIN.
// The lot attributes are captured when the stock is picked.
type LotDeduction struct {
	LotID         uuid.UUID
	LotNumber     string
	ProductID     uuid.UUID
	Quantity      int64
	ExpiryDate    time.Time
	UnitSalePrice decimal.Decimal
}

// DeductionFromAllocation converts a committed allocation line
func DeductionFromAllocation(line inventory.AllocationLine) LotDeduction {
	return LotDeduction{
		LotID:         line.LotID,
		LotNumber:     line.LotNumber,
		ProductID:     line.ProductID,
		Quantity:      line.Quantity,
		ExpiryDate:    line.ExpiryDate,
		UnitSalePrice: line.UnitSalePrice,
	}
}

// NewSEOLine is the input for one requested product
type NewSEOLine struct {
	ProductID uuid.UUID
	Quantity  int64
}

// StockExportOrder drives a shipment request from draft to export or cancellation
type StockExportOrder struct {
	shared.BaseAggregateRoot
	Code             string
	SalesOrderID     uuid.UUID
	DueDate          time.Time
	Status           SEOStatus
	Lines            []SEOLine
	Deductions       []LotDeduction
	GoodsIssueNoteID *uuid.UUID
	SubmittedAt      *time.Time
	CheckedAt        *time.Time
	ExportedAt       *time.Time
	CancelledAt      *time.Time
	CancelReason     string
}

// NewStockExportOrder creates a draft stock export order
func NewStockExportOrder(code string, salesOrderID uuid.UUID, dueDate time.Time, lines []NewSEOLine) (*StockExportOrder, error) {
	if strings.TrimSpace(code) == "" {
		return nil, shared.NewValidationError("INVALID_CODE", "stock export order code cannot be empty")
	}
	if salesOrderID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_SALES_ORDER", "sales order ID cannot be empty")
	}
	if dueDate.IsZero() {
		return nil, shared.NewValidationError("INVALID_DUE_DATE", "due date is required")
	}
	if len(lines) == 0 {
		return nil, shared.NewValidationError("NO_LINES", "stock export order needs at least one line")
	}

	seo := &StockExportOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.TrimSpace(code),
		SalesOrderID:      salesOrderID,
		DueDate:           dueDate,
		Status:            SEOStatusDraft,
		Lines:             make([]SEOLine, 0, len(lines)),
		Deductions:        make([]LotDeduction, 0),
	}

	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		if l.ProductID == uuid.Nil {
			return nil, shared.NewValidationError("INVALID_PRODUCT", "product ID cannot be empty")
		}
		if l.Quantity <= 0 {
			return nil, shared.NewValidationError("INVALID_QUANTITY", "requested quantity must be positive")
		}
		if _, dup := seen[l.ProductID]; dup {
			return nil, shared.NewValidationError("DUPLICATE_PRODUCT",
				fmt.Sprintf("product %s appears more than once", l.ProductID))
		}
		seen[l.ProductID] = struct{}{}
		seo.Lines = append(seo.Lines, SEOLine{
			ID:                uuid.New(),
			ProductID:         l.ProductID,
			RequestedQuantity: l.Quantity,
		})
	}

	return seo, nil
}

func (o *StockExportOrder) transition(target SEOStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return shared.NewStateConflictError("stock export order", o.Status, target)
	}
	o.Status = target
	o.Touch()
	return nil
}

// Submit sends the order for fulfillment
func (o *StockExportOrder) Submit() error {
	if err := o.transition(SEOStatusSent); err != nil {
		return err
	}
	now := time.Now()
	o.SubmittedAt = &now
	o.AddDomainEvent(NewSEOSubmittedEvent(o))
	return nil
}

// CanCheckAvailability returns true in the states where a dry-run may change the outcome.
// Once stock is picked the order is pinned to its deductions.
func (o *StockExportOrder) CanCheckAvailability() bool {
	if o.HasPendingDeductions() {
		return false
	}
	switch o.Status {
	case SEOStatusSent, SEOStatusAwait, SEOStatusReadyToExport:
		return true
	}
	return false
}

// ApplyAvailability records dry-run plans, one per line in line order, and moves
// the order to READY_TO_EXPORT when every line is satisfied.
// An unsatisfied check moves SENT and READY_TO_EXPORT to NOT_ENOUGH; AWAIT stays put.
// Returns true when the order is ready to export.
func (o *StockExportOrder) ApplyAvailability(plans []*inventory.AllocationPlan) (bool, error) {
	if !o.CanCheckAvailability() {
		return false, shared.NewDomainError(shared.KindStateConflict, "INVALID_STATE",
			fmt.Sprintf("cannot check availability of stock export order in %s status", o.Status))
	}
	if len(plans) != len(o.Lines) {
		return false, shared.NewValidationError("PLAN_MISMATCH",
			fmt.Sprintf("expected %d plans, got %d", len(o.Lines), len(plans)))
	}

	ready := true
	for i := range o.Lines {
		plan := plans[i]
		if plan == nil || plan.ProductID != o.Lines[i].ProductID {
			return false, shared.NewValidationError("PLAN_MISMATCH",
				fmt.Sprintf("plan %d does not match line product %s", i, o.Lines[i].ProductID))
		}
		o.Lines[i].Allocations = append([]inventory.AllocationLine(nil), plan.Lines...)
		o.Lines[i].Shortfall = plan.Shortfall
		if !plan.IsSatisfied() {
			ready = false
		}
	}

	now := time.Now()
	o.CheckedAt = &now
	o.Touch()

	switch {
	case ready && o.Status != SEOStatusReadyToExport:
		if err := o.transition(SEOStatusReadyToExport); err != nil {
			return false, err
		}
		o.AddDomainEvent(NewSEOReadyEvent(o))
	case !ready && o.Status != SEOStatusAwait:
		if err := o.transition(SEOStatusNotEnough); err != nil {
			return false, err
		}
		o.AddDomainEvent(NewSEONotEnoughEvent(o))
	}
	return ready, nil
}

// Await parks a NOT_ENOUGH order until a later re-check. No stock is held.
func (o *StockExportOrder) Await() error {
	if err := o.transition(SEOStatusAwait); err != nil {
		return err
	}
	o.AddDomainEvent(NewSEOAwaitingEvent(o))
	return nil
}

// RecordDeduction notes a committed lot decrement made on behalf of this order
func (o *StockExportOrder) RecordDeduction(d LotDeduction) error {
	if o.Status != SEOStatusReadyToExport {
		return shared.NewDomainError(shared.KindStateConflict, "INVALID_STATE",
			fmt.Sprintf("cannot commit stock for order in %s status", o.Status))
	}
	if d.Quantity <= 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "deduction quantity must be positive")
	}
	o.Deductions = append(o.Deductions, d)
	o.Touch()
	return nil
}

// DeductedQuantity sums recorded deductions for a lot
func (o *StockExportOrder) DeductedQuantity(lotID uuid.UUID) int64 {
	var total int64
	for _, d := range o.Deductions {
		if d.LotID == lotID {
			total += d.Quantity
		}
	}
	return total
}

// HasPendingDeductions returns true if stock was committed without a GIN yet
func (o *StockExportOrder) HasPendingDeductions() bool {
	return len(o.Deductions) > 0
}

// ClearDeductions drops recorded deductions after they were restored to their lots
func (o *StockExportOrder) ClearDeductions() {
	o.Deductions = make([]LotDeduction, 0)
	o.Touch()
}

// IssueLines turns the recorded deductions into goods issue lines
func (o *StockExportOrder) IssueLines() []GINLine {
	lines := make([]GINLine, 0, len(o.Deductions))
	for _, d := range o.Deductions {
		lines = append(lines, GINLine{
			LotID:         d.LotID,
			LotNumber:     d.LotNumber,
			ProductID:     d.ProductID,
			Quantity:      d.Quantity,
			ExpiryDate:    d.ExpiryDate,
			UnitSalePrice: d.UnitSalePrice,
		})
	}
	return lines
}

// MarkExported completes the order once its goods issue note exists
func (o *StockExportOrder) MarkExported(noteID uuid.UUID, exportedAt time.Time) error {
	if err := o.transition(SEOStatusExported); err != nil {
		return err
	}
	o.GoodsIssueNoteID = &noteID
	o.ExportedAt = &exportedAt
	o.Deductions = make([]LotDeduction, 0)
	o.AddDomainEvent(NewSEOExportedEvent(o))
	return nil
}

// EnsureCancellable validates a cancel request without changing state.
// Cancelling without return is refused while committed deductions exist,
// since no lot may stay reserved for a cancelled order.
func (o *StockExportOrder) EnsureCancellable(withReturn bool) error {
	if !o.Status.CanTransitionTo(SEOStatusCancel) {
		return shared.NewStateConflictError("stock export order", o.Status, SEOStatusCancel)
	}
	if o.HasPendingDeductions() && !withReturn {
		return shared.NewDomainError(shared.KindStateConflict, "DEDUCTIONS_PENDING",
			"stock export order has committed lot deductions; cancel with return")
	}
	return nil
}

// Cancel abandons the order. Callers restore Deductions to their lots first.
func (o *StockExportOrder) Cancel(reason string, withReturn bool) error {
	if err := o.EnsureCancellable(withReturn); err != nil {
		return err
	}
	returned := o.Deductions
	if err := o.transition(SEOStatusCancel); err != nil {
		return err
	}
	now := time.Now()
	o.CancelledAt = &now
	o.CancelReason = reason
	o.Deductions = make([]LotDeduction, 0)
	o.AddDomainEvent(NewSEOCancelledEvent(o, returned))
	return nil
}

// Shortfalls returns the unmet quantity per product from the latest check
func (o *StockExportOrder) Shortfalls() map[uuid.UUID]int64 {
	result := make(map[uuid.UUID]int64)
	for _, line := range o.Lines {
		if line.Shortfall > 0 {
			result[line.ProductID] = line.Shortfall
		}
	}
	return result
}

// Requests builds allocation requests for every line in line order
func (o *StockExportOrder) Requests(notExpiredAt time.Time) []inventory.AllocationRequest {
	reqs := make([]inventory.AllocationRequest, len(o.Lines))
	for i, line := range o.Lines {
		reqs[i] = inventory.AllocationRequest{
			ProductID:    line.ProductID,
			Quantity:     line.RequestedQuantity,
			NotExpiredAt: notExpiredAt,
		}
	}
	return reqs
}

// IsTerminal returns true if the order can no longer change
func (o *StockExportOrder) IsTerminal() bool {
	return o.Status.IsTerminal()
}

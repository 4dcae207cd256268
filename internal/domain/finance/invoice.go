package finance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// NoteSummary is what an invoice needs to know about a goods issue note
type NoteSummary struct {
	ID           uuid.UUID
	Code         string
	SalesOrderID uuid.UUID
	ExportIndex  int
	Amount       decimal.Decimal
	DueDate      time.Time
}

// InvoiceDetail tracks one goods issue note inside an invoice.
// NoteBalance = GoodsIssueAmount - AllocatedDeposit - PaidRemain and never goes negative.
type InvoiceDetail struct {
	GoodsIssueNoteID   uuid.UUID
	GoodsIssueNoteCode string
	ExportIndex        int
	GoodsIssueAmount   decimal.Decimal
	AllocatedDeposit   decimal.Decimal
	PaidRemain         decimal.Decimal
	TotalPaidForNote   decimal.Decimal
	NoteBalance        decimal.Decimal
}

func (d *InvoiceDetail) recalculate() {
	d.TotalPaidForNote = d.AllocatedDeposit.Add(d.PaidRemain)
	d.NoteBalance = d.GoodsIssueAmount.Sub(d.TotalPaidForNote)
}

// IsSettled returns true if nothing is owed on the note
func (d InvoiceDetail) IsSettled() bool {
	return !d.NoteBalance.IsPositive()
}

// PaymentAllocation records how much of a payment went to one note
type PaymentAllocation struct {
	GoodsIssueNoteID uuid.UUID       `json:"goods_issue_note_id"`
	ExportIndex      int             `json:"export_index"`
	Amount           decimal.Decimal `json:"amount"`
}

// RemainderResult describes how a remain/full payment was spread over notes
type RemainderResult struct {
	Allocations []PaymentAllocation
	Applied     decimal.Decimal
	Excess      decimal.Decimal
}

// Invoice aggregates the goods issue notes of one sales order and the money paid against them
type Invoice struct {
	shared.BaseAggregateRoot
	Code         string
	SalesOrderID uuid.UUID
	DueDate      time.Time
	TotalAmount  decimal.Decimal
	TotalDeposit decimal.Decimal
	TotalPaid    decimal.Decimal
	TotalRemain  decimal.Decimal
	Details      []InvoiceDetail
}

// InvoiceCode formats the invoice code of a sales order
func InvoiceCode(salesOrderID uuid.UUID) string {
	return "INV-" + strings.ToUpper(strings.ReplaceAll(salesOrderID.String(), "-", "")[:12])
}

// NewInvoice creates an empty invoice for a sales order
func NewInvoice(salesOrderID uuid.UUID) (*Invoice, error) {
	if salesOrderID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_SALES_ORDER", "sales order ID cannot be empty")
	}
	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              InvoiceCode(salesOrderID),
		SalesOrderID:      salesOrderID,
		TotalAmount:       decimal.Zero,
		TotalDeposit:      decimal.Zero,
		TotalPaid:         decimal.Zero,
		TotalRemain:       decimal.Zero,
		Details:           make([]InvoiceDetail, 0),
	}, nil
}

// HasNote returns true if the note is already part of the invoice
func (inv *Invoice) HasNote(noteID uuid.UUID) bool {
	return inv.detailIndex(noteID) >= 0
}

func (inv *Invoice) detailIndex(noteID uuid.UUID) int {
	for i := range inv.Details {
		if inv.Details[i].GoodsIssueNoteID == noteID {
			return i
		}
	}
	return -1
}

// Detail returns the detail for a note, if present
func (inv *Invoice) Detail(noteID uuid.UUID) (InvoiceDetail, bool) {
	if i := inv.detailIndex(noteID); i >= 0 {
		return inv.Details[i], true
	}
	return InvoiceDetail{}, false
}

// AddGoodsIssueNote appends a note as a new detail, keeping details in export index order.
// A note that is already invoiced is skipped and reported as not added.
func (inv *Invoice) AddGoodsIssueNote(note NoteSummary) (bool, error) {
	if note.SalesOrderID != inv.SalesOrderID {
		return false, shared.NewValidationError("NOTE_ORDER_MISMATCH",
			fmt.Sprintf("goods issue note %s belongs to another sales order", note.Code))
	}
	if note.Amount.IsNegative() {
		return false, shared.NewValidationError("INVALID_AMOUNT", "goods issue amount cannot be negative")
	}
	if inv.HasNote(note.ID) {
		return false, nil
	}
	for _, d := range inv.Details {
		if d.ExportIndex == note.ExportIndex {
			return false, shared.NewValidationError("DUPLICATE_EXPORT_INDEX",
				fmt.Sprintf("export index %d is already invoiced", note.ExportIndex))
		}
	}

	detail := InvoiceDetail{
		GoodsIssueNoteID:   note.ID,
		GoodsIssueNoteCode: note.Code,
		ExportIndex:        note.ExportIndex,
		GoodsIssueAmount:   note.Amount,
		AllocatedDeposit:   decimal.Zero,
		PaidRemain:         decimal.Zero,
	}
	detail.recalculate()
	inv.Details = append(inv.Details, detail)
	sort.SliceStable(inv.Details, func(i, j int) bool {
		return inv.Details[i].ExportIndex < inv.Details[j].ExportIndex
	})

	if !note.DueDate.IsZero() && (inv.DueDate.IsZero() || note.DueDate.Before(inv.DueDate)) {
		inv.DueDate = note.DueDate
	}
	inv.recalculate()
	return true, nil
}

// AllocateDeposit spreads an unallocated deposit pool over the notes in export
// index order and returns how much of the pool was consumed.
func (inv *Invoice) AllocateDeposit(pool decimal.Decimal) decimal.Decimal {
	remaining := pool
	for i := range inv.Details {
		if !remaining.IsPositive() {
			break
		}
		d := &inv.Details[i]
		take := decimal.Min(remaining, d.NoteBalance)
		if !take.IsPositive() {
			continue
		}
		d.AllocatedDeposit = d.AllocatedDeposit.Add(take)
		d.recalculate()
		remaining = remaining.Sub(take)
	}
	inv.recalculate()
	return pool.Sub(remaining)
}

// ReleaseDeposit takes previously allocated deposit back off the notes,
// latest export index first, and returns how much was released.
func (inv *Invoice) ReleaseDeposit(amount decimal.Decimal) decimal.Decimal {
	remaining := amount
	for i := len(inv.Details) - 1; i >= 0 && remaining.IsPositive(); i-- {
		d := &inv.Details[i]
		take := decimal.Min(remaining, d.AllocatedDeposit)
		if !take.IsPositive() {
			continue
		}
		d.AllocatedDeposit = d.AllocatedDeposit.Sub(take)
		d.recalculate()
		remaining = remaining.Sub(take)
	}
	inv.recalculate()
	return amount.Sub(remaining)
}

// ApplyRemainder spreads a remain or full payment over open notes in export
// index order, or over the target note only when one is given. The amount
// that could not be placed without driving a balance negative is returned as Excess.
func (inv *Invoice) ApplyRemainder(amount decimal.Decimal, target *uuid.UUID) (*RemainderResult, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "payment amount must be positive")
	}

	indexes := make([]int, 0, len(inv.Details))
	if target != nil {
		i := inv.detailIndex(*target)
		if i < 0 {
			return nil, shared.NewNotFoundError("invoice detail for goods issue note", *target)
		}
		indexes = append(indexes, i)
	} else {
		for i := range inv.Details {
			indexes = append(indexes, i)
		}
	}

	result := &RemainderResult{Allocations: make([]PaymentAllocation, 0)}
	remaining := amount
	for _, i := range indexes {
		if !remaining.IsPositive() {
			break
		}
		d := &inv.Details[i]
		take := decimal.Min(remaining, d.NoteBalance)
		if !take.IsPositive() {
			continue
		}
		d.PaidRemain = d.PaidRemain.Add(take)
		d.recalculate()
		remaining = remaining.Sub(take)
		result.Allocations = append(result.Allocations, PaymentAllocation{
			GoodsIssueNoteID: d.GoodsIssueNoteID,
			ExportIndex:      d.ExportIndex,
			Amount:           take,
		})
	}

	result.Applied = amount.Sub(remaining)
	result.Excess = remaining
	inv.recalculate()
	return result, nil
}

// ReverseRemainder undoes the allocations of a refunded remain or full payment
func (inv *Invoice) ReverseRemainder(allocations []PaymentAllocation) error {
	for _, a := range allocations {
		i := inv.detailIndex(a.GoodsIssueNoteID)
		if i < 0 {
			return shared.NewNotFoundError("invoice detail for goods issue note", a.GoodsIssueNoteID)
		}
		if inv.Details[i].PaidRemain.LessThan(a.Amount) {
			return shared.NewDomainError(shared.KindStateConflict, "REVERSAL_EXCEEDS_PAID",
				fmt.Sprintf("cannot reverse %s from note %s holding %s", a.Amount, inv.Details[i].GoodsIssueNoteCode, inv.Details[i].PaidRemain))
		}
	}
	for _, a := range allocations {
		d := &inv.Details[inv.detailIndex(a.GoodsIssueNoteID)]
		d.PaidRemain = d.PaidRemain.Sub(a.Amount)
		d.recalculate()
	}
	inv.recalculate()
	return nil
}

// OpenBalance returns the sum of note balances still owed
func (inv *Invoice) OpenBalance() decimal.Decimal {
	return inv.TotalRemain
}

// IsSettled returns true once every note is fully paid
func (inv *Invoice) IsSettled() bool {
	return len(inv.Details) > 0 && !inv.TotalRemain.IsPositive()
}

func (inv *Invoice) recalculate() {
	totalAmount := decimal.Zero
	totalDeposit := decimal.Zero
	totalRemainPaid := decimal.Zero
	for _, d := range inv.Details {
		totalAmount = totalAmount.Add(d.GoodsIssueAmount)
		totalDeposit = totalDeposit.Add(d.AllocatedDeposit)
		totalRemainPaid = totalRemainPaid.Add(d.PaidRemain)
	}
	inv.TotalAmount = totalAmount
	inv.TotalDeposit = totalDeposit
	inv.TotalPaid = totalDeposit.Add(totalRemainPaid)
	inv.TotalRemain = totalAmount.Sub(inv.TotalPaid)
	inv.Touch()
}

// CheckInvariants verifies the reconciliation rules of the invoice
func (inv *Invoice) CheckInvariants() error {
	sumAmount := decimal.Zero
	sumDeposit := decimal.Zero
	sumRemain := decimal.Zero
	for _, d := range inv.Details {
		if d.NoteBalance.IsNegative() {
			return shared.NewInternalError(fmt.Sprintf("note %s balance is negative: %s", d.GoodsIssueNoteCode, d.NoteBalance), nil)
		}
		if !d.GoodsIssueAmount.Sub(d.AllocatedDeposit).Sub(d.PaidRemain).Equal(d.NoteBalance) {
			return shared.NewInternalError(fmt.Sprintf("note %s balance does not reconcile", d.GoodsIssueNoteCode), nil)
		}
		sumAmount = sumAmount.Add(d.GoodsIssueAmount)
		sumDeposit = sumDeposit.Add(d.AllocatedDeposit)
		sumRemain = sumRemain.Add(d.PaidRemain)
	}
	if !sumAmount.Equal(inv.TotalAmount) {
		return shared.NewInternalError("total amount does not equal the sum of goods issue amounts", nil)
	}
	if !sumDeposit.Equal(inv.TotalDeposit) || !sumDeposit.Add(sumRemain).Equal(inv.TotalPaid) {
		return shared.NewInternalError("total paid does not equal deposit plus paid remainder", nil)
	}
	if !inv.TotalAmount.Sub(inv.TotalPaid).Equal(inv.TotalRemain) {
		return shared.NewInternalError("total remain does not equal total amount minus total paid", nil)
	}
	return nil
}

// NewOverpaymentError reports money that could not be placed against any open note
func NewOverpaymentError(excess decimal.Decimal) *shared.DomainError {
	return shared.NewDomainError(shared.KindOverpayment, "OVERPAYMENT",
		fmt.Sprintf("payment exceeds outstanding balance by %s", excess.String())).
		WithDetail("excess", excess.String())
}

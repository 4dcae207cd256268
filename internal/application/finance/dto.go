package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// AggregateInvoiceRequest represents a request to add goods issue notes to an invoice
type AggregateInvoiceRequest struct {
	SalesOrderID        uuid.UUID `json:"sales_order_id" binding:"required"`
	GoodsIssueNoteCodes []string  `json:"goods_issue_note_codes" binding:"required,min=1,dive,required"`
}

// ApplyPaymentCommand carries a payment confirmed by the gateway
type ApplyPaymentCommand struct {
	SalesOrderID     uuid.UUID           `json:"sales_order_id" binding:"required"`
	InvoiceID        *uuid.UUID          `json:"invoice_id"`
	GoodsIssueNoteID *uuid.UUID          `json:"goods_issue_note_id"`
	Type             finance.PaymentType `json:"type" binding:"required,oneof=DEPOSIT REMAIN FULL"`
	Amount           decimal.Decimal     `json:"amount" binding:"required,dpositive"`
	GatewayRef       string              `json:"gateway_ref" binding:"required,max=100"`
}

// FailPaymentRequest carries a gateway failure
type FailPaymentRequest struct {
	ApplyPaymentCommand
	Reason string `json:"reason" binding:"max=500"`
}

// DisableDebtRequest represents a request to retire a debt
type DisableDebtRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// PaymentResult is the outcome of applying or refunding a payment.
// Invoice is nil for a deposit received before the first goods issue note was invoiced.
type PaymentResult struct {
	Payment *finance.PaymentRecord
	Invoice *finance.Invoice
	Applied decimal.Decimal
	Excess  decimal.Decimal
}

// InvoiceDetailResponse represents one invoiced goods issue note
type InvoiceDetailResponse struct {
	GoodsIssueNoteID   uuid.UUID       `json:"goods_issue_note_id"`
	GoodsIssueNoteCode string          `json:"goods_issue_note_code"`
	ExportIndex        int             `json:"export_index"`
	GoodsIssueAmount   decimal.Decimal `json:"goods_issue_amount"`
	AllocatedDeposit   decimal.Decimal `json:"allocated_deposit"`
	PaidRemain         decimal.Decimal `json:"paid_remain"`
	TotalPaidForNote   decimal.Decimal `json:"total_paid_for_note"`
	NoteBalance        decimal.Decimal `json:"note_balance"`
}

// InvoiceResponse represents an invoice in API responses
type InvoiceResponse struct {
	ID           uuid.UUID               `json:"id"`
	Code         string                  `json:"code"`
	SalesOrderID uuid.UUID               `json:"sales_order_id"`
	DueDate      time.Time               `json:"due_date"`
	TotalAmount  decimal.Decimal         `json:"total_amount"`
	TotalDeposit decimal.Decimal         `json:"total_deposit"`
	TotalPaid    decimal.Decimal         `json:"total_paid"`
	TotalRemain  decimal.Decimal         `json:"total_remain"`
	Details      []InvoiceDetailResponse `json:"details"`
	CreatedAt    time.Time               `json:"created_at"`
	UpdatedAt    time.Time               `json:"updated_at"`
	Version      int                     `json:"version"`
}

// PaymentResponse represents a payment record in API responses
type PaymentResponse struct {
	ID                    uuid.UUID                   `json:"id"`
	SalesOrderID          uuid.UUID                   `json:"sales_order_id"`
	InvoiceID             *uuid.UUID                  `json:"invoice_id,omitempty"`
	GoodsIssueNoteID      *uuid.UUID                  `json:"goods_issue_note_id,omitempty"`
	Type                  string                      `json:"type"`
	Amount                decimal.Decimal             `json:"amount"`
	Status                string                      `json:"status"`
	GatewayRef            string                      `json:"gateway_ref"`
	AppliedAmount         decimal.Decimal             `json:"applied_amount"`
	OverpaidAmount        decimal.Decimal             `json:"overpaid_amount"`
	NeedsManualResolution bool                        `json:"needs_manual_resolution"`
	Allocations           []finance.PaymentAllocation `json:"allocations"`
	PaidAt                *time.Time                  `json:"paid_at,omitempty"`
	FailedAt              *time.Time                  `json:"failed_at,omitempty"`
	FailureReason         string                      `json:"failure_reason,omitempty"`
	RefundedAt            *time.Time                  `json:"refunded_at,omitempty"`
	CreatedAt             time.Time                   `json:"created_at"`
}

// PaymentResultResponse is the response to an apply or refund request
type PaymentResultResponse struct {
	Payment PaymentResponse  `json:"payment"`
	Invoice *InvoiceResponse `json:"invoice,omitempty"`
	Applied decimal.Decimal  `json:"applied"`
	Excess  decimal.Decimal  `json:"excess"`
}

// DebtResponse represents a customer debt in API responses
type DebtResponse struct {
	ID             uuid.UUID       `json:"id"`
	SalesOrderID   uuid.UUID       `json:"sales_order_id"`
	Status         string          `json:"status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	DebtAmount     decimal.Decimal `json:"debt_amount"`
	DueDate        time.Time       `json:"due_date"`
	DaysOverdue    int             `json:"days_overdue"`
	OverdueSince   *time.Time      `json:"overdue_since,omitempty"`
	BadDebtAt      *time.Time      `json:"bad_debt_at,omitempty"`
	SettledAt      *time.Time      `json:"settled_at,omitempty"`
	DisabledAt     *time.Time      `json:"disabled_at,omitempty"`
	DisabledReason string          `json:"disabled_reason,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ToInvoiceResponse converts a domain Invoice to InvoiceResponse
func ToInvoiceResponse(inv *finance.Invoice) InvoiceResponse {
	details := make([]InvoiceDetailResponse, len(inv.Details))
	for i, d := range inv.Details {
		details[i] = InvoiceDetailResponse{
			GoodsIssueNoteID:   d.GoodsIssueNoteID,
			GoodsIssueNoteCode: d.GoodsIssueNoteCode,
			ExportIndex:        d.ExportIndex,
			GoodsIssueAmount:   d.GoodsIssueAmount,
			AllocatedDeposit:   d.AllocatedDeposit,
			PaidRemain:         d.PaidRemain,
			TotalPaidForNote:   d.TotalPaidForNote,
			NoteBalance:        d.NoteBalance,
		}
	}
	return InvoiceResponse{
		ID:           inv.ID,
		Code:         inv.Code,
		SalesOrderID: inv.SalesOrderID,
		DueDate:      inv.DueDate,
		TotalAmount:  inv.TotalAmount,
		TotalDeposit: inv.TotalDeposit,
		TotalPaid:    inv.TotalPaid,
		TotalRemain:  inv.TotalRemain,
		Details:      details,
		CreatedAt:    inv.CreatedAt,
		UpdatedAt:    inv.UpdatedAt,
		Version:      inv.Version,
	}
}

// ToPaymentResponse converts a domain PaymentRecord to PaymentResponse
func ToPaymentResponse(p *finance.PaymentRecord) PaymentResponse {
	return PaymentResponse{
		ID:                    p.ID,
		SalesOrderID:          p.SalesOrderID,
		InvoiceID:             p.InvoiceID,
		GoodsIssueNoteID:      p.GoodsIssueNoteID,
		Type:                  p.Type.String(),
		Amount:                p.Amount,
		Status:                p.Status.String(),
		GatewayRef:            p.GatewayRef,
		AppliedAmount:         p.AppliedAmount,
		OverpaidAmount:        p.OverpaidAmount,
		NeedsManualResolution: p.NeedsManualResolution,
		Allocations:           p.Allocations,
		PaidAt:                p.PaidAt,
		FailedAt:              p.FailedAt,
		FailureReason:         p.FailureReason,
		RefundedAt:            p.RefundedAt,
		CreatedAt:             p.CreatedAt,
	}
}

// ToPaymentResponses converts a slice of payments
func ToPaymentResponses(payments []finance.PaymentRecord) []PaymentResponse {
	result := make([]PaymentResponse, len(payments))
	for i := range payments {
		result[i] = ToPaymentResponse(&payments[i])
	}
	return result
}

// ToPaymentResultResponse converts a PaymentResult
func ToPaymentResultResponse(r *PaymentResult) PaymentResultResponse {
	resp := PaymentResultResponse{
		Payment: ToPaymentResponse(r.Payment),
		Applied: r.Applied,
		Excess:  r.Excess,
	}
	if r.Invoice != nil {
		inv := ToInvoiceResponse(r.Invoice)
		resp.Invoice = &inv
	}
	return resp
}

// ToDebtResponse converts a domain CustomerDebt to DebtResponse
func ToDebtResponse(d *finance.CustomerDebt, now time.Time) DebtResponse {
	return DebtResponse{
		ID:             d.ID,
		SalesOrderID:   d.SalesOrderID,
		Status:         d.Status.String(),
		TotalAmount:    d.TotalAmount,
		TotalPaid:      d.TotalPaid,
		DebtAmount:     d.DebtAmount,
		DueDate:        d.DueDate,
		DaysOverdue:    d.DaysOverdue(now),
		OverdueSince:   d.OverdueSince,
		BadDebtAt:      d.BadDebtAt,
		SettledAt:      d.SettledAt,
		DisabledAt:     d.DisabledAt,
		DisabledReason: d.DisabledReason,
		UpdatedAt:      d.UpdatedAt,
	}
}

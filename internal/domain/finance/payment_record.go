package finance

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentType distinguishes deposit, remaining-balance and full payments
type PaymentType string

const (
	PaymentTypeDeposit PaymentType = "DEPOSIT"
	PaymentTypeRemain  PaymentType = "REMAIN"
	PaymentTypeFull    PaymentType = "FULL"
)

// IsValid checks if the type is a valid PaymentType
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeDeposit, PaymentTypeRemain, PaymentTypeFull:
		return true
	}
	return false
}

// String returns the string representation of PaymentType
func (t PaymentType) String() string {
	return string(t)
}

// IsDeposit returns true for deposit payments
func (t PaymentType) IsDeposit() bool {
	return t == PaymentTypeDeposit
}

// PaymentStatus represents the status of a payment record
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusSuccess  PaymentStatus = "SUCCESS"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Transitions are one-way except SUCCESS to REFUNDED.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return target == PaymentStatusSuccess || target == PaymentStatusFailed
	case PaymentStatusSuccess:
		return target == PaymentStatusRefunded
	case PaymentStatusFailed, PaymentStatusRefunded:
		return false
	}
	return false
}

// PaymentRecord is one payment received for a sales order, keyed by its gateway reference
type PaymentRecord struct {
	shared.BaseAggregateRoot
	SalesOrderID     uuid.UUID
	InvoiceID        *uuid.UUID
	GoodsIssueNoteID *uuid.UUID
	Type             PaymentType
	Amount           decimal.Decimal
	Status           PaymentStatus
	GatewayRef       string
	AppliedAmount    decimal.Decimal
	OverpaidAmount   decimal.Decimal
	// NeedsManualResolution is set when part of the payment could not be placed
	NeedsManualResolution bool
	Allocations           []PaymentAllocation
	PaidAt                *time.Time
	FailedAt              *time.Time
	FailureReason         string
	RefundedAt            *time.Time
}

// NewPaymentRecord creates a pending payment record
func NewPaymentRecord(salesOrderID uuid.UUID, paymentType PaymentType, amount decimal.Decimal, gatewayRef string) (*PaymentRecord, error) {
	if salesOrderID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_SALES_ORDER", "sales order ID cannot be empty")
	}
	if !paymentType.IsValid() {
		return nil, shared.NewValidationError("INVALID_PAYMENT_TYPE", fmt.Sprintf("unknown payment type %q", paymentType))
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "payment amount must be positive")
	}
	ref := strings.TrimSpace(gatewayRef)
	if ref == "" {
		return nil, shared.NewValidationError("INVALID_GATEWAY_REF", "gateway reference is required")
	}

	return &PaymentRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SalesOrderID:      salesOrderID,
		Type:              paymentType,
		Amount:            amount,
		Status:            PaymentStatusPending,
		GatewayRef:        ref,
		AppliedAmount:     decimal.Zero,
		OverpaidAmount:    decimal.Zero,
		Allocations:       make([]PaymentAllocation, 0),
	}, nil
}

// TargetNote directs a remain or full payment at a single goods issue note
func (p *PaymentRecord) TargetNote(noteID uuid.UUID) error {
	if p.Type.IsDeposit() {
		return shared.NewValidationError("INVALID_TARGET", "deposit payments cannot target a goods issue note")
	}
	p.GoodsIssueNoteID = &noteID
	return nil
}

func (p *PaymentRecord) transition(target PaymentStatus) error {
	if !p.Status.CanTransitionTo(target) {
		return shared.NewStateConflictError("payment", p.Status, target)
	}
	p.Status = target
	p.Touch()
	return nil
}

// MarkSucceeded records a confirmed payment and where its money went
func (p *PaymentRecord) MarkSucceeded(invoiceID *uuid.UUID, allocations []PaymentAllocation, applied, overpaid decimal.Decimal) error {
	if err := p.transition(PaymentStatusSuccess); err != nil {
		return err
	}
	now := time.Now()
	p.PaidAt = &now
	p.InvoiceID = invoiceID
	p.Allocations = append([]PaymentAllocation(nil), allocations...)
	p.AppliedAmount = applied
	p.OverpaidAmount = overpaid
	p.NeedsManualResolution = overpaid.IsPositive()

	p.AddDomainEvent(NewPaymentAppliedEvent(p))
	if p.NeedsManualResolution {
		p.AddDomainEvent(NewPaymentOverpaidEvent(p))
	}
	return nil
}

// MarkFailed records a gateway failure
func (p *PaymentRecord) MarkFailed(reason string) error {
	if err := p.transition(PaymentStatusFailed); err != nil {
		return err
	}
	now := time.Now()
	p.FailedAt = &now
	p.FailureReason = reason
	return nil
}

// MarkRefunded records the refund of a successful payment.
// Callers reverse the payment's allocations in the same transaction.
func (p *PaymentRecord) MarkRefunded() error {
	if err := p.transition(PaymentStatusRefunded); err != nil {
		return err
	}
	now := time.Now()
	p.RefundedAt = &now
	p.NeedsManualResolution = false
	p.AddDomainEvent(NewPaymentRefundedEvent(p))
	return nil
}

// IsApplied returns true if the payment has taken effect at some point
func (p *PaymentRecord) IsApplied() bool {
	return p.Status == PaymentStatusSuccess || p.Status == PaymentStatusRefunded
}

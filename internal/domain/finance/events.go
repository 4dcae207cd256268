package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeInvoice      = "Invoice"
	AggregateTypePayment      = "PaymentRecord"
	AggregateTypeCustomerDebt = "CustomerDebt"
)

// Event type constants
const (
	EventTypeInvoiceAggregated = "InvoiceAggregated"
	EventTypePaymentApplied    = "PaymentApplied"
	EventTypePaymentOverpaid   = "PaymentOverpaid"
	EventTypePaymentRefunded   = "PaymentRefunded"
	EventTypeDebtStatusChanged = "DebtStatusChanged"
)

// InvoiceAggregatedEvent is raised when notes are added to an invoice
type InvoiceAggregatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID    uuid.UUID       `json:"invoice_id"`
	SalesOrderID uuid.UUID       `json:"sales_order_id"`
	NoteCodes    []string        `json:"note_codes"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalRemain  decimal.Decimal `json:"total_remain"`
}

// NewInvoiceAggregatedEvent creates a new InvoiceAggregatedEvent
func NewInvoiceAggregatedEvent(inv *Invoice, noteCodes []string) *InvoiceAggregatedEvent {
	return &InvoiceAggregatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceAggregated, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		SalesOrderID:    inv.SalesOrderID,
		NoteCodes:       noteCodes,
		TotalAmount:     inv.TotalAmount,
		TotalRemain:     inv.TotalRemain,
	}
}

// EventType returns the event type name
func (e *InvoiceAggregatedEvent) EventType() string { return EventTypeInvoiceAggregated }

// PaymentEvent carries the common payload of payment events
type PaymentEvent struct {
	shared.BaseDomainEvent
	PaymentID    uuid.UUID       `json:"payment_id"`
	SalesOrderID uuid.UUID       `json:"sales_order_id"`
	GatewayRef   string          `json:"gateway_ref"`
	Type         PaymentType     `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
}

func newPaymentEvent(eventType string, p *PaymentRecord) PaymentEvent {
	return PaymentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		SalesOrderID:    p.SalesOrderID,
		GatewayRef:      p.GatewayRef,
		Type:            p.Type,
		Amount:          p.Amount,
	}
}

// PaymentAppliedEvent is raised when a payment succeeds
type PaymentAppliedEvent struct {
	PaymentEvent
	AppliedAmount decimal.Decimal `json:"applied_amount"`
}

// NewPaymentAppliedEvent creates a new PaymentAppliedEvent
func NewPaymentAppliedEvent(p *PaymentRecord) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		PaymentEvent:  newPaymentEvent(EventTypePaymentApplied, p),
		AppliedAmount: p.AppliedAmount,
	}
}

// EventType returns the event type name
func (e *PaymentAppliedEvent) EventType() string { return EventTypePaymentApplied }

// PaymentOverpaidEvent flags a payment for manual resolution
type PaymentOverpaidEvent struct {
	PaymentEvent
	OverpaidAmount decimal.Decimal `json:"overpaid_amount"`
}

// NewPaymentOverpaidEvent creates a new PaymentOverpaidEvent
func NewPaymentOverpaidEvent(p *PaymentRecord) *PaymentOverpaidEvent {
	return &PaymentOverpaidEvent{
		PaymentEvent:   newPaymentEvent(EventTypePaymentOverpaid, p),
		OverpaidAmount: p.OverpaidAmount,
	}
}

// EventType returns the event type name
func (e *PaymentOverpaidEvent) EventType() string { return EventTypePaymentOverpaid }

// PaymentRefundedEvent is raised when a successful payment is refunded
type PaymentRefundedEvent struct {
	PaymentEvent
}

// NewPaymentRefundedEvent creates a new PaymentRefundedEvent
func NewPaymentRefundedEvent(p *PaymentRecord) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{PaymentEvent: newPaymentEvent(EventTypePaymentRefunded, p)}
}

// EventType returns the event type name
func (e *PaymentRefundedEvent) EventType() string { return EventTypePaymentRefunded }

// DebtStatusChangedEvent is raised on every debt transition
type DebtStatusChangedEvent struct {
	shared.BaseDomainEvent
	DebtID       uuid.UUID       `json:"debt_id"`
	SalesOrderID uuid.UUID       `json:"sales_order_id"`
	From         DebtStatus      `json:"from"`
	To           DebtStatus      `json:"to"`
	DebtAmount   decimal.Decimal `json:"debt_amount"`
	ChangedAt    time.Time       `json:"changed_at"`
}

// NewDebtStatusChangedEvent creates a new DebtStatusChangedEvent
func NewDebtStatusChangedEvent(d *CustomerDebt, from DebtStatus, at time.Time) *DebtStatusChangedEvent {
	return &DebtStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDebtStatusChanged, AggregateTypeCustomerDebt, d.ID),
		DebtID:          d.ID,
		SalesOrderID:    d.SalesOrderID,
		From:            from,
		To:              d.Status,
		DebtAmount:      d.DebtAmount,
		ChangedAt:       at,
	}
}

// EventType returns the event type name
func (e *DebtStatusChangedEvent) EventType() string { return EventTypeDebtStatusChanged }

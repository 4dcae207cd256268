package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/shopspring/decimal"
)

// InvoiceDetailRecord is the stored form of one note inside an invoice
type InvoiceDetailRecord struct {
	GoodsIssueNoteID   uuid.UUID       `json:"goods_issue_note_id"`
	GoodsIssueNoteCode string          `json:"goods_issue_note_code"`
	ExportIndex        int             `json:"export_index"`
	GoodsIssueAmount   decimal.Decimal `json:"goods_issue_amount"`
	AllocatedDeposit   decimal.Decimal `json:"allocated_deposit"`
	PaidRemain         decimal.Decimal `json:"paid_remain"`
	TotalPaidForNote   decimal.Decimal `json:"total_paid_for_note"`
	NoteBalance        decimal.Decimal `json:"note_balance"`
}

// InvoiceModel is the persistence model for the Invoice aggregate root.
// Details are kept with the invoice row since they are always loaded and saved together.
type InvoiceModel struct {
	AggregateModel
	Code         string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	SalesOrderID uuid.UUID             `gorm:"type:uuid;not null;uniqueIndex"`
	DueDate      time.Time             `gorm:"index"`
	TotalAmount  decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TotalDeposit decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TotalPaid    decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	TotalRemain  decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Details      []InvoiceDetailRecord `gorm:"type:jsonb;serializer:json;not null"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *finance.Invoice {
	details := make([]finance.InvoiceDetail, len(m.Details))
	for i, d := range m.Details {
		details[i] = finance.InvoiceDetail{
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
	return &finance.Invoice{
		BaseAggregateRoot: m.root(),
		Code:              m.Code,
		SalesOrderID:      m.SalesOrderID,
		DueDate:           m.DueDate,
		TotalAmount:       m.TotalAmount,
		TotalDeposit:      m.TotalDeposit,
		TotalPaid:         m.TotalPaid,
		TotalRemain:       m.TotalRemain,
		Details:           details,
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *finance.Invoice) {
	m.setRoot(inv.BaseAggregateRoot)
	m.Code = inv.Code
	m.SalesOrderID = inv.SalesOrderID
	m.DueDate = inv.DueDate
	m.TotalAmount = inv.TotalAmount
	m.TotalDeposit = inv.TotalDeposit
	m.TotalPaid = inv.TotalPaid
	m.TotalRemain = inv.TotalRemain
	m.Details = make([]InvoiceDetailRecord, len(inv.Details))
	for i, d := range inv.Details {
		m.Details[i] = InvoiceDetailRecord{
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
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *finance.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentRecordModel is the persistence model for the PaymentRecord aggregate root.
// gateway_ref is unique: a second insert with the same reference is a duplicate payment.
type PaymentRecordModel struct {
	AggregateModel
	SalesOrderID          uuid.UUID                   `gorm:"type:uuid;not null;index"`
	InvoiceID             *uuid.UUID                  `gorm:"type:uuid;index"`
	GoodsIssueNoteID      *uuid.UUID                  `gorm:"type:uuid"`
	Type                  string                      `gorm:"type:varchar(20);not null"`
	Amount                decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	Status                string                      `gorm:"type:varchar(20);not null;index"`
	GatewayRef            string                      `gorm:"type:varchar(100);not null;uniqueIndex"`
	AppliedAmount         decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	OverpaidAmount        decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	NeedsManualResolution bool                        `gorm:"not null;default:false"`
	Allocations           []finance.PaymentAllocation `gorm:"type:jsonb;serializer:json"`
	PaidAt                *time.Time
	FailedAt              *time.Time
	FailureReason         string `gorm:"type:varchar(500)"`
	RefundedAt            *time.Time
}

// TableName returns the table name for GORM
func (PaymentRecordModel) TableName() string {
	return "payment_records"
}

// ToDomain converts the persistence model to a domain PaymentRecord
func (m *PaymentRecordModel) ToDomain() *finance.PaymentRecord {
	allocations := make([]finance.PaymentAllocation, len(m.Allocations))
	copy(allocations, m.Allocations)
	return &finance.PaymentRecord{
		BaseAggregateRoot:     m.root(),
		SalesOrderID:          m.SalesOrderID,
		InvoiceID:             m.InvoiceID,
		GoodsIssueNoteID:      m.GoodsIssueNoteID,
		Type:                  finance.PaymentType(m.Type),
		Amount:                m.Amount,
		Status:                finance.PaymentStatus(m.Status),
		GatewayRef:            m.GatewayRef,
		AppliedAmount:         m.AppliedAmount,
		OverpaidAmount:        m.OverpaidAmount,
		NeedsManualResolution: m.NeedsManualResolution,
		Allocations:           allocations,
		PaidAt:                m.PaidAt,
		FailedAt:              m.FailedAt,
		FailureReason:         m.FailureReason,
		RefundedAt:            m.RefundedAt,
	}
}

// FromDomain populates the persistence model from a domain PaymentRecord
func (m *PaymentRecordModel) FromDomain(p *finance.PaymentRecord) {
	m.setRoot(p.BaseAggregateRoot)
	m.SalesOrderID = p.SalesOrderID
	m.InvoiceID = p.InvoiceID
	m.GoodsIssueNoteID = p.GoodsIssueNoteID
	m.Type = string(p.Type)
	m.Amount = p.Amount
	m.Status = string(p.Status)
	m.GatewayRef = p.GatewayRef
	m.AppliedAmount = p.AppliedAmount
	m.OverpaidAmount = p.OverpaidAmount
	m.NeedsManualResolution = p.NeedsManualResolution
	m.Allocations = append([]finance.PaymentAllocation(nil), p.Allocations...)
	m.PaidAt = p.PaidAt
	m.FailedAt = p.FailedAt
	m.FailureReason = p.FailureReason
	m.RefundedAt = p.RefundedAt
}

// PaymentRecordModelFromDomain creates a new persistence model from a domain PaymentRecord
func PaymentRecordModelFromDomain(p *finance.PaymentRecord) *PaymentRecordModel {
	m := &PaymentRecordModel{}
	m.FromDomain(p)
	return m
}

// CustomerDebtModel is the persistence model for the CustomerDebt aggregate root
type CustomerDebtModel struct {
	AggregateModel
	SalesOrderID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_customer_debts_open_sales_order_id,where:status <> 'NO_DEBT'"`
	Status         string          `gorm:"type:varchar(20);not null;index"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalPaid      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DebtAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DueDate        time.Time       `gorm:"not null;index"`
	OverdueSince   *time.Time
	BadDebtAt      *time.Time
	SettledAt      *time.Time
	DisabledAt     *time.Time
	DisabledReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (CustomerDebtModel) TableName() string {
	return "customer_debts"
}

// ToDomain converts the persistence model to a domain CustomerDebt
func (m *CustomerDebtModel) ToDomain() *finance.CustomerDebt {
	return &finance.CustomerDebt{
		BaseAggregateRoot: m.root(),
		SalesOrderID:      m.SalesOrderID,
		Status:            finance.DebtStatus(m.Status),
		TotalAmount:       m.TotalAmount,
		TotalPaid:         m.TotalPaid,
		DebtAmount:        m.DebtAmount,
		DueDate:           m.DueDate,
		OverdueSince:      m.OverdueSince,
		BadDebtAt:         m.BadDebtAt,
		SettledAt:         m.SettledAt,
		DisabledAt:        m.DisabledAt,
		DisabledReason:    m.DisabledReason,
	}
}

// FromDomain populates the persistence model from a domain CustomerDebt
func (m *CustomerDebtModel) FromDomain(d *finance.CustomerDebt) {
	m.setRoot(d.BaseAggregateRoot)
	m.SalesOrderID = d.SalesOrderID
	m.Status = string(d.Status)
	m.TotalAmount = d.TotalAmount
	m.TotalPaid = d.TotalPaid
	m.DebtAmount = d.DebtAmount
	m.DueDate = d.DueDate
	m.OverdueSince = d.OverdueSince
	m.BadDebtAt = d.BadDebtAt
	m.SettledAt = d.SettledAt
	m.DisabledAt = d.DisabledAt
	m.DisabledReason = d.DisabledReason
}

// CustomerDebtModelFromDomain creates a new persistence model from a domain CustomerDebt
func CustomerDebtModelFromDomain(d *finance.CustomerDebt) *CustomerDebtModel {
	m := &CustomerDebtModel{}
	m.FromDomain(d)
	return m
}

package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindBySalesOrder returns the invoice of a sales order
	FindBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) (*Invoice, error)

	Create(ctx context.Context, invoice *Invoice) error

	// SaveWithLock updates an invoice, failing with a concurrency conflict
	// if the stored version is not invoice.Version
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}

// PaymentRecordRepository defines the interface for payment persistence
type PaymentRecordRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentRecord, error)

	FindByGatewayRef(ctx context.Context, gatewayRef string) (*PaymentRecord, error)

	FindBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) ([]PaymentRecord, error)

	// SumSucceeded sums the amounts of SUCCESS payments of a type for a sales order
	SumSucceeded(ctx context.Context, salesOrderID uuid.UUID, paymentType PaymentType) (decimal.Decimal, error)

	// Create inserts a payment; a duplicate gateway reference is a DuplicatePayment error
	Create(ctx context.Context, payment *PaymentRecord) error

	SaveWithLock(ctx context.Context, payment *PaymentRecord) error
}

// CustomerDebtRepository defines the interface for customer debt persistence
type CustomerDebtRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CustomerDebt, error)

	FindBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) (*CustomerDebt, error)

	// FindOpen lists debts that are not NO_DEBT or DISABLE, oldest due date first
	FindOpen(ctx context.Context, limit int) ([]CustomerDebt, error)

	Create(ctx context.Context, debt *CustomerDebt) error

	SaveWithLock(ctx context.Context, debt *CustomerDebt) error
}

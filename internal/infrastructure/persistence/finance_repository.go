package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("invoice", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySalesOrder finds the invoice of a sales order
func (r *GormInvoiceRepository) FindBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) (*finance.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).Where("sales_order_id = ?", salesOrderID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("invoice", salesOrderID)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a new invoice. A second invoice for the same sales order is a conflict.
func (r *GormInvoiceRepository) Create(ctx context.Context, invoice *finance.Invoice) error {
	if err := r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(invoice)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewConcurrencyConflictError("sales order already has an invoice").WithCause(err)
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *finance.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	model.Version = invoice.Version + 1
	if err := updateWithVersion(ctx, r.db, model, invoice.Version, "invoice"); err != nil {
		return err
	}
	invoice.Version = model.Version
	return nil
}

// GormPaymentRecordRepository implements PaymentRecordRepository using GORM
type GormPaymentRecordRepository struct {
	db *gorm.DB
}

// NewGormPaymentRecordRepository creates a new GormPaymentRecordRepository
func NewGormPaymentRecordRepository(db *gorm.DB) *GormPaymentRecordRepository {
	return &GormPaymentRecordRepository{db: db}
}

// FindByID finds a payment record by its ID
func (r *GormPaymentRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.PaymentRecord, error) {
	var model models.PaymentRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("payment", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByGatewayRef finds a payment record by its gateway reference
func (r *GormPaymentRecordRepository) FindByGatewayRef(ctx context.Context, gatewayRef string) (*finance.PaymentRecord, error) {
	var model models.PaymentRecordModel
	if err := r.db.WithContext(ctx).Where("gateway_ref = ?", gatewayRef).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("payment", gatewayRef)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySalesOrder lists the payments of a sales order, oldest first
func (r *GormPaymentRecordRepository) FindBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) ([]finance.PaymentRecord, error) {
	var paymentModels []models.PaymentRecordModel
	if err := r.db.WithContext(ctx).
		Where("sales_order_id = ?", salesOrderID).
		Order("created_at ASC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]finance.PaymentRecord, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments, nil
}

// SumSucceeded totals the successful payments of one type for a sales order
func (r *GormPaymentRecordRepository) SumSucceeded(ctx context.Context, salesOrderID uuid.UUID, paymentType finance.PaymentType) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentRecordModel{}).
		Where("sales_order_id = ? AND type = ? AND status = ?",
			salesOrderID, string(paymentType), string(finance.PaymentStatusSuccess)).
		Select("SUM(amount)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// Create inserts a payment record. The gateway_ref unique index is the final
// guard against a replayed gateway confirmation.
func (r *GormPaymentRecordRepository) Create(ctx context.Context, payment *finance.PaymentRecord) error {
	if err := r.db.WithContext(ctx).Create(models.PaymentRecordModelFromDomain(payment)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewDomainError(shared.KindDuplicatePayment, "DUPLICATE_PAYMENT",
				"payment with gateway reference "+payment.GatewayRef+" already recorded").
				WithDetail("gateway_ref", payment.GatewayRef)
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormPaymentRecordRepository) SaveWithLock(ctx context.Context, payment *finance.PaymentRecord) error {
	model := models.PaymentRecordModelFromDomain(payment)
	model.Version = payment.Version + 1
	if err := updateWithVersion(ctx, r.db, model, payment.Version, "payment"); err != nil {
		return err
	}
	payment.Version = model.Version
	return nil
}

// GormCustomerDebtRepository implements CustomerDebtRepository using GORM
type GormCustomerDebtRepository struct {
	db *gorm.DB
}

// NewGormCustomerDebtRepository creates a new GormCustomerDebtRepository
func NewGormCustomerDebtRepository(db *gorm.DB) *GormCustomerDebtRepository {
	return &GormCustomerDebtRepository{db: db}
}

// FindByID finds a customer debt by its ID
func (r *GormCustomerDebtRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.CustomerDebt, error) {
	var model models.CustomerDebtModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("customer debt", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// settledLast orders an order's unsettled debt ahead of its settled history
var settledLast = "CASE WHEN status = '" + string(finance.DebtStatusNoDebt) + "' THEN 1 ELSE 0 END"

// FindBySalesOrder finds the current debt record of a sales order: the
// unsettled one if any, otherwise the most recently created.
func (r *GormCustomerDebtRepository) FindBySalesOrder(ctx context.Context, salesOrderID uuid.UUID) (*finance.CustomerDebt, error) {
	var model models.CustomerDebtModel
	err := r.db.WithContext(ctx).
		Where("sales_order_id = ?", salesOrderID).
		Order(settledLast).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("customer debt", salesOrderID)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindOpen lists non-terminal debts, earliest due date first
func (r *GormCustomerDebtRepository) FindOpen(ctx context.Context, limit int) ([]finance.CustomerDebt, error) {
	query := r.db.WithContext(ctx).
		Where("status NOT IN ?", []string{string(finance.DebtStatusNoDebt), string(finance.DebtStatusDisable)}).
		Order("due_date ASC").
		Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var debtModels []models.CustomerDebtModel
	if err := query.Find(&debtModels).Error; err != nil {
		return nil, err
	}
	debts := make([]finance.CustomerDebt, len(debtModels))
	for i := range debtModels {
		debts[i] = *debtModels[i].ToDomain()
	}
	return debts, nil
}

// Create inserts a new debt record
func (r *GormCustomerDebtRepository) Create(ctx context.Context, debt *finance.CustomerDebt) error {
	if err := r.db.WithContext(ctx).Create(models.CustomerDebtModelFromDomain(debt)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.NewConcurrencyConflictError("sales order already has an unsettled debt record").WithCause(err)
		}
		return err
	}
	return nil
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormCustomerDebtRepository) SaveWithLock(ctx context.Context, debt *finance.CustomerDebt) error {
	model := models.CustomerDebtModelFromDomain(debt)
	model.Version = debt.Version + 1
	if err := updateWithVersion(ctx, r.db, model, debt.Version, "customer debt"); err != nil {
		return err
	}
	debt.Version = model.Version
	return nil
}

var (
	_ finance.InvoiceRepository       = (*GormInvoiceRepository)(nil)
	_ finance.PaymentRecordRepository = (*GormPaymentRecordRepository)(nil)
	_ finance.CustomerDebtRepository  = (*GormCustomerDebtRepository)(nil)
)

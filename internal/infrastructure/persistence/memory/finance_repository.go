package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

type invoiceRepository struct {
	tx *transaction
}

func (r *invoiceRepository) FindByID(_ context.Context, id uuid.UUID) (*finance.Invoice, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, shared.NewNotFoundError("invoice", id)
	}
	return cloneInvoice(inv), nil
}

func (r *invoiceRepository) FindBySalesOrder(_ context.Context, salesOrderID uuid.UUID) (*finance.Invoice, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.invoices {
		if inv.SalesOrderID == salesOrderID {
			return cloneInvoice(inv), nil
		}
	}
	return nil, shared.NewNotFoundError("invoice", salesOrderID)
}

func (r *invoiceRepository) Create(_ context.Context, invoice *finance.Invoice) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.SalesOrderID == invoice.SalesOrderID {
			return shared.NewConcurrencyConflictError("sales order already has an invoice")
		}
	}
	s.invoices[invoice.ID] = cloneInvoice(invoice)
	r.tx.record(func() { delete(s.invoices, invoice.ID) })
	return nil
}

func (r *invoiceRepository) SaveWithLock(_ context.Context, invoice *finance.Invoice) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, ok := s.invoices[invoice.ID]
	if !ok {
		return shared.NewNotFoundError("invoice", invoice.ID)
	}
	if previous.Version != invoice.Version {
		return shared.NewConcurrencyConflictError("invoice was modified by another transaction")
	}
	invoice.Version++
	s.invoices[invoice.ID] = cloneInvoice(invoice)
	r.tx.record(func() { s.invoices[invoice.ID] = previous })
	return nil
}

type paymentRecordRepository struct {
	tx *transaction
}

func (r *paymentRecordRepository) FindByID(_ context.Context, id uuid.UUID) (*finance.PaymentRecord, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, shared.NewNotFoundError("payment", id)
	}
	return clonePayment(p), nil
}

func (r *paymentRecordRepository) FindByGatewayRef(_ context.Context, gatewayRef string) (*finance.PaymentRecord, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.payments {
		if p.GatewayRef == gatewayRef {
			return clonePayment(p), nil
		}
	}
	return nil, shared.NewNotFoundError("payment", gatewayRef)
}

func (r *paymentRecordRepository) FindBySalesOrder(_ context.Context, salesOrderID uuid.UUID) ([]finance.PaymentRecord, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]finance.PaymentRecord, 0)
	for _, p := range s.payments {
		if p.SalesOrderID == salesOrderID {
			result = append(result, *clonePayment(p))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *paymentRecordRepository) SumSucceeded(_ context.Context, salesOrderID uuid.UUID, paymentType finance.PaymentType) (decimal.Decimal, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, p := range s.payments {
		if p.SalesOrderID == salesOrderID && p.Type == paymentType && p.Status == finance.PaymentStatusSuccess {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (r *paymentRecordRepository) Create(_ context.Context, payment *finance.PaymentRecord) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.GatewayRef == payment.GatewayRef {
			return shared.NewDomainError(shared.KindDuplicatePayment, "DUPLICATE_PAYMENT",
				"payment already recorded for gateway reference "+payment.GatewayRef)
		}
	}
	s.payments[payment.ID] = clonePayment(payment)
	r.tx.record(func() { delete(s.payments, payment.ID) })
	return nil
}

func (r *paymentRecordRepository) SaveWithLock(_ context.Context, payment *finance.PaymentRecord) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, ok := s.payments[payment.ID]
	if !ok {
		return shared.NewNotFoundError("payment", payment.ID)
	}
	if previous.Version != payment.Version {
		return shared.NewConcurrencyConflictError("payment was modified by another transaction")
	}
	payment.Version++
	s.payments[payment.ID] = clonePayment(payment)
	r.tx.record(func() { s.payments[payment.ID] = previous })
	return nil
}

type customerDebtRepository struct {
	tx *transaction
}

func (r *customerDebtRepository) FindByID(_ context.Context, id uuid.UUID) (*finance.CustomerDebt, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.debts[id]
	if !ok {
		return nil, shared.NewNotFoundError("customer debt", id)
	}
	return cloneDebt(d), nil
}

func (r *customerDebtRepository) FindBySalesOrder(_ context.Context, salesOrderID uuid.UUID) (*finance.CustomerDebt, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	var current *finance.CustomerDebt
	for _, d := range s.debts {
		if d.SalesOrderID == salesOrderID && (current == nil || currentDebtBefore(d, current)) {
			current = d
		}
	}
	if current == nil {
		return nil, shared.NewNotFoundError("customer debt", salesOrderID)
	}
	return cloneDebt(current), nil
}

// currentDebtBefore ranks an unsettled debt ahead of settled ones, then newer ahead of older
func currentDebtBefore(a, b *finance.CustomerDebt) bool {
	aSettled, bSettled := a.Status == finance.DebtStatusNoDebt, b.Status == finance.DebtStatusNoDebt
	if aSettled != bSettled {
		return bSettled
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (r *customerDebtRepository) FindOpen(_ context.Context, limit int) ([]finance.CustomerDebt, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]finance.CustomerDebt, 0)
	for _, d := range s.debts {
		if !d.Status.IsTerminal() {
			result = append(result, *cloneDebt(d))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DueDate.Before(result[j].DueDate)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *customerDebtRepository) Create(_ context.Context, debt *finance.CustomerDebt) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.debts {
		if d.SalesOrderID == debt.SalesOrderID && d.Status != finance.DebtStatusNoDebt {
			return shared.NewConcurrencyConflictError("sales order already has an unsettled debt record")
		}
	}
	s.debts[debt.ID] = cloneDebt(debt)
	r.tx.record(func() { delete(s.debts, debt.ID) })
	return nil
}

func (r *customerDebtRepository) SaveWithLock(_ context.Context, debt *finance.CustomerDebt) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, ok := s.debts[debt.ID]
	if !ok {
		return shared.NewNotFoundError("customer debt", debt.ID)
	}
	if previous.Version != debt.Version {
		return shared.NewConcurrencyConflictError("customer debt was modified by another transaction")
	}
	debt.Version++
	s.debts[debt.ID] = cloneDebt(debt)
	r.tx.record(func() { s.debts[debt.ID] = previous })
	return nil
}

var (
	_ finance.InvoiceRepository       = (*invoiceRepository)(nil)
	_ finance.PaymentRecordRepository = (*paymentRecordRepository)(nil)
	_ finance.CustomerDebtRepository  = (*customerDebtRepository)(nil)
)

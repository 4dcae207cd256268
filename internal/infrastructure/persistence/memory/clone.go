package memory

import (
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
)

// The store never shares mutable state with callers: every value goes in and
// comes out as a copy without pending domain events.

func cloneLot(l *inventory.Lot) *inventory.Lot {
	c := *l
	c.ClearDomainEvents()
	return &c
}

func cloneOrder(o *fulfillment.StockExportOrder) *fulfillment.StockExportOrder {
	c := *o
	c.ClearDomainEvents()
	c.Lines = make([]fulfillment.SEOLine, len(o.Lines))
	for i, line := range o.Lines {
		line.Allocations = append([]inventory.AllocationLine(nil), line.Allocations...)
		c.Lines[i] = line
	}
	c.Deductions = append(make([]fulfillment.LotDeduction, 0, len(o.Deductions)), o.Deductions...)
	return &c
}

func cloneInvoice(inv *finance.Invoice) *finance.Invoice {
	c := *inv
	c.ClearDomainEvents()
	c.Details = append(make([]finance.InvoiceDetail, 0, len(inv.Details)), inv.Details...)
	return &c
}

func clonePayment(p *finance.PaymentRecord) *finance.PaymentRecord {
	c := *p
	c.ClearDomainEvents()
	c.Allocations = append(make([]finance.PaymentAllocation, 0, len(p.Allocations)), p.Allocations...)
	return &c
}

func cloneDebt(d *finance.CustomerDebt) *finance.CustomerDebt {
	c := *d
	c.ClearDomainEvents()
	return &c
}

package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
)

type stockExportOrderRepository struct {
	tx *transaction
}

func (r *stockExportOrderRepository) FindByID(_ context.Context, id uuid.UUID) (*fulfillment.StockExportOrder, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, shared.NewNotFoundError("stock export order", id)
	}
	return cloneOrder(o), nil
}

func (r *stockExportOrderRepository) FindByCode(_ context.Context, code string) (*fulfillment.StockExportOrder, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.orders {
		if o.Code == code {
			return cloneOrder(o), nil
		}
	}
	return nil, shared.NewNotFoundError("stock export order", code)
}

func (r *stockExportOrderRepository) FindByStatus(_ context.Context, status fulfillment.SEOStatus, limit int) ([]fulfillment.StockExportOrder, error) {
	return r.filter(func(o *fulfillment.StockExportOrder) bool { return o.Status == status }, limit), nil
}

func (r *stockExportOrderRepository) FindBySalesOrder(_ context.Context, salesOrderID uuid.UUID) ([]fulfillment.StockExportOrder, error) {
	return r.filter(func(o *fulfillment.StockExportOrder) bool { return o.SalesOrderID == salesOrderID }, 0), nil
}

func (r *stockExportOrderRepository) filter(match func(*fulfillment.StockExportOrder) bool, limit int) []fulfillment.StockExportOrder {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]fulfillment.StockExportOrder, 0)
	for _, o := range s.orders {
		if match(o) {
			result = append(result, *cloneOrder(o))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

func (r *stockExportOrderRepository) Create(_ context.Context, order *fulfillment.StockExportOrder) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[order.ID]; exists {
		return shared.NewDomainError(shared.KindStateConflict, "ALREADY_EXISTS", "stock export order already exists")
	}
	for _, o := range s.orders {
		if o.Code == order.Code {
			return shared.NewDomainError(shared.KindStateConflict, "DUPLICATE_CODE", "stock export order code already used: "+order.Code)
		}
	}
	s.orders[order.ID] = cloneOrder(order)
	r.tx.record(func() { delete(s.orders, order.ID) })
	return nil
}

func (r *stockExportOrderRepository) SaveWithLock(_ context.Context, order *fulfillment.StockExportOrder) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, ok := s.orders[order.ID]
	if !ok {
		return shared.NewNotFoundError("stock export order", order.ID)
	}
	if previous.Version != order.Version {
		return shared.NewConcurrencyConflictError("stock export order was modified by another transaction")
	}
	order.Version++
	s.orders[order.ID] = cloneOrder(order)
	r.tx.record(func() { s.orders[order.ID] = previous })
	return nil
}

type goodsIssueNoteRepository struct {
	tx *transaction
}

func (r *goodsIssueNoteRepository) FindByID(_ context.Context, id uuid.UUID) (*fulfillment.GoodsIssueNote, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return nil, shared.NewNotFoundError("goods issue note", id)
	}
	return n, nil
}

func (r *goodsIssueNoteRepository) FindByCode(_ context.Context, code string) (*fulfillment.GoodsIssueNote, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notes {
		if n.Code() == code {
			return n, nil
		}
	}
	return nil, shared.NewNotFoundError("goods issue note", code)
}

func (r *goodsIssueNoteRepository) FindByCodes(_ context.Context, codes []string) ([]*fulfillment.GoodsIssueNote, error) {
	wanted := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		wanted[c] = struct{}{}
	}
	return r.filter(func(n *fulfillment.GoodsIssueNote) bool {
		_, ok := wanted[n.Code()]
		return ok
	}), nil
}

func (r *goodsIssueNoteRepository) FindBySalesOrder(_ context.Context, salesOrderID uuid.UUID) ([]*fulfillment.GoodsIssueNote, error) {
	return r.filter(func(n *fulfillment.GoodsIssueNote) bool { return n.SalesOrderID() == salesOrderID }), nil
}

func (r *goodsIssueNoteRepository) filter(match func(*fulfillment.GoodsIssueNote) bool) []*fulfillment.GoodsIssueNote {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]*fulfillment.GoodsIssueNote, 0)
	for _, n := range s.notes {
		if match(n) {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SalesOrderID() != result[j].SalesOrderID() {
			return result[i].SalesOrderID().String() < result[j].SalesOrderID().String()
		}
		return result[i].ExportIndex() < result[j].ExportIndex()
	})
	return result
}

func (r *goodsIssueNoteRepository) NextExportIndex(_ context.Context, salesOrderID uuid.UUID) (int, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	highest := 0
	for _, n := range s.notes {
		if n.SalesOrderID() == salesOrderID && n.ExportIndex() > highest {
			highest = n.ExportIndex()
		}
	}
	return highest + 1, nil
}

func (r *goodsIssueNoteRepository) Create(_ context.Context, note *fulfillment.GoodsIssueNote) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.SalesOrderID() == note.SalesOrderID() && n.ExportIndex() == note.ExportIndex() {
			return shared.NewConcurrencyConflictError("export index already taken for the sales order").
				WithDetail("export_index", note.ExportIndex())
		}
		if n.Code() == note.Code() {
			return shared.NewConcurrencyConflictError("goods issue note code already taken: " + note.Code())
		}
	}
	s.notes[note.ID()] = note
	r.tx.record(func() { delete(s.notes, note.ID()) })
	return nil
}

var (
	_ fulfillment.StockExportOrderRepository = (*stockExportOrderRepository)(nil)
	_ fulfillment.GoodsIssueNoteRepository   = (*goodsIssueNoteRepository)(nil)
)

package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
)

type lotRepository struct {
	tx *transaction
}

func (r *lotRepository) FindByID(_ context.Context, id uuid.UUID) (*inventory.Lot, error) {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	lot, ok := s.lots[id]
	if !ok {
		return nil, shared.NewNotFoundError("lot", id)
	}
	return cloneLot(lot), nil
}

func (r *lotRepository) FindAvailableByProduct(_ context.Context, productID uuid.UUID) ([]inventory.Lot, error) {
	return r.filter(func(l *inventory.Lot) bool {
		return l.ProductID == productID && l.RemainingQuantity > 0
	}), nil
}

func (r *lotRepository) FindByProduct(_ context.Context, productID uuid.UUID) ([]inventory.Lot, error) {
	return r.filter(func(l *inventory.Lot) bool {
		return l.ProductID == productID
	}), nil
}

func (r *lotRepository) filter(match func(*inventory.Lot) bool) []inventory.Lot {
	s := r.tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]inventory.Lot, 0)
	for _, lot := range s.lots {
		if match(lot) {
			result = append(result, *cloneLot(lot))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ExpiryDate.Equal(result[j].ExpiryDate) {
			return result[i].ExpiryDate.Before(result[j].ExpiryDate)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}

func (r *lotRepository) Save(_ context.Context, lot *inventory.Lot) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, existed := s.lots[lot.ID]
	s.lots[lot.ID] = cloneLot(lot)
	r.tx.record(func() {
		if existed {
			s.lots[lot.ID] = previous
		} else {
			delete(s.lots, lot.ID)
		}
	})
	return nil
}

func (r *lotRepository) DeductIfAvailable(_ context.Context, lotID uuid.UUID, quantity int64) (bool, error) {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return false, shared.NewNotFoundError("lot", lotID)
	}
	if lot.RemainingQuantity < quantity {
		return false, nil
	}
	lot.RemainingQuantity -= quantity
	lot.Version++
	r.tx.record(func() {
		if l, ok := s.lots[lotID]; ok {
			l.RemainingQuantity += quantity
			l.Version++
		}
	})
	return true, nil
}

func (r *lotRepository) Restore(_ context.Context, lotID uuid.UUID, quantity int64) (bool, error) {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots[lotID]
	if !ok {
		return false, shared.NewNotFoundError("lot", lotID)
	}
	if lot.RemainingQuantity+quantity > lot.InitialQuantity {
		return false, nil
	}
	lot.RemainingQuantity += quantity
	lot.Version++
	r.tx.record(func() {
		if l, ok := s.lots[lotID]; ok {
			l.RemainingQuantity -= quantity
			l.Version++
		}
	})
	return true, nil
}

var _ inventory.LotRepository = (*lotRepository)(nil)

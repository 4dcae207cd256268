package inventory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationRequest asks for a quantity of one product
type AllocationRequest struct {
	ProductID  uuid.UUID
	Quantity   int64
	SupplierID *uuid.UUID // optional supplier filter
	// NotExpiredAt excludes lots expiring before this instant when non-zero
	NotExpiredAt time.Time
}

// Validate checks the request shape
func (r AllocationRequest) Validate() error {
	if r.ProductID == uuid.Nil {
		return shared.NewValidationError("INVALID_PRODUCT", "product ID cannot be empty")
	}
	if r.Quantity <= 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "requested quantity must be positive")
	}
	return nil
}

// AllocationLine is one lot's share of a plan
type AllocationLine struct {
	LotID         uuid.UUID
	LotNumber     string
	ProductID     uuid.UUID
	Quantity      int64
	ExpiryDate    time.Time
	UnitSalePrice decimal.Decimal
	// ObservedRemaining is the lot's remaining quantity when the plan was made
	ObservedRemaining int64
}

// Amount returns quantity times unit sale price
func (l AllocationLine) Amount() decimal.Decimal {
	return l.UnitSalePrice.Mul(decimal.NewFromInt(l.Quantity))
}

// AllocationPlan is an ordered FEFO plan for one request
type AllocationPlan struct {
	ProductID uuid.UUID
	Requested int64
	Lines     []AllocationLine
	Shortfall int64
}

// Allocated returns the total quantity the plan takes
func (p *AllocationPlan) Allocated() int64 {
	var total int64
	for _, line := range p.Lines {
		total += line.Quantity
	}
	return total
}

// IsSatisfied returns true if the plan covers the full request
func (p *AllocationPlan) IsSatisfied() bool {
	return p.Shortfall == 0
}

// InsufficientStockError returns the typed shortfall outcome for an unsatisfied plan
func (p *AllocationPlan) InsufficientStockError() *shared.DomainError {
	return shared.NewDomainError(shared.KindInsufficientStock, "INSUFFICIENT_STOCK",
		"available lots cannot cover the requested quantity").
		WithDetail("product_id", p.ProductID.String()).
		WithDetail("requested", p.Requested).
		WithDetail("shortfall", p.Shortfall)
}

// PlanFEFO computes a First-Expire-First-Out plan over lots without mutating them.
// Lots are ordered by expiry date, then input date, then lot ID, and consumed greedily.
func PlanFEFO(req AllocationRequest, lots []Lot) (*AllocationPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	candidates := filterCandidateLots(req, lots)
	sortFEFO(candidates)

	plan := &AllocationPlan{
		ProductID: req.ProductID,
		Requested: req.Quantity,
		Lines:     make([]AllocationLine, 0, len(candidates)),
	}

	remaining := req.Quantity
	for _, lot := range candidates {
		if remaining == 0 {
			break
		}
		take := min(remaining, lot.RemainingQuantity)
		plan.Lines = append(plan.Lines, AllocationLine{
			LotID:             lot.ID,
			LotNumber:         lot.LotNumber,
			ProductID:         lot.ProductID,
			Quantity:          take,
			ExpiryDate:        lot.ExpiryDate,
			UnitSalePrice:     lot.UnitSalePrice,
			ObservedRemaining: lot.RemainingQuantity,
		})
		remaining -= take
	}
	plan.Shortfall = remaining

	return plan, nil
}

func filterCandidateLots(req AllocationRequest, lots []Lot) []Lot {
	result := make([]Lot, 0, len(lots))
	for _, lot := range lots {
		if lot.ProductID != req.ProductID || !lot.HasStock() {
			continue
		}
		if req.SupplierID != nil && lot.SupplierID != *req.SupplierID {
			continue
		}
		if !req.NotExpiredAt.IsZero() && lot.IsExpiredAt(req.NotExpiredAt) {
			continue
		}
		result = append(result, lot)
	}
	return result
}

func sortFEFO(lots []Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].ExpiryDate.Equal(lots[j].ExpiryDate) {
			return lots[i].ExpiryDate.Before(lots[j].ExpiryDate)
		}
		if !lots[i].InputDate.Equal(lots[j].InputDate) {
			return lots[i].InputDate.Before(lots[j].InputDate)
		}
		return lots[i].ID.String() < lots[j].ID.String()
	})
}

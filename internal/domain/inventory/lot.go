package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Lot is a dated batch of a product with its own expiry and remaining quantity.
// RemainingQuantity is only changed by allocation commits and their rollback.
type Lot struct {
	shared.BaseAggregateRoot
	ProductID         uuid.UUID
	SupplierID        uuid.UUID
	LotNumber         string
	ExpiryDate        time.Time
	InputDate         time.Time
	UnitInputPrice    decimal.Decimal
	UnitSalePrice     decimal.Decimal
	InitialQuantity   int64
	RemainingQuantity int64
}

// NewLotParams carries the attributes of a received lot
type NewLotParams struct {
	ProductID      uuid.UUID
	SupplierID     uuid.UUID
	LotNumber      string
	ExpiryDate     time.Time
	InputDate      time.Time
	UnitInputPrice decimal.Decimal
	UnitSalePrice  decimal.Decimal
	Quantity       int64
}

// NewLot creates a new lot holding its full received quantity
func NewLot(p NewLotParams) (*Lot, error) {
	if p.ProductID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "product ID cannot be empty")
	}
	if strings.TrimSpace(p.LotNumber) == "" {
		return nil, shared.NewValidationError("INVALID_LOT_NUMBER", "lot number cannot be empty")
	}
	if p.Quantity <= 0 {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "lot quantity must be positive")
	}
	if p.ExpiryDate.IsZero() {
		return nil, shared.NewValidationError("INVALID_EXPIRY", "expiry date is required")
	}
	if p.UnitInputPrice.IsNegative() || p.UnitSalePrice.IsNegative() {
		return nil, shared.NewValidationError("INVALID_PRICE", "unit prices cannot be negative")
	}
	inputDate := p.InputDate
	if inputDate.IsZero() {
		inputDate = time.Now()
	}
	if p.ExpiryDate.Before(inputDate) {
		return nil, shared.NewValidationError("INVALID_EXPIRY", "expiry date cannot be before input date")
	}

	lot := &Lot{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         p.ProductID,
		SupplierID:        p.SupplierID,
		LotNumber:         strings.TrimSpace(p.LotNumber),
		ExpiryDate:        p.ExpiryDate,
		InputDate:         inputDate,
		UnitInputPrice:    p.UnitInputPrice,
		UnitSalePrice:     p.UnitSalePrice,
		InitialQuantity:   p.Quantity,
		RemainingQuantity: p.Quantity,
	}
	lot.AddDomainEvent(NewLotReceivedEvent(lot))
	return lot, nil
}

// Deduct takes quantity out of the lot.
// It never lets RemainingQuantity drop below zero.
func (l *Lot) Deduct(quantity int64) error {
	if quantity <= 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "deduct quantity must be positive")
	}
	if quantity > l.RemainingQuantity {
		return shared.NewDomainError(shared.KindInsufficientStock, "INSUFFICIENT_STOCK",
			fmt.Sprintf("lot %s has %d remaining, cannot deduct %d", l.LotNumber, l.RemainingQuantity, quantity)).
			WithDetail("lot_id", l.ID.String())
	}
	l.RemainingQuantity -= quantity
	l.Touch()
	return nil
}

// Restore returns previously deducted quantity to the lot
func (l *Lot) Restore(quantity int64) error {
	if quantity <= 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "restore quantity must be positive")
	}
	if l.RemainingQuantity+quantity > l.InitialQuantity {
		return shared.NewDomainError(shared.KindStateConflict, "RESTORE_EXCEEDS_INITIAL",
			fmt.Sprintf("restoring %d to lot %s would exceed its initial quantity %d", quantity, l.LotNumber, l.InitialQuantity))
	}
	l.RemainingQuantity += quantity
	l.Touch()
	return nil
}

// DeductedQuantity returns the cumulative quantity taken from the lot
func (l *Lot) DeductedQuantity() int64 {
	return l.InitialQuantity - l.RemainingQuantity
}

// HasStock returns true if the lot has remaining quantity
func (l *Lot) HasStock() bool {
	return l.RemainingQuantity > 0
}

// IsExpiredAt returns true if the lot expires before t
func (l *Lot) IsExpiredAt(t time.Time) bool {
	return l.ExpiryDate.Before(t)
}

// DaysUntilExpiry returns the whole days from now until expiry, negative once expired
func (l *Lot) DaysUntilExpiry() int {
	return int(time.Until(l.ExpiryDate).Hours() / 24)
}

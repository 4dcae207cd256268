package inventory

import (
	"context"

	"github.com/google/uuid"
)

// LotRepository defines the interface for lot persistence
type LotRepository interface {
	// FindByID finds a lot by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Lot, error)

	// FindAvailableByProduct returns lots of a product with remaining quantity > 0
	FindAvailableByProduct(ctx context.Context, productID uuid.UUID) ([]Lot, error)

	// FindByProduct returns every lot of a product, including exhausted ones
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]Lot, error)

	// Save creates or updates a lot
	Save(ctx context.Context, lot *Lot) error

	// DeductIfAvailable atomically subtracts quantity when the lot still holds
	// at least that much. Returns false without changing anything otherwise.
	DeductIfAvailable(ctx context.Context, lotID uuid.UUID, quantity int64) (bool, error)

	// Restore atomically adds quantity back, never beyond the initial quantity.
	// Returns false without changing anything if the restore would exceed it.
	Restore(ctx context.Context, lotID uuid.UUID, quantity int64) (bool, error)
}

package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeLot = "Lot"

// Event type constants
const (
	EventTypeLotReceived = "LotReceived"
)

// LotReceivedEvent is raised when new stock enters inventory.
// Backorder re-checks listen for it.
type LotReceivedEvent struct {
	shared.BaseDomainEvent
	LotID      uuid.UUID `json:"lot_id"`
	LotNumber  string    `json:"lot_number"`
	ProductID  uuid.UUID `json:"product_id"`
	Quantity   int64     `json:"quantity"`
	ExpiryDate time.Time `json:"expiry_date"`
}

// NewLotReceivedEvent creates a new LotReceivedEvent
func NewLotReceivedEvent(lot *Lot) *LotReceivedEvent {
	return &LotReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLotReceived, AggregateTypeLot, lot.ID),
		LotID:           lot.ID,
		LotNumber:       lot.LotNumber,
		ProductID:       lot.ProductID,
		Quantity:        lot.InitialQuantity,
		ExpiryDate:      lot.ExpiryDate,
	}
}

// EventType returns the event type name
func (e *LotReceivedEvent) EventType() string {
	return EventTypeLotReceived
}

package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypeStockExportOrder = "StockExportOrder"
	AggregateTypeGoodsIssueNote   = "GoodsIssueNote"
)

// Event type constants
const (
	EventTypeSEOSubmitted          = "SEOSubmitted"
	EventTypeSEOReady              = "SEOReady"
	EventTypeSEONotEnough          = "SEONotEnough"
	EventTypeSEOAwaiting           = "SEOAwaiting"
	EventTypeSEOExported           = "SEOExported"
	EventTypeSEOCancelled          = "SEOCancelled"
	EventTypeGoodsIssueNoteCreated = "GoodsIssueNoteCreated"
)

// SEOStatusEvent carries the common payload of stock export order transitions
type SEOStatusEvent struct {
	shared.BaseDomainEvent
	StockExportOrderID uuid.UUID `json:"stock_export_order_id"`
	Code               string    `json:"code"`
	SalesOrderID       uuid.UUID `json:"sales_order_id"`
	Status             SEOStatus `json:"status"`
}

func newSEOStatusEvent(eventType string, o *StockExportOrder) SEOStatusEvent {
	return SEOStatusEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(eventType, AggregateTypeStockExportOrder, o.ID),
		StockExportOrderID: o.ID,
		Code:               o.Code,
		SalesOrderID:       o.SalesOrderID,
		Status:             o.Status,
	}
}

// SEOSubmittedEvent is raised when an order is sent for fulfillment
type SEOSubmittedEvent struct {
	SEOStatusEvent
}

// NewSEOSubmittedEvent creates a new SEOSubmittedEvent
func NewSEOSubmittedEvent(o *StockExportOrder) *SEOSubmittedEvent {
	return &SEOSubmittedEvent{SEOStatusEvent: newSEOStatusEvent(EventTypeSEOSubmitted, o)}
}

// EventType returns the event type name
func (e *SEOSubmittedEvent) EventType() string { return EventTypeSEOSubmitted }

// SEOReadyEvent is raised when every line can be covered by available lots
type SEOReadyEvent struct {
	SEOStatusEvent
}

// NewSEOReadyEvent creates a new SEOReadyEvent
func NewSEOReadyEvent(o *StockExportOrder) *SEOReadyEvent {
	return &SEOReadyEvent{SEOStatusEvent: newSEOStatusEvent(EventTypeSEOReady, o)}
}

// EventType returns the event type name
func (e *SEOReadyEvent) EventType() string { return EventTypeSEOReady }

// SEONotEnoughEvent is raised when at least one line has a shortfall
type SEONotEnoughEvent struct {
	SEOStatusEvent
	Shortfalls map[uuid.UUID]int64 `json:"shortfalls"`
}

// NewSEONotEnoughEvent creates a new SEONotEnoughEvent
func NewSEONotEnoughEvent(o *StockExportOrder) *SEONotEnoughEvent {
	return &SEONotEnoughEvent{
		SEOStatusEvent: newSEOStatusEvent(EventTypeSEONotEnough, o),
		Shortfalls:     o.Shortfalls(),
	}
}

// EventType returns the event type name
func (e *SEONotEnoughEvent) EventType() string { return EventTypeSEONotEnough }

// SEOAwaitingEvent is raised when staff chooses to wait for restock
type SEOAwaitingEvent struct {
	SEOStatusEvent
}

// NewSEOAwaitingEvent creates a new SEOAwaitingEvent
func NewSEOAwaitingEvent(o *StockExportOrder) *SEOAwaitingEvent {
	return &SEOAwaitingEvent{SEOStatusEvent: newSEOStatusEvent(EventTypeSEOAwaiting, o)}
}

// EventType returns the event type name
func (e *SEOAwaitingEvent) EventType() string { return EventTypeSEOAwaiting }

// SEOExportedEvent is raised when stock has left and a goods issue note exists
type SEOExportedEvent struct {
	SEOStatusEvent
	GoodsIssueNoteID uuid.UUID `json:"goods_issue_note_id"`
	ExportedAt       time.Time `json:"exported_at"`
}

// NewSEOExportedEvent creates a new SEOExportedEvent
func NewSEOExportedEvent(o *StockExportOrder) *SEOExportedEvent {
	e := &SEOExportedEvent{SEOStatusEvent: newSEOStatusEvent(EventTypeSEOExported, o)}
	if o.GoodsIssueNoteID != nil {
		e.GoodsIssueNoteID = *o.GoodsIssueNoteID
	}
	if o.ExportedAt != nil {
		e.ExportedAt = *o.ExportedAt
	}
	return e
}

// EventType returns the event type name
func (e *SEOExportedEvent) EventType() string { return EventTypeSEOExported }

// SEOCancelledEvent is raised when an order is abandoned
type SEOCancelledEvent struct {
	SEOStatusEvent
	Reason   string         `json:"reason"`
	Returned []LotDeduction `json:"returned,omitempty"`
}

// NewSEOCancelledEvent creates a new SEOCancelledEvent
func NewSEOCancelledEvent(o *StockExportOrder, returned []LotDeduction) *SEOCancelledEvent {
	return &SEOCancelledEvent{
		SEOStatusEvent: newSEOStatusEvent(EventTypeSEOCancelled, o),
		Reason:         o.CancelReason,
		Returned:       append([]LotDeduction(nil), returned...),
	}
}

// EventType returns the event type name
func (e *SEOCancelledEvent) EventType() string { return EventTypeSEOCancelled }

// GoodsIssueNoteCreatedEvent is raised once per successful export
type GoodsIssueNoteCreatedEvent struct {
	shared.BaseDomainEvent
	GoodsIssueNoteID uuid.UUID       `json:"goods_issue_note_id"`
	Code             string          `json:"code"`
	SalesOrderID     uuid.UUID       `json:"sales_order_id"`
	ExportIndex      int             `json:"export_index"`
	Amount           decimal.Decimal `json:"amount"`
}

// NewGoodsIssueNoteCreatedEvent creates a new GoodsIssueNoteCreatedEvent
func NewGoodsIssueNoteCreatedEvent(n *GoodsIssueNote) *GoodsIssueNoteCreatedEvent {
	return &GoodsIssueNoteCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeGoodsIssueNoteCreated, AggregateTypeGoodsIssueNote, n.ID()),
		GoodsIssueNoteID: n.ID(),
		Code:             n.Code(),
		SalesOrderID:     n.SalesOrderID(),
		ExportIndex:      n.ExportIndex(),
		Amount:           n.Amount(),
	}
}

// EventType returns the event type name
func (e *GoodsIssueNoteCreatedEvent) EventType() string { return EventTypeGoodsIssueNoteCreated }

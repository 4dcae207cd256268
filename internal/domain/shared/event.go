package shared

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by an aggregate and published after its
// transaction commits.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// AggregateRef identifies the aggregate an event belongs to.
type AggregateRef struct {
	Type string    `json:"type"`
	ID   uuid.UUID `json:"id"`
}

func (r AggregateRef) String() string {
	return fmt.Sprintf("%s/%s", r.Type, r.ID)
}

// BaseDomainEvent carries the envelope every event embeds. Timestamps are UTC.
type BaseDomainEvent struct {
	Envelope struct {
		ID         uuid.UUID    `json:"id"`
		Name       string       `json:"name"`
		RecordedAt time.Time    `json:"recorded_at"`
		Aggregate  AggregateRef `json:"aggregate"`
	} `json:"event"`
}

func NewBaseDomainEvent(eventType, aggType string, aggID uuid.UUID) BaseDomainEvent {
	var e BaseDomainEvent
	e.Envelope.ID = uuid.New()
	e.Envelope.Name = eventType
	e.Envelope.RecordedAt = time.Now().UTC()
	e.Envelope.Aggregate = AggregateRef{Type: aggType, ID: aggID}
	return e
}

func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.Envelope.ID
}

func (e *BaseDomainEvent) EventType() string {
	return e.Envelope.Name
}

func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Envelope.RecordedAt
}

func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.Envelope.Aggregate.ID
}

func (e *BaseDomainEvent) AggregateType() string {
	return e.Envelope.Aggregate.Type
}

// Aggregate returns the owning aggregate as a single reference
func (e *BaseDomainEvent) Aggregate() AggregateRef {
	return e.Envelope.Aggregate
}

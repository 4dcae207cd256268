package shared

import "context"

// EventHandler reacts to committed domain events, e.g. the restock trigger
// on LotReceived or the notification logger on everything.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the events the handler wants; nil means all of them.
	EventTypes() []string
}

// EventPublisher publishes domain events.
// Publishing happens after the business transaction commits; a failed
// publish is logged by the implementation and never undoes the write.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is a publisher that handlers can subscribe to.
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

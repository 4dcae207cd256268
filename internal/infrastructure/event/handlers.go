package event

import (
	"context"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"go.uber.org/zap"
)

// HandlerFunc adapts a function to shared.EventHandler for the given event types
type HandlerFunc struct {
	fn    func(ctx context.Context, event shared.DomainEvent) error
	types []string
}

// NewHandlerFunc creates a handler that calls fn for each event of the given types
func NewHandlerFunc(fn func(ctx context.Context, event shared.DomainEvent) error, eventTypes ...string) *HandlerFunc {
	return &HandlerFunc{fn: fn, types: eventTypes}
}

// Handle implements shared.EventHandler
func (h *HandlerFunc) Handle(ctx context.Context, event shared.DomainEvent) error {
	return h.fn(ctx, event)
}

// EventTypes implements shared.EventHandler
func (h *HandlerFunc) EventTypes() []string { return h.types }

// NotificationLogger is the notification dispatcher sink: it records every
// event with its aggregate so downstream notifications can be traced.
type NotificationLogger struct {
	logger *zap.Logger
}

// NewNotificationLogger creates a wildcard handler writing to logger
func NewNotificationLogger(logger *zap.Logger) *NotificationLogger {
	return &NotificationLogger{logger: logger.Named("notifications")}
}

// Handle implements shared.EventHandler
func (n *NotificationLogger) Handle(_ context.Context, event shared.DomainEvent) error {
	n.logger.Info("domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.Stringer("aggregate", shared.AggregateRef{Type: event.AggregateType(), ID: event.AggregateID()}),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// EventTypes returns nil so the logger receives every event
func (n *NotificationLogger) EventTypes() []string { return nil }

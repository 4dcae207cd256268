package shared

import (
	"context"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"go.uber.org/zap"
)

// EventSource is an aggregate holding pending domain events
type EventSource interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

// CollectEvents drains the pending events of the given aggregates in order
func CollectEvents(sources ...EventSource) []shared.DomainEvent {
	var events []shared.DomainEvent
	for _, src := range sources {
		if src == nil {
			continue
		}
		events = append(events, src.GetDomainEvents()...)
		src.ClearDomainEvents()
	}
	return events
}

// PublishEvents hands committed events to the publisher.
// A publish failure is logged and never reported to the caller: the business
// write has already been committed.
func PublishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, events []shared.DomainEvent) {
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.Int("event_count", len(events)),
			zap.Error(err))
	}
}

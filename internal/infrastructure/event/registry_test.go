package event

import (
	"testing"

	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/fulfillment"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/inventory"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_GetHandlers(t *testing.T) {
	registry := NewHandlerRegistry()
	restock := newTestHandler(inventory.EventTypeLotReceived)
	exports := newTestHandler(fulfillment.EventTypeSEOExported, fulfillment.EventTypeSEOCancelled)
	notifier := newTestHandler()

	registry.Register(restock, inventory.EventTypeLotReceived)
	registry.Register(exports, fulfillment.EventTypeSEOExported, fulfillment.EventTypeSEOCancelled)
	registry.Register(notifier)

	tests := []struct {
		eventType string
		want      int
	}{
		{inventory.EventTypeLotReceived, 2},
		{fulfillment.EventTypeSEOExported, 2},
		{fulfillment.EventTypeSEOCancelled, 2},
		{finance.EventTypePaymentApplied, 1},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			handlers := registry.GetHandlers(tt.eventType)
			assert.Len(t, handlers, tt.want)
			assert.Equal(t, notifier, handlers[len(handlers)-1], "wildcard handlers run last")
		})
	}
	assert.Equal(t, 4, registry.Count())
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	exports := newTestHandler()
	notifier := newTestHandler()
	registry.Register(exports, fulfillment.EventTypeSEOExported, fulfillment.EventTypeSEOCancelled)
	registry.Register(notifier)

	registry.Unregister(exports)
	assert.Equal(t, []any{notifier}, toAny(registry.GetHandlers(fulfillment.EventTypeSEOExported)))
	assert.Equal(t, 1, registry.Count())

	registry.Unregister(notifier)
	assert.Empty(t, registry.GetHandlers(fulfillment.EventTypeSEOExported))
	assert.Zero(t, registry.Count())
}

func TestHandlerRegistry_RegisterTwice(t *testing.T) {
	registry := NewHandlerRegistry()
	restock := newTestHandler(inventory.EventTypeLotReceived)

	registry.Register(restock, inventory.EventTypeLotReceived)
	registry.Register(restock, inventory.EventTypeLotReceived)
	registry.Register(restock, inventory.EventTypeLotReceived, fulfillment.EventTypeSEOAwaiting)

	assert.Len(t, registry.GetHandlers(inventory.EventTypeLotReceived), 1)
	assert.Len(t, registry.GetHandlers(fulfillment.EventTypeSEOAwaiting), 1)
	assert.Equal(t, 2, registry.Count())
}

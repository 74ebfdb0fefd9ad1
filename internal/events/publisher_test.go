package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumashape/insert-pricing/internal/pricing"
	"github.com/lumashape/insert-pricing/internal/store"
)

func testOrder() store.Order {
	return store.Order{
		ID:                "ord-1",
		CheckoutSessionID: "cs_1",
		CustomerEmail:     "buyer@example.com",
		Pricing:           pricing.CalculateOrderPricing([]pricing.CartItem{{ID: "a", Quantity: 2}}, nil),
		CreatedAt:         time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestOrderCreatedMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 31, 0, 0, time.FixedZone("X", 3600))
	event, err := newOrderCreatedEvent(testOrder(), now)
	require.NoError(t, err)

	_, err = uuid.Parse(event.ID)
	require.NoError(t, err)
	assert.Equal(t, EventTypeOrderCreated, event.Type)
	assert.Equal(t, time.UTC, event.Timestamp.Location())

	msg, err := message(event)
	require.NoError(t, err)
	assert.Equal(t, []byte("ord-1"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("order.created"), msg.Headers[0].Value)

	var envelope OrderEvent
	require.NoError(t, json.Unmarshal(msg.Value, &envelope))
	var payload OrderCreated
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, "cs_1", payload.CheckoutSessionID)
	assert.Equal(t, testOrder().Pricing.Totals, payload.Totals)
	assert.Equal(t, pricing.DefaultParameters(), payload.Parameters)
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, Nop{}.PublishOrderCreated(context.Background(), testOrder()))
}

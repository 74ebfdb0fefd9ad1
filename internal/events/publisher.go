package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/lumashape/insert-pricing/internal/config"
	"github.com/lumashape/insert-pricing/internal/pricing"
	"github.com/lumashape/insert-pricing/internal/store"
)

// EventType represents the type of order event.
type EventType string

const EventTypeOrderCreated EventType = "order.created"

// OrderEvent is the envelope written to the orders topic.
type OrderEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	OrderID   string          `json:"order_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderCreated is the payload of an order.created event.
type OrderCreated struct {
	OrderID           string             `json:"order_id"`
	CheckoutSessionID string             `json:"checkout_session_id,omitempty"`
	CustomerEmail     string             `json:"customer_email,omitempty"`
	Totals            pricing.Totals     `json:"totals"`
	Parameters        pricing.Parameters `json:"parameters"`
	CreatedAt         time.Time          `json:"created_at"`
}

// KafkaPublisher publishes order events to Kafka.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a Kafka-backed publisher for cfg.OrdersTopic.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.OrdersTopic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: writer, logger: logger}
}

// PublishOrderCreated publishes an order.created event keyed by order id.
func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order store.Order) error {
	event, err := newOrderCreatedEvent(order, time.Now())
	if err != nil {
		return err
	}
	msg, err := message(event)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("event_id", event.ID),
			zap.String("order_id", event.OrderID),
			zap.Error(err),
		)
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.logger.Info("event published",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("order_id", event.OrderID),
	)
	return nil
}

// Close flushes and closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards events. It is used when no brokers are configured.
type Nop struct{}

// PublishOrderCreated does nothing.
func (Nop) PublishOrderCreated(context.Context, store.Order) error { return nil }

func newOrderCreatedEvent(order store.Order, now time.Time) (OrderEvent, error) {
	data, err := json.Marshal(OrderCreated{
		OrderID:           order.ID,
		CheckoutSessionID: order.CheckoutSessionID,
		CustomerEmail:     order.CustomerEmail,
		Totals:            order.Pricing.Totals,
		Parameters:        order.Pricing.Parameters,
		CreatedAt:         order.CreatedAt,
	})
	if err != nil {
		return OrderEvent{}, fmt.Errorf("encode order.created payload: %w", err)
	}

	return OrderEvent{
		ID:        uuid.NewString(),
		Type:      EventTypeOrderCreated,
		OrderID:   order.ID,
		Data:      data,
		Timestamp: now.UTC(),
	}, nil
}

func message(event OrderEvent) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}, nil
}

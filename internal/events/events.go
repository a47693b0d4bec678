package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"cedra_orders/internal/models"
)

const (
	TypeOrderCreated = "order.created"
	TypeOrderPaid    = "order.paid"
)

type OrderEvent struct {
	Type            string             `json:"type"`
	OrderID         string             `json:"order_id"`
	Customer        string             `json:"customer"`
	Status          models.OrderStatus `json:"status"`
	Total           string             `json:"total"`
	CheckoutSession string             `json:"checkout_session,omitempty"`
	OccurredAt      time.Time          `json:"occurred_at"`
}

func NewOrderEvent(eventType string, o models.Order, at time.Time) OrderEvent {
	return OrderEvent{
		Type:            eventType,
		OrderID:         o.ID,
		Customer:        o.Customer,
		Status:          o.Status,
		Total:           o.Total.StringFixed(2),
		CheckoutSession: o.CheckoutSession,
		OccurredAt:      at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
	Close() error
}

// NopPublisher ignore les événements (Kafka non configuré)
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, OrderEvent) error { return nil }
func (NopPublisher) Close() error                              { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publie les événements commande, partitionnés par identifiant de commande
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	logger.Info("✅ Producteur Kafka prêt", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return &KafkaPublisher{writer: writer, logger: logger}
}

func (k *KafkaPublisher) Publish(ctx context.Context, event OrderEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("sérialisation événement %s: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publication %s commande %s: %w", event.Type, event.OrderID, err)
	}
	k.logger.Debug("📤 Événement publié", zap.String("type", event.Type), zap.String("order_id", event.OrderID))
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-checkout/internal/dto"

	"github.com/segmentio/kafka-go"
)

const EventOrderConfirmed = "OrderConfirmed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type OrderConfirmedEvent struct {
	EventType  string           `json:"eventType"`
	Email      string           `json:"email"`
	Order      dto.OrderSummary `json:"order"`
	OccurredAt time.Time        `json:"occurredAt"`
}

type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(w *kafka.Writer) *KafkaNotifier {
	return &KafkaNotifier{writer: w}
}

func (n *KafkaNotifier) SendOrderConfirmation(ctx context.Context, email string, order dto.OrderSummary) error {
	payload, err := json.Marshal(OrderConfirmedEvent{
		EventType:  EventOrderConfirmed,
		Email:      email,
		Order:      order,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal order confirmed event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.OrderNumber),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderConfirmed)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order %s: %w", order.OrderNumber, err)
	}
	return nil
}

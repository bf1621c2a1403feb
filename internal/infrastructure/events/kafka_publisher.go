package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rent_payment_service/internal/domain/entities"
	"rent_payment_service/internal/usecase/interfaces"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventTypeStatusChanged = "payment.status_changed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes payment events keyed by payment id.
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

var _ interfaces.IPaymentEventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return newKafkaPublisher(w, logger)
}

func newKafkaPublisher(w messageWriter, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: w, logger: logger.Named("events.kafka")}
}

type envelope struct {
	Type    string                `json:"type"`
	Payload entities.PaymentEvent `json:"payload"`
}

func (p *KafkaPublisher) PublishStatusChanged(ctx context.Context, event entities.PaymentEvent) error {
	value, err := json.Marshal(envelope{Type: EventTypeStatusChanged, Payload: event})
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeStatusChanged)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for payment %s: %w", EventTypeStatusChanged, event.PaymentID, err)
	}
	p.logger.Debug("event published", zap.String("payment_id", event.PaymentID), zap.String("status", string(event.Status)))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

var _ interfaces.IPaymentEventPublisher = NoopPublisher{}

func (NoopPublisher) PublishStatusChanged(context.Context, entities.PaymentEvent) error { return nil }

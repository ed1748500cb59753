package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/cityflow/crm/internal/config"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher forwards events to a Kafka topic as JSON, keyed by ticket id.
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
}

// NewKafkaPublisher builds a synchronous producer for cfg.KafkaTopic.
func NewKafkaPublisher(cfg config.NotificationConfig) (*KafkaPublisher, error) {
	if !cfg.KafkaEnabled() {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		Transport: &kafka.Transport{
			ClientID: cfg.KafkaClientID,
		},
	}
	return NewKafkaPublisherWithWriter(w, cfg.KafkaTopic), nil
}

// NewKafkaPublisherWithWriter wraps an existing writer.
func NewKafkaPublisherWithWriter(writer MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic}
}

// Publish writes event to the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if p == nil || p.writer == nil {
		return errors.New("producer not initialized")
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	key := event.TicketID
	if key == "" {
		key = event.ID
	}
	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/i474232898/forecast-drift/internal/weather"
)

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           250 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}
}

// messageWriter is the subset of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes diff events keyed by location id, so every
// location's history lands on one partition in order.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: NewWriter(brokers, topic)}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event weather.DiffEvent) error {
	msg, err := BuildMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// BuildMessage encodes a diff event as a Kafka message.
func BuildMessage(event weather.DiffEvent) (kafka.Message, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode diff event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.LocationID),
		Value: body,
		Time:  event.FetchedAt.UTC(),
		Headers: []kafka.Header{
			{Key: "mode", Value: []byte(event.Diff.Mode)},
			{Key: "confidence", Value: []byte(event.Diff.Confidence.Label)},
		},
	}, nil
}

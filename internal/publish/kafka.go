package publish

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/shem-project/shem/internal/models"
)

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes one message per reading keyed by category.
type Kafka struct {
	writer messageWriter
}

// NewKafka creates a Kafka publisher.
func NewKafka(cfg KafkaConfig) (*Kafka, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	return &Kafka{writer: &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.Hash{},
	}}, nil
}

// Publish implements Publisher.
func (k *Kafka) Publish(ctx context.Context, readings []models.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(readings))
	for _, r := range readings {
		value, err := Encode(r)
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{Key: []byte(r.Category), Value: value, Time: r.RecordedAt})
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to write kafka messages: %w", err)
	}
	return nil
}

// Close implements Publisher.
func (k *Kafka) Close() error {
	return k.writer.Close()
}

// Package publish fans simulated readings out to message brokers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shem-project/shem/internal/models"
)

// Driver names.
const (
	DriverNone  = "none"
	DriverKafka = "kafka"
	DriverMQTT  = "mqtt"
)

// Publisher sends a cycle's readings downstream.
type Publisher interface {
	Publish(ctx context.Context, readings []models.Reading) error
	Close() error
}

// Config selects and configures the publisher.
type Config struct {
	Driver string      `mapstructure:"driver"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
	MQTT   MQTTConfig  `mapstructure:"mqtt"`
}

// KafkaConfig configures the Kafka driver.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// MQTTConfig configures the MQTT driver.
type MQTTConfig struct {
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	TopicPrefix    string        `mapstructure:"topic_prefix"`
	QoS            byte          `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// New builds the configured publisher.
func New(cfg Config) (Publisher, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverNone:
		return Nop{}, nil
	case DriverKafka:
		return NewKafka(cfg.Kafka)
	case DriverMQTT:
		return NewMQTT(cfg.MQTT)
	default:
		return nil, fmt.Errorf("unknown publisher driver %q", cfg.Driver)
	}
}

// Nop discards readings.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, []models.Reading) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }

// Message is the wire form of a published reading.
type Message struct {
	Category   string    `json:"category"`
	UsageKWh   float64   `json:"usage"`
	Cost       float64   `json:"cost"`
	PeriodKey  string    `json:"simulation_date"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Encode converts a reading to its JSON wire form.
func Encode(r models.Reading) ([]byte, error) {
	data, err := json.Marshal(Message{
		Category:   r.Category,
		UsageKWh:   r.UsageKWh,
		Cost:       r.Cost,
		PeriodKey:  r.PeriodKey,
		RecordedAt: r.RecordedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode reading: %w", err)
	}
	return data, nil
}

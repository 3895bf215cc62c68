package publish

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/shem-project/shem/internal/models"
)

const defaultConnectTimeout = 10 * time.Second

// mqttClient is the subset of mqtt.Client used here.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes each reading on <prefix>/<category>.
type MQTT struct {
	client  mqttClient
	prefix  string
	qos     byte
	timeout time.Duration
}

// NewMQTT connects to the broker and returns an MQTT publisher.
func NewMQTT(cfg MQTTConfig) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is required")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "shem"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetConnectTimeout(timeout).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)

	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}

	return newMQTT(client, cfg.TopicPrefix, cfg.QoS, timeout), nil
}

func newMQTT(client mqttClient, prefix string, qos byte, timeout time.Duration) *MQTT {
	if prefix == "" {
		prefix = "shem/readings"
	}
	return &MQTT{client: client, prefix: strings.TrimSuffix(prefix, "/"), qos: qos, timeout: timeout}
}

// Topic returns the topic for a category.
func (m *MQTT) Topic(category string) string {
	return m.prefix + "/" + strings.ReplaceAll(strings.ToLower(category), " ", "_")
}

// Publish implements Publisher.
func (m *MQTT) Publish(ctx context.Context, readings []models.Reading) error {
	for _, r := range readings {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := Encode(r)
		if err != nil {
			return err
		}
		token := m.client.Publish(m.Topic(r.Category), m.qos, false, payload)
		if !token.WaitTimeout(m.timeout) {
			return fmt.Errorf("timed out publishing %s", r.Category)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish %s: %w", r.Category, err)
		}
	}
	return nil
}

// Close implements Publisher.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}

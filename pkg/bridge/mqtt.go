package bridge

import (
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/teslashibe/go-lebai/internal/log"
)

// ErrTimeout is returned when the broker does not acknowledge a connect
// or publish in time.
var ErrTimeout = errors.New("bridge: broker did not respond in time")

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker         string // e.g. tcp://localhost:1883
	ClientID       string
	Username       string
	Password       string
	PublishTimeout time.Duration
}

// MQTTPublisher publishes through a paho client.
type MQTTPublisher struct {
	client  mqtt.Client
	timeout time.Duration
}

// Connect dials the broker and returns a connected publisher.
func Connect(cfg MQTTConfig) (*MQTTPublisher, error) {
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	l := log.With("component", "bridge", "broker", cfg.Broker)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		l.Warn("connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		l.Info("connected to broker")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("bridge: connect %s: %w", cfg.Broker, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("bridge: connect %s: %w", cfg.Broker, err)
	}
	return NewMQTTPublisher(client, timeout), nil
}

// NewMQTTPublisher wraps an existing paho client.
func NewMQTTPublisher(client mqtt.Client, timeout time.Duration) *MQTTPublisher {
	return &MQTTPublisher{client: client, timeout: timeout}
}

// Publish sends one message and waits for the broker acknowledgement.
func (p *MQTTPublisher) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(p.timeout) {
		return ErrTimeout
	}
	return token.Error()
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}

// Package mqtt publishes analysis verdicts to an MQTT broker so that an
// external aggregator can correlate them per session.
package mqtt

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/proctor-go/internal/conf"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends payload to topic. It fails if the client is not connected.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
	Retain   bool // true to retain messages at the broker
	// Connection timeouts
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
	MaxReconnectDelay time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
		MaxReconnectDelay: 5 * time.Minute,
	}
}

// ConfigFromSettings builds a Config from the mqtt settings section. An empty
// client ID becomes "<instance>-<random>", since brokers drop the older of two
// sessions sharing an ID.
func ConfigFromSettings(settings *conf.MQTTSettings, instanceName string) Config {
	cfg := DefaultConfig()
	cfg.Broker = settings.Broker
	cfg.Username = settings.Username
	cfg.Password = settings.Password
	cfg.QoS = byte(min(max(settings.QoS, 0), 2)) //nolint:gosec // clamped to 0..2
	cfg.Retain = settings.Retain
	cfg.ClientID = settings.ClientID
	if cfg.ClientID == "" {
		cfg.ClientID = generateClientID(instanceName)
	}
	return cfg
}

func generateClientID(instanceName string) string {
	prefix := strings.ToLower(strings.Join(strings.Fields(instanceName), "-"))
	if prefix == "" {
		prefix = conf.AppName
	}
	return prefix + "-" + uuid.NewString()[:8]
}

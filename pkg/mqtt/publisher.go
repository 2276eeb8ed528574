package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/dbehnke/mavtrap/pkg/logger"
)

// Config holds MQTT publisher configuration
type Config struct {
	Enabled     bool
	Broker      string
	TopicPrefix string
	ClientID    string
	Username    string
	Password    string
	QoS         byte
	Retained    bool
}

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 2 * time.Second
	disconnectWait = 250 // ms

	statusOnline  = "online"
	statusOffline = "offline"
)

// ErrNotConnected is returned when publishing before Start succeeded
var ErrNotConnected = errors.New("mqtt: not connected")

// client is the subset of paho.Client the publisher uses
type client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

// Publisher handles MQTT event publishing
type Publisher struct {
	config Config
	log    *logger.Logger

	newClient func(*paho.ClientOptions) client

	mu     sync.RWMutex
	client client
}

// StatusMessage is published retained on <prefix>/status
type StatusMessage struct {
	Status    string    `json:"status"`
	Mode      string    `json:"mode,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New creates a new MQTT publisher
func New(config Config, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.New(logger.Config{Level: "info", Format: "text"})
	}
	if config.ClientID == "" {
		config.ClientID = "mavtrap"
	}

	return &Publisher{
		config: config,
		log:    log.WithComponent("mqtt"),
		newClient: func(opts *paho.ClientOptions) client {
			return paho.NewClient(opts)
		},
	}
}

// Start connects to the broker. Paho reconnects on its own after a lost
// connection; Start only fails when the first connect fails.
func (p *Publisher) Start(ctx context.Context) error {
	if !p.config.Enabled {
		p.log.Info("MQTT publisher disabled")
		return nil
	}

	p.log.Info("Starting MQTT publisher",
		logger.String("broker", p.config.Broker),
		logger.String("client_id", p.config.ClientID))

	opts := paho.NewClientOptions().
		AddBroker(p.config.Broker).
		SetClientID(p.config.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetWill(p.formatTopic("status"), p.statusPayload(statusOffline), p.config.QoS, true).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn("MQTT connection lost", logger.Error(err))
		}).
		SetOnConnectHandler(func(_ paho.Client) {
			p.log.Info("MQTT connected", logger.String("broker", p.config.Broker))
		})
	if p.config.Username != "" {
		opts.SetUsername(p.config.Username)
		opts.SetPassword(p.config.Password)
	}

	c := p.newClient(opts)
	if err := wait(ctx, c.Connect(), connectTimeout); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", p.config.Broker, err)
	}

	p.mu.Lock()
	p.client = c
	p.mu.Unlock()

	return p.publish(p.formatTopic("status"), StatusMessage{Status: statusOnline, Timestamp: time.Now()}, true)
}

// Stop publishes the offline status and disconnects
func (p *Publisher) Stop() {
	if !p.config.Enabled {
		return
	}

	p.mu.Lock()
	c := p.client
	p.client = nil
	p.mu.Unlock()
	if c == nil {
		return
	}

	p.log.Info("Stopping MQTT publisher")
	token := c.Publish(p.formatTopic("status"), p.config.QoS, true, p.statusPayload(statusOffline))
	token.WaitTimeout(publishTimeout)
	c.Disconnect(disconnectWait)
}

// PublishEvent publishes event as JSON on <prefix>/events/<kind>
func (p *Publisher) PublishEvent(kind string, event interface{}) error {
	if !p.config.Enabled {
		return nil
	}

	topic := p.formatTopic("events/" + kind)
	return p.publish(topic, event, p.config.Retained)
}

// publish publishes an event to a topic
func (p *Publisher) publish(topic string, event interface{}, retained bool) error {
	payload, err := p.serializeEvent(event)
	if err != nil {
		p.log.Error("Failed to serialize event",
			logger.String("topic", topic),
			logger.Error(err))
		return err
	}

	p.mu.RLock()
	c := p.client
	p.mu.RUnlock()
	if c == nil || !c.IsConnected() {
		return ErrNotConnected
	}

	if err := wait(context.Background(), c.Publish(topic, p.config.QoS, retained, payload), publishTimeout); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.log.Debug("Published MQTT event",
		logger.String("topic", topic),
		logger.Int("payload_size", len(payload)))

	return nil
}

// serializeEvent serializes an event to JSON
func (p *Publisher) serializeEvent(event interface{}) ([]byte, error) {
	return json.Marshal(event)
}

func (p *Publisher) statusPayload(status string) string {
	data, _ := p.serializeEvent(StatusMessage{Status: status, Timestamp: time.Now()})
	return string(data)
}

// formatTopic formats a topic with the configured prefix
func (p *Publisher) formatTopic(suffix string) string {
	prefix := strings.TrimSuffix(p.config.TopicPrefix, "/")
	if prefix == "" {
		return suffix
	}
	return fmt.Sprintf("%s/%s", prefix, suffix)
}

// wait blocks until token completes, timeout elapses or ctx is done
func wait(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

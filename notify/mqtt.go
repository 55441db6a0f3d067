package notify

import (
	"context"
	"dispatch-backend/models"
	"dispatch-backend/utils/logger"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 5 * time.Second

// Client is the subset of the paho client used for publishing
type Client interface {
	IsConnected() bool
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes events as JSON to "<prefix>/<event type>"
type MQTTPublisher struct {
	client Client
	prefix string
	qos    byte
	logger logger.Logger
}

// NewMQTTPublisher connects to the configured broker
func NewMQTTPublisher(cfg *models.Config, log logger.Logger) (*MQTTPublisher, error) {
	clientID := cfg.MQTTClientID
	if clientID == "" {
		clientID = "dispatch-backend"
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(clientID).
		SetConnectTimeout(5 * time.Second).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warnf("MQTT connection lost: %v", err)
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.MQTTBroker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.MQTTBroker, err)
	}

	log.Infof("Connected to MQTT broker %s as %s", cfg.MQTTBroker, clientID)
	return NewMQTTPublisherWithClient(client, cfg.MQTTTopicPrefix, log), nil
}

// NewMQTTPublisherWithClient wraps an already connected client
func NewMQTTPublisherWithClient(client Client, prefix string, log logger.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		prefix: strings.TrimSuffix(prefix, "/"),
		qos:    1,
		logger: log,
	}
}

// Topic returns the topic an event type is published on
func (p *MQTTPublisher) Topic(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "/" + eventType
}

func (p *MQTTPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	topic := p.Topic(event.Type)
	token := p.client.Publish(topic, p.qos, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishTimeout):
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.logger.Debugf("Published %s for dispatch=%s job=%s", topic, event.DispatchID, event.JobID)
	return nil
}

func (p *MQTTPublisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}

// NewPublisher returns an MQTT publisher when a broker is configured, otherwise a NoopPublisher.
// A broker that cannot be reached degrades to NoopPublisher with a warning.
func NewPublisher(cfg *models.Config, log logger.Logger) Publisher {
	if cfg.MQTTBroker == "" {
		log.Info("MQTT broker not configured, lifecycle events disabled")
		return NoopPublisher{}
	}
	publisher, err := NewMQTTPublisher(cfg, log)
	if err != nil {
		log.Warnf("Lifecycle events disabled: %v", err)
		return NoopPublisher{}
	}
	return publisher
}

package eventsclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/internal/config"
)

const (
	mqttQoS            = 1
	mqttPublishTimeout = 5 * time.Second
	mqttDisconnectMs   = 250
)

// MQTTPublisher publishes events with QoS 1 to <prefix>/<station>/<type>
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
	logger *zap.Logger
}

// NewMQTTPublisher connects to the broker at cfg.URL
func NewMQTTPublisher(cfg config.EventsConfig, logger *zap.Logger) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.URL)
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("tail-temps-%d", time.Now().UnixNano())
	}
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(mqttPublishTimeout)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	logger.Info("Connected to MQTT broker", zap.String("url", cfg.URL), zap.String("client_id", clientID))
	return newMQTTPublisher(client, cfg.TopicPrefix, logger), nil
}

func newMQTTPublisher(client mqtt.Client, prefix string, logger *zap.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, prefix: prefix, logger: logger}
}

// Topic returns the MQTT topic for an event
func (p *MQTTPublisher) Topic(ev Event) string {
	return strings.Join(topicParts(p.prefix, ev), "/")
}

// Publish sends the event and waits for the broker acknowledgement
func (p *MQTTPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := ev.Payload()
	if err != nil {
		return err
	}

	topic := p.Topic(ev)
	token := p.client.Publish(topic, mqttQoS, false, payload)

	timeout := mqttPublishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("failed to publish to topic %s: timed out after %v", topic, timeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, token.Error())
	}

	p.logger.Debug("Published event", zap.String("topic", topic), zap.String("tail_number", ev.TailNumber))
	return nil
}

// Close disconnects from the broker
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(mqttDisconnectMs)
	return nil
}

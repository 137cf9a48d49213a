// Package eventsclient publishes dispatch and temperature-alert events to a broker.
package eventsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/internal/config"
)

// EventType names what happened
type EventType string

const (
	EventDispatched EventType = "dispatched"
	EventTempAlert  EventType = "temp_alert"
)

// Event is the JSON payload sent to the broker
type Event struct {
	Type       EventType `json:"type"`
	Station    string    `json:"station"`
	NightDate  string    `json:"night_date"`
	TailNumber string    `json:"tail_number"`
	TempF      *float64  `json:"temp_f,omitempty"`
	Status     string    `json:"status,omitempty"`
	LogCount   int       `json:"log_count,omitempty"`
	NoteCount  int       `json:"note_count,omitempty"`
	RecordedBy string    `json:"recorded_by"`
	At         string    `json:"at"`
}

// Payload encodes the event
func (e Event) Payload() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", e.Type, err)
	}
	return data, nil
}

// Publisher sends events to a broker
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// New connects the publisher selected by cfg. An empty driver returns a
// publisher that drops every event.
func New(cfg config.EventsConfig, logger *zap.Logger) (Publisher, error) {
	switch cfg.Driver {
	case "":
		return Nop{}, nil
	case "mqtt":
		return NewMQTTPublisher(cfg, logger)
	case "nats":
		return NewNATSPublisher(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown events driver %q", cfg.Driver)
	}
}

// Nop drops every event
type Nop struct{}

// Publish discards the event
func (Nop) Publish(ctx context.Context, ev Event) error { return nil }

// Close does nothing
func (Nop) Close() error { return nil }

// topicParts is the prefix/station/type path shared by both brokers
func topicParts(prefix string, ev Event) []string {
	return []string{strings.Trim(prefix, "/."), ev.Station, string(ev.Type)}
}

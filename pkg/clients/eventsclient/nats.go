package eventsclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/jakechorley/tail-temps/internal/config"
)

// natsConn is the part of *nats.Conn the publisher uses
type natsConn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher publishes events to the subject <prefix>.<station>.<type>
type NATSPublisher struct {
	conn   natsConn
	prefix string
	logger *zap.Logger
}

// NewNATSPublisher connects to the server at cfg.URL
func NewNATSPublisher(cfg config.EventsConfig, logger *zap.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("Disconnected from NATS", zap.Error(err))
			}
		}),
	}
	if cfg.ClientID != "" {
		opts = append(opts, nats.Name(cfg.ClientID))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("Connected to NATS", zap.String("url", nc.ConnectedUrl()))
	return newNATSPublisher(nc, cfg.TopicPrefix, logger), nil
}

func newNATSPublisher(conn natsConn, prefix string, logger *zap.Logger) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}
}

// Subject returns the NATS subject for an event
func (p *NATSPublisher) Subject(ev Event) string {
	return strings.Join(topicParts(p.prefix, ev), ".")
}

// Publish sends the event and flushes so a failure surfaces to the caller
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := ev.Payload()
	if err != nil {
		return err
	}

	subject := p.Subject(ev)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to subject %s: %w", subject, err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush subject %s: %w", subject, err)
	}

	p.logger.Debug("Published event", zap.String("subject", subject), zap.String("tail_number", ev.TailNumber))
	return nil
}

// Close drains pending messages and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

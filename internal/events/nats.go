package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/trellis/internal/config"
	"git.home.luguber.info/inful/trellis/internal/logfields"
)

const defaultSubject = "trellis.page.rendered"

// NATSPublisher publishes render events to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	logger  *slog.Logger
}

// NewNATSPublisher connects to the configured NATS server. Call Close when
// done.
func NewNATSPublisher(cfg config.EventsConfig, logger *slog.Logger) (*NATSPublisher, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("events are disabled")
	}
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	subject := cfg.Subject
	if subject == "" {
		subject = defaultSubject
	}

	logger.Info("NATS publisher initialized",
		slog.String("url", cfg.URL), slog.String("subject", subject))

	return &NATSPublisher{conn: conn, js: js, subject: subject, logger: logger}, nil
}

// PublishPageRendered emits one render event. Publish failures are returned
// to the caller, who treats eventing as best effort.
func (p *NATSPublisher) PublishPageRendered(ctx context.Context, event PageRendered) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal render event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("publish render event: %w", err)
	}

	p.logger.Debug("published render event",
		logfields.Slug(event.Slug), logfields.Cached(event.Cached))
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}

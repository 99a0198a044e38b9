package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/poiesic/lostfound/core"
)

// SubjectMatchFound is the subject prefix for match events; the report kind
// is appended, e.g. "lostfound.match.found.lost".
const SubjectMatchFound = "lostfound.match.found"

// Subject returns the subject events for reports of kind are published on.
func Subject(kind core.Kind) string {
	return SubjectMatchFound + "." + kind.String()
}

// Publisher sends raw payloads to a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "lostfound",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1,
	}
}

// Connect opens a NATS connection that logs its lifecycle to logger.
func Connect(config NATSConfig, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Debug("nats connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	logger.Info("connected to nats", "url", nc.ConnectedUrl())
	return nc, nil
}

// NATSNotifier publishes a JSON MatchEvent for every notification.
type NATSNotifier struct {
	publisher Publisher
	logger    *slog.Logger
}

var _ Notifier = (*NATSNotifier)(nil)

// Option configures a NATSNotifier.
type Option func(*NATSNotifier) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(n *NATSNotifier) error {
		if logger == nil {
			logger = slog.Default()
		}
		n.logger = logger
		return nil
	}
}

// NewNATSNotifier creates a notifier that publishes through publisher.
func NewNATSNotifier(publisher Publisher, opts ...Option) (*NATSNotifier, error) {
	if publisher == nil {
		return nil, ErrPublisherRequired
	}
	n := &NATSNotifier{
		publisher: publisher,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// Notify publishes the match event for report. Nothing is published when
// matches is empty.
func (n *NATSNotifier) Notify(ctx context.Context, report *core.Report, matches []core.MatchResult) error {
	if len(matches) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	event := NewMatchEvent(report, matches)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode match event: %w", err)
	}

	subject := Subject(report.Kind)
	if err := n.publisher.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	n.logger.Debug("published match event", "subject", subject, "event", event.ID, "matches", len(matches))
	return nil
}

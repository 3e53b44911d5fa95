package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/poiesic/wayfind/core"
)

// DefaultSubject is the NATS subject report events are published on.
const DefaultSubject = "wayfind.reports"

// Event is published for every accepted report.
type Event struct {
	Report  core.Report `json:"report"`
	Reports int         `json:"reports"` // Report count after this report
	Status  core.Status `json:"status"`  // Derived status after this report
}

// Publisher announces accepted reports to other systems.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// messagePublisher is the part of *nats.Conn the publisher needs.
type messagePublisher interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes report events as JSON on a NATS subject.
type NATSPublisher struct {
	conn    messagePublisher
	subject string
}

var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher publishes on subject over conn. An empty subject means DefaultSubject.
func NewNATSPublisher(conn *nats.Conn, subject string) *NATSPublisher {
	return newNATSPublisher(conn, subject)
}

func newNATSPublisher(conn messagePublisher, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: conn, subject: subject}
}

// Publish sends event to the subject.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject, data)
}

// NATSOptions configures the NATS connection.
type NATSOptions struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// ConnectNATS opens a NATS connection that logs its lifecycle to logger.
func ConnectNATS(opts NATSOptions, logger *slog.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	options := []nats.Option{
		nats.Name("wayfind"),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.Timeout(opts.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", "err", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Debug("nats connection closed")
		}),
	}

	nc, err := nats.Connect(opts.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}
	return nc, nil
}

package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/maproute/internal/core/domain"
)

// StreamName is the JetStream stream holding recent session events.
const StreamName = "MAPROUTE_SESSIONS"

// PublishTimeout bounds a publish whose context carries no deadline.
const PublishTimeout = 2 * time.Second

// SessionSubject returns the subject a session event of the given type is
// published on: maproute.session.<id>.<type>.
func SessionSubject(sessionID, eventType string) string {
	return "maproute.session." + sessionID + "." + eventType
}

// SessionWildcard matches every event of one session.
func SessionWildcard(sessionID string) string {
	return "maproute.session." + sessionID + ".>"
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	timeout time.Duration
}

// NewPublisher connects to NATS and makes sure the session stream exists.
// timeout bounds each publish that has no deadline of its own; zero means
// PublishTimeout.
func NewPublisher(url string, maxAge, timeout time.Duration) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{"maproute.session.>"},
		Retention: nats.LimitsPolicy,
		MaxAge:    maxAge,
		Storage:   nats.MemoryStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// stream may already exist, try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	if timeout <= 0 {
		timeout = PublishTimeout
	}
	return &Publisher{conn: conn, js: js, timeout: timeout}, nil
}

// PublishSessionEvent publishes event on its session subject and waits for
// the stream ack, at most until the context deadline or the publisher's
// timeout.
func (p *Publisher) PublishSessionEvent(ctx context.Context, event *domain.SessionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	_, err = p.js.Publish(SessionSubject(event.SessionID, event.Type), data, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

// Conn exposes the underlying connection for health checks.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection with reconnects enabled.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("maproute"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

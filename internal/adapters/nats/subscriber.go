package natsadapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

// Subscriber implements ports.EventSubscriber with core NATS subscriptions.
// Events are live-only: a client sees what is published after it subscribes.
type Subscriber struct {
	conn *nats.Conn

	mu   sync.Mutex
	subs map[*nats.Subscription]struct{}
}

// NewSubscriber opens its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Subscriber{conn: conn, subs: make(map[*nats.Subscription]struct{})}, nil
}

// SubscribeSession delivers every event of one session to handler until the
// returned cancel function is called.
func (s *Subscriber) SubscribeSession(ctx context.Context, sessionID string, handler func(data []byte)) (func(), error) {
	sub, err := s.conn.Subscribe(SessionWildcard(sessionID), func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe session %s: %w", sessionID, err)
	}

	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, sub)
			s.mu.Unlock()
			_ = sub.Unsubscribe()
		})
	}, nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	s.mu.Lock()
	for sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = map[*nats.Subscription]struct{}{}
	s.mu.Unlock()
	_ = s.conn.Drain()
}

package events

import (
	"context"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

// DefaultSubject is the NATS subject for auth events
const DefaultSubject = "auth.events"

// NATSBus carries auth events over a core NATS subject.
type NATSBus struct {
	conn    *nats.Conn
	subject string
}

// NewNATSBus creates a NATSBus
func NewNATSBus(conn *nats.Conn, subject string) *NATSBus {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSBus{conn: conn, subject: subject}
}

// Publish sends change on the subject.
func (b *NATSBus) Publish(_ context.Context, change domain.AuthChange) error {
	data, err := encode(change)
	if err != nil {
		return err
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		return fmt.Errorf("failed to publish auth event: %w", err)
	}
	return nil
}

// Subscribe delivers events to handler until unsubscribed.
func (b *NATSBus) Subscribe(handler Handler) (func(), error) {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		if change, ok := decode(msg.Data); ok {
			handler(change)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.subject, err)
	}
	return func() {
		if err := sub.Unsubscribe(); err != nil && err != nats.ErrConnectionClosed && err != nats.ErrBadSubscription {
			log.Printf("[warn] component=auth-events unsubscribe %s: %v", b.subject, err)
		}
	}, nil
}

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/GoSim-25-26J-441/marketplace-core/internal/auth/domain"
)

// DefaultChannel is the Pub/Sub channel for auth events
const DefaultChannel = "auth:events"

// RedisBus carries auth events over Redis Pub/Sub.
type RedisBus struct {
	client  *redis.Client
	channel string
}

// NewRedisBus creates a RedisBus
func NewRedisBus(client *redis.Client, channel string) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{client: client, channel: channel}
}

// Publish sends change to every subscriber.
func (b *RedisBus) Publish(ctx context.Context, change domain.AuthChange) error {
	data, err := encode(change)
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish auth event: %w", err)
	}
	return nil
}

// Subscribe starts delivering events to handler. The subscription is
// confirmed before Subscribe returns.
func (b *RedisBus) Subscribe(handler Handler) (func(), error) {
	ctx := context.Background()
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.channel, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			if change, ok := decode([]byte(msg.Payload)); ok {
				handler(change)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			pubsub.Close()
			<-done
		})
	}, nil
}

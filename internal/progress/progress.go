// Package progress carries live generation events from the worker to any
// attached stream listener over a per-session pub/sub channel. Delivery is
// fire-and-forget: with no subscriber attached at publish time the event is
// dropped, and the cards table remains the durable source of truth.
package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ombulabs/rails-superhero-cards/pkg/models"
	"github.com/redis/go-redis/v9"
)

// ChannelKey derives the pub/sub channel name for a session. Publisher and
// subscriber both compute it, so no registry is needed.
func ChannelKey(sessionID string) string {
	return fmt.Sprintf("image_stream:%s", sessionID)
}

// Publisher publishes progress events for a session.
type Publisher interface {
	Publish(ctx context.Context, sessionID string, event models.ProgressEvent) error
}

// Subscription is one attached listener. Close must be called on every exit
// path; afterwards Events is closed.
type Subscription interface {
	Events() <-chan models.ProgressEvent
	Close() error
}

// Subscriber attaches listeners to a session's channel.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) (Subscription, error)
}

// RedisBus implements Publisher and Subscriber on redis pub/sub.
type RedisBus struct {
	client *redis.Client
}

// NewRedisBus creates a RedisBus from a Redis URL.
func NewRedisBus(redisURL string) (*RedisBus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisBus{client: redis.NewClient(opts)}, nil
}

// NewRedisBusFromClient wraps an existing client, sharing its connection pool.
func NewRedisBusFromClient(client *redis.Client) *RedisBus {
	return &RedisBus{client: client}
}

func (b *RedisBus) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBus) Close() error {
	return b.client.Close()
}

func (b *RedisBus) Publish(ctx context.Context, sessionID string, event models.ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	if err := b.client.Publish(ctx, ChannelKey(sessionID), payload).Err(); err != nil {
		return fmt.Errorf("publish progress event: %w", err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, sessionID string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, ChannelKey(sessionID))

	// Confirm the subscription before handing it out, so events published
	// after Subscribe returns are not missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", ChannelKey(sessionID), err)
	}

	sub := &redisSubscription{
		pubsub: pubsub,
		events: make(chan models.ProgressEvent),
		done:   make(chan struct{}),
	}
	go sub.relay(sessionID)
	return sub, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan models.ProgressEvent
	done   chan struct{}
}

func (s *redisSubscription) Events() <-chan models.ProgressEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	close(s.done)
	return s.pubsub.Close()
}

// relay decodes raw pub/sub messages into progress events. Closing the
// subscription closes the underlying channel, which ends the loop.
func (s *redisSubscription) relay(sessionID string) {
	defer close(s.events)

	for msg := range s.pubsub.Channel() {
		var event models.ProgressEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			slog.Warn("dropping undecodable progress event",
				"session_id", sessionID, "error", err)
			continue
		}
		select {
		case s.events <- event:
		case <-s.done:
			return
		}
	}
}

var _ Publisher = (*RedisBus)(nil)
var _ Subscriber = (*RedisBus)(nil)

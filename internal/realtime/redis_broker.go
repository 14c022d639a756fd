package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"buddysurf-chat/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisBroker carries conversation events over Redis pub/sub channels.
type RedisBroker struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisBroker(client *redis.Client, log *logger.Logger) *RedisBroker {
	return &RedisBroker{client: client, log: log}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return b.client.Publish(ctx, channel, data).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string, handler Handler) (Subscription, error) {
	sub := b.client.Subscribe(ctx, channel)

	// Wait for the SUBSCRIBE confirmation so callers know the
	// registration is live before any send races it.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	go func() {
		for msg := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.Errorf("dropping undecodable event on %s: %v", msg.Channel, err)
				continue
			}
			handler(ev)
		}
	}()

	return &redisSubscription{sub: sub}, nil
}

type redisSubscription struct {
	sub *redis.PubSub
}

func (s *redisSubscription) Close() error {
	return s.sub.Close()
}

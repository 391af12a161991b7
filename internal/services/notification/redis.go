package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisBroker publishes over redis Pub/Sub so every API replica can serve
// subscribers of any session.
type RedisBroker struct {
	client *redis.Client
	prefix string
}

func NewRedisBroker(client *redis.Client, prefix string) *RedisBroker {
	if client == nil {
		panic("redis client is required")
	}
	if prefix == "" {
		prefix = "tierpay:"
	}
	return &RedisBroker{client: client, prefix: prefix}
}

func (b *RedisBroker) Publish(ctx context.Context, channel string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return b.client.Publish(ctx, b.prefix+channel, data).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error) {
	pubsub := b.client.Subscribe(ctx, b.prefix+channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan Event, 16)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("dropping malformed event on %s: %v", msg.Channel, err)
					continue
				}
				select {
				case out <- event:
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}

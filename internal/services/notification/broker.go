package notification

import (
	"context"
	"sync"
)

// Broker moves events between publishers and subscribers.
type Broker interface {
	Publish(ctx context.Context, channel string, event Event) error
	// Subscribe returns a channel of events and a cancel func that closes it.
	Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error)
}

// MemoryBroker fans events out in process. A subscriber that falls behind
// loses events rather than blocking the publisher.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan Event]struct{}
	buffer int
}

func NewMemoryBroker(buffer int) *MemoryBroker {
	if buffer <= 0 {
		buffer = 16
	}
	return &MemoryBroker{
		subs:   make(map[string]map[chan Event]struct{}),
		buffer: buffer,
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[channel] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan Event]struct{})
	}
	b.subs[channel][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[channel], ch)
			if len(b.subs[channel]) == 0 {
				delete(b.subs, channel)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}

// Subscribers reports how many subscribers listen on channel.
func (b *MemoryBroker) Subscribers(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

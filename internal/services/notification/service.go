// Package notification pushes session changes to the merchant terminal and
// the customer device.
package notification

import (
	"context"
	"log"
)

type Service interface {
	// Publish emits event on its session, merchant and customer channels.
	// Delivery is best effort; failures are logged, never returned to the
	// caller whose transition already committed.
	Publish(ctx context.Context, event Event)
	Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error)
}

type service struct {
	broker Broker
}

// NewService creates a notification service. A nil broker means in-process delivery.
func NewService(broker Broker) Service {
	if broker == nil {
		broker = NewMemoryBroker(0)
	}
	return &service{broker: broker}
}

func (s *service) Publish(ctx context.Context, event Event) {
	for _, channel := range event.Channels() {
		if err := s.broker.Publish(ctx, channel, event); err != nil {
			log.Printf("notify %s on %s failed: %v", event.Type, channel, err)
		}
	}
}

func (s *service) Subscribe(ctx context.Context, channel string) (<-chan Event, func(), error) {
	return s.broker.Subscribe(ctx, channel)
}

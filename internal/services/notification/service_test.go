package notification

import (
	"context"
	"testing"
	"time"

	"tierpay/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestPublish_ReachesEveryParty(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker(4)
	svc := NewService(broker)

	sess := &models.Session{
		ID:         uuid.New(),
		MerchantID: 11,
		CustomerID: 22,
		Status:     models.SessionStatusCustomerReview,
		Version:    2,
		Amount:     decimal.NewFromInt(100),
	}

	bySession, cancelSession, err := svc.Subscribe(ctx, SessionChannel(sess.ID))
	require.NoError(t, err)
	defer cancelSession()
	byMerchant, cancelMerchant, err := svc.Subscribe(ctx, MerchantChannel(11))
	require.NoError(t, err)
	defer cancelMerchant()
	byCustomer, cancelCustomer, err := svc.Subscribe(ctx, CustomerChannel(22))
	require.NoError(t, err)
	defer cancelCustomer()

	svc.Publish(ctx, NewEvent(EventAmountProposed, sess, time.Now()))

	for _, ch := range []<-chan Event{bySession, byMerchant, byCustomer} {
		ev := receive(t, ch)
		assert.Equal(t, EventAmountProposed, ev.Type)
		assert.Equal(t, sess.ID, ev.SessionID)
		assert.Equal(t, models.SessionStatusCustomerReview, ev.Status)
		assert.Equal(t, int64(2), ev.Version)
	}
}

func TestMemoryBroker_SlowSubscriberDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker(1)

	ch, cancel, err := broker.Subscribe(ctx, "session:x")
	require.NoError(t, err)

	require.NoError(t, broker.Publish(ctx, "session:x", Event{Type: EventSessionCreated}))
	require.NoError(t, broker.Publish(ctx, "session:x", Event{Type: EventAmountProposed}))

	assert.Equal(t, EventSessionCreated, receive(t, ch).Type)
	assert.Equal(t, 1, broker.Subscribers("session:x"))

	cancel()
	cancel()
	assert.Equal(t, 0, broker.Subscribers("session:x"))
	_, open := <-ch
	assert.False(t, open)
}

func TestChannels(t *testing.T) {
	id := uuid.New()
	ev := Event{SessionID: id, MerchantID: 1, CustomerID: 2}
	assert.Equal(t, []string{"session:" + id.String(), "merchant:1", "customer:2"}, ev.Channels())
}

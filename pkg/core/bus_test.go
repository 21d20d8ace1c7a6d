package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextEvent(t *testing.T, sub *Subscriber) Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	evt, ok := sub.Next(ctx)
	require.True(t, ok, "expected an event")
	return evt
}

func TestBusRoutesBroadcastAndScoped(t *testing.T) {
	bus := NewEventBus(8)
	alice1 := bus.Subscribe("alice")
	alice2 := bus.Subscribe("alice") // second tab
	bob := bus.Subscribe("bob")

	bus.Publish(Event{Type: EventOrderBookUpdate}) // broadcast
	bus.Publish(Event{Type: EventBalanceUpdate, Account: "alice"})

	assert.Equal(t, EventOrderBookUpdate, nextEvent(t, alice1).Type)
	assert.Equal(t, EventBalanceUpdate, nextEvent(t, alice1).Type)
	assert.Equal(t, EventOrderBookUpdate, nextEvent(t, alice2).Type)
	assert.Equal(t, EventBalanceUpdate, nextEvent(t, alice2).Type)

	assert.Equal(t, EventOrderBookUpdate, nextEvent(t, bob).Type)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, ok := bob.Next(ctx)
	assert.False(t, ok, "bob must not see alice's balance_update")
}

func TestBusOverflowDropsOldestSameKind(t *testing.T) {
	bus := NewEventBus(3)
	sub := bus.Subscribe("alice")

	bus.Publish(Event{Type: EventMarketData, Data: 1})
	bus.Publish(Event{Type: EventBalanceUpdate, Account: "alice", Data: 2})
	bus.Publish(Event{Type: EventMarketData, Data: 3})
	assert.False(t, sub.TakeLagged())

	// Queue is full; the oldest market_data (1) gives way.
	bus.Publish(Event{Type: EventMarketData, Data: 4})
	assert.True(t, sub.TakeLagged())

	assert.Equal(t, 2, nextEvent(t, sub).Data)
	assert.Equal(t, 3, nextEvent(t, sub).Data)
	assert.Equal(t, 4, nextEvent(t, sub).Data)
}

func TestBusOverflowFallsBackToOldest(t *testing.T) {
	bus := NewEventBus(2)
	sub := bus.Subscribe("alice")

	bus.Publish(Event{Type: EventMarketData, Data: 1})
	bus.Publish(Event{Type: EventBalanceUpdate, Account: "alice", Data: 2})

	// No queued fill to displace; the oldest event overall goes.
	bus.Publish(Event{Type: EventFill, Account: "alice", Data: 3})
	assert.True(t, sub.TakeLagged())

	assert.Equal(t, 2, nextEvent(t, sub).Data)
	assert.Equal(t, 3, nextEvent(t, sub).Data)
}

func TestSubscriberNextHonorsContext(t *testing.T) {
	bus := NewEventBus(4)
	sub := bus.Subscribe("alice")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, ok := sub.Next(ctx)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSubscriberClose(t *testing.T) {
	bus := NewEventBus(4)
	sub := bus.Subscribe("alice")
	require.Equal(t, 1, bus.SubscriberCount())

	bus.Publish(Event{Type: EventMarketData, Data: 1})
	sub.Close()
	assert.Equal(t, 0, bus.SubscriberCount())

	// Queued events still drain, then Next reports closed.
	assert.Equal(t, 1, nextEvent(t, sub).Data)
	_, ok := sub.Next(context.Background())
	assert.False(t, ok)

	// Publishing to a closed subscriber is a no-op.
	bus.Publish(Event{Type: EventMarketData, Data: 2})
	_, ok = sub.Next(context.Background())
	assert.False(t, ok)

	sub.Close() // idempotent
}

func TestBusPublishAllPreservesOrder(t *testing.T) {
	bus := NewEventBus(8)
	sub := bus.Subscribe("alice")

	bus.PublishAll([]Event{
		{Type: EventFill, Account: "alice", Data: 1},
		{Type: EventBalanceUpdate, Account: "alice", Data: 2},
		{Type: EventOrdersUpdate, Account: "alice", Data: 3},
		{Type: EventOrderBookUpdate, Data: 4},
	})

	for want := 1; want <= 4; want++ {
		assert.Equal(t, want, nextEvent(t, sub).Data)
	}
}

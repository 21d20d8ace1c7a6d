package core

import (
	"context"
	"sync"
)

type EventType string

const (
	EventUserInfo        EventType = "user_info"
	EventOrderBook       EventType = "order_book"
	EventOrderBookUpdate EventType = "order_book_update"
	EventFill            EventType = "fill"
	EventBalanceUpdate   EventType = "balance_update"
	EventOrdersUpdate    EventType = "orders_update"
	EventMarketData      EventType = "market_data"
)

// Event is one message bound for subscribers. Account is empty for
// broadcast events (order_book_update, market_data) and set for user-scoped
// ones; the order_book snapshot built for one subscriber carries its account.
type Event struct {
	Type    EventType
	Account string
	Data    any
}

const defaultQueueSize = 64

// Subscriber is one push consumer with a bounded inbound queue. The bus
// writes, the owning connection reads via Next. On overflow the oldest
// queued event of the same kind is dropped (else the oldest event) and the
// subscriber is marked lagged so the transport can resynchronize with fresh
// snapshots.
type Subscriber struct {
	account string
	bus     *EventBus

	mu     sync.Mutex
	queue  []Event
	limit  int
	notify chan struct{}
	lagged bool
	closed bool
}

func (s *Subscriber) Account() string { return s.account }

// push enqueues without blocking. Callers never see an error; slow
// consumers lose events, not the publisher.
func (s *Subscriber) push(evt Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.queue) >= s.limit {
		dropped := false
		for i, queued := range s.queue {
			if queued.Type == evt.Type {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			s.queue = s.queue[1:]
		}
		s.lagged = true
	}
	s.queue = append(s.queue, evt)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available, the context ends, or the
// subscriber closes with an empty queue. The second return is false once no
// further events will arrive.
func (s *Subscriber) Next(ctx context.Context) (Event, bool) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			evt := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return evt, true
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return Event{}, false
		}

		select {
		case <-ctx.Done():
			return Event{}, false
		case <-s.notify:
		}
	}
}

// TakeLagged reports whether events were dropped since the last call and
// clears the flag.
func (s *Subscriber) TakeLagged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	lagged := s.lagged
	s.lagged = false
	return lagged
}

// Close detaches the subscriber from the bus. Safe to call more than once.
func (s *Subscriber) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.bus.remove(s)
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// EventBus fans typed events out to subscribers. Publishing queues into
// per-subscriber buffers and returns; it never blocks on a consumer and
// never raises errors to mutating operations.
type EventBus struct {
	mu        sync.RWMutex
	subs      map[*Subscriber]struct{}
	queueSize int
}

func NewEventBus(queueSize int) *EventBus {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &EventBus{
		subs:      make(map[*Subscriber]struct{}),
		queueSize: queueSize,
	}
}

// Subscribe registers a consumer belonging to an account. An account may
// hold several live subscribers (one per browser tab).
func (b *EventBus) Subscribe(account string) *Subscriber {
	s := &Subscriber{
		account: account,
		bus:     b,
		limit:   b.queueSize,
		notify:  make(chan struct{}, 1),
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

func (b *EventBus) remove(s *Subscriber) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Publish routes one event: broadcast events go to every subscriber,
// account-scoped events only to that account's subscribers.
func (b *EventBus) Publish(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if evt.Account == "" || evt.Account == s.account {
			s.push(evt)
		}
	}
}

// PublishAll publishes events preserving order for any single subscriber.
func (b *EventBus) PublishAll(evts []Event) {
	for _, evt := range evts {
		b.Publish(evt)
	}
}

// SubscriberCount is used by tests and diagnostics.
func (b *EventBus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

package docstore

import (
	"context"
	"sync"
)

// changeHub fans document changes out to live subscriptions. Delivery is
// best-effort per subscriber: a subscriber that stops draining its buffer
// loses changes instead of blocking writers.
type changeHub struct {
	mu     sync.Mutex
	subs   map[uint64]*hubSubscription
	nextID uint64
	buffer int
}

func newChangeHub(buffer int) *changeHub {
	if buffer <= 0 {
		buffer = 64
	}
	return &changeHub{
		subs:   make(map[uint64]*hubSubscription),
		buffer: buffer,
	}
}

// publish delivers the change to every matching open subscription.
func (h *changeHub) publish(change Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs {
		if sub.collection != change.Doc.Collection {
			continue
		}
		if !matches(change.Doc, sub.filters) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
			sub.dropped++
		}
	}
}

// subscribe registers a new subscription tied to ctx: cancelling the
// context closes the subscription as if Close had been called.
func (h *changeHub) subscribe(ctx context.Context, collection string, filters []Filter) *hubSubscription {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	sub := &hubSubscription{
		id:         id,
		hub:        h,
		collection: collection,
		filters:    filters,
		ch:         make(chan Change, h.buffer),
	}
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done():
		}
	}()

	return sub
}

func (h *changeHub) unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(sub.ch)
	}
}

// closeAll tears down every open subscription, e.g. on store shutdown.
func (h *changeHub) closeAll() {
	h.mu.Lock()
	subs := make([]*hubSubscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
}

// hubSubscription implements Subscription over a hub channel.
type hubSubscription struct {
	id         uint64
	hub        *changeHub
	collection string
	filters    []Filter
	ch         chan Change
	dropped    int

	closeOnce sync.Once
	closed    chan struct{}
	initOnce  sync.Once
}

func (s *hubSubscription) done() chan struct{} {
	s.initOnce.Do(func() {
		s.closed = make(chan struct{})
	})
	return s.closed
}

// Changes returns the live change channel. The channel is closed when
// the subscription is closed.
func (s *hubSubscription) Changes() <-chan Change {
	return s.ch
}

// Close stops delivery and releases the subscription. Idempotent.
func (s *hubSubscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.unsubscribe(s.id)
		close(s.done())
	})
}

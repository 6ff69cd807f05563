// Package events implements the single-writer, multi-reader event bus that
// fans worker-reported proxy events out to subscribed client connections
// (spec §4.6).
package events

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"

	"github.com/sozu-sh/sozuctl/internal/wire"
)

// HighWaterMark is the maximum number of buffered events a subscriber may
// lag behind before being dropped (spec §4.6).
const HighWaterMark = 1024

// ErrSubscriberLag is the terminal error delivered to a subscriber dropped
// for falling behind the event rate (spec §4.6). Built with
// github.com/pkg/errors.New so it carries a stack trace into debug logs
// without extra plumbing.
var ErrSubscriberLag = errors.New("event subscriber lag")

// Subscription is one client's view onto the bus. Events arrive on the
// channel returned by Events; Done is closed exactly once, with
// ErrSubscriberLag if the subscriber was dropped for lag or nil if
// Unsubscribe was called directly (spec §4.4 "SubscribeEvents").
type Subscription struct {
	id     uint64
	events chan wire.Event
	done   chan error
	bus    *Bus
}

// Events returns the channel of events delivered to this subscription.
func (s *Subscription) Events() <-chan wire.Event { return s.events }

// Done reports, by closing, why the subscription ended.
func (s *Subscription) Done() <-chan error { return s.done }

// Unsubscribe removes the subscription without treating it as a lag drop.
func (s *Subscription) Unsubscribe() { s.bus.remove(s.id, nil) }

// Bus is the bounded, backpressure-dropping event fan-out (spec §4.6).
type Bus struct {
	mu        deadlock.Mutex
	subs      map[uint64]*Subscription
	nextID    uint64
	dropCount uint64
}

// New returns an empty Bus.
func New() *Bus { return &Bus{subs: make(map[uint64]*Subscription)} }

// Subscribe registers a new subscription with a HighWaterMark-buffered channel.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		events: make(chan wire.Event, HighWaterMark),
		done:   make(chan error, 1),
		bus:    b,
	}
	b.subs[sub.id] = sub
	return sub
}

// Publish fans e out to every subscriber. A subscriber whose buffer is
// already full (at the high-water mark) is dropped rather than blocking
// the publisher or the other subscribers (spec §4.6).
func (b *Bus) Publish(e wire.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subs {
		select {
		case sub.events <- e:
		default:
			delete(b.subs, id)
			atomic.AddUint64(&b.dropCount, 1)
			sub.done <- ErrSubscriberLag
			close(sub.done)
			close(sub.events)
		}
	}
}

func (b *Bus) remove(id uint64, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	if err != nil {
		sub.done <- err
	}
	close(sub.done)
	close(sub.events)
}

// Count returns the current number of live subscriptions (for metrics).
func (b *Bus) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// DropCount returns the total number of subscribers ever dropped for lag
// (for metrics).
func (b *Bus) DropCount() uint64 {
	return atomic.LoadUint64(&b.dropCount)
}

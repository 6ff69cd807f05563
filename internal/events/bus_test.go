package events

import (
	"testing"

	"github.com/sozu-sh/sozuctl/internal/wire"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	sub := b.Subscribe()

	b.Publish(wire.Event{Kind: wire.EventBackendDown, Data: []string{"web", "10.0.0.1:80"}})

	select {
	case e := <-sub.Events():
		if e.Kind != wire.EventBackendDown {
			t.Fatalf("unexpected event kind %s", e.Kind)
		}
	default:
		t.Fatal("expected a buffered event")
	}
}

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := New()
	s1 := b.Subscribe()
	s2 := b.Subscribe()

	b.Publish(wire.Event{Kind: wire.EventBackendUp, Data: []string{"web", "10.0.0.1:80"}})

	if len(s1.Events()) != 1 || len(s2.Events()) != 1 {
		t.Fatal("expected the event delivered to every subscriber")
	}
}

func TestSlowSubscriberDroppedAtHighWaterMark(t *testing.T) {
	b := New()
	sub := b.Subscribe()

	for i := 0; i < HighWaterMark; i++ {
		b.Publish(wire.Event{Kind: wire.EventBackendUp, Data: []string{"web"}})
	}
	if b.Count() != 1 {
		t.Fatalf("subscriber should still be alive at exactly the high-water mark, count=%d", b.Count())
	}

	// One more event overflows the buffer and drops the subscriber.
	b.Publish(wire.Event{Kind: wire.EventBackendUp, Data: []string{"web"}})

	if b.Count() != 0 {
		t.Fatalf("expected the lagging subscriber to be dropped, count=%d", b.Count())
	}
	if b.DropCount() != 1 {
		t.Fatalf("expected DropCount 1, got %d", b.DropCount())
	}
	err, ok := <-sub.Done()
	if !ok || err != ErrSubscriberLag {
		t.Fatalf("expected ErrSubscriberLag on Done(), got err=%v ok=%v", err, ok)
	}
}

func TestUnsubscribeIsNotALagDrop(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	sub.Unsubscribe()

	if b.Count() != 0 {
		t.Fatal("expected subscriber removed")
	}
	if b.DropCount() != 0 {
		t.Fatal("Unsubscribe should not count as a lag drop")
	}
	err, ok := <-sub.Done()
	if ok {
		t.Fatalf("expected Done() to carry no error, got %v", err)
	}
}

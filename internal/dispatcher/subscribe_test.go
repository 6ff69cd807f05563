package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sozu-sh/sozuctl/internal/events"
	"github.com/sozu-sh/sozuctl/internal/wire"
)

func TestSubscribeRelaysPublishedEventsAsProcessing(t *testing.T) {
	d := newTestDispatcher(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan wire.Response, 4)
	emit := func(r wire.Response) { received <- r }

	done := make(chan wire.Response, 1)
	go func() {
		done <- d.subscribe(ctx, wire.Request{ID: "sub1"}, emit)
	}()

	waitForSubscriber(t, d)
	d.bus.Publish(wire.Event{Kind: wire.EventBackendDown})

	select {
	case r := <-received:
		if r.Status != wire.StatusProcessing {
			t.Fatalf("expected PROCESSING, got %s", r.Status)
		}
		if r.ID != "sub1" {
			t.Fatalf("expected the relayed response to share the subscription's request id, got %s", r.ID)
		}
		if r.Content == nil || r.Content.Type != wire.ContentEvent {
			t.Fatalf("expected EVENT content, got %+v", r.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the published event to be relayed")
	}

	cancel()
	select {
	case resp := <-done:
		if resp.Status != wire.StatusOK {
			t.Fatalf("expected OK on clean cancellation, got %s: %s", resp.Status, resp.Message)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscribe to return after context cancellation")
	}
}

func TestSubscribeTerminatesWithErrorOnLagDrop(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	started := make(chan struct{})
	block := make(chan struct{}) // held closed only after the flood below, so the
	// consumer can't drain sub.Events() while the bus fills and overflows it
	// Events still buffered when the drop lands may be relayed before
	// subscribe observes Done, so emit can run more than once.
	var startOnce sync.Once
	emit := func(r wire.Response) {
		startOnce.Do(func() { close(started) })
		<-block
	}

	done := make(chan wire.Response, 1)
	go func() {
		done <- d.subscribe(ctx, wire.Request{ID: "sub1"}, emit)
	}()

	waitForSubscriber(t, d)
	d.bus.Publish(wire.Event{Kind: wire.EventBackendDown})

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the first event to reach the stalled consumer")
	}

	// The consumer is now stuck inside emit and cannot drain sub.Events(), so
	// the HighWaterMark-sized buffer (already empty after the first event
	// was drained) fills and then overflows, dropping the subscriber —
	// Publish does this synchronously under its own lock, independent of
	// whether the consumer ever reads again.
	for i := 0; i < events.HighWaterMark+1; i++ {
		d.bus.Publish(wire.Event{Kind: wire.EventBackendDown})
	}
	close(block)

	select {
	case resp := <-done:
		if resp.Status != wire.StatusError {
			t.Fatalf("expected ERROR on lag drop, got %s", resp.Status)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for subscribe to terminate on lag drop")
	}
}

func waitForSubscriber(t *testing.T, d *Dispatcher) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if d.bus.Count() == 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for the subscription to register")
}

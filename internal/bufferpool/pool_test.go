package bufferpool

import (
	"context"
	"testing"
	"time"
)

func TestCheckoutYieldsNonOverlappingSlots(t *testing.T) {
	p := New(2, 4, nil)

	h1, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	h2, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	h1.Bytes()[0] = 0xAA
	h2.Bytes()[0] = 0xBB
	if h1.Bytes()[0] == h2.Bytes()[0] {
		t.Fatal("two concurrent checkouts must not alias the same bytes")
	}
}

func TestCheckoutBlocksAtCapacityUntilRelease(t *testing.T) {
	p := New(1, 8, nil)

	h, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Checkout(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded while the only slot is checked out, got %v", err)
	}

	released := make(chan struct{})
	go func() {
		h2, err := p.Checkout(context.Background())
		if err != nil {
			t.Errorf("Checkout after release: %v", err)
		}
		_ = h2
		close(released)
	}()

	time.Sleep(10 * time.Millisecond)
	h.Release()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Checkout never woke up after Release")
	}
}

func TestReleaseReturnsSlotToFreeList(t *testing.T) {
	p := New(1, 8, nil)
	if p.Available() != 1 {
		t.Fatalf("Available() = %d, want 1", p.Available())
	}

	h, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if p.Available() != 0 {
		t.Fatalf("Available() = %d, want 0 after checkout", p.Available())
	}

	h.Release()
	if p.Available() != 1 {
		t.Fatalf("Available() = %d, want 1 after release", p.Available())
	}
}

func TestCheckoutAfterCloseErrors(t *testing.T) {
	p := New(1, 8, nil)
	p.Close()

	if _, err := p.Checkout(context.Background()); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestDoubleReleaseDoesNotDoubleFreeTheSlot(t *testing.T) {
	p := New(1, 8, nil)

	h, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	h.Release()
	h.Release() // must be a no-op, not a second free-list entry

	if p.Available() != 1 {
		t.Fatalf("Available() = %d, want 1 after double release", p.Available())
	}

	h1, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	defer h1.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Checkout(ctx); err != context.DeadlineExceeded {
		t.Fatalf("a double-released slot must not let a second Checkout succeed while the only slot is live, got %v", err)
	}
}

type fakeSink struct{ last int }

func (f *fakeSink) SetCheckedOut(n int) { f.last = n }

func TestSinkReceivesCheckedOutCounts(t *testing.T) {
	sink := &fakeSink{}
	p := New(2, 4, sink)

	h, err := p.Checkout(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sink.last != 1 {
		t.Fatalf("sink.last = %d, want 1", sink.last)
	}

	h.Release()
	if sink.last != 0 {
		t.Fatalf("sink.last = %d, want 0 after release", sink.last)
	}
}

// Package bufferpool is the corrected redesign of the source's buffer pool
// (spec §9 "Buffer pool redesign"): the original aliases a single
// memory-mapped region for every checkout, so all checkouts share the same
// bytes. The contract specified instead is a pool of N fixed-size buffers
// carved out of one larger region, tracked by a free-list; Checkout hands
// out exclusive access to one slot, and Release returns it.
package bufferpool

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
)

// ErrClosed is returned by Checkout once the pool has been Closed.
var ErrClosed = errors.New("bufferpool: pool closed")

// Sink is the minimal metrics dependency the pool reports checkout/release
// counts to. "Any process-wide buffer count gauge must be an explicit
// metrics-sink dependency injected into the pool and registry, not ambient
// state" (spec §9) — this keeps that contract without internal/bufferpool
// importing internal/metrics directly, avoiding a dependency cycle risk.
type Sink interface {
	SetCheckedOut(n int)
}

// noopSink discards counts, used when the caller has no Sink to inject.
type noopSink struct{}

func (noopSink) SetCheckedOut(int) {}

// Pool carves a single backing region of size N*bufferSize into N
// fixed-size, non-overlapping slots and free-lists them (spec §9: "at most
// K concurrent checkouts, each a non-overlapping region of size B").
type Pool struct {
	mu         deadlock.Mutex
	region     []byte
	bufferSize int
	free       []int  // indices of unchecked-out slots
	out        []bool // out[i] is true while slot i is checked out
	checkedOut int
	closed     bool
	sink       Sink
	wake       chan struct{}
}

// New builds a Pool of n buffers, each bufferSize bytes, backed by one
// contiguous allocation. sink may be nil, in which case counts are
// discarded.
func New(n, bufferSize int, sink Sink) *Pool {
	if sink == nil {
		sink = noopSink{}
	}
	free := make([]int, n)
	for i := range free {
		free[i] = i
	}
	return &Pool{
		region:     make([]byte, n*bufferSize),
		bufferSize: bufferSize,
		free:       free,
		out:        make([]bool, n),
		sink:       sink,
	}
}

// Handle is an exclusive-access reference to one buffer slot. It is valid
// until Release is called; using a Handle after Release is a caller bug
// (spec §9 gives no re-entrancy guarantee past release, matching the
// original's Checkout/Drop pairing).
type Handle struct {
	pool  *Pool
	index int
	data  []byte
}

// Bytes returns the slot's exclusive backing buffer.
func (h *Handle) Bytes() []byte { return h.data }

// Release returns the slot to the pool's free-list. Safe to call exactly
// once; a second call is a no-op protected by the pool lock, not a panic,
// since a worker's drop path may race a pool Close.
func (h *Handle) Release() {
	h.pool.release(h.index)
}

// Checkout blocks until a free slot is available or ctx is done. A pool
// with N buffers therefore enforces "at most N concurrent checkouts"
// structurally: once all N are checked out, Checkout blocks rather than
// growing the region or aliasing an in-use slot.
func (p *Pool) Checkout(ctx context.Context) (*Handle, error) {
	for {
		h, wake, err := p.tryCheckout()
		if h != nil || err != nil {
			return h, err
		}

		select {
		case <-wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// tryCheckout attempts one checkout under a single critical section. If no
// slot is free, it registers (creating if needed) the wake channel closed
// on the next Release, so the caller can block on exactly that channel
// without a gap between the free-list check and the wait.
func (p *Pool) tryCheckout() (*Handle, <-chan struct{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, nil, ErrClosed
	}
	if len(p.free) == 0 {
		if p.wake == nil {
			p.wake = make(chan struct{})
		}
		return nil, p.wake, nil
	}

	idx := p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.out[idx] = true
	p.checkedOut++
	p.sink.SetCheckedOut(p.checkedOut)
	start := idx * p.bufferSize
	h := &Handle{pool: p, index: idx, data: p.region[start : start+p.bufferSize]}
	return h, nil, nil
}

// release returns index to the free-list. A second release of the same
// index (a caller bug: an explicit Release racing a deferred one, say) is
// a true no-op — without the out[index] guard it would free-list the same
// slot twice, letting two live Checkouts alias one buffer, exactly the
// aliasing bug this package's redesign exists to eliminate.
func (p *Pool) release(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.out[index] {
		return
	}
	p.out[index] = false
	p.free = append(p.free, index)
	p.checkedOut--
	p.sink.SetCheckedOut(p.checkedOut)
	if p.wake != nil {
		close(p.wake)
		p.wake = nil
	}
}

// Close marks the pool closed; outstanding Handles remain valid until
// released, but no new Checkout succeeds.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.wake != nil {
		close(p.wake)
		p.wake = nil
	}
}

// Available reports the current number of free slots.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

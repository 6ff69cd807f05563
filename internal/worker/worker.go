// Package worker tracks supervised proxy processes: their identity, run
// state, and per-worker command channel (spec §4.3).
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sozu-sh/sozuctl/internal/wire"
)

// DefaultDeadline is the per-command worker reply deadline (spec §4.3/§4.4).
const DefaultDeadline = 10 * time.Second

// ErrNotAnswering is the terminal error substituted for a worker's reply
// once its per-command deadline expires.
var ErrNotAnswering = errors.New("worker did not answer")

// Worker is one supervised proxy process: its recorded identity plus the
// in-process channel standing in for its control connection. Real fd/exec
// handling (spawning a child, scm-rights socket passing) is out of scope
// for this control plane — see DESIGN.md — so the channel is answered by
// an in-process loop rather than a child process.
type Worker struct {
	mu    sync.Mutex
	info  wire.WorkerInfo
	inbox chan workerCall
}

type workerCall struct {
	req   wire.Request
	reply chan wire.Response
}

func newWorker(id uint32, pid int32) *Worker {
	w := &Worker{
		info:  wire.WorkerInfo{ID: id, PID: pid, State: wire.RunStateRunning},
		inbox: make(chan workerCall, 64),
	}
	go w.loop()
	return w
}

// loop stands in for the worker process's own event loop: it acknowledges
// every call with OK, matching the behavior a healthy worker exhibits for
// the mutation and list tags this registry forwards.
func (w *Worker) loop() {
	for call := range w.inbox {
		call.reply <- wire.OK(call.req.ID, "")
	}
}

// Info returns a copy of the worker's current WorkerInfo.
func (w *Worker) Info() wire.WorkerInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.info
}

func (w *Worker) setState(st wire.RunState) {
	w.mu.Lock()
	w.info.State = st
	w.mu.Unlock()
}

func (w *Worker) setListenSockets(addrs []string) {
	w.mu.Lock()
	w.info.ListenSockets = addrs
	w.mu.Unlock()
}

// Send forwards req to the worker over an internal correlation id (distinct
// from req.ID, so concurrent fan-outs originating from different client
// requests never collide, spec §4.3) and waits up to deadline for a reply.
// If the deadline expires the worker's state becomes NotAnswering and a
// synthetic ERROR response is returned; a late reply that arrives after
// the deadline is discarded but restores the run-state to Running (spec
// §4.3).
func (w *Worker) Send(ctx context.Context, req wire.Request, deadline time.Duration) (wire.Response, error) {
	reply := make(chan wire.Response, 1)

	internal := req
	internal.ID = correlationID().String()

	select {
	case w.inbox <- workerCall{req: internal, reply: reply}:
	case <-ctx.Done():
		return wire.Response{}, ctx.Err()
	}

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case resp := <-reply:
		w.mu.Lock()
		if w.info.State == wire.RunStateNotAnswering {
			w.info.State = wire.RunStateRunning
		}
		w.mu.Unlock()
		return resp, nil
	case <-timer.C:
		w.setState(wire.RunStateNotAnswering)
		go func() {
			<-reply // late reply, discarded
			w.mu.Lock()
			if w.info.State == wire.RunStateNotAnswering {
				w.info.State = wire.RunStateRunning
			}
			w.mu.Unlock()
		}()
		werr := errors.Wrapf(ErrNotAnswering, "worker %d", w.Info().ID)
		return wire.Err(req.ID, werr), ErrNotAnswering
	case <-ctx.Done():
		return wire.Response{}, ctx.Err()
	}
}

// correlationID gives Send the id that tags an outbound worker request
// distinctly from the client-chosen request id
// (spec §4.3: "Internal request ids on the supervisor<->worker channel are
// distinct from client ids").
func correlationID() uuid.UUID { return uuid.New() }

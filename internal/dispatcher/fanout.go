package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/sozu-sh/sozuctl/internal/config"
	"github.com/sozu-sh/sozuctl/internal/logging"
	"github.com/sozu-sh/sozuctl/internal/wire"
	"github.com/sozu-sh/sozuctl/internal/worker"
)

// ackResult is one worker's outcome for a fanned-out request.
type ackResult struct {
	workerID uint32
	resp     wire.Response
	err      error
}

// fanOut sends req to every live worker concurrently (bounded by the live
// worker count, not unbounded — spec §4.4), emitting one interim
// PROCESSING response per acknowledgement as it arrives.
func (d *Dispatcher) fanOut(ctx context.Context, req wire.Request, emit Emit) []ackResult {
	live := d.workers.Live()
	if len(live) == 0 {
		return nil
	}

	emit = safeEmit(emit)
	var mu sync.Mutex
	results := make([]ackResult, 0, len(live))

	var g errgroup.Group
	for _, w := range live {
		w := w
		g.Go(func() error {
			resp, err := w.Send(ctx, req, worker.DefaultDeadline)
			id := w.Info().ID
			mu.Lock()
			results = append(results, ackResult{workerID: id, resp: resp, err: err})
			mu.Unlock()
			emit(wire.Processing(req.ID, fmt.Sprintf("worker %d acknowledged", id), nil))
			return nil
		})
	}
	_ = g.Wait() // goroutines never return a non-nil error; outcomes are aggregated via results
	return results
}

// aggregate summarizes fan-out outcomes: ok iff every result is a non-error
// OK response. Failures are combined with multierr so the terminal ERROR
// message enumerates every failing worker (spec §7 "Worker" error class).
func aggregate(results []ackResult) (ok bool, summary error) {
	ok = true
	for _, r := range results {
		if r.err != nil {
			ok = false
			summary = multierr.Append(summary, fmt.Errorf("worker %d: %w", r.workerID, r.err))
			continue
		}
		if r.resp.Status != wire.StatusOK {
			ok = false
			summary = multierr.Append(summary, fmt.Errorf("worker %d: %s", r.workerID, r.resp.Message))
		}
	}
	return ok, summary
}

// succeededWorkerIDs returns the ids of workers that acknowledged OK,
// used to target a rollback fan-out at only the surviving workers.
func succeededWorkerIDs(results []ackResult) []uint32 {
	var ids []uint32
	for _, r := range results {
		if r.err == nil && r.resp.Status == wire.StatusOK {
			ids = append(ids, r.workerID)
		}
	}
	return ids
}

// mutate handles a fan-out ConfigState mutation (spec §4.4): ConfigState is
// updated before fan-out; if any live worker rejects, the dispatcher
// attempts the inverse mutation on both ConfigState and the surviving
// workers before reporting ERROR (best-effort rollback).
func (d *Dispatcher) mutate(ctx context.Context, req wire.Request, payload any, emit Emit) wire.Response {
	order := config.Order{Type: req.Type, Payload: payload}
	diff, err := d.state.Apply(order)
	if err != nil {
		return wire.Err(req.ID, err)
	}

	results := d.fanOut(ctx, req, emit)
	ok, summary := aggregate(results)
	if ok {
		d.refreshEntityMetrics()
		return wire.OK(req.ID, "")
	}

	d.rollback(ctx, diff, succeededWorkerIDs(results))
	d.refreshEntityMetrics()
	return wire.Err(req.ID, fmt.Errorf("mutation rejected by one or more workers: %w", summary))
}

// rollback best-effort replays diff.Inverse against ConfigState and the
// given surviving worker ids (spec §4.4).
func (d *Dispatcher) rollback(ctx context.Context, diff *config.Diff, survivors []uint32) {
	for _, inv := range diff.Inverse {
		if _, err := d.state.Apply(inv); err != nil {
			d.log.Errorf("rollback: reapplying inverse order %s: %s", inv.Type, err)
		}

		content, err := json.Marshal(inv.Payload)
		if err != nil {
			continue
		}
		invReq := wire.Request{ID: uuid.NewString(), Type: inv.Type, Content: content}
		for _, id := range survivors {
			w, ok := d.workers.Get(id)
			if !ok {
				continue
			}
			if _, err := w.Send(ctx, invReq, worker.DefaultDeadline); err != nil {
				d.log.Errorf("rollback: worker %d did not accept inverse order %s: %s", id, inv.Type, err)
			}
		}
	}
}

// ambientMutate handles the non-ConfigState fan-out mutations:
// CONFIGURE_METRICS, LOGGING, SOFT_STOP, HARD_STOP, RETURN_LISTEN_SOCKETS
// (spec §4.4). The supervisor's own local effect is applied first so its
// own metrics/log level tracks the request too (SPEC_FULL §4.4), then the
// request is fanned out to every live worker.
func (d *Dispatcher) ambientMutate(ctx context.Context, req wire.Request, payload any, emit Emit) wire.Response {
	switch req.Type {
	case wire.ConfigureMetrics:
		p := payload.(*wire.ConfigureMetricsPayload)
		d.sink.Configure(p.Enabled, p.Tagged)
	case wire.Logging:
		p := payload.(*wire.LoggingPayload)
		if err := d.logCfg.SetLevel(logging.Level(p.Level)); err != nil {
			return wire.Err(req.ID, err)
		}
	case wire.SoftStop:
		for _, w := range d.workers.Live() {
			if err := d.workers.SoftStop(w.Info().ID); err != nil {
				d.log.Warningf("soft-stop worker %d: %s", w.Info().ID, err)
			}
		}
	case wire.HardStop:
		for _, w := range d.workers.Live() {
			if err := d.workers.HardStop(w.Info().ID); err != nil {
				d.log.Warningf("hard-stop worker %d: %s", w.Info().ID, err)
			}
		}
	case wire.ReturnListenSockets:
		// No supervisor-local state to update here: ReturnListenSocketsPayload
		// carries no fields, so no worker's WorkerInfo.ListenSockets is
		// recorded by this request (see DESIGN.md Open Question decisions).
	}

	results := d.fanOut(ctx, req, emit)
	ok, summary := aggregate(results)
	if !ok {
		return wire.Err(req.ID, fmt.Errorf("rejected by one or more workers: %w", summary))
	}
	return wire.OK(req.ID, "")
}

// targeted handles UPGRADE_WORKER(id), the one request routed to a single
// named worker rather than every live worker (spec §4.4).
func (d *Dispatcher) targeted(ctx context.Context, req wire.Request, payload any, emit Emit) wire.Response {
	p := payload.(*wire.UpgradeWorkerPayload)
	w, ok := d.workers.Get(p.WorkerID)
	if !ok {
		return wire.Err(req.ID, fmt.Errorf("worker %d: %w", p.WorkerID, worker.ErrUnknownWorker))
	}
	resp, err := w.Send(ctx, req, worker.DefaultDeadline)
	if err != nil {
		return wire.Err(req.ID, err)
	}
	resp.ID = req.ID
	return resp
}

func (d *Dispatcher) refreshEntityMetrics() {
	snap := d.state.Dump()
	d.sink.SetEntityCounts(len(snap.Clusters),
		len(snap.HTTPFrontends)+len(snap.HTTPSFrontends)+len(snap.TCPFrontends),
		len(snap.Backends),
		len(snap.HTTPListeners)+len(snap.HTTPSListeners)+len(snap.TCPListeners),
		len(snap.Certificates))
	d.sink.SetWorkerCount(len(d.workers.Live()))
	d.sink.SetSubscribers(d.bus.Count(), d.bus.DropCount())
}

// Package dispatcher classifies each decoded Request and routes it to
// local-only handling, a fan-out to every live worker, a single targeted
// worker, a query aggregation, or a long-lived event subscription
// (spec §4.4), grounded on the teacher's internal/handler+internal/server
// constructor-injection shape (a struct holding the shared stores, methods
// keyed by request tag).
package dispatcher

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/tliron/commonlog"

	"github.com/sozu-sh/sozuctl/internal/config"
	"github.com/sozu-sh/sozuctl/internal/events"
	"github.com/sozu-sh/sozuctl/internal/logging"
	"github.com/sozu-sh/sozuctl/internal/metrics"
	"github.com/sozu-sh/sozuctl/internal/wire"
	"github.com/sozu-sh/sozuctl/internal/worker"
)

// ErrUnhandledRequestType marks a decoded request whose tag passed
// RequestType.IsValid but matches none of Handle's classification tables —
// only reachable if tags.go's requestTypeNames table drifts from this
// package's switches.
var ErrUnhandledRequestType = errors.New("dispatcher: unhandled request type")

func errUnhandledRequestType(t wire.RequestType) error {
	return errors.Wrapf(ErrUnhandledRequestType, "%s", t)
}

// ErrPartialLoad reports that a LOAD_STATE/RELOAD_CONFIGURATION diff was
// applied command-by-command and one or more of those commands was
// rejected; the remaining commands are still applied, so state reflects
// every command that succeeded (spec §4.4 "atomic per-command, not for the
// whole file").
var ErrPartialLoad = errors.New("dispatcher: one or more diffed commands were rejected")

func errPartialLoad(failed, total int) error {
	return errors.Wrapf(ErrPartialLoad, "%d/%d commands rejected", failed, total)
}

// Dispatcher holds every shared store the dispatch table reads or mutates.
type Dispatcher struct {
	log     commonlog.Logger
	state   *config.State
	workers *worker.Registry
	bus     *events.Bus
	sink    *metrics.Sink
	store   *config.StateStore
	logCfg  *logging.Config
}

// New builds a Dispatcher over the given shared stores.
func New(log commonlog.Logger, state *config.State, workers *worker.Registry, bus *events.Bus, sink *metrics.Sink, store *config.StateStore, logCfg *logging.Config) *Dispatcher {
	return &Dispatcher{log: log, state: state, workers: workers, bus: bus, sink: sink, store: store, logCfg: logCfg}
}

// Emit is how a handler reports an interim (PROCESSING) response; the
// final return value of Handle is always the terminal response. A
// Dispatcher never calls Emit concurrently with itself for the same
// request from more than one goroutine without synchronizing first (see
// safeEmit in fanout.go).
type Emit func(wire.Response)

var configMutationTypes = map[wire.RequestType]struct{}{
	wire.AddCluster: {}, wire.RemoveCluster: {},
	wire.AddHTTPFrontend: {}, wire.RemoveHTTPFrontend: {},
	wire.AddHTTPSFrontend: {}, wire.RemoveHTTPSFrontend: {},
	wire.AddTCPFrontend: {}, wire.RemoveTCPFrontend: {},
	wire.AddCertificate: {}, wire.ReplaceCertificate: {}, wire.RemoveCertificate: {},
	wire.AddBackend: {}, wire.RemoveBackend: {},
	wire.AddHTTPListener: {}, wire.AddHTTPSListener: {}, wire.AddTCPListener: {},
	wire.RemoveListener: {}, wire.ActivateListener: {}, wire.DeactivateListener: {},
}

var ambientMutationTypes = map[wire.RequestType]struct{}{
	wire.ConfigureMetrics: {}, wire.Logging: {}, wire.SoftStop: {}, wire.HardStop: {},
	wire.ReturnListenSockets: {},
}

var queryTypes = map[wire.RequestType]struct{}{
	wire.QueryClusters: {}, wire.QueryClustersHashes: {}, wire.QueryCertificates: {}, wire.QueryMetrics: {},
}

// Handle classifies req and routes it, invoking emit zero or more times for
// interim responses and returning the terminal response (spec §4.4).
// Callers running this over a long-lived connection should invoke Handle
// in its own goroutine per request so a streaming SUBSCRIBE_EVENTS or slow
// fan-out never blocks other requests on the same connection (spec §5
// "responses to distinct Requests may interleave").
func (d *Dispatcher) Handle(ctx context.Context, req wire.Request, emit Emit) wire.Response {
	payload, err := req.Payload()
	if err != nil {
		return wire.Err(req.ID, err)
	}

	switch {
	case req.Type == wire.SubscribeEvents:
		return d.subscribe(ctx, req, emit)
	case req.Type == wire.UpgradeWorker:
		return d.targeted(ctx, req, payload, emit)
	case isQuery(req.Type):
		return d.query(ctx, req, payload, emit)
	case isConfigMutation(req.Type):
		return d.mutate(ctx, req, payload, emit)
	case isAmbientMutation(req.Type):
		return d.ambientMutate(ctx, req, payload, emit)
	default:
		return d.local(ctx, req, payload)
	}
}

func isConfigMutation(t wire.RequestType) bool {
	_, ok := configMutationTypes[t]
	return ok
}

func isAmbientMutation(t wire.RequestType) bool {
	_, ok := ambientMutationTypes[t]
	return ok
}

func isQuery(t wire.RequestType) bool {
	_, ok := queryTypes[t]
	return ok
}

// safeEmit wraps emit with a mutex so concurrent fan-out goroutines can
// call it without racing on the underlying connection writer.
func safeEmit(emit Emit) Emit {
	var mu sync.Mutex
	return func(r wire.Response) {
		mu.Lock()
		defer mu.Unlock()
		emit(r)
	}
}

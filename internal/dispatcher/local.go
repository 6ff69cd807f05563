package dispatcher

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/sozu-sh/sozuctl/internal/snapshot"
	"github.com/sozu-sh/sozuctl/internal/wire"
)

// local handles the no-worker-involvement request classification (spec
// §4.4): DUMP_STATE, LIST_WORKERS, LIST_FRONTENDS, LIST_LISTENERS, STATUS,
// SAVE_STATE, LOAD_STATE, RELOAD_CONFIGURATION, UPGRADE_MAIN, LAUNCH_WORKER.
func (d *Dispatcher) local(ctx context.Context, req wire.Request, payload any) wire.Response {
	switch req.Type {
	case wire.DumpState:
		return d.dumpState(req)
	case wire.ListWorkers:
		return d.listWorkers(req)
	case wire.ListFrontends:
		return d.listFrontends(req, payload.(*wire.ListFrontendsPayload))
	case wire.ListListeners:
		return d.listListeners(req)
	case wire.Status:
		return d.status(req)
	case wire.SaveState:
		return d.saveState(req, payload.(*wire.SaveStatePayload))
	case wire.LoadState:
		return d.loadState(ctx, req, payload.(*wire.LoadStatePayload).Path, nil)
	case wire.ReloadConfiguration:
		return d.loadState(ctx, req, "", payload.(*wire.ReloadConfigurationPayload).Path)
	case wire.UpgradeMain:
		return d.upgradeMain(req)
	case wire.LaunchWorker:
		return d.launchWorker(req)
	default:
		return wire.Err(req.ID, errUnhandledRequestType(req.Type))
	}
}

func (d *Dispatcher) dumpState(req wire.Request) wire.Response {
	content, err := wire.NewResponseContent(wire.ContentState, d.state.Dump())
	if err != nil {
		return wire.Err(req.ID, err)
	}
	return wire.Response{ID: req.ID, Version: wire.ProtocolVersion, Status: wire.StatusOK, Content: content}
}

func (d *Dispatcher) listWorkers(req wire.Request) wire.Response {
	content, err := wire.NewResponseContent(wire.ContentWorkers, d.workers.List())
	if err != nil {
		return wire.Err(req.ID, err)
	}
	return wire.Response{ID: req.ID, Version: wire.ProtocolVersion, Status: wire.StatusOK, Content: content}
}

// frontendEntry is the uniform shape LIST_FRONTENDS reports across all
// three frontend flavors, tagged so a client filtering by kind can tell
// them apart without three separate response shapes.
type frontendEntry struct {
	Kind wire.FrontendKind      `json:"kind"`
	HTTP *wire.HTTPFrontendSpec `json:"http,omitempty"`
	TCP  *wire.TCPFrontendSpec  `json:"tcp,omitempty"`
}

func (d *Dispatcher) listFrontends(req wire.Request, p *wire.ListFrontendsPayload) wire.Response {
	snap := d.state.Dump()
	var out []frontendEntry
	want := func(k wire.FrontendKind) bool { return p.Kind == nil || *p.Kind == k }

	if want(wire.FrontendHTTP) {
		for i := range snap.HTTPFrontends {
			out = append(out, frontendEntry{Kind: wire.FrontendHTTP, HTTP: &snap.HTTPFrontends[i]})
		}
	}
	if want(wire.FrontendHTTPS) {
		for i := range snap.HTTPSFrontends {
			out = append(out, frontendEntry{Kind: wire.FrontendHTTPS, HTTP: &snap.HTTPSFrontends[i]})
		}
	}
	if want(wire.FrontendTCP) {
		for i := range snap.TCPFrontends {
			out = append(out, frontendEntry{Kind: wire.FrontendTCP, TCP: &snap.TCPFrontends[i]})
		}
	}

	content, err := wire.NewResponseContent(wire.ContentFrontendList, out)
	if err != nil {
		return wire.Err(req.ID, err)
	}
	return wire.Response{ID: req.ID, Version: wire.ProtocolVersion, Status: wire.StatusOK, Content: content}
}

type activeListenerEntry struct {
	Kind    wire.ListenerKind `json:"kind"`
	Address string            `json:"address"`
}

type listenersReport struct {
	HTTP   []wire.ListenerSpec      `json:"http"`
	HTTPS  []wire.HTTPSListenerSpec `json:"https"`
	TCP    []wire.ListenerSpec      `json:"tcp"`
	Active []activeListenerEntry    `json:"active"`
}

func (d *Dispatcher) listListeners(req wire.Request) wire.Response {
	snap := d.state.Dump()
	report := listenersReport{HTTP: snap.HTTPListeners, HTTPS: snap.HTTPSListeners, TCP: snap.TCPListeners}
	for _, a := range snap.ActiveListeners {
		report.Active = append(report.Active, activeListenerEntry{Kind: a.Kind, Address: a.Address})
	}

	content, err := wire.NewResponseContent(wire.ContentListenersList, report)
	if err != nil {
		return wire.Err(req.ID, err)
	}
	return wire.Response{ID: req.ID, Version: wire.ProtocolVersion, Status: wire.StatusOK, Content: content}
}

// statusReport is STATUS's response shape: the supervisor's own run state
// plus each worker's locally-tracked run state (spec §4.4 "Status
// (partially)" local — the registry already tracks NotAnswering/Stopping
// without contacting the worker, so no round trip is needed here).
type statusReport struct {
	Main    string            `json:"main"`
	Workers []wire.WorkerInfo `json:"workers"`
}

func (d *Dispatcher) status(req wire.Request) wire.Response {
	content, err := wire.NewResponseContent(wire.ContentStatus, statusReport{
		Main:    "RUNNING",
		Workers: d.workers.List(),
	})
	if err != nil {
		return wire.Err(req.ID, err)
	}
	return wire.Response{ID: req.ID, Version: wire.ProtocolVersion, Status: wire.StatusOK, Content: content}
}

func (d *Dispatcher) saveState(req wire.Request, p *wire.SaveStatePayload) wire.Response {
	if err := snapshot.SaveState(d.state, d.store, p.Path); err != nil {
		return wire.Err(req.ID, err)
	}
	return wire.OK(req.ID, "")
}

// loadState implements both LOAD_STATE and RELOAD_CONFIGURATION (spec §4.4:
// both diff current state against file state and dispatch the resulting
// command sequence atomically per-command, not for the whole file).
// loadPath is LOAD_STATE's required path; reloadPath is
// RELOAD_CONFIGURATION's optional one — exactly one of the two call sites
// supplies a non-empty value for its own payload shape.
func (d *Dispatcher) loadState(ctx context.Context, req wire.Request, loadPath string, reloadPath *string) wire.Response {
	path := loadPath
	if reloadPath != nil {
		path = *reloadPath
	}

	diff, err := snapshot.ReloadConfiguration(d.state, d.store, path)
	if err != nil {
		return wire.Err(req.ID, err)
	}

	var failures []wire.Response
	for _, order := range diff {
		content, err := json.Marshal(order.Payload)
		if err != nil {
			return wire.Err(req.ID, err)
		}
		subReq := wire.Request{ID: uuid.NewString(), Type: order.Type, Content: content}
		resp := d.mutate(ctx, subReq, order.Payload, func(wire.Response) {})
		if resp.Status != wire.StatusOK {
			failures = append(failures, resp)
		}
	}

	if len(failures) > 0 {
		return wire.Err(req.ID, errPartialLoad(len(failures), len(diff)))
	}
	return wire.OK(req.ID, "")
}

func (d *Dispatcher) upgradeMain(req wire.Request) wire.Response {
	// A real binary upgrade execs a new supervisor process over this one;
	// that process-replacement boundary is outside this control plane's
	// scope (see DESIGN.md), so this acknowledges the request without
	// disturbing the worker registry or ConfigState.
	return wire.OK(req.ID, "upgrade acknowledged")
}

func (d *Dispatcher) launchWorker(req wire.Request) wire.Response {
	info := d.workers.Launch(0)
	content, err := wire.NewResponseContent(wire.ContentWorkers, info)
	if err != nil {
		return wire.Err(req.ID, err)
	}
	d.refreshEntityMetrics()
	return wire.Response{ID: req.ID, Version: wire.ProtocolVersion, Status: wire.StatusOK, Content: content}
}

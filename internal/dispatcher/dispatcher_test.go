package dispatcher

import (
	"context"
	"testing"

	"github.com/sozu-sh/sozuctl/internal/config"
	"github.com/sozu-sh/sozuctl/internal/events"
	"github.com/sozu-sh/sozuctl/internal/logging"
	"github.com/sozu-sh/sozuctl/internal/metrics"
	"github.com/sozu-sh/sozuctl/internal/wire"
	"github.com/sozu-sh/sozuctl/internal/worker"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	logCfg := logging.New(logging.LevelError)
	return New(logCfg.Named("dispatcher_test"), config.New(), worker.NewRegistry(), events.New(), metrics.New("sozuctl_test"), &config.StateStore{}, logCfg)
}

func addCluster(t *testing.T, d *Dispatcher, id string) {
	t.Helper()
	order := config.Order{Type: wire.AddCluster, Payload: &wire.AddClusterPayload{ClusterID: id}}
	if _, err := d.state.Apply(order); err != nil {
		t.Fatalf("seeding cluster %s: %v", id, err)
	}
}

func TestIsConfigMutationCoversMutatingTags(t *testing.T) {
	for _, tag := range []wire.RequestType{wire.AddCluster, wire.RemoveCluster, wire.AddBackend, wire.ActivateListener} {
		if !isConfigMutation(tag) {
			t.Errorf("expected %s classified as a config mutation", tag)
		}
	}
	if isConfigMutation(wire.Status) {
		t.Error("STATUS must not classify as a config mutation")
	}
}

func TestIsAmbientMutationCoversAmbientTags(t *testing.T) {
	for _, tag := range []wire.RequestType{wire.ConfigureMetrics, wire.Logging, wire.SoftStop, wire.HardStop, wire.ReturnListenSockets} {
		if !isAmbientMutation(tag) {
			t.Errorf("expected %s classified as an ambient mutation", tag)
		}
	}
	if isAmbientMutation(wire.AddCluster) {
		t.Error("ADD_CLUSTER must not classify as an ambient mutation")
	}
}

func TestIsQueryCoversQueryTags(t *testing.T) {
	for _, tag := range []wire.RequestType{wire.QueryClusters, wire.QueryClustersHashes, wire.QueryCertificates, wire.QueryMetrics} {
		if !isQuery(tag) {
			t.Errorf("expected %s classified as a query", tag)
		}
	}
	if isQuery(wire.ListWorkers) {
		t.Error("LIST_WORKERS must not classify as a query")
	}
}

func TestHandleRoutesConfigMutationThroughMutate(t *testing.T) {
	d := newTestDispatcher(t)
	req := wire.Request{ID: "r1", Type: wire.AddCluster, Content: mustJSON(t, wire.AddClusterPayload{ClusterID: "web"})}

	resp := d.Handle(context.Background(), req, func(wire.Response) {})
	if resp.Status != wire.StatusOK {
		t.Fatalf("expected OK, got %s: %s", resp.Status, resp.Message)
	}
	if !d.state.ClusterExists("web") {
		t.Fatal("expected cluster to be applied to ConfigState")
	}
}

func TestHandleRoutesLocalRequestWithoutTouchingWorkers(t *testing.T) {
	d := newTestDispatcher(t)
	addCluster(t, d, "web")
	req := wire.Request{ID: "r1", Type: wire.DumpState}

	resp := d.Handle(context.Background(), req, func(wire.Response) {})
	if resp.Status != wire.StatusOK {
		t.Fatalf("expected OK, got %s: %s", resp.Status, resp.Message)
	}
	if resp.Content == nil || resp.Content.Type != wire.ContentState {
		t.Fatalf("expected STATE content, got %+v", resp.Content)
	}
}

func TestHandleRejectsUnknownPayload(t *testing.T) {
	d := newTestDispatcher(t)
	req := wire.Request{ID: "r1", Type: wire.AddCluster, Content: []byte(`{"not valid`)}

	resp := d.Handle(context.Background(), req, func(wire.Response) {})
	if resp.Status != wire.StatusError {
		t.Fatalf("expected ERROR for malformed content, got %s", resp.Status)
	}
}

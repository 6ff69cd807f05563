package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sozu-sh/sozuctl/internal/config"
	"github.com/sozu-sh/sozuctl/internal/wire"
)

func mustApply(t *testing.T, s *config.State, o config.Order) {
	t.Helper()
	if _, err := s.Apply(o); err != nil {
		t.Fatalf("Apply(%s): %v", o.Type, err)
	}
}

func seedState(t *testing.T) *config.State {
	t.Helper()
	s := config.New()
	mustApply(t, s, config.Order{Type: wire.AddCluster, Payload: &wire.AddClusterPayload{ClusterID: "web"}})
	mustApply(t, s, config.Order{Type: wire.AddHTTPListener, Payload: &wire.ListenerSpec{Address: "0.0.0.0:80"}})
	mustApply(t, s, config.Order{Type: wire.AddBackend, Payload: &wire.AddBackendPayload{ClusterID: "web", BackendID: "b1", Address: "10.0.0.1:80"}})
	return s
}

func TestSaveStateThenLoadStateRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	store := &config.StateStore{}

	s := seedState(t)
	if err := SaveState(s, store, path); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	if store.LastPath() != path {
		t.Fatalf("SaveState should record the path, got %q", store.LastPath())
	}

	loaded, err := LoadState(&config.StateStore{}, path)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(config.Diff(s, loaded)) != 0 {
		t.Fatal("loaded state should be identical to the saved state")
	}
}

func TestSaveStateLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	store := &config.StateStore{}

	if err := SaveState(seedState(t), store, path); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() != filepath.Base(path) {
			t.Fatalf("unexpected leftover file %q", e.Name())
		}
	}
}

func TestSaveStateFailsWithoutPathOrLastPath(t *testing.T) {
	store := &config.StateStore{}
	if err := SaveState(seedState(t), store, ""); err != ErrNoPath {
		t.Fatalf("expected ErrNoPath, got %v", err)
	}
}

func TestLoadStateReusesLastPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	store := &config.StateStore{}

	if err := SaveState(seedState(t), store, path); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	loaded, err := LoadState(store, "")
	if err != nil {
		t.Fatalf("LoadState with empty path should reuse the last save path: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected a loaded state")
	}
}

func TestLoadStateRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := os.WriteFile(path, []byte("not json\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadState(&config.StateStore{}, path); err == nil {
		t.Fatal("expected malformed state file to be rejected")
	}
}

func TestReloadConfigurationReturnsMinimalDiff(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	store := &config.StateStore{}

	current := seedState(t)
	if err := SaveState(current, store, path); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	orders, err := ReloadConfiguration(current, store, path)
	if err != nil {
		t.Fatalf("ReloadConfiguration: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no diff against an unchanged file, got %d orders", len(orders))
	}

	mustApply(t, current, config.Order{Type: wire.AddCluster, Payload: &wire.AddClusterPayload{ClusterID: "api"}})

	orders, err = ReloadConfiguration(current, store, path)
	if err != nil {
		t.Fatalf("ReloadConfiguration: %v", err)
	}
	found := false
	for _, o := range orders {
		if o.Type == wire.RemoveCluster {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the diff to remove the cluster absent from the saved file")
	}
}

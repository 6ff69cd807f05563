// Package snapshot persists and reloads configuration state to/from disk
// (spec §4.5). The on-disk format is newline-delimited, non-length-framed
// JSON wire.Request objects — one per canonical Add* order — which is
// deliberately distinct from the length-framed wire protocol used on the
// control socket (spec §6).
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sozu-sh/sozuctl/internal/config"
	"github.com/sozu-sh/sozuctl/internal/wire"
)

// ErrNoPath is returned when SaveState/LoadState/ReloadConfiguration are
// given no path and the StateStore has no last-used path to fall back to
// (spec §3 supplement).
var ErrNoPath = errors.New("no path given and no saved path on record")

// resolvePath returns path if non-empty, else store's last-used path.
func resolvePath(store *config.StateStore, path string) (string, error) {
	if path != "" {
		return path, nil
	}
	if last := store.LastPath(); last != "" {
		return last, nil
	}
	return "", ErrNoPath
}

func ordersToLines(orders []config.Order) ([]byte, error) {
	var buf bytes.Buffer
	for i, o := range orders {
		var content json.RawMessage
		if o.Payload != nil {
			raw, err := json.Marshal(o.Payload)
			if err != nil {
				return nil, errors.Wrapf(err, "order %d (%s)", i, o.Type)
			}
			content = raw
		}
		req := wire.Request{ID: uuid.NewString(), Type: o.Type, Content: content}
		line, err := wire.EncodeRequest(req)
		if err != nil {
			return nil, errors.Wrapf(err, "order %d (%s)", i, o.Type)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// SaveState writes state's canonical dump, as a reconstructing sequence of
// orders, to path (or the StateStore's last path if path is empty),
// atomically: the data is written to a temp file in the same directory and
// renamed into place, so a crash mid-write never leaves a corrupt file at
// path (spec §4.5).
func SaveState(state *config.State, store *config.StateStore, path string) error {
	resolved, err := resolvePath(store, path)
	if err != nil {
		return err
	}
	data, err := ordersToLines(state.Dump().ToOrders())
	if err != nil {
		return errors.Wrap(err, "save state")
	}

	dir := filepath.Dir(resolved)
	tmp := filepath.Join(dir, ".snapshot-"+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "save state: write temp file")
	}
	if err := os.Rename(tmp, resolved); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "save state: rename into place")
	}
	store.SetLastPath(resolved)
	return nil
}

// parseOrders reads path as a sequence of newline-delimited wire.Request
// lines and decodes each into a config.Order.
func parseOrders(path string) ([]config.Order, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open state file")
	}
	defer f.Close()

	var orders []config.Order
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		req, err := wire.DecodeRequest(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		payload, err := req.Payload()
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		orders = append(orders, config.Order{Type: req.Type, Payload: payload})
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read state file")
	}
	return orders, nil
}

// LoadState parses path into a candidate config.State. Any parse or
// validation failure aborts the load and returns the error; the caller's
// current state is never touched, since the candidate is built fresh and
// only returned on success (spec §4.5 "validation errors abort the load
// without mutating current state").
func LoadState(store *config.StateStore, path string) (*config.State, error) {
	resolved, err := resolvePath(store, path)
	if err != nil {
		return nil, err
	}
	orders, err := parseOrders(resolved)
	if err != nil {
		return nil, errors.Wrap(err, "load state")
	}
	candidate := config.New()
	if err := candidate.Load(orders); err != nil {
		return nil, errors.Wrap(err, "load state: apply")
	}
	store.SetLastPath(resolved)
	return candidate, nil
}

// ReloadConfiguration parses path (or the StateStore's last path) into a
// candidate state and returns the minimal diff from current to candidate,
// ready to be fanned out and applied order-by-order (spec §4.4
// "LoadState applies a diff... it is atomic per-command, not for the whole
// file", which also governs RELOAD_CONFIGURATION).
func ReloadConfiguration(current *config.State, store *config.StateStore, path string) ([]config.Order, error) {
	candidate, err := LoadState(store, path)
	if err != nil {
		return nil, errors.Wrap(err, "reload configuration")
	}
	return config.Diff(current, candidate), nil
}

package dispatcher

import (
	"encoding/json"
	"testing"
)

// mustJSON marshals v for use as a Request's Content in tests.
func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

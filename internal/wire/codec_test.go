package wire

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRequestRoundTrip(t *testing.T) {
	orig := Request{
		ID:      "t1",
		Version: ProtocolVersion,
		Type:    AddCluster,
		Content: mustJSON(t, AddClusterPayload{
			ClusterID:     "xxx",
			StickySession: true,
			HTTPSRedirect: true,
			ProxyProtocol: ProxyProtocolExpectHeader,
			LoadBalancing: RoundRobin,
		}),
	}
	raw, err := EncodeRequest(orig)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeRequest(raw)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.ID != orig.ID || decoded.Type != orig.Type {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, orig)
	}
	var gotPayload, wantPayload AddClusterPayload
	if err := json.Unmarshal(decoded.Content, &gotPayload); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(orig.Content, &wantPayload); err != nil {
		t.Fatal(err)
	}
	if gotPayload != wantPayload {
		t.Fatalf("payload mismatch: %+v vs %+v", gotPayload, wantPayload)
	}
}

func TestResponseRoundTrip(t *testing.T) {
	content, err := NewResponseContent(ContentEvent, Event{Kind: EventBackendDown, Data: []string{"clu", "10.0.0.1:80"}})
	if err != nil {
		t.Fatal(err)
	}
	orig := Processing("e1", "", content)
	raw, err := EncodeResponse(orig)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodeResponse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.ID != "e1" || decoded.Status != StatusProcessing {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
	if decoded.Content == nil || decoded.Content.Type != ContentEvent {
		t.Fatalf("expected EVENT content, got %+v", decoded.Content)
	}
}

func TestVersionMismatchIsDistinctFromMalformed(t *testing.T) {
	raw := []byte(`{"id":"x","version":9,"type":"STATUS"}`)
	_, err := DecodeRequest(raw)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), ErrVersionMismatch.Error()) {
		t.Fatalf("expected version mismatch error, got %v", err)
	}

	_, err = DecodeRequest([]byte(`not json`))
	if err == nil || strings.Contains(err.Error(), ErrVersionMismatch.Error()) {
		t.Fatalf("expected malformed error distinct from version mismatch, got %v", err)
	}
}

func TestUnknownRequestTagRejected(t *testing.T) {
	raw := []byte(`{"id":"x","version":0,"type":"FRAZZLE_WARGS"}`)
	_, err := DecodeRequest(raw)
	if err == nil || !strings.Contains(err.Error(), ErrUnknownTag.Error()) {
		t.Fatalf("expected unknown tag error, got %v", err)
	}
}

func TestScenario1_AddThenRemoveCluster(t *testing.T) {
	raw := []byte(`{"id":"t1","version":0,"type":"ADD_CLUSTER","content":{"cluster_id":"xxx","sticky_session":true,"https_redirect":true,"proxy_protocol":"EXPECT_HEADER","load_balancing":"ROUND_ROBIN","load_metric":null,"answer_503":null}}`)
	req, err := DecodeRequest(raw)
	if err != nil {
		t.Fatal(err)
	}
	payload, err := req.Payload()
	if err != nil {
		t.Fatal(err)
	}
	p, ok := payload.(*AddClusterPayload)
	if !ok {
		t.Fatalf("expected *AddClusterPayload, got %T", payload)
	}
	if p.ClusterID != "xxx" || p.ProxyProtocol != ProxyProtocolExpectHeader {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestScenario2_DanglingReferenceFrontend(t *testing.T) {
	raw := []byte(`{"id":"t2","version":0,"type":"ADD_HTTP_FRONTEND","content":{"route":{"CLUSTER_ID":"xxx"},"hostname":"yyy","path":{"PREFIX":"xxx"},"address":"0.0.0.0:8080","position":"TREE"}}`)
	req, err := DecodeRequest(raw)
	if err != nil {
		t.Fatal(err)
	}
	payload, err := req.Payload()
	if err != nil {
		t.Fatal(err)
	}
	p, ok := payload.(*AddHTTPFrontendPayload)
	if !ok {
		t.Fatalf("expected *AddHTTPFrontendPayload, got %T", payload)
	}
	if p.Route.ClusterID == nil || *p.Route.ClusterID != "xxx" {
		t.Fatalf("unexpected route: %+v", p.Route)
	}
	if p.Path.Prefix == nil || *p.Path.Prefix != "xxx" {
		t.Fatalf("unexpected path: %+v", p.Path)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

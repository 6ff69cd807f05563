package dispatcher

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sozu-sh/sozuctl/internal/config"
	"github.com/sozu-sh/sozuctl/internal/wire"
)

// testCert mirrors internal/config's well-known stdlib test certificate
// (valid, parseable DER, SAN example.com), needed here because
// matchingCertificates requires a real fingerprinted certificate to exercise.
const testCert = `-----BEGIN CERTIFICATE-----
MIIDOTCCAiGgAwIBAgIQSRJrEpBGFc7tNb1fb5pKFzANBgkqhkiG9w0BAQsFADAS
MRAwDgYDVQQKEwdBY21lIENvMCAXDTcwMDEwMTAwMDAwMFoYDzIwODQwMTI5MTYw
MDAwWjASMRAwDgYDVQQKEwdBY21lIENvMIIBIjANBgkqhkiG9w0BAQEFAAOCAQ8A
MIIBCgKCAQEA6Gba5tHV1dAKouAaXO3/ebDUU4rvwCUg/CNaJ2PT5xLD4N1Vcb8r
bFSW2HXKq+MPfVdwIKR/1DczEoAGf/JWQTW7EgzlXrCd3rlajEX2D73faWJekD0U
aUgz5vtrTXZ90BQL7WvRICd7FlEZ6FPOcPlumiyNmzUqtwGhO+9ad1W5BqJaRI6P
YfouNkwR6Na4TzSj5BrqUfP0FwDizKSJ0XXmh8g8G9mtwxOSN3Ru1QFc61Xyeluk
POGKBV/q6RBNklTNe0gI8usUMlYyoC7ytppNMW7X2vodAelSu25jgx2anj9fDVZu
h7AXF5+4nJS4AAt0n1lNY7nGSsdZas8PbQIDAQABo4GIMIGFMA4GA1UdDwEB/wQE
AwICpDATBgNVHSUEDDAKBggrBgEFBQcDATAPBgNVHRMBAf8EBTADAQH/MB0GA1Ud
DgQWBBStsdjh3/JCXXYlQryOrL4Sh7BW5TAuBgNVHREEJzAlggtleGFtcGxlLmNv
bYcEfwAAAYcQAAAAAAAAAAAAAAAAAAAAATANBgkqhkiG9w0BAQsFAAOCAQEAxWGI
5NhpF3nwwy/4yB4i/CwwSpLrWUa70NyhvprUBC50PxiXav1TeDzwzLx/o5HyNwsv
cxv3HdkLW59i/0SlJSrNnWdfZ19oTcS+6PtLoVyISgtyN6DpkKpdG1cOkW3Cy2P2
+tK/tKHRP1Y/Ra0RiDpOAmqn0gCOFGz8+lqDIor/T7MTpibL3IxqWfPrvfVRHL3B
grw/ZQTTIVjjh4JBSW3WyWgNo/ikC1lrVxzl4iPUGptxT36Cr7Zk2Bsg0XqwbOvK
5d+NTDREkSnUbie4GeutujmX3Dsx88UiV6UY/4lHJa6I5leHUNOHahRbpbWeOfs/
WkBKOclmOV2xlTVuPw==
-----END CERTIFICATE-----`

func TestQueryClustersReturnsEveryLiveWorkerAnswer(t *testing.T) {
	d := newTestDispatcher(t)
	addCluster(t, d, "web")
	addCluster(t, d, "api")
	d.workers.Launch(1)
	d.workers.Launch(2)

	req := wire.Request{ID: "r1", Type: wire.QueryClusters}
	resp := d.query(context.Background(), req, &wire.QueryClustersPayload{}, func(wire.Response) {})
	if resp.Status != wire.StatusOK {
		t.Fatalf("expected OK, got %s: %s", resp.Status, resp.Message)
	}

	answers := decodeQueryAnswers(t, resp)
	if len(answers) != 2 {
		t.Fatalf("expected one answer per live worker, got %d", len(answers))
	}
	for id, a := range answers {
		if !a.OK {
			t.Errorf("worker %s: expected ok answer, got %+v", id, a)
		}
		clusters, ok := a.Data.([]any)
		if !ok || len(clusters) != 2 {
			t.Errorf("worker %s: expected 2 clusters in answer, got %+v", id, a.Data)
		}
	}
}

func TestQueryClustersHonorsClusterIDFilter(t *testing.T) {
	d := newTestDispatcher(t)
	addCluster(t, d, "web")
	addCluster(t, d, "api")
	d.workers.Launch(1)

	req := wire.Request{ID: "r1", Type: wire.QueryClusters}
	payload := &wire.QueryClustersPayload{ClusterIDs: []string{"web"}}
	resp := d.query(context.Background(), req, payload, func(wire.Response) {})

	answers := decodeQueryAnswers(t, resp)
	for _, a := range answers {
		clusters, _ := a.Data.([]any)
		if len(clusters) != 1 {
			t.Fatalf("expected only the filtered cluster, got %+v", a.Data)
		}
	}
}

func TestQueryClustersHashesIsStableAndDistinguishesClusters(t *testing.T) {
	d := newTestDispatcher(t)
	addCluster(t, d, "web")
	addCluster(t, d, "api")
	d.workers.Launch(1)

	req := wire.Request{ID: "r1", Type: wire.QueryClustersHashes}
	resp1 := d.query(context.Background(), req, &wire.QueryClustersHashesPayload{}, func(wire.Response) {})
	resp2 := d.query(context.Background(), req, &wire.QueryClustersHashesPayload{}, func(wire.Response) {})

	h1 := decodeQueryAnswers(t, resp1)
	h2 := decodeQueryAnswers(t, resp2)

	for id, a1 := range h1 {
		a2, ok := h2[id]
		if !ok {
			t.Fatalf("worker %s missing from second response", id)
		}
		m1, _ := a1.Data.(map[string]any)
		m2, _ := a2.Data.(map[string]any)
		if len(m1) != 2 {
			t.Fatalf("expected 2 cluster hashes, got %d", len(m1))
		}
		if m1["web"] != m2["web"] || m1["api"] != m2["api"] {
			t.Fatal("expected identical ConfigState to hash identically across calls")
		}
		if m1["web"] == m1["api"] {
			t.Fatal("expected distinct clusters to hash differently")
		}
	}
}

func TestQueryCertificatesFiltersByFingerprintAndDomain(t *testing.T) {
	d := newTestDispatcher(t)
	d.workers.Launch(1)

	order := config.Order{
		Type: wire.AddCertificate,
		Payload: &wire.AddCertificatePayload{
			Address:     "0.0.0.0:443",
			Certificate: wire.CertAndKey{Certificate: testCert, Key: "k"},
		},
	}
	if _, err := d.state.Apply(order); err != nil {
		t.Fatalf("seeding certificate: %v", err)
	}

	req := wire.Request{ID: "r1", Type: wire.QueryCertificates}

	all := decodeQueryAnswers(t, d.query(context.Background(), req, &wire.QueryCertificatesPayload{}, func(wire.Response) {}))
	for _, a := range all {
		certs, _ := a.Data.([]any)
		if len(certs) != 1 {
			t.Fatalf("expected the one seeded certificate, got %+v", a.Data)
		}
	}

	domain := "example.com"
	byDomain := decodeQueryAnswers(t, d.query(context.Background(), req, &wire.QueryCertificatesPayload{Domain: &domain}, func(wire.Response) {}))
	for _, a := range byDomain {
		certs, _ := a.Data.([]any)
		if len(certs) != 1 {
			t.Fatalf("expected the certificate to match its SAN, got %+v", a.Data)
		}
	}

	missing := "no-such-domain.example"
	none := decodeQueryAnswers(t, d.query(context.Background(), req, &wire.QueryCertificatesPayload{Domain: &missing}, func(wire.Response) {}))
	for _, a := range none {
		certs, _ := a.Data.([]any)
		if len(certs) != 0 {
			t.Fatalf("expected no match for an unrelated domain, got %+v", a.Data)
		}
	}
}

func TestQueryMetricsMergesSupervisorSnapshotUnderMainKey(t *testing.T) {
	d := newTestDispatcher(t)
	d.workers.Launch(1)
	d.sink.RecordCluster("web")

	req := wire.Request{ID: "r1", Type: wire.QueryMetrics}
	resp := d.query(context.Background(), req, &wire.QueryMetricsPayload{}, func(wire.Response) {})

	answers := decodeQueryAnswers(t, resp)
	main, ok := answers["main"]
	if !ok {
		t.Fatal("expected a reserved \"main\" entry for the supervisor's own snapshot")
	}
	if !main.OK {
		t.Fatalf("expected main entry ok, got %+v", main)
	}
	data, ok := main.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected main data to be a metrics snapshot object, got %T", main.Data)
	}
	perCluster, _ := data["per_cluster_requests"].(map[string]any)
	if perCluster["web"] != float64(1) {
		t.Fatalf("expected per-cluster count to reflect RecordCluster, got %+v", data)
	}
}

// decodeQueryAnswers unwraps a query response's ContentQuery payload back
// into the map[string]queryAnswer shape query() builds it from.
func decodeQueryAnswers(t *testing.T, resp wire.Response) map[string]queryAnswer {
	t.Helper()
	if resp.Status != wire.StatusOK {
		t.Fatalf("expected OK response, got %s: %s", resp.Status, resp.Message)
	}
	if resp.Content == nil || resp.Content.Type != wire.ContentQuery {
		t.Fatalf("expected QUERY content, got %+v", resp.Content)
	}
	var answers map[string]queryAnswer
	if err := json.Unmarshal(resp.Content.Data, &answers); err != nil {
		t.Fatalf("decoding query answers: %v", err)
	}
	return answers
}

package dispatcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/sozu-sh/sozuctl/internal/wire"
)

// queryAnswer is one contributor's entry in a QUERY_* aggregation map
// (spec §4.4 "a BTreeMap<worker_id, QueryAnswer>"); timed-out or rejecting
// workers contribute a sentinel failure answer rather than being omitted,
// so the client can tell a missing answer from a worker that never existed.
type queryAnswer struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// query handles the fan-out-with-aggregation request classification:
// QUERY_CLUSTERS, QUERY_CLUSTERS_HASHES, QUERY_CERTIFICATES, QUERY_METRICS
// (spec §4.4). Every live worker contributes an entry keyed by its worker
// id (string, so the result marshals as a JSON object); QUERY_METRICS adds
// a reserved "main" key for the supervisor's own metrics.Sink snapshot
// (SPEC_FULL §4.7).
func (d *Dispatcher) query(ctx context.Context, req wire.Request, payload any, emit Emit) wire.Response {
	answers := make(map[string]queryAnswer)

	for _, r := range d.fanOut(ctx, req, emit) {
		key := strconv.FormatUint(uint64(r.workerID), 10)
		if r.err != nil {
			answers[key] = queryAnswer{OK: false, Message: r.err.Error()}
			continue
		}
		if r.resp.Status != wire.StatusOK {
			answers[key] = queryAnswer{OK: false, Message: r.resp.Message}
			continue
		}
		answers[key] = queryAnswer{OK: true, Data: d.localAnswer(req.Type, payload)}
	}

	if req.Type == wire.QueryMetrics {
		answers["main"] = queryAnswer{OK: true, Data: d.sink.Snapshot(d.bus.DropCount())}
	}

	content, err := wire.NewResponseContent(wire.ContentQuery, answers)
	if err != nil {
		return wire.Err(req.ID, err)
	}
	return wire.Response{ID: req.ID, Version: wire.ProtocolVersion, Status: wire.StatusOK, Content: content}
}

// localAnswer renders the supervisor's own view for a query tag, used as
// the per-worker "Data" payload since every in-process Worker shares this
// dispatcher's ConfigState rather than keeping an independent replica
// (spec §9 "worker processes proxy according to ConfigState handed to them
// at fan-out time" — see DESIGN.md Open Question decisions).
func (d *Dispatcher) localAnswer(t wire.RequestType, payload any) any {
	switch t {
	case wire.QueryClusters:
		p := payload.(*wire.QueryClustersPayload)
		if len(p.ClusterIDs) == 0 {
			return d.state.Clusters()
		}
		var out []wire.Cluster
		for _, id := range p.ClusterIDs {
			if c, ok := d.state.Cluster(id); ok {
				out = append(out, c)
			}
		}
		return out
	case wire.QueryClustersHashes:
		snap := d.state.Dump()
		hashes := make(map[string]string, len(snap.Clusters))
		for _, c := range snap.Clusters {
			hashes[c.ClusterID] = clusterHash(c)
		}
		return hashes
	case wire.QueryCertificates:
		p := payload.(*wire.QueryCertificatesPayload)
		return d.matchingCertificates(p)
	default:
		return nil
	}
}

// clusterHash gives QUERY_CLUSTERS_HASHES a cheap way for a client to tell
// whether its cached copy of a cluster is stale without re-fetching the
// whole definition: the lowercase hex SHA-256 of the cluster's canonical
// JSON encoding, the same stdlib hashing used for certificate fingerprints
// (internal/config/certs.go) since no hashing library appears in the pack.
func clusterHash(c wire.Cluster) string {
	b, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (d *Dispatcher) matchingCertificates(p *wire.QueryCertificatesPayload) []wire.Certificate {
	snap := d.state.Dump()
	wantFP := make(map[string]struct{}, len(p.Fingerprints))
	for _, fp := range p.Fingerprints {
		wantFP[fp] = struct{}{}
	}

	var out []wire.Certificate
	for _, c := range snap.Certificates {
		if len(wantFP) > 0 {
			if _, ok := wantFP[c.Certificate.Fingerprint]; !ok {
				continue
			}
		}
		if p.Domain != nil {
			matches := false
			for _, n := range c.Certificate.Names {
				if n == *p.Domain {
					matches = true
					break
				}
			}
			if !matches {
				continue
			}
		}
		out = append(out, c.Certificate)
	}
	return out
}

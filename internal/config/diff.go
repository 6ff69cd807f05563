package config

import (
	"reflect"

	"github.com/sozu-sh/sozuctl/internal/wire"
)

// Diff computes the minimal ordered sequence of orders that, applied to a,
// yields b (spec §4.2 "diff"). Removes precede adds within a kind; cluster
// removes precede frontend removes precede backend removes (the cascade
// order RemoveCluster itself implements), and adds proceed in the reverse
// order (clusters, listeners, frontends, backends, certificates,
// activations last).
func Diff(a, b *State) []Order {
	sa, sb := a.Dump(), b.Dump()

	removedClusters := setDiff(clusterIDs(sa.Clusters), clusterIDs(sb.Clusters))
	addedClusters := setDiff(clusterIDs(sb.Clusters), clusterIDs(sa.Clusters))

	var orders []Order

	for id := range removedClusters {
		orders = append(orders, Order{Type: wire.RemoveCluster, Payload: &wire.RemoveClusterPayload{ClusterID: id}})
	}

	// Deactivations go before listener removes: RemoveListener drops the
	// activation, after which DeactivateListener would be rejected.
	orders = append(orders, diffActivations(sa.ActiveListeners, sb.ActiveListeners, true)...)

	orders = append(orders, diffListeners(sa.HTTPListeners, sb.HTTPListeners, wire.ListenerHTTP, true)...)
	orders = append(orders, diffHTTPSListeners(sa.HTTPSListeners, sb.HTTPSListeners, true)...)
	orders = append(orders, diffListeners(sa.TCPListeners, sb.TCPListeners, wire.ListenerTCP, true)...)

	orders = append(orders, diffHTTPFrontends(sa.HTTPFrontends, sb.HTTPFrontends, wire.AddHTTPFrontend, wire.RemoveHTTPFrontend, removedClusters, true)...)
	orders = append(orders, diffHTTPFrontends(sa.HTTPSFrontends, sb.HTTPSFrontends, wire.AddHTTPSFrontend, wire.RemoveHTTPSFrontend, removedClusters, true)...)
	orders = append(orders, diffTCPFrontends(sa.TCPFrontends, sb.TCPFrontends, removedClusters, true)...)

	orders = append(orders, diffBackends(sa.Backends, sb.Backends, removedClusters, true)...)
	orders = append(orders, diffCertificates(sa.Certificates, sb.Certificates, true)...)

	for id := range addedClusters {
		for _, c := range sb.Clusters {
			if c.ClusterID == id {
				orders = append(orders, Order{Type: wire.AddCluster, Payload: &wire.AddClusterPayload{
					ClusterID: c.ClusterID, StickySession: c.StickySession, HTTPSRedirect: c.HTTPSRedirect,
					ProxyProtocol: c.ProxyProtocol, LoadBalancing: c.LoadBalancing, LoadMetric: c.LoadMetric, Answer503: c.Answer503,
				}})
			}
		}
	}

	orders = append(orders, diffListeners(sa.HTTPListeners, sb.HTTPListeners, wire.ListenerHTTP, false)...)
	orders = append(orders, diffHTTPSListeners(sa.HTTPSListeners, sb.HTTPSListeners, false)...)
	orders = append(orders, diffListeners(sa.TCPListeners, sb.TCPListeners, wire.ListenerTCP, false)...)

	orders = append(orders, diffHTTPFrontends(sa.HTTPFrontends, sb.HTTPFrontends, wire.AddHTTPFrontend, wire.RemoveHTTPFrontend, nil, false)...)
	orders = append(orders, diffHTTPFrontends(sa.HTTPSFrontends, sb.HTTPSFrontends, wire.AddHTTPSFrontend, wire.RemoveHTTPSFrontend, nil, false)...)
	orders = append(orders, diffTCPFrontends(sa.TCPFrontends, sb.TCPFrontends, nil, false)...)

	orders = append(orders, diffBackends(sa.Backends, sb.Backends, nil, false)...)
	orders = append(orders, diffCertificates(sa.Certificates, sb.Certificates, false)...)
	orders = append(orders, diffActivations(sa.ActiveListeners, sb.ActiveListeners, false)...)

	return orders
}

func clusterIDs(cs []wire.Cluster) map[string]bool {
	m := make(map[string]bool, len(cs))
	for _, c := range cs {
		m[c.ClusterID] = true
	}
	return m
}

func setDiff(have, without map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for k := range have {
		if !without[k] {
			out[k] = true
		}
	}
	return out
}

func diffListeners(a, b []wire.ListenerSpec, kind wire.ListenerKind, removes bool) []Order {
	am := make(map[string]wire.ListenerSpec, len(a))
	for _, l := range a {
		am[l.Address] = l
	}
	bm := make(map[string]wire.ListenerSpec, len(b))
	for _, l := range b {
		bm[l.Address] = l
	}
	var out []Order
	if removes {
		for addr, l := range am {
			if other, ok := bm[addr]; ok && reflect.DeepEqual(l, other) {
				continue
			}
			out = append(out, Order{Type: wire.RemoveListener, Payload: &wire.RemoveListenerPayload{Address: addr, Kind: kind}})
		}
		return out
	}
	addType := wire.AddHTTPListener
	if kind == wire.ListenerTCP {
		addType = wire.AddTCPListener
	}
	for addr, l := range bm {
		if other, ok := am[addr]; ok && reflect.DeepEqual(l, other) {
			continue
		}
		spec := l
		out = append(out, Order{Type: addType, Payload: &spec})
	}
	return out
}

func diffHTTPSListeners(a, b []wire.HTTPSListenerSpec, removes bool) []Order {
	am := make(map[string]wire.HTTPSListenerSpec, len(a))
	for _, l := range a {
		am[l.Address] = l
	}
	bm := make(map[string]wire.HTTPSListenerSpec, len(b))
	for _, l := range b {
		bm[l.Address] = l
	}
	var out []Order
	if removes {
		for addr, l := range am {
			if other, ok := bm[addr]; ok && reflect.DeepEqual(l, other) {
				continue
			}
			out = append(out, Order{Type: wire.RemoveListener, Payload: &wire.RemoveListenerPayload{Address: addr, Kind: wire.ListenerHTTPS}})
		}
		return out
	}
	for addr, l := range bm {
		if other, ok := am[addr]; ok && reflect.DeepEqual(l, other) {
			continue
		}
		spec := l
		out = append(out, Order{Type: wire.AddHTTPSListener, Payload: &spec})
	}
	return out
}

func diffHTTPFrontends(a, b []wire.HTTPFrontendSpec, addType, removeType wire.RequestType, removedClusters map[string]bool, removes bool) []Order {
	am := make(map[httpFrontendKey]wire.HTTPFrontendSpec, len(a))
	for _, f := range a {
		am[httpKey(f.Address, f.Hostname, f.Path)] = f
	}
	bm := make(map[httpFrontendKey]wire.HTTPFrontendSpec, len(b))
	for _, f := range b {
		bm[httpKey(f.Address, f.Hostname, f.Path)] = f
	}
	var out []Order
	if removes {
		for k, f := range am {
			if other, ok := bm[k]; ok && reflect.DeepEqual(f, other) {
				continue
			}
			if f.Route.ClusterID != nil && removedClusters[*f.Route.ClusterID] {
				continue // handled by the cluster's own removal cascade
			}
			out = append(out, Order{Type: removeType, Payload: &wire.RemoveHTTPFrontendPayload{Address: k.Address, Hostname: k.Hostname, Path: f.Path}})
		}
		return out
	}
	for k, f := range bm {
		if other, ok := am[k]; ok && reflect.DeepEqual(f, other) {
			continue
		}
		spec := f
		out = append(out, Order{Type: addType, Payload: &spec})
	}
	return out
}

func diffTCPFrontends(a, b []wire.TCPFrontendSpec, removedClusters map[string]bool, removes bool) []Order {
	am := make(map[string]wire.TCPFrontendSpec, len(a))
	for _, f := range a {
		am[f.Address] = f
	}
	bm := make(map[string]wire.TCPFrontendSpec, len(b))
	for _, f := range b {
		bm[f.Address] = f
	}
	var out []Order
	if removes {
		for addr, f := range am {
			if other, ok := bm[addr]; ok && reflect.DeepEqual(f, other) {
				continue
			}
			if removedClusters[f.ClusterID] {
				continue
			}
			out = append(out, Order{Type: wire.RemoveTCPFrontend, Payload: &wire.RemoveTCPFrontendPayload{Address: addr}})
		}
		return out
	}
	for addr, f := range bm {
		if other, ok := am[addr]; ok && reflect.DeepEqual(f, other) {
			continue
		}
		spec := f
		out = append(out, Order{Type: wire.AddTCPFrontend, Payload: &spec})
	}
	return out
}

func diffBackends(a, b []wire.Backend, removedClusters map[string]bool, removes bool) []Order {
	am := make(map[backendKey]wire.Backend, len(a))
	for _, bk := range a {
		am[backendKey{ClusterID: bk.ClusterID, BackendID: bk.BackendID}] = bk
	}
	bm := make(map[backendKey]wire.Backend, len(b))
	for _, bk := range b {
		bm[backendKey{ClusterID: bk.ClusterID, BackendID: bk.BackendID}] = bk
	}
	var out []Order
	if removes {
		for k, bk := range am {
			if other, ok := bm[k]; ok && reflect.DeepEqual(bk, other) {
				continue
			}
			if removedClusters[k.ClusterID] {
				continue
			}
			out = append(out, Order{Type: wire.RemoveBackend, Payload: &wire.RemoveBackendPayload{ClusterID: k.ClusterID, BackendID: k.BackendID, Address: bk.Address}})
		}
		return out
	}
	for k, bk := range bm {
		if other, ok := am[k]; ok && reflect.DeepEqual(bk, other) {
			continue
		}
		backend := bk
		out = append(out, Order{Type: wire.AddBackend, Payload: &wire.AddBackendPayload{
			ClusterID: backend.ClusterID, BackendID: backend.BackendID, Address: backend.Address,
			Weight: backend.Weight, StickyID: backend.StickyID, Backup: backend.Backup,
		}})
	}
	return out
}

func diffCertificates(a, b []certAt, removes bool) []Order {
	key := func(c certAt) string { return c.Address + "/" + c.Certificate.Fingerprint }
	am := make(map[string]certAt, len(a))
	for _, c := range a {
		am[key(c)] = c
	}
	bm := make(map[string]certAt, len(b))
	for _, c := range b {
		bm[key(c)] = c
	}
	var out []Order
	if removes {
		for k, c := range am {
			if _, ok := bm[k]; !ok {
				out = append(out, Order{Type: wire.RemoveCertificate, Payload: &wire.RemoveCertificatePayload{Address: c.Address, Fingerprint: c.Certificate.Fingerprint}})
			}
		}
		return out
	}
	for k, c := range bm {
		if _, ok := am[k]; !ok {
			out = append(out, Order{Type: wire.AddCertificate, Payload: &wire.AddCertificatePayload{Address: c.Address, Certificate: c.Certificate.CertAndKey, Names: c.Certificate.Names}})
		}
	}
	return out
}

func diffActivations(a, b []activeListenerEntry, removes bool) []Order {
	am := make(map[string]activeListenerEntry, len(a))
	for _, e := range a {
		am[e.String()] = e
	}
	bm := make(map[string]activeListenerEntry, len(b))
	for _, e := range b {
		bm[e.String()] = e
	}
	var out []Order
	if removes {
		for k, e := range am {
			if _, ok := bm[k]; !ok {
				out = append(out, Order{Type: wire.DeactivateListener, Payload: &wire.DeactivateListenerPayload{Address: e.Address, Kind: e.Kind}})
			}
		}
		return out
	}
	for k, e := range bm {
		if _, ok := am[k]; !ok {
			out = append(out, Order{Type: wire.ActivateListener, Payload: &wire.ActivateListenerPayload{Address: e.Address, Kind: e.Kind}})
		}
	}
	return out
}

package config

import (
	"sort"

	"github.com/sozu-sh/sozuctl/internal/wire"
)

// Snapshot is the canonical, key-sorted serialization of a State (spec
// §4.2 "dump"). Every slice is sorted by natural key so two Dump() calls
// over bitwise-identical states always produce byte-identical output.
type Snapshot struct {
	Clusters       []wire.Cluster           `json:"clusters"`
	HTTPListeners  []wire.ListenerSpec      `json:"http_listeners"`
	HTTPSListeners []wire.HTTPSListenerSpec `json:"https_listeners"`
	TCPListeners   []wire.ListenerSpec      `json:"tcp_listeners"`
	HTTPFrontends  []wire.HTTPFrontendSpec  `json:"http_frontends"`
	HTTPSFrontends []wire.HTTPFrontendSpec  `json:"https_frontends"`
	TCPFrontends   []wire.TCPFrontendSpec   `json:"tcp_frontends"`
	Backends       []wire.Backend           `json:"backends"`
	Certificates   []certAt                 `json:"certificates"`
	ActiveListeners []activeListenerEntry   `json:"active_listeners"`
}

type certAt struct {
	Address     string `json:"address"`
	Certificate wire.Certificate `json:"certificate"`
}

type activeListenerEntry struct {
	Kind    wire.ListenerKind `json:"kind"`
	Address string            `json:"address"`
}

// Dump produces the canonical, key-sorted snapshot of s.
func (s *State) Dump() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{}

	for _, c := range s.clusters {
		snap.Clusters = append(snap.Clusters, c)
	}
	sort.Slice(snap.Clusters, func(i, j int) bool { return snap.Clusters[i].ClusterID < snap.Clusters[j].ClusterID })

	for _, l := range s.httpListeners {
		snap.HTTPListeners = append(snap.HTTPListeners, l)
	}
	sort.Slice(snap.HTTPListeners, func(i, j int) bool { return snap.HTTPListeners[i].Address < snap.HTTPListeners[j].Address })

	for _, l := range s.httpsListeners {
		snap.HTTPSListeners = append(snap.HTTPSListeners, l)
	}
	sort.Slice(snap.HTTPSListeners, func(i, j int) bool { return snap.HTTPSListeners[i].Address < snap.HTTPSListeners[j].Address })

	for _, l := range s.tcpListeners {
		snap.TCPListeners = append(snap.TCPListeners, l)
	}
	sort.Slice(snap.TCPListeners, func(i, j int) bool { return snap.TCPListeners[i].Address < snap.TCPListeners[j].Address })

	for _, f := range s.httpFrontends {
		snap.HTTPFrontends = append(snap.HTTPFrontends, f)
	}
	sortHTTPFrontends(snap.HTTPFrontends)

	for _, f := range s.httpsFrontends {
		snap.HTTPSFrontends = append(snap.HTTPSFrontends, f)
	}
	sortHTTPFrontends(snap.HTTPSFrontends)

	for _, f := range s.tcpFrontends {
		snap.TCPFrontends = append(snap.TCPFrontends, f)
	}
	sort.Slice(snap.TCPFrontends, func(i, j int) bool { return snap.TCPFrontends[i].Address < snap.TCPFrontends[j].Address })

	for k, b := range s.backends {
		_ = k
		snap.Backends = append(snap.Backends, b)
	}
	sort.Slice(snap.Backends, func(i, j int) bool {
		if snap.Backends[i].ClusterID != snap.Backends[j].ClusterID {
			return snap.Backends[i].ClusterID < snap.Backends[j].ClusterID
		}
		return snap.Backends[i].BackendID < snap.Backends[j].BackendID
	})

	for addr, fps := range s.addrCerts {
		for fp := range fps {
			snap.Certificates = append(snap.Certificates, certAt{Address: addr, Certificate: s.certificates[fp]})
		}
	}
	sort.Slice(snap.Certificates, func(i, j int) bool {
		if snap.Certificates[i].Address != snap.Certificates[j].Address {
			return snap.Certificates[i].Address < snap.Certificates[j].Address
		}
		return snap.Certificates[i].Certificate.Fingerprint < snap.Certificates[j].Certificate.Fingerprint
	})

	for k, active := range s.activeListener {
		if active {
			snap.ActiveListeners = append(snap.ActiveListeners, activeListenerEntry{Kind: k.Kind, Address: k.Address})
		}
	}
	sort.Slice(snap.ActiveListeners, func(i, j int) bool { return snap.ActiveListeners[i].String() < snap.ActiveListeners[j].String() })

	return snap
}

func (e activeListenerEntry) String() string { return string(e.Kind) + ":" + e.Address }

func sortHTTPFrontends(fs []wire.HTTPFrontendSpec) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].Address != fs[j].Address {
			return fs[i].Address < fs[j].Address
		}
		if fs[i].Hostname != fs[j].Hostname {
			return fs[i].Hostname < fs[j].Hostname
		}
		return pathKey(fs[i].Path) < pathKey(fs[j].Path)
	})
}

// ToOrders renders the snapshot as the canonical sequence of Add* orders
// that reconstructs it: clusters, then listeners, then frontends, then
// backends, then certificates, then activations last (spec §4.2 "adds
// proceed in reverse" of the removal cascade order).
func (snap Snapshot) ToOrders() []Order {
	var out []Order
	for i := range snap.Clusters {
		c := snap.Clusters[i]
		out = append(out, Order{Type: wire.AddCluster, Payload: &wire.AddClusterPayload{
			ClusterID: c.ClusterID, StickySession: c.StickySession, HTTPSRedirect: c.HTTPSRedirect,
			ProxyProtocol: c.ProxyProtocol, LoadBalancing: c.LoadBalancing, LoadMetric: c.LoadMetric, Answer503: c.Answer503,
		}})
	}
	for i := range snap.HTTPListeners {
		out = append(out, Order{Type: wire.AddHTTPListener, Payload: &snap.HTTPListeners[i]})
	}
	for i := range snap.HTTPSListeners {
		out = append(out, Order{Type: wire.AddHTTPSListener, Payload: &snap.HTTPSListeners[i]})
	}
	for i := range snap.TCPListeners {
		out = append(out, Order{Type: wire.AddTCPListener, Payload: &snap.TCPListeners[i]})
	}
	for i := range snap.HTTPFrontends {
		out = append(out, Order{Type: wire.AddHTTPFrontend, Payload: &snap.HTTPFrontends[i]})
	}
	for i := range snap.HTTPSFrontends {
		out = append(out, Order{Type: wire.AddHTTPSFrontend, Payload: &snap.HTTPSFrontends[i]})
	}
	for i := range snap.TCPFrontends {
		out = append(out, Order{Type: wire.AddTCPFrontend, Payload: &snap.TCPFrontends[i]})
	}
	for i := range snap.Backends {
		b := snap.Backends[i]
		out = append(out, Order{Type: wire.AddBackend, Payload: &wire.AddBackendPayload{
			ClusterID: b.ClusterID, BackendID: b.BackendID, Address: b.Address, Weight: b.Weight, StickyID: b.StickyID, Backup: b.Backup,
		}})
	}
	for i := range snap.Certificates {
		ca := snap.Certificates[i]
		out = append(out, Order{Type: wire.AddCertificate, Payload: &wire.AddCertificatePayload{
			Address: ca.Address, Certificate: ca.Certificate.CertAndKey, Names: ca.Certificate.Names,
		}})
	}
	for i := range snap.ActiveListeners {
		a := snap.ActiveListeners[i]
		out = append(out, Order{Type: wire.ActivateListener, Payload: &wire.ActivateListenerPayload{Address: a.Address, Kind: a.Kind}})
	}
	return out
}

// Load applies every order in orders to s in sequence (typically the
// result of Snapshot.ToOrders from a file); it does not clear s first, so
// it is normally called on a fresh State. Any rejected order aborts the
// load, leaving s in a partially-applied state — callers that need
// all-or-nothing semantics should Load into a fresh State and swap it in,
// which is exactly what LoadState does (spec §4.5).
func (s *State) Load(orders []Order) error {
	for _, o := range orders {
		if _, err := s.Apply(o); err != nil {
			return err
		}
	}
	return nil
}

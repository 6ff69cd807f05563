package config

import (
	"github.com/sasha-s/go-deadlock"

	"github.com/sozu-sh/sozuctl/internal/wire"
)

// State is the authoritative, indexed configuration: four+ flat tables
// enforcing referential integrity on each mutation rather than a cyclic
// object graph (spec §9 "Dangling references"). It is mutated exclusively
// by the dispatcher's Apply calls; go-deadlock.RWMutex guards the
// concurrent read paths used by snapshot and query handlers (spec §5).
type State struct {
	mu deadlock.RWMutex

	clusters map[string]wire.Cluster

	httpFrontends  map[httpFrontendKey]wire.HTTPFrontendSpec
	httpsFrontends map[httpFrontendKey]wire.HTTPFrontendSpec
	tcpFrontends   map[string]wire.TCPFrontendSpec // keyed by address

	backends map[backendKey]wire.Backend

	httpListeners  map[string]wire.ListenerSpec
	httpsListeners map[string]wire.HTTPSListenerSpec
	tcpListeners   map[string]wire.ListenerSpec
	activeListener map[listenerKey]bool

	certificates map[string]wire.Certificate   // keyed by fingerprint
	sniIndex     map[string]map[string]bool    // sni name -> set of fingerprints
	addrCerts    map[string]map[string]bool    // listen address -> set of fingerprints
}

// New returns an empty State.
func New() *State {
	return &State{
		clusters:       make(map[string]wire.Cluster),
		httpFrontends:  make(map[httpFrontendKey]wire.HTTPFrontendSpec),
		httpsFrontends: make(map[httpFrontendKey]wire.HTTPFrontendSpec),
		tcpFrontends:   make(map[string]wire.TCPFrontendSpec),
		backends:       make(map[backendKey]wire.Backend),
		httpListeners:  make(map[string]wire.ListenerSpec),
		httpsListeners: make(map[string]wire.HTTPSListenerSpec),
		tcpListeners:   make(map[string]wire.ListenerSpec),
		activeListener: make(map[listenerKey]bool),
		certificates:   make(map[string]wire.Certificate),
		sniIndex:       make(map[string]map[string]bool),
		addrCerts:      make(map[string]map[string]bool),
	}
}

// ClusterExists reports whether id names a known cluster.
func (s *State) ClusterExists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.clusters[id]
	return ok
}

// Cluster returns a copy of the cluster named id.
func (s *State) Cluster(id string) (wire.Cluster, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clusters[id]
	return c, ok
}

// Clusters returns a copy of every cluster, unordered.
func (s *State) Clusters() []wire.Cluster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]wire.Cluster, 0, len(s.clusters))
	for _, c := range s.clusters {
		out = append(out, c)
	}
	return out
}

// Backends returns a copy of every backend belonging to clusterID.
func (s *State) Backends(clusterID string) []wire.Backend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []wire.Backend
	for k, b := range s.backends {
		if k.ClusterID == clusterID {
			out = append(out, b)
		}
	}
	return out
}

// ListenerActive reports whether the listener at (kind, address) is active.
func (s *State) ListenerActive(kind wire.ListenerKind, address string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeListener[listenerKey{Kind: kind, Address: address}]
}

// CertificatesAt returns the certificates bound to listen address addr,
// used by ReplaceCertificate's "never zero certificates" invariant check
// (spec §8 scenario 3).
func (s *State) CertificatesAt(addr string) []wire.Certificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fps := s.addrCerts[addr]
	out := make([]wire.Certificate, 0, len(fps))
	for fp := range fps {
		out = append(out, s.certificates[fp])
	}
	return out
}

// Certificate returns a copy of the certificate at the given fingerprint.
func (s *State) Certificate(fingerprint string) (wire.Certificate, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.certificates[fingerprint]
	return c, ok
}

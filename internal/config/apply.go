package config

import (
	"github.com/pkg/errors"

	"github.com/sozu-sh/sozuctl/internal/wire"
)

// Order is one decoded mutation instruction: a request tag plus its
// concrete payload (as returned by wire.DecodeContent). Only the mutating
// tags (Add*/Remove*/Replace*/Activate*/Deactivate*) are valid arguments to
// Apply; anything else returns ErrInvariantViolated.
type Order struct {
	Type    wire.RequestType
	Payload any
}

// Diff describes the effect of one Apply call: the order(s) actually
// applied (Forward, in application order — more than one for cascading
// removals) and the order(s) that undo them (Inverse, already in a valid
// re-application order: replaying it front to back restores the prior
// state; for a cascading cluster removal the cluster is re-added before its
// frontends and backends).
type Diff struct {
	Forward []Order
	Inverse []Order
}

// Apply validates order against the current state and, if accepted,
// mutates it and returns the resulting Diff. A rejected order leaves State
// bitwise unchanged (spec §4.2, §8 "No silent mutation on rejection").
func (s *State) Apply(order Order) (*Diff, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch order.Type {
	case wire.AddCluster:
		return s.applyAddCluster(order.Payload.(*wire.AddClusterPayload))
	case wire.RemoveCluster:
		return s.applyRemoveCluster(order.Payload.(*wire.RemoveClusterPayload))
	case wire.AddHTTPFrontend:
		return s.applyAddHTTPFrontend(wire.FrontendHTTP, order.Payload.(*wire.HTTPFrontendSpec))
	case wire.AddHTTPSFrontend:
		return s.applyAddHTTPFrontend(wire.FrontendHTTPS, order.Payload.(*wire.HTTPFrontendSpec))
	case wire.RemoveHTTPFrontend:
		return s.applyRemoveHTTPFrontend(wire.FrontendHTTP, order.Payload.(*wire.RemoveHTTPFrontendPayload))
	case wire.RemoveHTTPSFrontend:
		return s.applyRemoveHTTPFrontend(wire.FrontendHTTPS, order.Payload.(*wire.RemoveHTTPFrontendPayload))
	case wire.AddTCPFrontend:
		return s.applyAddTCPFrontend(order.Payload.(*wire.TCPFrontendSpec))
	case wire.RemoveTCPFrontend:
		return s.applyRemoveTCPFrontend(order.Payload.(*wire.RemoveTCPFrontendPayload))
	case wire.AddBackend:
		return s.applyAddBackend(order.Payload.(*wire.AddBackendPayload))
	case wire.RemoveBackend:
		return s.applyRemoveBackend(order.Payload.(*wire.RemoveBackendPayload))
	case wire.AddHTTPListener:
		return s.applyAddListener(wire.ListenerHTTP, order.Payload.(*wire.ListenerSpec), nil)
	case wire.AddTCPListener:
		return s.applyAddListener(wire.ListenerTCP, order.Payload.(*wire.ListenerSpec), nil)
	case wire.AddHTTPSListener:
		return s.applyAddHTTPSListener(order.Payload.(*wire.HTTPSListenerSpec))
	case wire.RemoveListener:
		return s.applyRemoveListener(order.Payload.(*wire.RemoveListenerPayload))
	case wire.ActivateListener:
		return s.applyActivateListener(order.Payload.(*wire.ActivateListenerPayload))
	case wire.DeactivateListener:
		return s.applyDeactivateListener(order.Payload.(*wire.DeactivateListenerPayload))
	case wire.AddCertificate:
		return s.applyAddCertificate(order.Payload.(*wire.AddCertificatePayload))
	case wire.RemoveCertificate:
		return s.applyRemoveCertificate(order.Payload.(*wire.RemoveCertificatePayload))
	case wire.ReplaceCertificate:
		return s.applyReplaceCertificate(order.Payload.(*wire.ReplaceCertificatePayload))
	default:
		return nil, errors.Wrapf(ErrInvariantViolated, "order type %s is not a mutation", order.Type)
	}
}

func (s *State) applyAddCluster(p *wire.AddClusterPayload) (*Diff, error) {
	if _, ok := s.clusters[p.ClusterID]; ok {
		return nil, errors.Wrapf(ErrAlreadyExists, "cluster %q", p.ClusterID)
	}
	s.clusters[p.ClusterID] = wire.Cluster{
		ClusterID: p.ClusterID, StickySession: p.StickySession, HTTPSRedirect: p.HTTPSRedirect,
		ProxyProtocol: p.ProxyProtocol, LoadBalancing: p.LoadBalancing, LoadMetric: p.LoadMetric, Answer503: p.Answer503,
	}
	fwd := Order{Type: wire.AddCluster, Payload: p}
	inv := Order{Type: wire.RemoveCluster, Payload: &wire.RemoveClusterPayload{ClusterID: p.ClusterID}}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

// applyRemoveCluster cascades: all frontends and backends referencing the
// cluster are removed atomically (spec §3 "Relationships and invariants"),
// in the order cluster, frontends, then backends (spec §4.2 "removal
// cascade order").
func (s *State) applyRemoveCluster(p *wire.RemoveClusterPayload) (*Diff, error) {
	if _, ok := s.clusters[p.ClusterID]; !ok {
		return nil, errors.Wrapf(ErrNotFound, "cluster %q", p.ClusterID)
	}
	removedCluster := s.clusters[p.ClusterID]
	delete(s.clusters, p.ClusterID)

	forward := []Order{{Type: wire.RemoveCluster, Payload: p}}
	inverse := []Order{{Type: wire.AddCluster, Payload: &wire.AddClusterPayload{
		ClusterID: removedCluster.ClusterID, StickySession: removedCluster.StickySession,
		HTTPSRedirect: removedCluster.HTTPSRedirect, ProxyProtocol: removedCluster.ProxyProtocol,
		LoadBalancing: removedCluster.LoadBalancing, LoadMetric: removedCluster.LoadMetric, Answer503: removedCluster.Answer503,
	}}}

	for k, f := range s.httpFrontends {
		if f.Route.ClusterID != nil && *f.Route.ClusterID == p.ClusterID {
			delete(s.httpFrontends, k)
			spec := f
			forward = append(forward, Order{Type: wire.RemoveHTTPFrontend, Payload: &wire.RemoveHTTPFrontendPayload{Address: k.Address, Hostname: k.Hostname, Path: f.Path}})
			inverse = append(inverse, Order{Type: wire.AddHTTPFrontend, Payload: &spec})
		}
	}
	for k, f := range s.httpsFrontends {
		if f.Route.ClusterID != nil && *f.Route.ClusterID == p.ClusterID {
			delete(s.httpsFrontends, k)
			spec := f
			forward = append(forward, Order{Type: wire.RemoveHTTPSFrontend, Payload: &wire.RemoveHTTPFrontendPayload{Address: k.Address, Hostname: k.Hostname, Path: f.Path}})
			inverse = append(inverse, Order{Type: wire.AddHTTPSFrontend, Payload: &spec})
		}
	}
	for addr, f := range s.tcpFrontends {
		if f.ClusterID == p.ClusterID {
			delete(s.tcpFrontends, addr)
			spec := f
			forward = append(forward, Order{Type: wire.RemoveTCPFrontend, Payload: &wire.RemoveTCPFrontendPayload{Address: addr}})
			inverse = append(inverse, Order{Type: wire.AddTCPFrontend, Payload: &spec})
		}
	}
	for k, b := range s.backends {
		if k.ClusterID == p.ClusterID {
			delete(s.backends, k)
			backend := b
			forward = append(forward, Order{Type: wire.RemoveBackend, Payload: &wire.RemoveBackendPayload{ClusterID: k.ClusterID, BackendID: k.BackendID, Address: b.Address}})
			inverse = append(inverse, Order{Type: wire.AddBackend, Payload: &wire.AddBackendPayload{
				ClusterID: backend.ClusterID, BackendID: backend.BackendID, Address: backend.Address,
				Weight: backend.Weight, StickyID: backend.StickyID, Backup: backend.Backup,
			}})
		}
	}

	// Inverse re-adds the cluster first so the frontends and backends that
	// follow it resolve their cluster reference when replayed.
	return &Diff{Forward: forward, Inverse: inverse}, nil
}

func (s *State) applyAddHTTPFrontend(kind wire.FrontendKind, p *wire.HTTPFrontendSpec) (*Diff, error) {
	if p.Route.ClusterID != nil {
		if _, ok := s.clusters[*p.Route.ClusterID]; !ok {
			return nil, errors.Wrapf(ErrDanglingReference, "frontend references unknown cluster %q", *p.Route.ClusterID)
		}
	}
	table := s.httpFrontends
	reqType, invType := wire.AddHTTPFrontend, wire.RemoveHTTPFrontend
	if kind == wire.FrontendHTTPS {
		table = s.httpsFrontends
		reqType, invType = wire.AddHTTPSFrontend, wire.RemoveHTTPSFrontend
	}
	key := httpKey(p.Address, p.Hostname, p.Path)
	if _, ok := table[key]; ok {
		return nil, errors.Wrapf(ErrAlreadyExists, "frontend %s/%s%s", p.Address, p.Hostname, pathKey(p.Path))
	}
	table[key] = *p
	fwd := Order{Type: reqType, Payload: p}
	inv := Order{Type: invType, Payload: &wire.RemoveHTTPFrontendPayload{Address: p.Address, Hostname: p.Hostname, Path: p.Path}}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

func (s *State) applyRemoveHTTPFrontend(kind wire.FrontendKind, p *wire.RemoveHTTPFrontendPayload) (*Diff, error) {
	table := s.httpFrontends
	reqType, invType := wire.RemoveHTTPFrontend, wire.AddHTTPFrontend
	if kind == wire.FrontendHTTPS {
		table = s.httpsFrontends
		reqType, invType = wire.RemoveHTTPSFrontend, wire.AddHTTPSFrontend
	}
	key := httpKey(p.Address, p.Hostname, p.Path)
	spec, ok := table[key]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "frontend %s/%s%s", p.Address, p.Hostname, pathKey(p.Path))
	}
	delete(table, key)
	fwd := Order{Type: reqType, Payload: p}
	inv := Order{Type: invType, Payload: &spec}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

func (s *State) applyAddTCPFrontend(p *wire.TCPFrontendSpec) (*Diff, error) {
	if _, ok := s.clusters[p.ClusterID]; !ok {
		return nil, errors.Wrapf(ErrDanglingReference, "frontend references unknown cluster %q", p.ClusterID)
	}
	if _, ok := s.tcpFrontends[p.Address]; ok {
		return nil, errors.Wrapf(ErrAlreadyExists, "tcp frontend %s", p.Address)
	}
	s.tcpFrontends[p.Address] = *p
	fwd := Order{Type: wire.AddTCPFrontend, Payload: p}
	inv := Order{Type: wire.RemoveTCPFrontend, Payload: &wire.RemoveTCPFrontendPayload{Address: p.Address}}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

func (s *State) applyRemoveTCPFrontend(p *wire.RemoveTCPFrontendPayload) (*Diff, error) {
	spec, ok := s.tcpFrontends[p.Address]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "tcp frontend %s", p.Address)
	}
	delete(s.tcpFrontends, p.Address)
	fwd := Order{Type: wire.RemoveTCPFrontend, Payload: p}
	inv := Order{Type: wire.AddTCPFrontend, Payload: &spec}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

func (s *State) applyAddBackend(p *wire.AddBackendPayload) (*Diff, error) {
	if _, ok := s.clusters[p.ClusterID]; !ok {
		return nil, errors.Wrapf(ErrDanglingReference, "backend references unknown cluster %q", p.ClusterID)
	}
	key := backendKey{ClusterID: p.ClusterID, BackendID: p.BackendID}
	if _, ok := s.backends[key]; ok {
		return nil, errors.Wrapf(ErrAlreadyExists, "backend %s/%s", p.ClusterID, p.BackendID)
	}
	s.backends[key] = wire.Backend{ClusterID: p.ClusterID, BackendID: p.BackendID, Address: p.Address, Weight: p.Weight, StickyID: p.StickyID, Backup: p.Backup}
	fwd := Order{Type: wire.AddBackend, Payload: p}
	inv := Order{Type: wire.RemoveBackend, Payload: &wire.RemoveBackendPayload{ClusterID: p.ClusterID, BackendID: p.BackendID, Address: p.Address}}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

func (s *State) applyRemoveBackend(p *wire.RemoveBackendPayload) (*Diff, error) {
	key := backendKey{ClusterID: p.ClusterID, BackendID: p.BackendID}
	b, ok := s.backends[key]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "backend %s/%s", p.ClusterID, p.BackendID)
	}
	delete(s.backends, key)
	fwd := Order{Type: wire.RemoveBackend, Payload: p}
	inv := Order{Type: wire.AddBackend, Payload: &wire.AddBackendPayload{ClusterID: b.ClusterID, BackendID: b.BackendID, Address: b.Address, Weight: b.Weight, StickyID: b.StickyID, Backup: b.Backup}}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

func (s *State) applyAddListener(kind wire.ListenerKind, p *wire.ListenerSpec, _ any) (*Diff, error) {
	table := s.httpListeners
	reqType := wire.AddHTTPListener
	if kind == wire.ListenerTCP {
		table = s.tcpListeners
		reqType = wire.AddTCPListener
	}
	if _, ok := table[p.Address]; ok {
		return nil, errors.Wrapf(ErrAlreadyExists, "%s listener %s", kind, p.Address)
	}
	table[p.Address] = *p
	fwd := Order{Type: reqType, Payload: p}
	inv := Order{Type: wire.RemoveListener, Payload: &wire.RemoveListenerPayload{Address: p.Address, Kind: kind}}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

func (s *State) applyAddHTTPSListener(p *wire.HTTPSListenerSpec) (*Diff, error) {
	if _, ok := s.httpsListeners[p.Address]; ok {
		return nil, errors.Wrapf(ErrAlreadyExists, "HTTPS listener %s", p.Address)
	}
	s.httpsListeners[p.Address] = *p
	fwd := Order{Type: wire.AddHTTPSListener, Payload: p}
	inv := Order{Type: wire.RemoveListener, Payload: &wire.RemoveListenerPayload{Address: p.Address, Kind: wire.ListenerHTTPS}}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

func (s *State) applyRemoveListener(p *wire.RemoveListenerPayload) (*Diff, error) {
	var inv Order
	switch p.Kind {
	case wire.ListenerHTTP:
		spec, ok := s.httpListeners[p.Address]
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "HTTP listener %s", p.Address)
		}
		delete(s.httpListeners, p.Address)
		inv = Order{Type: wire.AddHTTPListener, Payload: &spec}
	case wire.ListenerHTTPS:
		spec, ok := s.httpsListeners[p.Address]
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "HTTPS listener %s", p.Address)
		}
		delete(s.httpsListeners, p.Address)
		inv = Order{Type: wire.AddHTTPSListener, Payload: &spec}
	case wire.ListenerTCP:
		spec, ok := s.tcpListeners[p.Address]
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "TCP listener %s", p.Address)
		}
		delete(s.tcpListeners, p.Address)
		inv = Order{Type: wire.AddTCPListener, Payload: &spec}
	default:
		return nil, errors.Wrapf(ErrInvariantViolated, "unknown listener kind %q", p.Kind)
	}
	delete(s.activeListener, listenerKey{Kind: p.Kind, Address: p.Address})
	fwd := Order{Type: wire.RemoveListener, Payload: p}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

// applyActivateListener is a no-op (not an error) if the listener is
// already active (spec §3 "Listener activation").
func (s *State) applyActivateListener(p *wire.ActivateListenerPayload) (*Diff, error) {
	if !s.listenerExists(p.Kind, p.Address) {
		return nil, errors.Wrapf(ErrNotFound, "%s listener %s", p.Kind, p.Address)
	}
	key := listenerKey{Kind: p.Kind, Address: p.Address}
	wasActive := s.activeListener[key]
	s.activeListener[key] = true
	fwd := Order{Type: wire.ActivateListener, Payload: p}
	var inv Order
	if wasActive {
		inv = fwd // activating an already-active listener is its own inverse: a no-op
	} else {
		inv = Order{Type: wire.DeactivateListener, Payload: &wire.DeactivateListenerPayload{Address: p.Address, Kind: p.Kind}}
	}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

// applyDeactivateListener errors if the listener is unknown (spec §3:
// "deactivating an unknown listener is an error").
func (s *State) applyDeactivateListener(p *wire.DeactivateListenerPayload) (*Diff, error) {
	if !s.listenerExists(p.Kind, p.Address) {
		return nil, errors.Wrapf(ErrNotFound, "%s listener %s", p.Kind, p.Address)
	}
	key := listenerKey{Kind: p.Kind, Address: p.Address}
	wasActive := s.activeListener[key]
	s.activeListener[key] = false
	fwd := Order{Type: wire.DeactivateListener, Payload: p}
	inv := Order{Type: wire.ActivateListener, Payload: &wire.ActivateListenerPayload{Address: p.Address, Kind: p.Kind}}
	if !wasActive {
		inv = fwd
	}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

func (s *State) listenerExists(kind wire.ListenerKind, address string) bool {
	switch kind {
	case wire.ListenerHTTP:
		_, ok := s.httpListeners[address]
		return ok
	case wire.ListenerHTTPS:
		_, ok := s.httpsListeners[address]
		return ok
	case wire.ListenerTCP:
		_, ok := s.tcpListeners[address]
		return ok
	default:
		return false
	}
}

func (s *State) applyAddCertificate(p *wire.AddCertificatePayload) (*Diff, error) {
	fp, sans, err := fingerprintPEM(p.Certificate.Certificate)
	if err != nil {
		return nil, err
	}
	if _, ok := s.certificates[fp]; ok {
		return nil, errors.Wrapf(ErrAlreadyExists, "certificate %s", fp)
	}
	names := p.Names
	if len(names) == 0 {
		names = sans
	}
	cert := wire.Certificate{CertAndKey: p.Certificate, Fingerprint: fp, Names: names}
	s.certificates[fp] = cert
	s.indexCertificate(p.Address, fp, names)

	fwd := Order{Type: wire.AddCertificate, Payload: p}
	inv := Order{Type: wire.RemoveCertificate, Payload: &wire.RemoveCertificatePayload{Address: p.Address, Fingerprint: fp}}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

func (s *State) applyRemoveCertificate(p *wire.RemoveCertificatePayload) (*Diff, error) {
	cert, ok := s.certificates[p.Fingerprint]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "certificate %s", p.Fingerprint)
	}
	delete(s.certificates, p.Fingerprint)
	s.unindexCertificate(p.Address, p.Fingerprint, cert.Names)

	fwd := Order{Type: wire.RemoveCertificate, Payload: p}
	inv := Order{Type: wire.AddCertificate, Payload: &wire.AddCertificatePayload{Address: p.Address, Certificate: cert.CertAndKey, Names: cert.Names}}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

// applyReplaceCertificate is an atomic (remove-old, add-new) operation so
// there is never a window where the listener has neither (spec §3, §8
// scenario 3): the new certificate is indexed before the old one is
// removed from the index.
func (s *State) applyReplaceCertificate(p *wire.ReplaceCertificatePayload) (*Diff, error) {
	oldCert, ok := s.certificates[p.OldFingerprint]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "certificate %s", p.OldFingerprint)
	}
	newFP, sans, err := fingerprintPEM(p.NewCertificate.Certificate)
	if err != nil {
		return nil, err
	}
	if _, ok := s.certificates[newFP]; ok {
		return nil, errors.Wrapf(ErrAlreadyExists, "certificate %s", newFP)
	}
	newNames := p.NewNames
	if len(newNames) == 0 {
		newNames = sans
	}
	newCert := wire.Certificate{CertAndKey: p.NewCertificate, Fingerprint: newFP, Names: newNames}
	s.certificates[newFP] = newCert
	s.indexCertificate(p.Address, newFP, newNames)
	delete(s.certificates, p.OldFingerprint)
	s.unindexCertificate(p.Address, p.OldFingerprint, oldCert.Names)

	fwd := Order{Type: wire.ReplaceCertificate, Payload: p}
	inv := Order{Type: wire.ReplaceCertificate, Payload: &wire.ReplaceCertificatePayload{
		Address: p.Address, OldFingerprint: newFP, NewCertificate: oldCert.CertAndKey, NewNames: oldCert.Names,
	}}
	return &Diff{Forward: []Order{fwd}, Inverse: []Order{inv}}, nil
}

func (s *State) indexCertificate(address, fingerprint string, names []string) {
	if s.addrCerts[address] == nil {
		s.addrCerts[address] = make(map[string]bool)
	}
	s.addrCerts[address][fingerprint] = true
	for _, n := range names {
		if s.sniIndex[n] == nil {
			s.sniIndex[n] = make(map[string]bool)
		}
		s.sniIndex[n][fingerprint] = true
	}
}

func (s *State) unindexCertificate(address, fingerprint string, names []string) {
	if set, ok := s.addrCerts[address]; ok {
		delete(set, fingerprint)
		if len(set) == 0 {
			delete(s.addrCerts, address)
		}
	}
	for _, n := range names {
		if set, ok := s.sniIndex[n]; ok {
			delete(set, fingerprint)
			if len(set) == 0 {
				delete(s.sniIndex, n)
			}
		}
	}
}

package wire

// Cluster is a logical pool of backends serving one service (spec §3).
type Cluster struct {
	ClusterID     string                 `json:"cluster_id"`
	StickySession bool                   `json:"sticky_session"`
	HTTPSRedirect bool                   `json:"https_redirect"`
	ProxyProtocol ProxyProtocolMode      `json:"proxy_protocol"`
	LoadBalancing LoadBalancingAlgorithm `json:"load_balancing"`
	LoadMetric    *string                `json:"load_metric,omitempty"`
	Answer503     *string                `json:"answer_503,omitempty"`
}

// Backend is a concrete upstream within a cluster, keyed by (ClusterID, BackendID).
type Backend struct {
	ClusterID string  `json:"cluster_id"`
	BackendID string  `json:"backend_id"`
	Address   string  `json:"address"`
	Weight    *int    `json:"weight,omitempty"`
	StickyID  *string `json:"sticky_id,omitempty"`
	Backup    bool    `json:"backup,omitempty"`
}

// HTTPFrontendSpec is shared by HTTP and HTTPS frontends; which listener
// kind it attaches to is determined by the request tag used to add it
// (ADD_HTTP_FRONTEND vs ADD_HTTPS_FRONTEND), not by a field on the spec.
type HTTPFrontendSpec struct {
	Route    RouteTarget       `json:"route"`
	Hostname string            `json:"hostname"`
	Path     PathRule          `json:"path"`
	Address  string            `json:"address"`
	Method   *string           `json:"method,omitempty"`
	Position RulePosition      `json:"position"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// TCPFrontendSpec binds a listen address directly to a cluster.
type TCPFrontendSpec struct {
	Address   string            `json:"address"`
	ClusterID string            `json:"cluster_id"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// ListenerSpec is common to all listener kinds.
type ListenerSpec struct {
	Address       string  `json:"address"`
	PublicAddress *string `json:"public_address,omitempty"`
	ExpectProxy   bool    `json:"expect_proxy,omitempty"`
}

// HTTPSListenerSpec adds TLS-specific knobs to ListenerSpec.
type HTTPSListenerSpec struct {
	ListenerSpec
	CipherList  []string     `json:"cipher_list,omitempty"`
	TLSVersions []TLSVersion `json:"tls_versions,omitempty"`
	SniRequired bool         `json:"sni_required,omitempty"`
	AlpnProtos  []string     `json:"alpn_protocols,omitempty"`
}

// CertAndKey is the PEM material of a certificate as carried on the wire.
type CertAndKey struct {
	Certificate      string       `json:"certificate"`
	CertificateChain []string     `json:"certificate_chain,omitempty"`
	Key              string       `json:"key"`
	Versions         []TLSVersion `json:"versions,omitempty"`
}

// Certificate is the stored form, keyed by fingerprint, with the
// SAN/expiry metadata derived at insertion time (spec §3).
type Certificate struct {
	CertAndKey
	Fingerprint string   `json:"fingerprint"`
	Names       []string `json:"names,omitempty"`
	ExpiresAt   *int64   `json:"expires_at,omitempty"` // unix seconds
}

// WorkerInfo describes one worker process (spec §3). ListenSockets records
// the listener addresses handed to this worker at launch time, standing in
// for the original's scm-rights fd passing (spec §3 supplement).
type WorkerInfo struct {
	ID            uint32   `json:"id"`
	PID           int32    `json:"pid"`
	State         RunState `json:"run_state"`
	ListenSockets []string `json:"listen_sockets,omitempty"`
}

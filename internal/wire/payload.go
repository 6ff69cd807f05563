package wire

// Request content payloads. Field names are snake_case per spec §4.1. Each
// struct name, run through tagFor, must equal the RequestType constant it
// decodes for (asserted in payload_test.go) so the tag table in tags.go can
// never silently drift from what DecodeContent actually understands.

type AddClusterPayload struct {
	ClusterID     string                 `json:"cluster_id"`
	StickySession bool                   `json:"sticky_session"`
	HTTPSRedirect bool                   `json:"https_redirect"`
	ProxyProtocol ProxyProtocolMode      `json:"proxy_protocol"`
	LoadBalancing LoadBalancingAlgorithm `json:"load_balancing"`
	LoadMetric    *string                `json:"load_metric,omitempty"`
	Answer503     *string                `json:"answer_503,omitempty"`
}

type RemoveClusterPayload struct {
	ClusterID string `json:"cluster_id"`
}

type AddHTTPFrontendPayload = HTTPFrontendSpec
type RemoveHTTPFrontendPayload struct {
	Address  string   `json:"address"`
	Hostname string   `json:"hostname"`
	Path     PathRule `json:"path"`
}
type AddHTTPSFrontendPayload = HTTPFrontendSpec
type RemoveHTTPSFrontendPayload = RemoveHTTPFrontendPayload

type AddTCPFrontendPayload = TCPFrontendSpec
type RemoveTCPFrontendPayload struct {
	Address string `json:"address"`
}

type AddCertificatePayload struct {
	Address     string     `json:"address"`
	Certificate CertAndKey `json:"certificate"`
	Names       []string   `json:"names,omitempty"`
}

type ReplaceCertificatePayload struct {
	Address        string     `json:"address"`
	OldFingerprint string     `json:"old_fingerprint"`
	NewCertificate CertAndKey `json:"new_certificate"`
	NewNames       []string   `json:"new_names,omitempty"`
}

type RemoveCertificatePayload struct {
	Address     string `json:"address"`
	Fingerprint string `json:"fingerprint"`
}

type AddBackendPayload struct {
	ClusterID string  `json:"cluster_id"`
	BackendID string  `json:"backend_id"`
	Address   string  `json:"address"`
	Weight    *int    `json:"weight,omitempty"`
	StickyID  *string `json:"sticky_id,omitempty"`
	Backup    bool    `json:"backup,omitempty"`
}

type RemoveBackendPayload struct {
	ClusterID string `json:"cluster_id"`
	BackendID string `json:"backend_id"`
	Address   string `json:"address"`
}

type AddHTTPListenerPayload = ListenerSpec
type AddHTTPSListenerPayload = HTTPSListenerSpec
type AddTCPListenerPayload = ListenerSpec

type RemoveListenerPayload struct {
	Address string       `json:"address"`
	Kind    ListenerKind `json:"kind"`
}
type ActivateListenerPayload struct {
	Address string       `json:"address"`
	Kind    ListenerKind `json:"kind"`
}
type DeactivateListenerPayload struct {
	Address string       `json:"address"`
	Kind    ListenerKind `json:"kind"`
}

type QueryClustersPayload struct {
	ClusterIDs []string `json:"cluster_ids,omitempty"`
}
type QueryClustersHashesPayload struct{}
type QueryCertificatesPayload struct {
	Fingerprints []string `json:"fingerprints,omitempty"`
	Domain       *string  `json:"domain,omitempty"`
}
type QueryMetricsPayload struct {
	ClusterIDs []string `json:"cluster_ids,omitempty"`
}

type SaveStatePayload struct {
	Path string `json:"path"`
}
type LoadStatePayload struct {
	Path string `json:"path"`
}
type DumpStatePayload struct{}
type ListWorkersPayload struct{}
type ListFrontendsPayload struct {
	Kind *FrontendKind `json:"kind,omitempty"`
}
type ListListenersPayload struct{}
type LaunchWorkerPayload struct{}
type UpgradeMainPayload struct{}
type UpgradeWorkerPayload struct {
	WorkerID uint32 `json:"worker_id"`
}
type SubscribeEventsPayload struct{}
type ReloadConfigurationPayload struct {
	Path *string `json:"path,omitempty"`
}
type StatusPayload struct{}
type SoftStopPayload struct{}
type HardStopPayload struct{}
type ConfigureMetricsPayload struct {
	Enabled bool     `json:"enabled"`
	Tagged  []string `json:"tagged,omitempty"`
}
type LoggingPayload struct {
	Level string `json:"level"`
}
type ReturnListenSocketsPayload struct{}

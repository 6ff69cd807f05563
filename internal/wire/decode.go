package wire

import (
	"encoding/json"
	"fmt"
)

// DecodeContent unmarshals raw into the concrete payload struct registered
// for t, returning ErrUnknownTag for any RequestType outside the closed
// enumeration. The returned value is always a pointer to the payload
// struct so callers can type-assert it directly.
func DecodeContent(t RequestType, raw json.RawMessage) (any, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, t)
	}
	var v any
	switch t {
	case SaveState:
		v = new(SaveStatePayload)
	case LoadState:
		v = new(LoadStatePayload)
	case DumpState:
		v = new(DumpStatePayload)
	case ListWorkers:
		v = new(ListWorkersPayload)
	case ListFrontends:
		v = new(ListFrontendsPayload)
	case ListListeners:
		v = new(ListListenersPayload)
	case LaunchWorker:
		v = new(LaunchWorkerPayload)
	case UpgradeMain:
		v = new(UpgradeMainPayload)
	case UpgradeWorker:
		v = new(UpgradeWorkerPayload)
	case SubscribeEvents:
		v = new(SubscribeEventsPayload)
	case ReloadConfiguration:
		v = new(ReloadConfigurationPayload)
	case Status:
		v = new(StatusPayload)
	case AddCluster:
		v = new(AddClusterPayload)
	case RemoveCluster:
		v = new(RemoveClusterPayload)
	case AddHTTPFrontend:
		v = new(AddHTTPFrontendPayload)
	case RemoveHTTPFrontend:
		v = new(RemoveHTTPFrontendPayload)
	case AddHTTPSFrontend:
		v = new(AddHTTPSFrontendPayload)
	case RemoveHTTPSFrontend:
		v = new(RemoveHTTPSFrontendPayload)
	case AddCertificate:
		v = new(AddCertificatePayload)
	case ReplaceCertificate:
		v = new(ReplaceCertificatePayload)
	case RemoveCertificate:
		v = new(RemoveCertificatePayload)
	case AddTCPFrontend:
		v = new(AddTCPFrontendPayload)
	case RemoveTCPFrontend:
		v = new(RemoveTCPFrontendPayload)
	case AddBackend:
		v = new(AddBackendPayload)
	case RemoveBackend:
		v = new(RemoveBackendPayload)
	case AddHTTPListener:
		v = new(AddHTTPListenerPayload)
	case AddHTTPSListener:
		v = new(AddHTTPSListenerPayload)
	case AddTCPListener:
		v = new(AddTCPListenerPayload)
	case RemoveListener:
		v = new(RemoveListenerPayload)
	case ActivateListener:
		v = new(ActivateListenerPayload)
	case DeactivateListener:
		v = new(DeactivateListenerPayload)
	case QueryCertificates:
		v = new(QueryCertificatesPayload)
	case QueryClusters:
		v = new(QueryClustersPayload)
	case QueryClustersHashes:
		v = new(QueryClustersHashesPayload)
	case QueryMetrics:
		v = new(QueryMetricsPayload)
	case SoftStop:
		v = new(SoftStopPayload)
	case HardStop:
		v = new(HardStopPayload)
	case ConfigureMetrics:
		v = new(ConfigureMetricsPayload)
	case Logging:
		v = new(LoggingPayload)
	case ReturnListenSockets:
		v = new(ReturnListenSocketsPayload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, t)
	}
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("%w: content for %s: %w", ErrMalformed, t, err)
	}
	return v, nil
}

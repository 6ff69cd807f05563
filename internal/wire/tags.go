package wire

import "github.com/iancoleman/strcase"

// RequestType is the closed enumeration of request tags recognized on the
// control socket (spec §6). Unknown values fail IsValid rather than being
// silently accepted.
type RequestType string

const (
	SaveState           RequestType = "SAVE_STATE"
	LoadState           RequestType = "LOAD_STATE"
	DumpState           RequestType = "DUMP_STATE"
	ListWorkers         RequestType = "LIST_WORKERS"
	ListFrontends       RequestType = "LIST_FRONTENDS"
	ListListeners       RequestType = "LIST_LISTENERS"
	LaunchWorker        RequestType = "LAUNCH_WORKER"
	UpgradeMain         RequestType = "UPGRADE_MAIN"
	UpgradeWorker       RequestType = "UPGRADE_WORKER"
	SubscribeEvents     RequestType = "SUBSCRIBE_EVENTS"
	ReloadConfiguration RequestType = "RELOAD_CONFIGURATION"
	Status              RequestType = "STATUS"
	AddCluster          RequestType = "ADD_CLUSTER"
	RemoveCluster       RequestType = "REMOVE_CLUSTER"
	AddHTTPFrontend     RequestType = "ADD_HTTP_FRONTEND"
	RemoveHTTPFrontend  RequestType = "REMOVE_HTTP_FRONTEND"
	AddHTTPSFrontend    RequestType = "ADD_HTTPS_FRONTEND"
	RemoveHTTPSFrontend RequestType = "REMOVE_HTTPS_FRONTEND"
	AddCertificate      RequestType = "ADD_CERTIFICATE"
	ReplaceCertificate  RequestType = "REPLACE_CERTIFICATE"
	RemoveCertificate   RequestType = "REMOVE_CERTIFICATE"
	AddTCPFrontend      RequestType = "ADD_TCP_FRONTEND"
	RemoveTCPFrontend   RequestType = "REMOVE_TCP_FRONTEND"
	AddBackend          RequestType = "ADD_BACKEND"
	RemoveBackend       RequestType = "REMOVE_BACKEND"
	AddHTTPListener     RequestType = "ADD_HTTP_LISTENER"
	AddHTTPSListener    RequestType = "ADD_HTTPS_LISTENER"
	AddTCPListener      RequestType = "ADD_TCP_LISTENER"
	RemoveListener      RequestType = "REMOVE_LISTENER"
	ActivateListener    RequestType = "ACTIVATE_LISTENER"
	DeactivateListener  RequestType = "DEACTIVATE_LISTENER"
	QueryCertificates   RequestType = "QUERY_CERTIFICATES"
	QueryClusters       RequestType = "QUERY_CLUSTERS"
	QueryClustersHashes RequestType = "QUERY_CLUSTERS_HASHES"
	QueryMetrics        RequestType = "QUERY_METRICS"
	SoftStop            RequestType = "SOFT_STOP"
	HardStop            RequestType = "HARD_STOP"
	ConfigureMetrics    RequestType = "CONFIGURE_METRICS"
	Logging             RequestType = "LOGGING"
	ReturnListenSockets RequestType = "RETURN_LISTEN_SOCKETS"
)

// requestTypeNames backs IsValid. It is a hand-written table; payload_test.go
// checks it against the Go content struct names through tagFor (below), so
// a drift from the set of content types the codec decodes fails the tests.
var requestTypeNames = map[RequestType]struct{}{
	SaveState: {}, LoadState: {}, DumpState: {}, ListWorkers: {}, ListFrontends: {},
	ListListeners: {}, LaunchWorker: {}, UpgradeMain: {}, UpgradeWorker: {},
	SubscribeEvents: {}, ReloadConfiguration: {}, Status: {}, AddCluster: {},
	RemoveCluster: {}, AddHTTPFrontend: {}, RemoveHTTPFrontend: {}, AddHTTPSFrontend: {},
	RemoveHTTPSFrontend: {}, AddCertificate: {}, ReplaceCertificate: {}, RemoveCertificate: {},
	AddTCPFrontend: {}, RemoveTCPFrontend: {}, AddBackend: {}, RemoveBackend: {},
	AddHTTPListener: {}, AddHTTPSListener: {}, AddTCPListener: {}, RemoveListener: {},
	ActivateListener: {}, DeactivateListener: {}, QueryCertificates: {}, QueryClusters: {},
	QueryClustersHashes: {}, QueryMetrics: {}, SoftStop: {}, HardStop: {},
	ConfigureMetrics: {}, Logging: {}, ReturnListenSockets: {},
}

// IsValid reports whether t is a recognized request tag.
func (t RequestType) IsValid() bool {
	_, ok := requestTypeNames[t]
	return ok
}

// tagFor derives the SCREAMING_SNAKE_CASE wire tag for a Go exported type
// name, e.g. tagFor("AddCluster") == "ADD_CLUSTER". Used by payload_test.go
// to assert the request tag table never drifts from the content struct
// names declared in payload.go.
func tagFor(goName string) string {
	return strcase.ToScreamingSnake(goName)
}

// ResponseStatus is the closed enumeration of response status values.
type ResponseStatus string

const (
	StatusOK         ResponseStatus = "OK"
	StatusProcessing ResponseStatus = "PROCESSING"
	StatusError      ResponseStatus = "ERROR"
)

// IsValid reports whether s is a recognized response status.
func (s ResponseStatus) IsValid() bool {
	switch s {
	case StatusOK, StatusProcessing, StatusError:
		return true
	default:
		return false
	}
}

// ContentType is the closed enumeration of response content variants.
type ContentType string

const (
	ContentWorkers      ContentType = "WORKERS"
	ContentMetrics      ContentType = "METRICS"
	ContentQuery        ContentType = "QUERY"
	ContentState        ContentType = "STATE"
	ContentEvent        ContentType = "EVENT"
	ContentFrontendList ContentType = "FRONTEND_LIST"
	ContentStatus       ContentType = "STATUS"
	ContentListenersList ContentType = "LISTENERS_LIST"
)

// IsValid reports whether c is a recognized response content tag.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentWorkers, ContentMetrics, ContentQuery, ContentState, ContentEvent,
		ContentFrontendList, ContentStatus, ContentListenersList:
		return true
	default:
		return false
	}
}

package wire

// ProxyProtocolMode selects whether a cluster speaks the PROXY protocol to
// its backends.
type ProxyProtocolMode string

const (
	ProxyProtocolNone         ProxyProtocolMode = "NONE"
	ProxyProtocolSendHeader   ProxyProtocolMode = "SEND_HEADER"
	ProxyProtocolExpectHeader ProxyProtocolMode = "EXPECT_HEADER"
)

func (m ProxyProtocolMode) IsValid() bool {
	switch m {
	case ProxyProtocolNone, ProxyProtocolSendHeader, ProxyProtocolExpectHeader, "":
		return true
	default:
		return false
	}
}

// LoadBalancingAlgorithm selects how a cluster picks a backend.
type LoadBalancingAlgorithm string

const (
	RoundRobin  LoadBalancingAlgorithm = "ROUND_ROBIN"
	LeastLoaded LoadBalancingAlgorithm = "LEAST_LOADED"
	Random      LoadBalancingAlgorithm = "RANDOM"
	PowerOfTwo  LoadBalancingAlgorithm = "POWER_OF_TWO"
)

func (a LoadBalancingAlgorithm) IsValid() bool {
	switch a {
	case RoundRobin, LeastLoaded, Random, PowerOfTwo, "":
		return true
	default:
		return false
	}
}

// RulePosition selects where in the matching order a frontend rule sits.
type RulePosition string

const (
	PositionPre  RulePosition = "PRE"
	PositionPost RulePosition = "POST"
	PositionTree RulePosition = "TREE"
)

func (p RulePosition) IsValid() bool {
	switch p {
	case PositionPre, PositionPost, PositionTree, "":
		return true
	default:
		return false
	}
}

// RunState is a worker process's run-state (spec §4.3).
type RunState string

const (
	RunStateRunning      RunState = "RUNNING"
	RunStateStopping     RunState = "STOPPING"
	RunStateStopped      RunState = "STOPPED"
	RunStateNotAnswering RunState = "NOT_ANSWERING"
)

// TLSVersion is a recognized TLS protocol version.
type TLSVersion string

const (
	TLS1_2 TLSVersion = "TLS1_2"
	TLS1_3 TLSVersion = "TLS1_3"
)

// ListenerKind discriminates the three listener flavors.
type ListenerKind string

const (
	ListenerHTTP  ListenerKind = "HTTP"
	ListenerHTTPS ListenerKind = "HTTPS"
	ListenerTCP   ListenerKind = "TCP"
)

func (k ListenerKind) IsValid() bool {
	switch k {
	case ListenerHTTP, ListenerHTTPS, ListenerTCP:
		return true
	default:
		return false
	}
}

// FrontendKind discriminates the three frontend flavors.
type FrontendKind string

const (
	FrontendHTTP  FrontendKind = "HTTP"
	FrontendHTTPS FrontendKind = "HTTPS"
	FrontendTCP   FrontendKind = "TCP"
)

// EventKind is the closed set of runtime observations a worker can publish.
type EventKind string

const (
	EventBackendDown                  EventKind = "BACKEND_DOWN"
	EventBackendUp                    EventKind = "BACKEND_UP"
	EventNoAvailableBackends          EventKind = "NO_AVAILABLE_BACKENDS"
	EventRemovedBackendHasNoConnections EventKind = "REMOVED_BACKEND_HAS_NO_CONNECTIONS"
)

func (k EventKind) IsValid() bool {
	switch k {
	case EventBackendDown, EventBackendUp, EventNoAvailableBackends, EventRemovedBackendHasNoConnections:
		return true
	default:
		return false
	}
}

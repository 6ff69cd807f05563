// Package config maintains the authoritative, in-memory configuration
// state (clusters, frontends, backends, listeners, certificates) and
// applies validated mutations to it (spec §4.2).
package config

import (
	"fmt"

	"github.com/sozu-sh/sozuctl/internal/wire"
)

// backendKey is the natural key of a Backend: (cluster id, backend id).
type backendKey struct {
	ClusterID string
	BackendID string
}

// httpFrontendKey is the natural key of an HTTP/HTTPS frontend: the listen
// address, hostname, and a canonical rendering of its path rule.
type httpFrontendKey struct {
	Address  string
	Hostname string
	Path     string
}

func pathKey(p wire.PathRule) string {
	switch {
	case p.Prefix != nil:
		return "PREFIX:" + *p.Prefix
	case p.Equals != nil:
		return "EQUALS:" + *p.Equals
	case p.Regex != nil:
		return "REGEX:" + *p.Regex
	default:
		return ""
	}
}

func httpKey(address, hostname string, path wire.PathRule) httpFrontendKey {
	return httpFrontendKey{Address: address, Hostname: hostname, Path: pathKey(path)}
}

// listenerKey is the natural key of a listener: kind plus address, since
// the three listener kinds occupy independent address spaces (spec §3).
type listenerKey struct {
	Kind    wire.ListenerKind
	Address string
}

func (k listenerKey) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.Address)
}

package wire

import (
	"encoding/json"
	"fmt"
)

// RouteTarget is the externally-tagged union a frontend resolves to: a
// cluster id, an HTTP redirect, or a hard deny. On the wire it is a
// single-key JSON object, e.g. {"CLUSTER_ID":"xxx"} or {"DENY":true}
// (spec §8 scenario 2).
type RouteTarget struct {
	ClusterID *string
	Redirect  *string
	Deny      bool
	isDeny    bool
}

func RouteToCluster(id string) RouteTarget    { return RouteTarget{ClusterID: &id} }
func RouteToRedirect(url string) RouteTarget  { return RouteTarget{Redirect: &url} }
func RouteToDeny() RouteTarget                { return RouteTarget{Deny: true, isDeny: true} }

func (r RouteTarget) MarshalJSON() ([]byte, error) {
	switch {
	case r.ClusterID != nil:
		return json.Marshal(map[string]string{"CLUSTER_ID": *r.ClusterID})
	case r.Redirect != nil:
		return json.Marshal(map[string]string{"HTTP_REDIRECT": *r.Redirect})
	case r.Deny || r.isDeny:
		return json.Marshal(map[string]bool{"DENY": true})
	default:
		return nil, fmt.Errorf("wire: empty RouteTarget")
	}
}

func (r *RouteTarget) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: route target: %w", ErrMalformed, err)
	}
	if len(m) != 1 {
		return fmt.Errorf("%w: route target must have exactly one key", ErrMalformed)
	}
	for k, v := range m {
		switch k {
		case "CLUSTER_ID":
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.ClusterID = &s
		case "HTTP_REDIRECT":
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return err
			}
			r.Redirect = &s
		case "DENY":
			r.Deny = true
			r.isDeny = true
		default:
			return fmt.Errorf("%w: route target variant %q", ErrUnknownTag, k)
		}
	}
	return nil
}

// PathRule is the externally-tagged union of HTTP path matching rules:
// {"PREFIX":"/x"}, {"EQUALS":"/x"}, or {"REGEX":"^/x$"}.
type PathRule struct {
	Prefix *string
	Equals *string
	Regex  *string
}

func PathPrefix(s string) PathRule { return PathRule{Prefix: &s} }
func PathEquals(s string) PathRule { return PathRule{Equals: &s} }
func PathRegex(s string) PathRule  { return PathRule{Regex: &s} }

func (p PathRule) MarshalJSON() ([]byte, error) {
	switch {
	case p.Prefix != nil:
		return json.Marshal(map[string]string{"PREFIX": *p.Prefix})
	case p.Equals != nil:
		return json.Marshal(map[string]string{"EQUALS": *p.Equals})
	case p.Regex != nil:
		return json.Marshal(map[string]string{"REGEX": *p.Regex})
	default:
		return nil, fmt.Errorf("wire: empty PathRule")
	}
}

func (p *PathRule) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("%w: path rule: %w", ErrMalformed, err)
	}
	if len(m) != 1 {
		return fmt.Errorf("%w: path rule must have exactly one key", ErrMalformed)
	}
	for k, v := range m {
		switch k {
		case "PREFIX":
			p.Prefix = &v
		case "EQUALS":
			p.Equals = &v
		case "REGEX":
			p.Regex = &v
		default:
			return fmt.Errorf("%w: path rule variant %q", ErrUnknownTag, k)
		}
	}
	return nil
}

// Event is a runtime observation published by a worker and relayed to
// subscribed clients. It uses adjacent tagging ({"type":...,"data":...}),
// matching spec §8 scenario 6.
type Event struct {
	Kind EventKind
	Data []string
}

func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type EventKind `json:"type"`
		Data []string  `json:"data"`
	}{e.Kind, e.Data})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var env struct {
		Type EventKind       `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("%w: event: %w", ErrMalformed, err)
	}
	if !env.Type.IsValid() {
		return fmt.Errorf("%w: event kind %q", ErrUnknownTag, env.Type)
	}
	var d []string
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return fmt.Errorf("%w: event data: %w", ErrMalformed, err)
		}
	}
	e.Kind = env.Type
	e.Data = d
	return nil
}

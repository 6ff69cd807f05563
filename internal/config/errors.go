package config

import "github.com/pkg/errors"

// RejectReason sentinels classify why Apply refused a mutation (spec §4.2).
// Wrap them with errors.Wrap/Wrapf to attach which command and key failed;
// errors.Is still matches the sentinel through the wrap.
var (
	ErrAlreadyExists     = errors.New("already exists")
	ErrNotFound          = errors.New("not found")
	ErrDanglingReference = errors.New("dangling reference")
	ErrInvariantViolated = errors.New("invariant violated")
)

// Is reports whether err wraps one of the RejectReason sentinels above.
// Exposed for callers (the dispatcher) that need to render a reason
// without importing github.com/pkg/errors themselves.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

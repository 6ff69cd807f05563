// Package wire implements the control-socket wire protocol: length-framed
// JSON envelopes carrying a closed set of request/response tags.
package wire

import "errors"

// ProtocolVersion is the single version byte every Request and Response
// envelope must carry. There is no cross-version compatibility: a mismatch
// is a hard decode error, distinct from a malformed-message error.
const ProtocolVersion uint8 = 0

// ErrVersionMismatch is returned by DecodeRequest and DecodeResponse when an envelope's version byte
// differs from ProtocolVersion.
var ErrVersionMismatch = errors.New("wire: protocol version mismatch")

// ErrUnknownTag is returned when a request type or content type tag falls
// outside the closed enumeration. Unknown tags are rejected, never ignored,
// so client/server version drift surfaces immediately.
var ErrUnknownTag = errors.New("wire: unknown tag")

// ErrMalformed wraps any framing or JSON decode failure that is not a
// version or tag problem.
var ErrMalformed = errors.New("wire: malformed message")

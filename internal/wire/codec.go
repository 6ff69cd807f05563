package wire

import (
	"encoding/json"
	"fmt"
)

// EncodeRequest marshals r, stamping ProtocolVersion, ready to be handed to
// a Framer.WriteFrame.
func EncodeRequest(r Request) ([]byte, error) {
	r.Version = ProtocolVersion
	return json.Marshal(r)
}

// DecodeRequest unmarshals a frame payload into a Request and enforces the
// protocol version. A version mismatch returns ErrVersionMismatch, distinct
// from any other decode failure, per spec §4.1.
func DecodeRequest(payload []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(payload, &r); err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if r.Version != ProtocolVersion {
		return Request{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, r.Version, ProtocolVersion)
	}
	if !r.Type.IsValid() {
		return Request{}, fmt.Errorf("%w: %q", ErrUnknownTag, r.Type)
	}
	return r, nil
}

// EncodeResponse marshals resp, stamping ProtocolVersion.
func EncodeResponse(resp Response) ([]byte, error) {
	resp.Version = ProtocolVersion
	return json.Marshal(resp)
}

// DecodeResponse unmarshals a frame payload into a Response and enforces
// the protocol version and status/content tag closedness.
func DecodeResponse(payload []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if resp.Version != ProtocolVersion {
		return Response{}, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, resp.Version, ProtocolVersion)
	}
	if !resp.Status.IsValid() {
		return Response{}, fmt.Errorf("%w: status %q", ErrUnknownTag, resp.Status)
	}
	if resp.Content != nil && !resp.Content.Type.IsValid() {
		return Response{}, fmt.Errorf("%w: content type %q", ErrUnknownTag, resp.Content.Type)
	}
	return resp, nil
}

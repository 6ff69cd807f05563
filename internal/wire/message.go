package wire

import "encoding/json"

// Request is the envelope a client sends (spec §4.1, §6). Id is always
// client-chosen; the supervisor never synthesizes one.
type Request struct {
	ID      string          `json:"id"`
	Version uint8           `json:"version"`
	Type    RequestType     `json:"type"`
	Content json.RawMessage `json:"content,omitempty"`
}

// Payload decodes r.Content into the concrete struct registered for r.Type.
func (r Request) Payload() (any, error) {
	return DecodeContent(r.Type, r.Content)
}

// ResponseContent is the {"type":...,"data":...} adjacently-tagged payload
// carried by a Response (spec §6: "content.type ∈ {WORKERS, METRICS, ...}").
type ResponseContent struct {
	Type ContentType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewResponseContent marshals data under the given content type tag.
func NewResponseContent(t ContentType, data any) (*ResponseContent, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &ResponseContent{Type: t, Data: raw}, nil
}

// Response is the envelope the supervisor sends back (spec §4.1, §6).
// Content is nil for plain OK/ERROR acknowledgements that carry no payload.
type Response struct {
	ID      string           `json:"id"`
	Version uint8            `json:"version"`
	Status  ResponseStatus   `json:"status"`
	Message string           `json:"message"`
	Content *ResponseContent `json:"content,omitempty"`
}

// OK builds a terminal success response with no payload.
func OK(id, message string) Response {
	return Response{ID: id, Version: ProtocolVersion, Status: StatusOK, Message: message}
}

// Err builds a terminal error response with no payload.
func Err(id string, err error) Response {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return Response{ID: id, Version: ProtocolVersion, Status: StatusError, Message: msg}
}

// Processing builds an interim PROCESSING response, optionally carrying content.
func Processing(id, message string, content *ResponseContent) Response {
	return Response{ID: id, Version: ProtocolVersion, Status: StatusProcessing, Message: message, Content: content}
}

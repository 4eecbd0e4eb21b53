// Package protocol defines the JSON-RPC 2.0 wire format used by the MCP
// engine: the inbound message model, response envelopes, and the method
// names and typed parameters of the Model Context Protocol.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	// JSONRPCVersion is the only protocol tag accepted on the wire.
	JSONRPCVersion = "2.0"
)

// Response is a JSON-RPC 2.0 response envelope. Exactly one of Result or
// Error is set. The ID field is always serialized; a nil ID renders as
// JSON null, which is what error envelopes for unidentifiable requests
// carry.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the error member of a JSON-RPC 2.0 error response.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// NewSuccessResponse wraps result in a success envelope echoing id.
func NewSuccessResponse(id json.RawMessage, result interface{}) (*Response, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      normalizeID(id),
		Result:  resultJSON,
	}, nil
}

// NewErrorResponse builds an error envelope echoing id (null when the id
// is unknown).
func NewErrorResponse(id json.RawMessage, code int, message string) *Response {
	return &Response{
		JSONRPC: JSONRPCVersion,
		ID:      normalizeID(id),
		Error: &ErrorObject{
			Code:    code,
			Message: message,
		},
	}
}

// Notification is a server-initiated JSON-RPC 2.0 notification: a method
// and params with no id.
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// NewNotification creates a server-to-client notification envelope.
func NewNotification(method string, params interface{}) *Notification {
	return &Notification{
		JSONRPC: JSONRPCVersion,
		Method:  method,
		Params:  params,
	}
}

// normalizeID maps an absent id to explicit null so the envelope always
// carries the field.
func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}

// IsNullID reports whether a raw id is absent or JSON null.
func IsNullID(id json.RawMessage) bool {
	return len(id) == 0 || bytes.Equal(bytes.TrimSpace(id), []byte("null"))
}

// IsJSONObject reports whether raw holds a JSON object. Used to enforce
// that tool-call arguments are structured objects rather than scalars,
// arrays, or null.
func IsJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

package protocol

import (
	"bytes"
	"encoding/json"

	mcperrors "github.com/mcpengine/mcp-engine-go/pkg/errors"
)

// Operation is the closed set of known message kinds. Unknown methods
// are classified as OpUnknown and rejected later by the engine with
// MethodNotFound, so that the rejection carries the client's original id.
type Operation int

const (
	OpUnknown Operation = iota
	OpInitialize
	OpToolsList
	OpToolsCall
	OpResourcesList
	OpResourcesRead
	OpPromptsList
	OpPromptsGet
	OpNotifyCancel
	OpNotifyInitialized
	OpNotifyMessage
)

// IsLifecycleNotification reports whether the operation is one of the
// notifications/* methods. These are acknowledged regardless of
// handshake state, with or without an id.
func (op Operation) IsLifecycleNotification() bool {
	switch op {
	case OpNotifyCancel, OpNotifyInitialized, OpNotifyMessage:
		return true
	}
	return false
}

var operationNames = map[string]Operation{
	MethodInitialize:        OpInitialize,
	MethodToolsList:         OpToolsList,
	MethodToolsCall:         OpToolsCall,
	MethodResourcesList:     OpResourcesList,
	MethodResourcesRead:     OpResourcesRead,
	MethodPromptsList:       OpPromptsList,
	MethodPromptsGet:        OpPromptsGet,
	MethodNotifyCancel:      OpNotifyCancel,
	MethodNotifyInitialized: OpNotifyInitialized,
	MethodNotifyMessage:     OpNotifyMessage,
}

// Message is one validated inbound JSON-RPC frame. Params stays raw;
// each dispatch case decodes what it needs.
type Message struct {
	Op     Operation
	Method string
	ID     json.RawMessage
	Params json.RawMessage
}

// HasID reports whether the message carries a non-null id. The id
// governs only the response shape: with one the result is enveloped,
// without one the raw result is returned. Dispatch is by method.
func (m *Message) HasID() bool {
	return !IsNullID(m.ID)
}

// HasParams reports whether a params member was present at all, which
// initialize requires independent of its content.
func (m *Message) HasParams() bool {
	return m.Params != nil
}

// rawEnvelope mirrors the wire shape for structural validation. Every
// field stays raw so a wrong-typed member is InvalidRequest, not a
// decode error.
type rawEnvelope struct {
	JSONRPC json.RawMessage `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  json.RawMessage `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// Parse validates raw bytes into a Message. Batch payloads are rejected
// as InvalidRequest before anything else, malformed JSON is ParseError,
// then the protocol tag and method shape are checked in that order.
// When the envelope decodes far enough to carry an id, the returned
// Message is non-nil even on error so callers can echo it.
func Parse(raw []byte) (*Message, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return nil, mcperrors.InvalidRequest("batch requests are not supported")
	}

	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, mcperrors.ParseError(err.Error())
	}

	msg := &Message{ID: env.ID}

	var version string
	if env.JSONRPC == nil || json.Unmarshal(env.JSONRPC, &version) != nil || version != JSONRPCVersion {
		return msg, mcperrors.InvalidRequest("invalid jsonrpc version: " + string(env.JSONRPC))
	}

	var method string
	if env.Method == nil || json.Unmarshal(env.Method, &method) != nil || method == "" {
		return msg, mcperrors.InvalidRequest("missing or invalid 'method' field")
	}

	msg.Method = method
	msg.Op = operationNames[method]
	msg.Params = env.Params
	return msg, nil
}

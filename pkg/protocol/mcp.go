package protocol

import "encoding/json"

const (
	// ProtocolRevision is the protocol version the server itself speaks.
	ProtocolRevision = "2025-06-18"

	// Lifecycle methods
	MethodInitialize = "initialize"

	// Capability methods
	MethodToolsList     = "tools/list"
	MethodToolsCall     = "tools/call"
	MethodResourcesList = "resources/list"
	MethodResourcesRead = "resources/read"
	MethodPromptsList   = "prompts/list"
	MethodPromptsGet    = "prompts/get"

	// Client-to-server lifecycle notifications
	MethodNotifyCancel      = "notifications/cancel"
	MethodNotifyInitialized = "notifications/initialized"
	MethodNotifyMessage     = "notifications/message"

	// Server-to-client notifications
	MethodNotifyProgress             = "notifications/progress"
	MethodNotifyToolsListChanged     = "notifications/tools/list_changed"
	MethodNotifyResourcesListChanged = "notifications/resources/list_changed"
	MethodNotifyPromptsListChanged   = "notifications/prompts/list_changed"
)

// SupportedProtocolVersions is the fixed set of protocol revisions a
// client may negotiate. The negotiated version is echoed back verbatim.
var SupportedProtocolVersions = []string{"2025-03-26", "2025-06-18"}

// IsSupportedProtocolVersion reports whether v is a negotiable revision.
func IsSupportedProtocolVersion(v string) bool {
	for _, s := range SupportedProtocolVersions {
		if s == v {
			return true
		}
	}
	return false
}

// InitializeParams carries the client side of the handshake.
type InitializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    json.RawMessage `json:"capabilities,omitempty"`
	ClientInfo      json.RawMessage `json:"clientInfo,omitempty"`
}

// InitializeResult is the server side of the handshake: the negotiated
// version, the server's capabilities, and its identity.
type InitializeResult struct {
	ProtocolVersion string      `json:"protocolVersion"`
	Capabilities    interface{} `json:"capabilities"`
	ServerInfo      ServerInfo  `json:"serverInfo"`
	Instructions    string      `json:"instructions,omitempty"`
}

// ServerInfo identifies the server in the initialize result.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CallToolParams are the parameters of a tools/call request. Arguments
// stays raw so the engine can reject non-object shapes before the
// handler ever sees them.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ReadResourceParams are the parameters of a resources/read request.
type ReadResourceParams struct {
	URI string `json:"uri"`
}

// GetPromptParams are the parameters of a prompts/get request.
type GetPromptParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// LogMessageParams are the parameters of a notifications/message
// notification sent by the client.
type LogMessageParams struct {
	Level   string          `json:"level"`
	Logger  string          `json:"logger,omitempty"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ProgressParams are the parameters of a notifications/progress
// notification pushed by the server.
type ProgressParams struct {
	ProgressToken string   `json:"progressToken"`
	Progress      float64  `json:"progress"`
	Total         *float64 `json:"total,omitempty"`
	Message       string   `json:"message,omitempty"`
}

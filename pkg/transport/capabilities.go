// Package transport serves the protocol engine over HTTP and
// WebSocket. It detects what a client's headers allow, negotiates the
// transport for each request, and adapts both transports onto the one
// session model the engine exposes.
package transport

import (
	"net/http"
	"strings"
)

// Capabilities describes what a client's request headers allow. It is
// recomputed per request and never persisted.
type Capabilities struct {
	// SupportsFullDuplexUpgrade is true only when both the Upgrade
	// and Connection headers qualify for a WebSocket handshake.
	SupportsFullDuplexUpgrade bool `json:"supports_websocket"`
	// SupportsStreamingEvents is always false. The streaming-events
	// transport is disabled end to end and never advertised.
	SupportsStreamingEvents bool `json:"supports_sse"`
	// SupportsRequestResponseOnly is true when no upgrade applies.
	SupportsRequestResponseOnly bool `json:"supports_http_only"`
	// ClientIdentity is the User-Agent value, when present.
	ClientIdentity string `json:"client_info,omitempty"`
	// RequestedProtocolVersion is the X-MCP-Protocol-Version header
	// value, when present.
	RequestedProtocolVersion string `json:"protocol_version,omitempty"`
}

// ProtocolVersionHeader is the header a client may use to hint at its
// protocol revision before the handshake.
const ProtocolVersionHeader = "X-MCP-Protocol-Version"

// DetectCapabilities inspects request headers. A WebSocket upgrade is
// recognized only when the Upgrade header names "websocket" and the
// Connection header names "upgrade", both case-insensitive; one
// without the other does not qualify.
func DetectCapabilities(h http.Header) Capabilities {
	upgrade := strings.Contains(strings.ToLower(h.Get("Upgrade")), "websocket")
	connection := strings.Contains(strings.ToLower(h.Get("Connection")), "upgrade")
	fullDuplex := upgrade && connection

	return Capabilities{
		SupportsFullDuplexUpgrade:   fullDuplex,
		SupportsStreamingEvents:     false,
		SupportsRequestResponseOnly: !fullDuplex,
		ClientIdentity:              h.Get("User-Agent"),
		RequestedProtocolVersion:    h.Get(ProtocolVersionHeader),
	}
}

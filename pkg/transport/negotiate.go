package transport

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mcpengine/mcp-engine-go/pkg/protocol"
)

// Decision is the outcome of transport negotiation for one request.
type Decision int

const (
	// DecisionUnsupported rejects the request.
	DecisionUnsupported Decision = iota
	// DecisionWebSocketUpgrade switches the connection to frames.
	DecisionWebSocketUpgrade
	// DecisionJSONRPCExchange handles one JSON-RPC message.
	DecisionJSONRPCExchange
	// DecisionDiscovery answers with the capability discovery
	// document. Doubles as the CORS preflight response on OPTIONS.
	DecisionDiscovery
)

// Negotiation is a Decision plus the rejection reason when unsupported.
type Negotiation struct {
	Decision Decision
	Reason   string
}

// supportedTransports is advertised on every rejection.
var supportedTransports = []string{"websocket", "http"}

// Negotiate picks the transport for one request. GET with qualifying
// upgrade headers upgrades; any other GET gets the discovery document,
// so clients can always probe safely. POST needs a body. OPTIONS gets
// discovery. Everything else is unsupported.
func Negotiate(method string, caps Capabilities, hasBody bool) Negotiation {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		if caps.SupportsFullDuplexUpgrade {
			return Negotiation{Decision: DecisionWebSocketUpgrade}
		}
		return Negotiation{Decision: DecisionDiscovery}
	case http.MethodPost:
		if hasBody {
			return Negotiation{Decision: DecisionJSONRPCExchange}
		}
		return Negotiation{
			Decision: DecisionUnsupported,
			Reason:   "POST requests must include a JSON-RPC message body",
		}
	case http.MethodOptions:
		return Negotiation{Decision: DecisionDiscovery}
	default:
		return Negotiation{
			Decision: DecisionUnsupported,
			Reason:   fmt.Sprintf("Unsupported HTTP method: %s", method),
		}
	}
}

// DiscoveryDocument enumerates the transports a server offers. The
// disabled streaming-events transport is never listed.
type DiscoveryDocument struct {
	MCPServer DiscoveryServer `json:"mcp_server"`
}

// DiscoveryServer is the body of the discovery document.
type DiscoveryServer struct {
	Name                string                        `json:"name"`
	Version             string                        `json:"version"`
	AvailableTransports map[string]DiscoveryTransport `json:"available_transports"`
	ClientCapabilities  Capabilities                  `json:"client_capabilities"`
	Instructions        map[string]string             `json:"instructions"`
	Protocol            string                        `json:"protocol"`
	MCPProtocolVersion  string                        `json:"mcp_protocol_version"`
}

// DiscoveryTransport describes one endpoint in the discovery document.
type DiscoveryTransport struct {
	Type        string `json:"type"`
	URI         string `json:"uri"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

// NewDiscoveryDocument builds the discovery document for one probing
// client. endpoint is the advertised base endpoint, host[:port]/path or
// a full http(s) URL.
func NewDiscoveryDocument(caps Capabilities, serverName, serverVersion, endpoint string) DiscoveryDocument {
	return DiscoveryDocument{
		MCPServer: DiscoveryServer{
			Name:    serverName,
			Version: serverVersion,
			AvailableTransports: map[string]DiscoveryTransport{
				"websocket": {
					Type:        "websocket",
					URI:         websocketURI(endpoint),
					Method:      "GET with Upgrade: websocket",
					Description: "Full-duplex communication for real-time MCP messaging",
				},
				"http": {
					Type:        "http",
					URI:         httpURI(endpoint),
					Method:      "POST",
					Description: "Request-response based JSON-RPC 2.0 messaging",
				},
			},
			ClientCapabilities: caps,
			Instructions: map[string]string{
				"websocket": "Send GET request with 'Upgrade: websocket' and 'Connection: upgrade' headers",
				"http":      "Send POST request with JSON-RPC 2.0 message body",
			},
			Protocol:           "JSON-RPC 2.0",
			MCPProtocolVersion: protocol.ProtocolRevision,
		},
	}
}

func websocketURI(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	default:
		return "ws://" + strings.TrimPrefix(endpoint, "/")
	}
}

func httpURI(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	return "http://" + strings.TrimPrefix(endpoint, "/")
}

package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	mcperrors "github.com/mcpengine/mcp-engine-go/pkg/errors"
	"github.com/mcpengine/mcp-engine-go/pkg/logging"
	"github.com/mcpengine/mcp-engine-go/pkg/protocol"
	"github.com/mcpengine/mcp-engine-go/pkg/session"
)

// SessionCookie is the cookie carrying HTTP session continuity.
const SessionCookie = "mcp_session"

// handleMCP routes one request on the MCP endpoint by negotiation
// outcome.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	caps := DetectCapabilities(r.Header)
	neg := Negotiate(r.Method, caps, r.ContentLength != 0)

	switch neg.Decision {
	case DecisionWebSocketUpgrade:
		// Upgrade-style headers without an actual WebSocket
		// handshake still get the discovery document, so probes
		// never see a failed upgrade.
		if r.Header.Get("Sec-WebSocket-Key") == "" {
			s.writeDiscovery(w, caps)
			return
		}
		s.handleWebSocket(w, r)
	case DecisionJSONRPCExchange:
		s.handleExchange(w, r)
	case DecisionDiscovery:
		s.writeDiscovery(w, caps)
	default:
		s.writeUnsupported(w, neg.Reason)
	}
}

// handleExchange runs one JSON-RPC exchange. Protocol outcomes, error
// envelopes included, always answer HTTP 200; only transport-level
// rejection uses another status.
func (s *Server) handleExchange(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		err := mcperrors.InvalidParams("Invalid Content-Type: " + ct + ". Expected application/json")
		s.writeEnvelope(w, protocol.NewErrorResponse(nil, int(err.Code()), err.Error()))
		return
	}

	reader := io.Reader(r.Body)
	if max := s.engine.Limits().MaxMessageSize; max > 0 {
		reader = io.LimitReader(r.Body, int64(max)+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		mcpErr := mcperrors.InvalidRequest("failed to read request body")
		s.writeEnvelope(w, protocol.NewErrorResponse(nil, int(mcpErr.Code()), mcpErr.Error()))
		return
	}
	if len(body) == 0 {
		s.writeUnsupported(w, "POST requests must include a JSON-RPC message body")
		return
	}

	sessionID, minted := s.resolveSession(r, body)

	logger := s.logger.WithFields(logging.String("component", "http"))
	logger.Debug("handling exchange",
		logging.String("session_id", sessionID),
		logging.Int("body_bytes", len(body)))

	resp := s.engine.HandleMessage(r.Context(), sessionID, body, nil)

	if minted && initializeSucceeded(resp) {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sessionID,
			Path:     "/mcp",
			HttpOnly: true,
			SameSite: http.SameSiteStrictMode,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp)
}

// resolveSession picks the session id for one exchange. The cookie
// wins; without one, only an initialize mints a fresh id, everything
// else shares the default session.
func (s *Server) resolveSession(r *http.Request, body []byte) (id string, minted bool) {
	if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value, false
	}

	var probe struct {
		Method string `json:"method"`
	}
	if json.Unmarshal(body, &probe) == nil && probe.Method == protocol.MethodInitialize {
		return newSessionID(), true
	}
	return session.DefaultID, false
}

// newSessionID mints a 32-character alphanumeric session identifier.
func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// initializeSucceeded reports whether an engine response is a success
// envelope, which is when the session cookie is worth setting.
func initializeSucceeded(resp json.RawMessage) bool {
	var env struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(resp, &env); err != nil {
		return false
	}
	return env.Error == nil
}

func (s *Server) writeDiscovery(w http.ResponseWriter, caps Capabilities) {
	doc := NewDiscoveryDocument(caps, s.serverName, s.serverVersion, s.endpoint)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(doc)
}

func (s *Server) writeUnsupported(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":                reason,
		"supported_transports": supportedTransports,
	})
}

func (s *Server) writeEnvelope(w http.ResponseWriter, resp *protocol.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleMethodNotAllowed rejects verbs outside the negotiation table.
func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeUnsupported(w, "Unsupported HTTP method: "+r.Method)
}

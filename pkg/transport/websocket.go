package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/mcpengine/mcp-engine-go/pkg/handler"
	"github.com/mcpengine/mcp-engine-go/pkg/logging"
	"github.com/mcpengine/mcp-engine-go/pkg/protocol"
)

// wsConn serializes writes to one WebSocket connection. Responses from
// the read loop and pushed notifications share the same writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeText(ctx context.Context, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

// handleWebSocket upgrades the connection and runs its frame loop. The
// connection gets a synthetic session unconditionally; there is no
// sessionless full-duplex mode.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	sessionID := "ws-" + uuid.NewString()
	logger := s.logger.WithSession(sessionID).WithFields(logging.String("component", "websocket"))
	logger.Info("connection established",
		logging.String("client", r.Header.Get("User-Agent")))

	s.metrics.ConnectionOpened()
	defer s.metrics.ConnectionClosed()

	// Frames are capped above the protocol limit so oversized
	// messages are rejected with an envelope instead of a dropped
	// connection.
	maxMessage := s.engine.Limits().MaxMessageSize
	if maxMessage > 0 {
		conn.SetReadLimit(int64(2 * maxMessage))
	}

	notifier := handler.NewNotifier()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	wc := &wsConn{conn: conn}
	go s.pumpNotifications(ctx, wc, notifier, logger)

	defer func() {
		notifier.Close()
		s.engine.DropSession(sessionID)
		_ = conn.Close(websocket.StatusNormalClosure, "")
		logger.Info("connection closed")
	}()

	// Strictly sequential: one frame read, one response written, in
	// order, for the life of the connection.
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if typ != websocket.MessageText {
			logger.Debug("ignoring non-text frame")
			continue
		}

		resp := s.engine.HandleMessage(ctx, sessionID, data, notifier)
		if err := wc.writeText(ctx, resp); err != nil {
			logger.WithError(err).Warn("write failed, closing connection")
			return
		}
	}
}

// pumpNotifications forwards handler events to the peer as JSON-RPC
// notifications until the notifier closes.
func (s *Server) pumpNotifications(ctx context.Context, wc *wsConn, notifier *handler.Notifier, logger logging.Logger) {
	for event := range notifier.Events() {
		frame, err := json.Marshal(protocol.NewNotification(event.Method, event.Params))
		if err != nil {
			logger.WithError(err).Warn("dropping unencodable notification")
			continue
		}
		if err := wc.writeText(ctx, frame); err != nil {
			logger.WithError(err).Debug("notification write failed")
			return
		}
	}
}

// Package engine implements the transport-agnostic protocol core. It
// parses inbound JSON-RPC messages, drives the per-session handshake
// state machine, dispatches to the application handler, and renders
// every outcome as response bytes. HandleMessage never returns a Go
// error; failures become JSON-RPC error envelopes.
package engine

import (
	"context"
	"encoding/json"
	"time"

	mcperrors "github.com/mcpengine/mcp-engine-go/pkg/errors"
	"github.com/mcpengine/mcp-engine-go/pkg/handler"
	"github.com/mcpengine/mcp-engine-go/pkg/limits"
	"github.com/mcpengine/mcp-engine-go/pkg/logging"
	"github.com/mcpengine/mcp-engine-go/pkg/observability"
	"github.com/mcpengine/mcp-engine-go/pkg/protocol"
	"github.com/mcpengine/mcp-engine-go/pkg/session"

	"go.opentelemetry.io/otel/trace"
)

// Engine is the protocol core shared by all transports.
type Engine struct {
	handler  handler.Handler
	sessions *session.Store
	limiter  *limits.RateLimiter
	limits   limits.ResourceLimits
	logger   logging.Logger
	metrics  *observability.Metrics
	tracer   *observability.TracingProvider

	serverName    string
	serverVersion string
	instructions  string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithLimits sets the enforced resource ceilings.
func WithLimits(l limits.ResourceLimits) Option {
	return func(e *Engine) { e.limits = l }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithTracing attaches a tracing provider.
func WithTracing(tp *observability.TracingProvider) Option {
	return func(e *Engine) { e.tracer = tp }
}

// WithServerInfo sets the identity reported in initialize responses
// when the handler does not supply its own.
func WithServerInfo(name, version string) Option {
	return func(e *Engine) {
		e.serverName = name
		e.serverVersion = version
	}
}

// WithInstructions sets the usage instructions reported in initialize
// responses.
func WithInstructions(instructions string) Option {
	return func(e *Engine) { e.instructions = instructions }
}

// New creates an engine serving h.
func New(h handler.Handler, opts ...Option) *Engine {
	e := &Engine{
		handler:       h,
		limits:        limits.Default(),
		logger:        logging.Discard(),
		serverName:    "mcp-engine",
		serverVersion: "dev",
	}
	for _, opt := range opts {
		opt(e)
	}
	e.sessions = session.NewStore(e.limits.MaxSessions)
	e.limiter = limits.NewRateLimiter(e.limits)
	return e
}

// Limits returns the engine's resource ceilings, for transports that
// enforce the message size cap before calling in.
func (e *Engine) Limits() limits.ResourceLimits {
	return e.limits
}

// SessionCount returns the number of live sessions.
func (e *Engine) SessionCount() int {
	return e.sessions.Len()
}

// Limiter exposes the rate limiter so the server can prune idle
// buckets on a timer.
func (e *Engine) Limiter() *limits.RateLimiter {
	return e.limiter
}

// DropSession removes a session, called by connection-bound transports
// when their connection closes.
func (e *Engine) DropSession(sessionID string) {
	e.sessions.Remove(sessionID)
	e.limiter.Reset(sessionID)
}

// HandleMessage processes one raw inbound message for a session and
// returns the bytes to send back. Dispatch is by method; the id governs
// only the response shape. Messages with a non-null id produce a full
// JSON-RPC envelope, messages without one get the raw result, and
// errors are always enveloped with the echoed (or null) id. notifier
// may be nil on half-duplex transports.
func (e *Engine) HandleMessage(ctx context.Context, sessionID string, raw []byte, notifier *handler.Notifier) json.RawMessage {
	start := time.Now()
	e.metrics.RecordMessageSize(len(raw))

	if max := e.limits.MaxMessageSize; max > 0 && len(raw) > max {
		err := mcperrors.MessageTooLarge(len(raw), max)
		e.metrics.RecordRequest("unknown", int(err.Code()), time.Since(start))
		return marshalResponse(errorResponse(nil, err))
	}

	msg, perr := protocol.Parse(raw)
	if perr != nil {
		var id json.RawMessage
		if msg != nil {
			id = msg.ID
		}
		mcpErr := mcperrors.FromError(perr)
		e.logger.WithSession(sessionID).WithError(mcpErr).Debug("rejected malformed message")
		e.metrics.RecordRequest("unknown", int(mcpErr.Code()), time.Since(start))
		return marshalResponse(errorResponse(id, mcpErr))
	}

	logger := e.logger.WithSession(sessionID).WithFields(logging.String("method", msg.Method))

	sess, serr := e.sessions.GetOrCreate(sessionID)
	if serr != nil {
		mcpErr := mcperrors.FromError(serr)
		logger.WithError(mcpErr).Warn("session rejected")
		e.metrics.RecordRequest(msg.Method, int(mcpErr.Code()), time.Since(start))
		if msg.Op.IsLifecycleNotification() {
			return json.RawMessage(`{}`)
		}
		return marshalResponse(errorResponse(msg.ID, mcpErr))
	}

	if !e.limiter.Allow(sessionID) {
		mcpErr := mcperrors.RateLimitExceeded()
		logger.Warn("rate limit exceeded")
		e.metrics.RecordRequest(msg.Method, int(mcpErr.Code()), time.Since(start))
		if msg.Op.IsLifecycleNotification() {
			return json.RawMessage(`{}`)
		}
		return marshalResponse(errorResponse(msg.ID, mcpErr))
	}

	// One message per session at a time; sessions do not block each
	// other.
	sess.Lock()
	defer sess.Unlock()
	sess.Touch()

	out, code := e.dispatch(ctx, sess, msg, notifier, logger)
	e.metrics.RecordRequest(msg.Method, code, time.Since(start))
	return out
}

// dispatch routes a parsed message by operation and renders the
// outcome. Lifecycle notifications always take the acknowledgment
// path; everything else is handled as a request whether or not it
// carries an id. The returned code is zero for success and the
// JSON-RPC error code otherwise.
func (e *Engine) dispatch(ctx context.Context, sess *session.Session, msg *protocol.Message, notifier *handler.Notifier, logger logging.Logger) (json.RawMessage, int) {
	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.StartMethodSpan(ctx, msg.Method, sess.ID())
		defer span.End()
	}

	if msg.Op.IsLifecycleNotification() {
		e.handleNotification(sess, msg, logger)
		return e.renderResult(msg, struct{}{}, logger)
	}

	result, err := e.handleRequest(ctx, sess, msg, notifier)
	if err != nil {
		mcpErr := mcperrors.FromError(err)
		if e.tracer != nil {
			e.tracer.RecordError(ctx, mcpErr)
		}
		logger.WithError(mcpErr).Debug("request failed")
		return marshalResponse(errorResponse(msg.ID, mcpErr)), int(mcpErr.Code())
	}
	return e.renderResult(msg, result, logger)
}

// renderResult applies the envelope rule to a successful outcome: a
// message with an id gets a response envelope, one without gets the
// raw result.
func (e *Engine) renderResult(msg *protocol.Message, result interface{}, logger logging.Logger) (json.RawMessage, int) {
	if !msg.HasID() {
		data, err := json.Marshal(result)
		if err != nil {
			mcpErr := mcperrors.Internal(err.Error())
			logger.WithError(mcpErr).Error("failed to encode result")
			return marshalResponse(errorResponse(nil, mcpErr)), int(mcpErr.Code())
		}
		return data, 0
	}

	resp, merr := protocol.NewSuccessResponse(msg.ID, result)
	if merr != nil {
		mcpErr := mcperrors.Internal(merr.Error())
		logger.WithError(mcpErr).Error("failed to encode result")
		return marshalResponse(errorResponse(msg.ID, mcpErr)), int(mcpErr.Code())
	}
	return marshalResponse(resp), 0
}

// handleRequest executes any non-notification method, with or without
// an id. Capability methods are gated behind the handshake.
func (e *Engine) handleRequest(ctx context.Context, sess *session.Session, msg *protocol.Message, notifier *handler.Notifier) (interface{}, error) {
	if msg.Op == protocol.OpInitialize {
		return e.handleInitialize(ctx, sess, msg, notifier)
	}
	if msg.Op == protocol.OpUnknown {
		return nil, mcperrors.MethodNotFound(msg.Method)
	}
	if !sess.Initialized() {
		return nil, mcperrors.NotInitialized()
	}

	hctx := handler.NewContext(sess.ID(), sess.ProtocolVersion(), sess.ClientInfo(), notifier)

	switch msg.Op {
	case protocol.OpToolsList:
		tools, err := e.handler.ListTools(ctx, hctx)
		if err != nil {
			return nil, err
		}
		if tools == nil {
			tools = []handler.ToolDefinition{}
		}
		return map[string]interface{}{"tools": tools}, nil

	case protocol.OpToolsCall:
		return e.handleToolCall(ctx, hctx, msg)

	case protocol.OpResourcesList:
		resources, err := e.handler.ListResources(ctx, hctx)
		if err != nil {
			return nil, err
		}
		if resources == nil {
			resources = []handler.ResourceInfo{}
		}
		return map[string]interface{}{"resources": resources}, nil

	case protocol.OpResourcesRead:
		var params protocol.ReadResourceParams
		if err := unmarshalParams(msg, &params); err != nil {
			return nil, err
		}
		if params.URI == "" {
			return nil, mcperrors.InvalidParams("missing 'uri' parameter")
		}
		content, err := e.handler.ReadResource(ctx, hctx, params.URI)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"contents": []*handler.ResourceContent{content}}, nil

	case protocol.OpPromptsList:
		prompts, err := e.handler.ListPrompts(ctx, hctx)
		if err != nil {
			return nil, err
		}
		if prompts == nil {
			prompts = []handler.PromptInfo{}
		}
		return map[string]interface{}{"prompts": prompts}, nil

	case protocol.OpPromptsGet:
		var params protocol.GetPromptParams
		if err := unmarshalParams(msg, &params); err != nil {
			return nil, err
		}
		if params.Name == "" {
			return nil, mcperrors.InvalidParams("missing 'name' parameter")
		}
		args := map[string]string{}
		if len(params.Arguments) > 0 && !protocol.IsNullID(params.Arguments) {
			if err := json.Unmarshal(params.Arguments, &args); err != nil {
				return nil, mcperrors.InvalidParams("'arguments' must be an object of strings")
			}
		}
		return e.handler.GetPrompt(ctx, hctx, params.Name, args)

	default:
		return nil, mcperrors.MethodNotFound(msg.Method)
	}
}

// handleInitialize performs version negotiation and primes the session.
// A repeated initialize resets the session first, so a handshake that
// then fails leaves the session gated again.
func (e *Engine) handleInitialize(ctx context.Context, sess *session.Session, msg *protocol.Message, notifier *handler.Notifier) (interface{}, error) {
	sess.Reset()

	if !msg.HasParams() {
		return nil, mcperrors.InvalidParams("missing initialize parameters")
	}
	var params protocol.InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil, mcperrors.InvalidParams("malformed initialize parameters")
	}

	version := params.ProtocolVersion
	if version == "" {
		version = protocol.ProtocolRevision
	} else if !protocol.IsSupportedProtocolVersion(version) {
		return nil, mcperrors.UnsupportedProtocolVersion(version, protocol.SupportedProtocolVersions)
	}

	hctx := handler.NewContext(sess.ID(), version, params.ClientInfo, notifier)
	hres, err := e.handler.Initialize(ctx, hctx)
	if err != nil {
		return nil, err
	}

	sess.CompleteHandshake(version, params.ClientInfo)

	result := protocol.InitializeResult{
		ProtocolVersion: version,
		Capabilities:    json.RawMessage(`{}`),
		ServerInfo: protocol.ServerInfo{
			Name:    e.serverName,
			Version: e.serverVersion,
		},
		Instructions: e.instructions,
	}
	if hres != nil {
		if len(hres.Capabilities) > 0 {
			result.Capabilities = hres.Capabilities
		}
		if hres.ServerInfo != nil {
			result.ServerInfo = protocol.ServerInfo{
				Name:    hres.ServerInfo.Name,
				Version: hres.ServerInfo.Version,
			}
		}
		if hres.Instructions != "" {
			result.Instructions = hres.Instructions
		}
	}
	return result, nil
}

// handleToolCall validates tool name and argument shape before the
// handler runs.
func (e *Engine) handleToolCall(ctx context.Context, hctx *handler.Context, msg *protocol.Message) (interface{}, error) {
	var params protocol.CallToolParams
	if err := unmarshalParams(msg, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, mcperrors.InvalidParams("missing 'name' parameter")
	}
	if len(params.Arguments) == 0 {
		return nil, mcperrors.InvalidParams("missing 'arguments' parameter")
	}
	if !protocol.IsJSONObject(params.Arguments) {
		return nil, mcperrors.InvalidParams("'arguments' must be an object")
	}

	start := time.Now()
	result, err := e.handler.CallTool(ctx, hctx, params.Name, params.Arguments)
	if err != nil {
		e.metrics.RecordToolCall(params.Name, true, time.Since(start))
		return nil, err
	}
	e.metrics.RecordToolCall(params.Name, result != nil && result.IsError, time.Since(start))
	if result == nil {
		result = &handler.ToolResult{Content: []handler.Content{}}
	}
	return result, nil
}

// handleNotification processes lifecycle notifications. They are
// acknowledged regardless of handshake state and never produce error
// envelopes.
func (e *Engine) handleNotification(sess *session.Session, msg *protocol.Message, logger logging.Logger) {
	switch msg.Op {
	case protocol.OpNotifyInitialized:
		logger.Debug("client confirmed initialization")
	case protocol.OpNotifyCancel:
		logger.Debug("client cancelled request")
	case protocol.OpNotifyMessage:
		var params protocol.LogMessageParams
		if msg.HasParams() && json.Unmarshal(msg.Params, &params) == nil {
			fields := []logging.Field{logging.String("client_logger", params.Logger)}
			if len(params.Data) > 0 {
				fields = append(fields, logging.Any("data", json.RawMessage(params.Data)))
			}
			logger.Log(logging.ParseLevel(params.Level), params.Message, fields...)
		}
	}
}

func unmarshalParams(msg *protocol.Message, out interface{}) error {
	if !msg.HasParams() {
		return mcperrors.InvalidParams("missing parameters")
	}
	if err := json.Unmarshal(msg.Params, out); err != nil {
		return mcperrors.InvalidParams("malformed parameters")
	}
	return nil
}

func errorResponse(id json.RawMessage, err mcperrors.MCPError) *protocol.Response {
	return protocol.NewErrorResponse(id, int(err.Code()), err.Error())
}

func marshalResponse(resp *protocol.Response) json.RawMessage {
	data, err := json.Marshal(resp)
	if err != nil {
		// The envelope contains only marshalable fields. Fall back
		// to a minimal internal error if that ever breaks.
		return json.RawMessage(`{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"Internal error"}}`)
	}
	return data
}

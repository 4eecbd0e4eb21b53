package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcperrors "github.com/mcpengine/mcp-engine-go/pkg/errors"
	"github.com/mcpengine/mcp-engine-go/pkg/handler"
	"github.com/mcpengine/mcp-engine-go/pkg/limits"
)

// fakeHandler records calls and serves canned answers.
type fakeHandler struct {
	initCalls     int
	toolCalls     int
	lastToolName  string
	lastToolArgs  json.RawMessage
	lastSessionID string

	initErr error
	toolErr error
}

func (f *fakeHandler) Initialize(ctx context.Context, hctx *handler.Context) (*handler.InitializeResult, error) {
	f.initCalls++
	f.lastSessionID = hctx.SessionID
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &handler.InitializeResult{
		Capabilities: json.RawMessage(`{"tools":{}}`),
		ServerInfo:   &handler.ServerInfo{Name: "fake-server", Version: "0.1.0"},
	}, nil
}

func (f *fakeHandler) ListTools(ctx context.Context, hctx *handler.Context) ([]handler.ToolDefinition, error) {
	return []handler.ToolDefinition{{Name: "echo", Description: "echoes input"}}, nil
}

func (f *fakeHandler) CallTool(ctx context.Context, hctx *handler.Context, name string, args json.RawMessage) (*handler.ToolResult, error) {
	f.toolCalls++
	f.lastToolName = name
	f.lastToolArgs = args
	if f.toolErr != nil {
		return nil, f.toolErr
	}
	return handler.TextResult("echoed"), nil
}

func (f *fakeHandler) ListResources(ctx context.Context, hctx *handler.Context) ([]handler.ResourceInfo, error) {
	return nil, nil
}

func (f *fakeHandler) ReadResource(ctx context.Context, hctx *handler.Context, uri string) (*handler.ResourceContent, error) {
	if uri == "file:///missing" {
		return nil, mcperrors.UnknownResource(uri)
	}
	return &handler.ResourceContent{URI: uri, MimeType: "text/plain", Text: "contents"}, nil
}

func (f *fakeHandler) ListPrompts(ctx context.Context, hctx *handler.Context) ([]handler.PromptInfo, error) {
	return []handler.PromptInfo{{Name: "greet"}}, nil
}

func (f *fakeHandler) GetPrompt(ctx context.Context, hctx *handler.Context, name string, args map[string]string) (*handler.PromptContent, error) {
	if name != "greet" {
		return nil, mcperrors.UnknownPrompt(name)
	}
	return &handler.PromptContent{
		Messages: []handler.PromptMessage{
			{Role: "user", Content: handler.TextContent("hello " + args["who"])},
		},
	}, nil
}

type envelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fakeHandler) {
	t.Helper()
	fh := &fakeHandler{}
	opts = append([]Option{WithLimits(limits.Unlimited()), WithServerInfo("test-engine", "1.0.0")}, opts...)
	return New(fh, opts...), fh
}

func decode(t *testing.T, raw json.RawMessage) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func initialize(t *testing.T, e *Engine, sessionID, version string) envelope {
	t.Helper()
	req := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":%q,"clientInfo":{"name":"test-client","version":"1.0"}}}`, version)
	return decode(t, e.HandleMessage(context.Background(), sessionID, []byte(req), nil))
}

func TestInitializeNegotiation(t *testing.T) {
	for _, version := range []string{"2025-03-26", "2025-06-18"} {
		t.Run(version, func(t *testing.T) {
			e, fh := newTestEngine(t)
			env := initialize(t, e, "s1", version)

			require.Nil(t, env.Error)
			assert.Equal(t, "2.0", env.JSONRPC)
			assert.JSONEq(t, `1`, string(env.ID))

			var result struct {
				ProtocolVersion string          `json:"protocolVersion"`
				Capabilities    json.RawMessage `json:"capabilities"`
				ServerInfo      struct {
					Name    string `json:"name"`
					Version string `json:"version"`
				} `json:"serverInfo"`
			}
			require.NoError(t, json.Unmarshal(env.Result, &result))
			// The client's version is echoed verbatim, never upgraded.
			assert.Equal(t, version, result.ProtocolVersion)
			assert.Equal(t, "fake-server", result.ServerInfo.Name)
			assert.JSONEq(t, `{"tools":{}}`, string(result.Capabilities))
			assert.Equal(t, 1, fh.initCalls)
			assert.Equal(t, "s1", fh.lastSessionID)
		})
	}
}

func TestInitializeUnsupportedVersion(t *testing.T) {
	e, _ := newTestEngine(t)
	env := initialize(t, e, "s1", "2024-11-05")

	require.NotNil(t, env.Error)
	assert.Equal(t, -32603, env.Error.Code)
	assert.Contains(t, env.Error.Message, "2024-11-05")
	assert.Contains(t, env.Error.Message, "2025-03-26")
	assert.Contains(t, env.Error.Message, "2025-06-18")
}

func TestInitializeWithoutVersionDefaults(t *testing.T) {
	e, _ := newTestEngine(t)
	raw := e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`), nil)
	env := decode(t, raw)

	require.Nil(t, env.Error)
	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	require.NoError(t, json.Unmarshal(env.Result, &result))
	assert.Equal(t, "2025-06-18", result.ProtocolVersion)
}

func TestInitializeMissingParams(t *testing.T) {
	e, fh := newTestEngine(t)
	raw := e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`), nil)
	env := decode(t, raw)

	require.NotNil(t, env.Error)
	assert.Equal(t, -32602, env.Error.Code)
	assert.Equal(t, 0, fh.initCalls)
}

func TestCapabilityMethodsGatedBeforeHandshake(t *testing.T) {
	methods := []string{"tools/list", "tools/call", "resources/list", "resources/read", "prompts/list", "prompts/get"}
	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			e, _ := newTestEngine(t)
			req := fmt.Sprintf(`{"jsonrpc":"2.0","id":9,"method":%q,"params":{"name":"x","arguments":{},"uri":"file:///x"}}`, method)
			env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(req), nil))

			require.NotNil(t, env.Error)
			assert.Equal(t, -32002, env.Error.Code)
			assert.JSONEq(t, `9`, string(env.ID))
		})
	}
}

func TestReinitializeResetsSession(t *testing.T) {
	e, _ := newTestEngine(t)

	env := initialize(t, e, "s1", "2025-06-18")
	require.Nil(t, env.Error)

	// A failed re-initialize leaves the session gated again.
	env = initialize(t, e, "s1", "1999-01-01")
	require.NotNil(t, env.Error)

	raw := e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`), nil)
	env = decode(t, raw)
	require.NotNil(t, env.Error)
	assert.Equal(t, -32002, env.Error.Code)
}

func TestParseErrorNullID(t *testing.T) {
	e, _ := newTestEngine(t)
	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":`), nil))

	require.NotNil(t, env.Error)
	assert.Equal(t, -32700, env.Error.Code)
	assert.JSONEq(t, `null`, string(env.ID))
}

func TestBatchRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	raw := `[{"jsonrpc":"2.0","id":1,"method":"tools/list"}]`
	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(raw), nil))

	require.NotNil(t, env.Error)
	assert.Equal(t, -32600, env.Error.Code)
}

func TestInvalidProtocolTagEchoesID(t *testing.T) {
	e, _ := newTestEngine(t)
	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"1.0","id":"abc","method":"tools/list"}`), nil))

	require.NotNil(t, env.Error)
	assert.Equal(t, -32600, env.Error.Code)
	assert.JSONEq(t, `"abc"`, string(env.ID))
}

func TestArrayIDEchoed(t *testing.T) {
	e, _ := newTestEngine(t)
	initialize(t, e, "s1", "2025-06-18")

	raw := e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":[1,"a"],"method":"tools/list"}`), nil)
	env := decode(t, raw)
	require.Nil(t, env.Error)
	assert.JSONEq(t, `[1,"a"]`, string(env.ID))
}

func TestUnknownMethod(t *testing.T) {
	e, _ := newTestEngine(t)
	initialize(t, e, "s1", "2025-06-18")

	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":3,"method":"tools/destroy"}`), nil))
	require.NotNil(t, env.Error)
	assert.Equal(t, -32601, env.Error.Code)
	assert.Equal(t, "Method not found: tools/destroy", env.Error.Message)
}

func TestUnknownMethodBeforeHandshake(t *testing.T) {
	// Unknown methods rank ahead of the handshake gate.
	e, _ := newTestEngine(t)
	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":3,"method":"nope"}`), nil))
	require.NotNil(t, env.Error)
	assert.Equal(t, -32601, env.Error.Code)
}

func TestToolsList(t *testing.T) {
	e, _ := newTestEngine(t)
	initialize(t, e, "s1", "2025-06-18")

	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`), nil))
	require.Nil(t, env.Error)
	assert.JSONEq(t, `{"tools":[{"name":"echo","description":"echoes input"}]}`, string(env.Result))
}

func TestToolCallSuccess(t *testing.T) {
	e, fh := newTestEngine(t)
	initialize(t, e, "s1", "2025-06-18")

	req := `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`
	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(req), nil))

	require.Nil(t, env.Error)
	assert.JSONEq(t, `{"content":[{"type":"text","text":"echoed"}]}`, string(env.Result))
	assert.Equal(t, "echo", fh.lastToolName)
	assert.JSONEq(t, `{"text":"hi"}`, string(fh.lastToolArgs))
}

func TestToolCallArgumentValidation(t *testing.T) {
	tests := []struct {
		name   string
		params string
	}{
		{"missing params", ``},
		{"missing name", `{"arguments":{}}`},
		{"missing arguments", `{"name":"echo"}`},
		{"array arguments", `{"name":"echo","arguments":[1,2]}`},
		{"scalar arguments", `{"name":"echo","arguments":42}`},
		{"null arguments", `{"name":"echo","arguments":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, fh := newTestEngine(t)
			initialize(t, e, "s1", "2025-06-18")

			req := `{"jsonrpc":"2.0","id":2,"method":"tools/call"`
			if tt.params != "" {
				req += `,"params":` + tt.params
			}
			req += `}`

			env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(req), nil))
			require.NotNil(t, env.Error)
			assert.Equal(t, -32602, env.Error.Code)
			// Validation failures never reach the handler.
			assert.Equal(t, 0, fh.toolCalls)
		})
	}
}

func TestToolCallHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"unknown tool", mcperrors.UnknownTool("echo"), -32601},
		{"permission denied", mcperrors.PermissionDenied("read only"), -32003},
		{"plain error", errors.New("disk exploded"), -32603},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, fh := newTestEngine(t)
			fh.toolErr = tt.err
			initialize(t, e, "s1", "2025-06-18")

			req := `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{}}}`
			env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(req), nil))
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestResourcesListEmptyIsArray(t *testing.T) {
	e, _ := newTestEngine(t)
	initialize(t, e, "s1", "2025-06-18")

	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":2,"method":"resources/list"}`), nil))
	require.Nil(t, env.Error)
	assert.JSONEq(t, `{"resources":[]}`, string(env.Result))
}

func TestResourcesRead(t *testing.T) {
	e, _ := newTestEngine(t)
	initialize(t, e, "s1", "2025-06-18")

	req := `{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"file:///notes.txt"}}`
	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(req), nil))
	require.Nil(t, env.Error)
	assert.JSONEq(t, `{"contents":[{"uri":"file:///notes.txt","mimeType":"text/plain","text":"contents"}]}`, string(env.Result))
}

func TestResourcesReadMissingURI(t *testing.T) {
	e, _ := newTestEngine(t)
	initialize(t, e, "s1", "2025-06-18")

	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{}}`), nil))
	require.NotNil(t, env.Error)
	assert.Equal(t, -32602, env.Error.Code)
}

func TestResourcesReadUnknown(t *testing.T) {
	e, _ := newTestEngine(t)
	initialize(t, e, "s1", "2025-06-18")

	req := `{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"file:///missing"}}`
	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(req), nil))
	require.NotNil(t, env.Error)
	assert.Equal(t, -32601, env.Error.Code)
}

func TestPromptsGet(t *testing.T) {
	e, _ := newTestEngine(t)
	initialize(t, e, "s1", "2025-06-18")

	req := `{"jsonrpc":"2.0","id":2,"method":"prompts/get","params":{"name":"greet","arguments":{"who":"world"}}}`
	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(req), nil))
	require.Nil(t, env.Error)
	assert.JSONEq(t, `{"messages":[{"role":"user","content":{"type":"text","text":"hello world"}}]}`, string(env.Result))
}

func TestNotificationsAcknowledgedWithoutEnvelope(t *testing.T) {
	notifs := []string{
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"notifications/cancel"}`,
		`{"jsonrpc":"2.0","method":"notifications/message","params":{"level":"warning","message":"client says hi"}}`,
	}
	for _, raw := range notifs {
		t.Run(raw, func(t *testing.T) {
			e, _ := newTestEngine(t)
			// Lifecycle notifications are acknowledged even before the
			// handshake.
			out := e.HandleMessage(context.Background(), "s1", []byte(raw), nil)
			assert.JSONEq(t, `{}`, string(out))
		})
	}
}

func TestNotificationsWithIDGetEnvelopedAck(t *testing.T) {
	e, _ := newTestEngine(t)

	// Dispatch is by method: a notifications/* message carrying an id
	// is still acknowledged, with the empty result enveloped, even
	// before the handshake.
	raw := e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":7,"method":"notifications/cancel"}`), nil)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":7,"result":{}}`, string(raw))

	env := initialize(t, e, "s1", "2025-06-18")
	require.Nil(t, env.Error)

	raw = e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":8,"method":"notifications/initialized"}`), nil)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":8,"result":{}}`, string(raw))
}

func TestRequestWithoutIDReturnsRawResult(t *testing.T) {
	e, fh := newTestEngine(t)
	env := initialize(t, e, "s1", "2025-06-18")
	require.Nil(t, env.Error)

	// An id-less capability request is dispatched normally; only the
	// envelope is skipped.
	raw := e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo","arguments":{"x":1}}}`), nil)
	assert.JSONEq(t, `{"content":[{"type":"text","text":"echoed"}]}`, string(raw))
	assert.Equal(t, 1, fh.toolCalls)
	assert.Equal(t, "echo", fh.lastToolName)
}

func TestRequestWithoutIDErrorIsEnvelopedWithNullID(t *testing.T) {
	e, fh := newTestEngine(t)

	// Gated id-less requests still fail with an enveloped error.
	raw := e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo","arguments":{}}}`), nil)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32002,"message":"Not initialized"}}`, string(raw))
	assert.Equal(t, 0, fh.toolCalls)
}

func TestUnknownNotificationMethodIsMethodNotFound(t *testing.T) {
	e, _ := newTestEngine(t)

	// Only the three lifecycle notifications take the ack path;
	// anything else under notifications/ is an unknown method.
	raw := e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","method":"notifications/unheard_of"}`), nil)
	env := decode(t, raw)
	require.NotNil(t, env.Error)
	assert.Equal(t, -32601, env.Error.Code)
	assert.JSONEq(t, `null`, string(env.ID))
}

func TestSessionIsolation(t *testing.T) {
	e, _ := newTestEngine(t)

	env := initialize(t, e, "session-a", "2025-06-18")
	require.Nil(t, env.Error)

	// Session B never initialized and stays gated.
	raw := e.HandleMessage(context.Background(), "session-b", []byte(`{"jsonrpc":"2.0","id":5,"method":"tools/list"}`), nil)
	env = decode(t, raw)
	require.NotNil(t, env.Error)
	assert.Equal(t, -32002, env.Error.Code)

	// Session A is unaffected.
	raw = e.HandleMessage(context.Background(), "session-a", []byte(`{"jsonrpc":"2.0","id":6,"method":"tools/list"}`), nil)
	env = decode(t, raw)
	assert.Nil(t, env.Error)
}

func TestSessionCapEnforced(t *testing.T) {
	e, _ := newTestEngine(t, WithLimits(limits.ResourceLimits{MaxSessions: 1}))

	env := initialize(t, e, "s1", "2025-06-18")
	require.Nil(t, env.Error)

	env = initialize(t, e, "s2", "2025-06-18")
	require.NotNil(t, env.Error)
	assert.Equal(t, -32000, env.Error.Code)
	assert.Equal(t, 1, e.SessionCount())
}

func TestRateLimitEnforced(t *testing.T) {
	e, _ := newTestEngine(t, WithLimits(limits.ResourceLimits{RequestsPerMinute: 1, Burst: 1}))

	env := initialize(t, e, "s1", "2025-06-18")
	require.Nil(t, env.Error)

	raw := e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`), nil)
	env = decode(t, raw)
	require.NotNil(t, env.Error)
	assert.Equal(t, -32000, env.Error.Code)
	assert.Equal(t, "Rate limit exceeded", env.Error.Message)
}

func TestMessageSizeCap(t *testing.T) {
	e, _ := newTestEngine(t, WithLimits(limits.ResourceLimits{MaxMessageSize: 32}))

	big := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18"}}`
	env := decode(t, e.HandleMessage(context.Background(), "s1", []byte(big), nil))
	require.NotNil(t, env.Error)
	assert.Equal(t, -32000, env.Error.Code)
	assert.Contains(t, env.Error.Message, "Message too large")
}

func TestDropSession(t *testing.T) {
	e, _ := newTestEngine(t)
	initialize(t, e, "ws-1", "2025-06-18")
	require.Equal(t, 1, e.SessionCount())

	e.DropSession("ws-1")
	assert.Equal(t, 0, e.SessionCount())

	// A fresh session under the same id starts uninitialized.
	raw := e.HandleMessage(context.Background(), "ws-1", []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`), nil)
	env := decode(t, raw)
	require.NotNil(t, env.Error)
	assert.Equal(t, -32002, env.Error.Code)
}

func TestInitializeHandlerFailureLeavesSessionGated(t *testing.T) {
	e, fh := newTestEngine(t)
	fh.initErr = errors.New("backend unavailable")

	env := initialize(t, e, "s1", "2025-06-18")
	require.NotNil(t, env.Error)
	assert.Equal(t, -32603, env.Error.Code)

	raw := e.HandleMessage(context.Background(), "s1", []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`), nil)
	env = decode(t, raw)
	require.NotNil(t, env.Error)
	assert.Equal(t, -32002, env.Error.Code)
}

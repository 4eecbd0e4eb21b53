// Package handler defines the application-facing contract of the
// protocol engine. Implementations supply the tools, resources, and
// prompts the engine serves; the engine owns parsing, session state,
// and error mapping so handlers only deal in domain types.
package handler

import (
	"context"
	"encoding/json"
)

// Handler is implemented by applications to serve protocol requests.
// Every method receives a Context describing the calling session. Any
// returned error is mapped onto the wire taxonomy by the engine; errors
// built with the errors package keep their code, anything else becomes
// an internal error.
type Handler interface {
	// Initialize is invoked once per handshake, after version
	// negotiation succeeds. Implementations may inspect the client
	// info and prime per-session state.
	Initialize(ctx context.Context, hctx *Context) (*InitializeResult, error)

	// ListTools returns the tools the handler exposes.
	ListTools(ctx context.Context, hctx *Context) ([]ToolDefinition, error)

	// CallTool executes a named tool with pre-validated arguments.
	// args is always a JSON object.
	CallTool(ctx context.Context, hctx *Context, name string, args json.RawMessage) (*ToolResult, error)

	// ListResources returns the resources the handler exposes.
	ListResources(ctx context.Context, hctx *Context) ([]ResourceInfo, error)

	// ReadResource returns the content of a resource by URI.
	ReadResource(ctx context.Context, hctx *Context, uri string) (*ResourceContent, error)

	// ListPrompts returns the prompts the handler exposes.
	ListPrompts(ctx context.Context, hctx *Context) ([]PromptInfo, error)

	// GetPrompt expands a named prompt with the given arguments.
	GetPrompt(ctx context.Context, hctx *Context, name string, args map[string]string) (*PromptContent, error)
}

// Context carries per-session facts into handler calls.
type Context struct {
	// SessionID identifies the calling session.
	SessionID string
	// ProtocolVersion is the negotiated protocol revision.
	ProtocolVersion string
	// ClientInfo is the client's self-description from initialize,
	// passed through verbatim.
	ClientInfo json.RawMessage

	notifier *Notifier
}

// NewContext builds a handler context. notifier may be nil when the
// transport cannot push server-initiated messages.
func NewContext(sessionID, protocolVersion string, clientInfo json.RawMessage, notifier *Notifier) *Context {
	return &Context{
		SessionID:       sessionID,
		ProtocolVersion: protocolVersion,
		ClientInfo:      clientInfo,
		notifier:        notifier,
	}
}

// Notify pushes a server-initiated notification toward the client.
// It is safe to call on any Context; when the transport has no push
// channel the event is dropped.
func (c *Context) Notify(event Event) {
	if c == nil || c.notifier == nil {
		return
	}
	c.notifier.Send(event)
}

// CanNotify reports whether this session's transport can receive
// server-initiated notifications.
func (c *Context) CanNotify() bool {
	return c != nil && c.notifier != nil
}

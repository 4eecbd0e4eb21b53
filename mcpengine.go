// Package mcpengine provides a Golang server-side protocol engine for the
// Model Context Protocol (2025-06-18)
package mcpengine

import (
	"github.com/mcpengine/mcp-engine-go/pkg/engine"
	"github.com/mcpengine/mcp-engine-go/pkg/handler"
	"github.com/mcpengine/mcp-engine-go/pkg/limits"
	"github.com/mcpengine/mcp-engine-go/pkg/logging"
	"github.com/mcpengine/mcp-engine-go/pkg/protocol"
	"github.com/mcpengine/mcp-engine-go/pkg/transport"
)

// Version represents the current version of the engine
const Version = "1.0.0"

// These exports provide direct access to the core engine components
var (
	// NewEngine creates a new protocol engine around a Handler
	NewEngine = engine.New

	// NewServer creates a new HTTP and WebSocket server around an engine
	NewServer = transport.NewServer

	// NewNotifier creates a buffered server-to-client notification channel
	NewNotifier = handler.NewNotifier

	// NewLogger creates a structured logger
	NewLogger = logging.New
)

// Protocol revisions accepted during the handshake
const (
	ProtocolRevision = protocol.ProtocolRevision
)

// Engine options
var (
	WithLogger       = engine.WithLogger
	WithLimits       = engine.WithLimits
	WithMetrics      = engine.WithMetrics
	WithTracing      = engine.WithTracing
	WithServerInfo   = engine.WithServerInfo
	WithInstructions = engine.WithInstructions
)

// Server options
var (
	WithAddr          = transport.WithAddr
	WithEndpoint      = transport.WithEndpoint
	WithServerLogger  = transport.WithServerLogger
	WithServerMetrics = transport.WithServerMetrics
	WithPruneInterval = transport.WithPruneInterval
)

// Resource limit presets
var (
	DefaultLimits   = limits.Default
	StrictLimits    = limits.Strict
	UnlimitedLimits = limits.Unlimited
)

// Handler result helpers
var (
	TextResult  = handler.TextResult
	ErrorResult = handler.ErrorResult
)

// Package mcpengine provides a server-side implementation of the Model
// Context Protocol.
//
// The Model Context Protocol (MCP) is a standardized communication protocol
// that enables AI models to interact with their environment through a
// well-defined interface. This package is the root of the engine, providing
// convenient exports of the core components from the sub-packages.
//
// # Overview
//
// The engine consists of several sub-packages:
//
//   - pkg/engine: The transport-agnostic JSON-RPC dispatch core
//   - pkg/handler: The Handler interface applications implement
//   - pkg/protocol: Core protocol types and message parsing
//   - pkg/transport: HTTP and WebSocket serving with transport negotiation
//   - pkg/session: Per-client handshake and lifecycle state
//   - pkg/limits: Message size, session count and rate limiting
//   - pkg/errors: The protocol error taxonomy
//   - pkg/logging: Structured logging
//   - pkg/observability: Prometheus metrics and OpenTelemetry tracing
//
// # Creating a Server
//
// To serve an MCP application over HTTP and WebSocket:
//
//	import (
//	    "context"
//	    "os"
//
//	    mcpengine "github.com/mcpengine/mcp-engine-go"
//	    "github.com/mcpengine/mcp-engine-go/pkg/logging"
//	)
//
//	func main() {
//	    logger := mcpengine.NewLogger(os.Stderr, &logging.TextFormatter{})
//
//	    // MyHandler implements handler.Handler.
//	    eng := mcpengine.NewEngine(&MyHandler{},
//	        mcpengine.WithServerInfo("my-server", "1.0.0"),
//	        mcpengine.WithLogger(logger),
//	        mcpengine.WithLimits(mcpengine.DefaultLimits()),
//	    )
//
//	    srv := mcpengine.NewServer(eng,
//	        mcpengine.WithAddr(":8080"),
//	        mcpengine.WithServerLogger(logger),
//	    )
//
//	    // Start blocks until the context is canceled.
//	    if err := srv.Start(context.Background()); err != nil {
//	        logger.WithError(err).Error("server exited")
//	    }
//	}
//
// Clients connect to /mcp with a plain POST for request/response exchanges,
// or upgrade the same endpoint to a WebSocket for full-duplex operation. A
// GET without upgrade headers returns a discovery document describing both.
//
// # Embedding the Engine
//
// The transport layer is optional. pkg/engine exposes HandleMessage for
// wiring the protocol core to any byte-oriented transport:
//
//	resp := eng.HandleMessage(ctx, sessionID, requestBytes, nil)
//
// Every call returns exactly one JSON payload: a response envelope for
// requests, or a bare acknowledgment object for notifications.
//
// # Examples
//
// The examples directory contains a runnable server:
//
//   - notes-server: A note store exercising tools, resources, prompts and
//     server-to-client notifications
package mcpengine

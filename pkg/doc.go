// Package pkg groups the core components of the MCP engine.
//
// The Model Context Protocol is a standardized communication protocol that
// enables AI models to interact with their environment through a well-defined
// interface. This package contains several sub-packages that implement
// different aspects of the server side of the protocol.
//
// # Sub-packages
//
//   - engine: Transport-agnostic JSON-RPC dispatch around a Handler
//   - handler: The Handler interface and result types applications implement
//   - protocol: Core protocol types, message parsing and envelopes
//   - transport: HTTP and WebSocket serving with transport negotiation
//   - session: Per-client handshake and lifecycle state
//   - limits: Message size, session count and per-session rate limiting
//   - errors: The protocol error taxonomy and JSON-RPC error codes
//   - logging: Structured, leveled logging
//   - observability: Prometheus metrics and OpenTelemetry tracing
package pkg

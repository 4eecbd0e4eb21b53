// Package session tracks per-client protocol state. A session moves
// from uninitialized to initialized through the handshake and holds the
// negotiated protocol version and client identity for its lifetime.
package session

import (
	"encoding/json"
	"sync"
	"time"
)

// DefaultID is the session key used for cookie-less HTTP exchanges.
// Clients that never complete an initialize over plain HTTP share it.
const DefaultID = "default"

// Session is the state for one client. The processing mutex serializes
// whole messages, callers hold it from parse to response so handshake
// state never changes mid-request.
type Session struct {
	mu sync.Mutex

	id              string
	initialized     bool
	protocolVersion string
	clientInfo      json.RawMessage
	createdAt       time.Time
	lastActive      time.Time
}

// New creates an uninitialized session.
func New(id string) *Session {
	now := time.Now()
	return &Session{id: id, createdAt: now, lastActive: now}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Lock acquires the processing mutex. One message per session is in
// flight at a time; messages on different sessions proceed in parallel.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the processing mutex.
func (s *Session) Unlock() { s.mu.Unlock() }

// Initialized reports whether the handshake has completed. Callers must
// hold the processing mutex.
func (s *Session) Initialized() bool { return s.initialized }

// ProtocolVersion returns the negotiated revision, empty before the
// handshake. Callers must hold the processing mutex.
func (s *Session) ProtocolVersion() string { return s.protocolVersion }

// ClientInfo returns the client's self-description from initialize.
// Callers must hold the processing mutex.
func (s *Session) ClientInfo() json.RawMessage { return s.clientInfo }

// CompleteHandshake marks the session initialized with the negotiated
// version and client identity. Callers must hold the processing mutex.
func (s *Session) CompleteHandshake(protocolVersion string, clientInfo json.RawMessage) {
	s.initialized = true
	s.protocolVersion = protocolVersion
	s.clientInfo = clientInfo
}

// Reset returns the session to the uninitialized state. A repeated
// initialize calls this first, so a handshake that then fails leaves
// the session gated again. Callers must hold the processing mutex.
func (s *Session) Reset() {
	s.initialized = false
	s.protocolVersion = ""
	s.clientInfo = nil
}

// Touch records activity for idle accounting.
func (s *Session) Touch() {
	s.lastActive = time.Now()
}

// LastActive returns the time of the most recent Touch.
func (s *Session) LastActive() time.Time { return s.lastActive }

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

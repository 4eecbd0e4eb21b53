package session

import (
	"sync"

	mcperrors "github.com/mcpengine/mcp-engine-go/pkg/errors"
)

// Store holds live sessions keyed by id. Its mutex covers only lookup
// and creation; per-message exclusivity belongs to each session's own
// processing mutex.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
}

// NewStore creates a store. maxSessions of zero disables the cap.
func NewStore(maxSessions int) *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
	}
}

// GetOrCreate returns the session for id, creating it if absent. It
// fails only when creation would exceed the session cap.
func (st *Store) GetOrCreate(id string) (*Session, error) {
	st.mu.RLock()
	sess, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return sess, nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if sess, ok := st.sessions[id]; ok {
		return sess, nil
	}
	if st.maxSessions > 0 && len(st.sessions) >= st.maxSessions {
		return nil, mcperrors.TooManySessions(st.maxSessions)
	}
	sess = New(id)
	st.sessions[id] = sess
	return sess, nil
}

// Get returns the session for id if it exists.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// Remove drops the session for id, used when a connection-bound
// session's transport closes.
func (st *Store) Remove(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

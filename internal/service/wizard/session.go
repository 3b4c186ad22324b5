package wizard

import (
	"strconv"
	"sync"
)

// Session holds one user's in-flight conversation: a navigation stack of
// states and the scratch values collected so far. Sessions live only in
// process memory; a restart loses in-flight wizards and the user starts
// over.
type Session struct {
	stack   []State
	scratch map[string]string
}

// SessionStore keeps per-user sessions. A user's events are processed
// strictly sequentially, so the lock only guards cross-user map access.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[int64]*Session)}
}

// GetOrCreate returns the user's session, creating it lazily.
func (s *SessionStore) GetOrCreate(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[userID]
	if !ok {
		sess = &Session{scratch: make(map[string]string)}
		s.sessions[userID] = sess
	}
	return sess
}

// PushState enters a sub-flow.
func (s *SessionStore) PushState(userID int64, state State) {
	sess := s.GetOrCreate(userID)
	sess.stack = append(sess.stack, state)
}

// PopState leaves the current sub-flow. ok is false when the stack is
// already empty, which callers interpret as "return to the idle menu".
func (s *SessionStore) PopState(userID int64) (State, bool) {
	sess := s.GetOrCreate(userID)
	if len(sess.stack) == 0 {
		return StateIdle, false
	}
	top := sess.stack[len(sess.stack)-1]
	sess.stack = sess.stack[:len(sess.stack)-1]
	return top, true
}

// CurrentState returns the top of the stack, StateIdle when empty.
func (s *SessionStore) CurrentState(userID int64) State {
	sess := s.GetOrCreate(userID)
	if len(sess.stack) == 0 {
		return StateIdle
	}
	return sess.stack[len(sess.stack)-1]
}

// Reset discards the stack and replaces it with the single given state,
// keeping scratch values. Used for the menu-anchor jumps where back lands
// on a submenu rather than the literal predecessor.
func (s *SessionStore) Reset(userID int64, state State) {
	sess := s.GetOrCreate(userID)
	sess.stack = sess.stack[:0]
	if state != StateIdle {
		sess.stack = append(sess.stack, state)
	}
}

// SetField stores a collected value or transient operation metadata.
func (s *SessionStore) SetField(userID int64, key, value string) {
	sess := s.GetOrCreate(userID)
	sess.scratch[key] = value
}

// GetField returns a scratch value, "" when absent.
func (s *SessionStore) GetField(userID int64, key string) string {
	sess := s.GetOrCreate(userID)
	return sess.scratch[key]
}

// SetInt stores an integer scratch value.
func (s *SessionStore) SetInt(userID int64, key string, value int) {
	s.SetField(userID, key, strconv.Itoa(value))
}

// GetInt returns an integer scratch value, 0 when absent or malformed.
func (s *SessionStore) GetInt(userID int64, key string) int {
	n, err := strconv.Atoi(s.GetField(userID, key))
	if err != nil {
		return 0
	}
	return n
}

// ClearScratch drops collected values but keeps the state stack.
func (s *SessionStore) ClearScratch(userID int64) {
	sess := s.GetOrCreate(userID)
	sess.scratch = make(map[string]string)
}

// Clear tears the session down entirely: empty stack, empty scratch.
func (s *SessionStore) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

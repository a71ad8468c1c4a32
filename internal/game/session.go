package game

import (
	"sync"
	"time"
)

// Session pairs an Engine with identity and a lock so one game can be
// driven from concurrent HTTP requests. All engine access goes through Do.
type Session struct {
	ID        string
	PlayerID  string
	CreatedAt time.Time

	mu      sync.Mutex
	engine  *Engine
	touched time.Time
}

// NewSession wraps e.
func NewSession(id, playerID string, e *Engine) *Session {
	now := time.Now().UTC()
	return &Session{ID: id, PlayerID: playerID, CreatedAt: now, engine: e, touched: now}
}

// Do runs fn with exclusive access to the engine.
func (s *Session) Do(fn func(e *Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = time.Now().UTC()
	return fn(s.engine)
}

// Snapshot is a locked Engine.Snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Snapshot()
}

// LastTouched reports when the session was last used.
func (s *Session) LastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

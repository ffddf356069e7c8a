// Package session manages editor session lifecycle.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/formstore"
)

// Session holds the per-editor state: one form under construction and the
// checklist captures of its grid fields.
type Session struct {
	ID        string `json:"id"`
	CreatedAt time.Time

	mu           sync.Mutex
	store        *formstore.Store
	captures     map[string]*checklist.Capture
	lastActiveAt time.Time
}

// NewID returns a fresh session id.
func NewID() string { return uuid.Must(uuid.NewV7()).String() }

// New wraps an already-built form store under id.
func New(id string, store *formstore.Store) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		store:        store,
		captures:     make(map[string]*checklist.Capture),
		lastActiveAt: now,
	}
}

// Store returns the form store and marks the session active.
func (s *Session) Store() *formstore.Store {
	s.Touch()
	return s.store
}

// Capture returns the capture of a checklist field, creating it with the
// field's current grid on first use. The capture always sees the latest grid.
func (s *Session) Capture(fieldID string, cfg checklist.Config, blobs checklist.BlobStore) *checklist.Capture {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
	c, ok := s.captures[fieldID]
	if !ok {
		c = checklist.NewCapture(cfg, nil, blobs)
		s.captures[fieldID] = c
		return c
	}
	c.SetConfig(cfg)
	return c
}

// Responses returns the captured values of every checklist field.
func (s *Session) Responses() map[string]checklist.Responses {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]checklist.Responses, len(s.captures))
	for id, c := range s.captures {
		out[id] = c.Responses()
	}
	return out
}

// DropCapture releases and forgets the capture of a field.
func (s *Session) DropCapture(fieldID string) {
	s.mu.Lock()
	c, ok := s.captures[fieldID]
	delete(s.captures, fieldID)
	s.mu.Unlock()
	if ok {
		c.Release()
	}
}

// Prune releases the captures of fields for which keep returns false.
func (s *Session) Prune(keep func(fieldID string) bool) {
	s.mu.Lock()
	var gone []*checklist.Capture
	for id, c := range s.captures {
		if !keep(id) {
			gone = append(gone, c)
			delete(s.captures, id)
		}
	}
	s.mu.Unlock()
	for _, c := range gone {
		c.Release()
	}
}

// Release frees every blob owned by the session's captures.
func (s *Session) Release() {
	s.mu.Lock()
	caps := s.captures
	s.captures = make(map[string]*checklist.Capture)
	s.mu.Unlock()
	for _, c := range caps {
		c.Release()
	}
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActiveAt = time.Now()
	s.mu.Unlock()
}

// LastActiveAt reports when the session was last used.
func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return maxAge > 0 && time.Since(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return timeout > 0 && time.Since(s.LastActiveAt()) > timeout
}

// Manager handles session registration, lookup and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
	onEvict     func(*Session)
}

// NewManager creates a session manager with the given timeouts. onEvict,
// when set, runs for every session removed by Remove, Get or Cleanup.
func NewManager(maxAge, idleTimeout time.Duration, onEvict func(*Session)) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
		onEvict:     onEvict,
	}
}

// Add registers s.
func (m *Manager) Add(s *Session) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	return s
}

// Remove deletes a session and reports whether it existed.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.evict(s)
	}
	return ok
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions. Called periodically.
func (m *Manager) Cleanup() int {
	m.mu.Lock()
	var gone []*Session
	for id, s := range m.sessions {
		if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
			delete(m.sessions, id)
			gone = append(gone, s)
		}
	}
	m.mu.Unlock()
	for _, s := range gone {
		m.evict(s)
	}
	return len(gone)
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Cleanup()
		}
	}
}

func (m *Manager) evict(s *Session) {
	s.Release()
	if m.onEvict != nil {
		m.onEvict(s)
	}
}

package session

import (
	"regexp"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/websage/backend/internal/index"
)

// DefaultID is used when a request names no session, so single-user
// clients can omit session IDs entirely.
const DefaultID = "default"

// Session holds one user's current extraction result set and index
// snapshot. Both are replaced wholesale when a new batch completes; readers
// take a fixed snapshot handle so a question is never answered against a
// half-replaced index.
type Session struct {
	ID string

	generation atomic.Int64

	mu        sync.RWMutex
	contents  map[string]string
	failures  map[string]string
	snapshot  *index.Snapshot
	updatedAt time.Time
}

func newSession(id string) *Session {
	return &Session{ID: id}
}

// NextGeneration reserves a monotonically increasing generation for the
// index build that follows.
func (s *Session) NextGeneration() int64 {
	return s.generation.Add(1)
}

// Replace installs a new result set and snapshot atomically. A stale build
// (older generation than the one already installed) is discarded.
func (s *Session) Replace(contents, failures map[string]string, snap *index.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap != nil && s.snapshot != nil && snap.Generation() < s.snapshot.Generation() {
		return
	}

	s.contents = contents
	s.failures = failures
	if snap != nil {
		s.snapshot = snap
	}
	s.updatedAt = time.Now()
}

// Snapshot returns the current index handle, or false before the first
// successful indexed batch.
func (s *Session) Snapshot() (*index.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.snapshot == nil {
		return nil, false
	}
	return s.snapshot, true
}

// ProcessedURLs lists the URLs in the current result set, sorted.
func (s *Session) ProcessedURLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	urls := make([]string, 0, len(s.contents))
	for url := range s.contents {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	return urls
}

// Failures returns a copy of the current failure log.
func (s *Session) Failures() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.failures))
	for url, reason := range s.failures {
		out[url] = reason
	}
	return out
}

// Manager hands out per-session state. Sessions are in-memory only and die
// with the process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

// validID constrains session IDs to a charset safe to interpolate into
// vector store filter expressions. UUIDs pass; anything else maps to the
// default session.
var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Get returns the session for id, creating it on first use. An empty or
// malformed id maps to the default session.
func (m *Manager) Get(id string) *Session {
	if !validID.MatchString(id) {
		id = DefaultID
	}

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		return s
	}
	s = newSession(id)
	m.sessions[id] = s
	return s
}

package session

import (
	"sync"

	"toolview/internal/logging"
)

// Manager tracks every open session in creation order and which one has
// focus. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	order    []string
	active   string
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Add registers a session. The first session added becomes active.
func (m *Manager) Add(s *Session) {
	if s == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID()]; ok {
		return
	}
	m.sessions[s.ID()] = s
	m.order = append(m.order, s.ID())
	if m.active == "" {
		m.active = s.ID()
	}
}

// Get returns the session with the given ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Active returns the focused session, nil when none is open.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[m.active]
}

// SetActive moves focus to the given session.
func (m *Manager) SetActive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return false
	}
	m.active = id
	return true
}

// Next moves focus to the session after the active one, wrapping around,
// and returns it.
func (m *Manager) Next() *Session {
	return m.shift(1)
}

// Prev moves focus to the session before the active one, wrapping around,
// and returns it.
func (m *Manager) Prev() *Session {
	return m.shift(-1)
}

func (m *Manager) shift(step int) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.order)
	if n == 0 {
		return nil
	}
	idx := 0
	for i, id := range m.order {
		if id == m.active {
			idx = i
			break
		}
	}
	idx = ((idx+step)%n + n) % n
	m.active = m.order[idx]
	return m.sessions[m.active]
}

// List returns all sessions in creation order.
func (m *Manager) List() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Session, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.sessions[id])
	}
	return out
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Remove closes the session and drops it from the registry. When it held
// focus, focus moves to its predecessor.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, id)
	for i, sid := range m.order {
		if sid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			if m.active == id {
				if len(m.order) == 0 {
					m.active = ""
				} else if i > 0 {
					m.active = m.order[i-1]
				} else {
					m.active = m.order[0]
				}
			}
			break
		}
	}
	m.mu.Unlock()

	if err := s.Close(); err != nil {
		logging.Warn("closing session", "id", id, "error", err)
	}
}

// CloseAll shuts every session down; the first error is returned.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.order))
	for _, id := range m.order {
		sessions = append(sessions, m.sessions[id])
	}
	m.sessions = make(map[string]*Session)
	m.order = nil
	m.active = ""
	m.mu.Unlock()

	var first error
	for _, s := range sessions {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/formloom/formloom/model"
)

// Manager holds live respondent sessions keyed by a session id. Purely
// in-memory: a restart drops everyone back to the welcome screen.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Create(form model.Form, submitter Submitter, opts Options) (string, *Session) {
	s := New(form, submitter, opts)
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = s
	return id, s
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

package builder

import (
	"context"
	"sync"
	"time"

	"github.com/formloom/formloom/model"
)

// Loader reads a form definition for editing.
type Loader interface {
	GetForm(ctx context.Context, id string) (model.Form, error)
}

// Manager keeps at most one Editor per form id. There is exactly one active
// author session per form; a second open returns the same editor
// (last-write-wins, no merge).
type Manager struct {
	mu       sync.Mutex
	editors  map[string]*Editor
	loader   Loader
	saver    Saver
	debounce time.Duration
}

func NewManager(loader Loader, saver Saver, debounce time.Duration) *Manager {
	return &Manager{
		editors:  make(map[string]*Editor),
		loader:   loader,
		saver:    saver,
		debounce: debounce,
	}
}

// Open returns the live editor for the form, loading the definition from the
// store on first access.
func (m *Manager) Open(ctx context.Context, formID string) (*Editor, error) {
	m.mu.Lock()
	if e, ok := m.editors[formID]; ok {
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	form, err := m.loader.GetForm(ctx, formID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.editors[formID]; ok {
		return e, nil
	}
	e := NewEditor(form, m.saver, m.debounce)
	m.editors[formID] = e
	return e, nil
}

// Close flushes any pending save and evicts the editor.
func (m *Manager) Close(ctx context.Context, formID string) error {
	m.mu.Lock()
	e, ok := m.editors[formID]
	delete(m.editors, formID)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	return e.Flush(ctx)
}

// Evict drops an editor without flushing, used after the form row is deleted.
func (m *Manager) Evict(formID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.editors, formID)
}

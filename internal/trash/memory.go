package trash

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgedit/internal/container"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
)

// MemoryStore is a Store that lives for the life of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

// Store implements Store.
func (m *MemoryStore) Store(_ context.Context, kind dialog.Kind, rec container.NodeRecord, filePath, hint string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := Entry{
		ID:        uuid.New().String(),
		FilePath:  filePath,
		Hint:      hint,
		Kind:      kind,
		Node:      cloneRecord(stripEdges(rec)),
		DeletedAt: time.Now(),
	}
	m.entries[e.ID] = e
	m.order = append(m.order, e.ID)
	return e.ID, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	e.Node = cloneRecord(stripEdges(e.Node))
	m.entries[e.ID] = e
	return nil
}

// Retrieve implements Store.
func (m *MemoryStore) Retrieve(_ context.Context, id string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, false, nil
	}
	e.Node = cloneRecord(e.Node)
	return e, true, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, filePath string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for i := len(m.order) - 1; i >= 0; i-- {
		e := m.entries[m.order[i]]
		if filePath != "" && e.FilePath != filePath {
			continue
		}
		e.Node = cloneRecord(e.Node)
		out = append(out, e)
	}
	return out, nil
}

// Remove implements Store.
func (m *MemoryStore) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return nil
	}
	delete(m.entries, id)
	for i, x := range m.order {
		if x == id {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }

// cloneRecord copies the slices so callers cannot alias stored entries.
func cloneRecord(rec container.NodeRecord) container.NodeRecord {
	rec.Text.Strings = append([]container.LangString(nil), rec.Text.Strings...)
	rec.ActionParams = append([]container.Param(nil), rec.ActionParams...)
	return rec
}

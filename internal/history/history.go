// Package history keeps whole-dialog snapshots for undo and redo.
package history

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/metrics"
)

// DefaultDepth bounds each stack when the caller passes zero.
const DefaultDepth = 50

// State is the manager's restore state.
type State int

const (
	Idle State = iota
	Restoring
)

func (s State) String() string {
	if s == Restoring {
		return "restoring"
	}
	return "idle"
}

// Trash lists the trash entries an edit wrote and removed, so undo and redo
// can keep the trash store in step with the dialog.
type Trash struct {
	Added   []string `json:"added,omitempty"`
	Removed []string `json:"removed,omitempty"`
}

// Snapshot is a deep copy of a dialog taken before an edit.
type Snapshot struct {
	ID      uuid.UUID `json:"id"`
	Label   string    `json:"label"`
	TakenAt time.Time `json:"taken_at"`
	Trash   *Trash    `json:"trash,omitempty"`

	dialog *dialog.Dialog
}

func newSnapshot(d *dialog.Dialog, label string) *Snapshot {
	return &Snapshot{ID: uuid.New(), Label: label, TakenAt: time.Now(), dialog: d.Clone()}
}

// Manager holds bounded undo and redo stacks. It is not safe for concurrent
// use; the owning session serializes access.
type Manager struct {
	undo      []*Snapshot
	redo      []*Snapshot
	max       int
	state     State
	restoring *Snapshot
	logger    *slog.Logger
}

// NewManager returns a manager keeping at most max snapshots per stack.
func NewManager(max int, logger *slog.Logger) *Manager {
	if max <= 0 {
		max = DefaultDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{max: max, logger: logger}
}

// Save records d before an edit labelled label and clears the redo stack.
// It returns false without recording anything while a restore is in
// progress, so change listeners fired by Undo cannot push snapshots.
func (m *Manager) Save(d *dialog.Dialog, label string) bool {
	if m.state == Restoring {
		m.logger.Debug("snapshot skipped during restore", "label", label)
		return false
	}
	m.undo = push(m.undo, newSnapshot(d, label), m.max)
	m.redo = nil
	metrics.SnapshotsTaken.Inc()
	return true
}

// Undo swaps current for the latest snapshot. current is kept on the redo
// stack. apply receives the restored dialog and runs in the Restoring state.
func (m *Manager) Undo(current *dialog.Dialog, apply func(*dialog.Dialog)) bool {
	if len(m.undo) == 0 || m.state == Restoring {
		return false
	}
	s := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	r := newSnapshot(current, s.Label)
	r.Trash = s.Trash
	m.redo = push(m.redo, r, m.max)
	m.restore(s, apply)
	return true
}

// Redo reapplies the last undone edit.
func (m *Manager) Redo(current *dialog.Dialog, apply func(*dialog.Dialog)) bool {
	if len(m.redo) == 0 || m.state == Restoring {
		return false
	}
	s := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	u := newSnapshot(current, s.Label)
	u.Trash = s.Trash
	m.undo = push(m.undo, u, m.max)
	m.restore(s, apply)
	return true
}

func (m *Manager) restore(s *Snapshot, apply func(*dialog.Dialog)) {
	m.state, m.restoring = Restoring, s
	defer func() { m.state, m.restoring = Idle, nil }()
	m.logger.Debug("restoring snapshot", "id", s.ID, "label", s.Label)
	apply(s.dialog)
}

// Restored returns the snapshot being applied, or nil outside Undo and Redo.
func (m *Manager) Restored() *Snapshot { return m.restoring }

// RecordTrash notes trash entries written and removed by the edit whose
// snapshot is on top of the undo stack.
func (m *Manager) RecordTrash(added, removed []string) {
	if len(m.undo) == 0 || len(added)+len(removed) == 0 {
		return
	}
	top := m.undo[len(m.undo)-1]
	if top.Trash == nil {
		top.Trash = &Trash{}
	}
	top.Trash.Added = append(top.Trash.Added, added...)
	top.Trash.Removed = append(top.Trash.Removed, removed...)
}

// CanUndo reports whether Undo has anything to restore.
func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }

// CanRedo reports whether Redo has anything to restore.
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }

// State returns the current restore state.
func (m *Manager) State() State { return m.state }

// Len returns the depth of the undo and redo stacks.
func (m *Manager) Len() (undo, redo int) { return len(m.undo), len(m.redo) }

// Labels returns the undo stack's labels, oldest first.
func (m *Manager) Labels() []string {
	out := make([]string, len(m.undo))
	for i, s := range m.undo {
		out[i] = s.Label
	}
	return out
}

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.undo, m.redo = nil, nil
}

// push appends s and evicts the oldest entries beyond max.
func push(stack []*Snapshot, s *Snapshot, max int) []*Snapshot {
	stack = append(stack, s)
	if over := len(stack) - max; over > 0 {
		stack = append(stack[:0:0], stack[over:]...)
	}
	return stack
}

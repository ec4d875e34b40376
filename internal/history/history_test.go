package history_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/history"
)

func newDialog(t *testing.T, text string) *dialog.Dialog {
	t.Helper()
	d := dialog.New()
	s := d.CreateNode(dialog.SpeakerLine)
	n, err := d.NodeAt(s)
	require.NoError(t, err)
	n.Text.Set(0, text)
	require.NoError(t, d.AppendRoot(dialog.NewEdge(n, false)))
	return d
}

func firstText(d *dialog.Dialog) string {
	s, _ := d.Nodes(dialog.SpeakerLine)[0].Text.Get(0)
	return s
}

func TestUndoRedo_SwapsDialogs(t *testing.T) {
	m := history.NewManager(10, nil)
	current := newDialog(t, "v1")

	require.True(t, m.Save(current, "edit text"))
	current.Nodes(dialog.SpeakerLine)[0].Text.Set(0, "v2")

	require.True(t, m.Undo(current, func(d *dialog.Dialog) { current = d }))
	assert.Equal(t, "v1", firstText(current))
	assert.Equal(t, history.Idle, m.State())
	assert.True(t, m.CanRedo())

	require.True(t, m.Redo(current, func(d *dialog.Dialog) { current = d }))
	assert.Equal(t, "v2", firstText(current))
	assert.True(t, m.CanUndo())
	assert.False(t, m.CanRedo())
}

func TestRecordTrash_FollowsEditAcrossUndoRedo(t *testing.T) {
	m := history.NewManager(10, nil)
	current := newDialog(t, "v1")
	m.RecordTrash([]string{"ignored"}, nil) // nothing to attach to yet

	require.True(t, m.Save(current, "delete"))
	m.RecordTrash([]string{"a", "b"}, nil)

	var seen *history.Trash
	require.True(t, m.Undo(current, func(d *dialog.Dialog) {
		current = d
		seen = m.Restored().Trash
	}))
	require.NotNil(t, seen)
	assert.Equal(t, []string{"a", "b"}, seen.Added)
	assert.Nil(t, m.Restored())

	seen = nil
	require.True(t, m.Redo(current, func(d *dialog.Dialog) {
		current = d
		seen = m.Restored().Trash
	}))
	require.NotNil(t, seen)
	assert.Equal(t, []string{"a", "b"}, seen.Added)
}

func TestSnapshot_IsolatedFromLaterEdits(t *testing.T) {
	m := history.NewManager(0, nil)
	d := newDialog(t, "before")
	m.Save(d, "edit")
	d.Nodes(dialog.SpeakerLine)[0].Text.Set(0, "after")
	d.CreateNode(dialog.ResponseLine)

	var restored *dialog.Dialog
	m.Undo(d, func(r *dialog.Dialog) { restored = r })
	require.NotNil(t, restored)
	assert.Equal(t, "before", firstText(restored))
	assert.Empty(t, restored.Nodes(dialog.ResponseLine))
	assert.Empty(t, dialog.ValidateIndices(restored))
}

func TestSave_IgnoredWhileRestoring(t *testing.T) {
	m := history.NewManager(10, nil)
	d := newDialog(t, "v1")
	m.Save(d, "one")
	m.Save(d, "two")

	saved := true
	m.Undo(d, func(r *dialog.Dialog) {
		assert.Equal(t, history.Restoring, m.State())
		// A change listener reacting to the restore.
		saved = m.Save(r, "listener")
	})
	assert.False(t, saved)

	undo, redo := m.Len()
	assert.Equal(t, 1, undo)
	assert.Equal(t, 1, redo)
	assert.Equal(t, []string{"one"}, m.Labels())
}

func TestSave_ClearsRedo(t *testing.T) {
	m := history.NewManager(10, nil)
	d := newDialog(t, "v1")
	m.Save(d, "one")
	m.Undo(d, func(r *dialog.Dialog) { d = r })
	require.True(t, m.CanRedo())

	m.Save(d, "two")
	assert.False(t, m.CanRedo())
}

func TestSave_EvictsOldest(t *testing.T) {
	m := history.NewManager(3, nil)
	d := newDialog(t, "v")
	for i := 0; i < 5; i++ {
		m.Save(d, fmt.Sprintf("edit %d", i))
	}
	assert.Equal(t, []string{"edit 2", "edit 3", "edit 4"}, m.Labels())
}

func TestUndo_EmptyStack(t *testing.T) {
	m := history.NewManager(3, nil)
	called := false
	assert.False(t, m.Undo(dialog.New(), func(*dialog.Dialog) { called = true }))
	assert.False(t, m.Redo(dialog.New(), func(*dialog.Dialog) { called = true }))
	assert.False(t, called)
}

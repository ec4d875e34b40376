// Package editor runs edit operations against one open dialog.
//
// A Session is the explicit context every operation goes through: it owns
// the dialog, its undo history, the clipboard and the collaborators (trash,
// string table). Every operation validates first, then records a snapshot,
// then commits, then notifies listeners; a refused operation leaves both
// the dialog and the history untouched.
//
// A Session is not safe for concurrent use. workspace.Workspace serializes
// access per session.
package editor

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgedit/internal/container"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/event"
	"github.com/gyaneshwarpardhi/dlgedit/internal/history"
	"github.com/gyaneshwarpardhi/dlgedit/internal/metrics"
	"github.com/gyaneshwarpardhi/dlgedit/internal/trash"
)

var (
	// ErrSaveAborted means validation still failed after the repair pass;
	// nothing was written.
	ErrSaveAborted = errors.New("save aborted")
	// ErrClipboardEmpty is returned by paste operations with nothing copied.
	ErrClipboardEmpty = errors.New("clipboard is empty")
)

// Options configure a Session.
type Options struct {
	Language      dialog.LanguageID
	UndoDepth     int
	CloneMaxDepth int
	AutoRepair    bool
	Resolver      dialog.TextResolver // nil disables string-table lookups
	Trash         trash.Store         // nil disables trashing
	Logger        *slog.Logger
}

// Session is one open dialog.
type Session struct {
	id        string
	path      string
	d         *dialog.Dialog
	hist      *history.Manager
	opts      Options
	logger    *slog.Logger
	clip      *clipboard
	stash     map[string]trash.Entry // entries taken out of the trash by undo or redo
	listeners []event.Listener
	dirty     bool
}

// New wraps d in a session. path is where Save writes by default.
func New(id, path string, d *dialog.Dialog, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CloneMaxDepth <= 0 {
		opts.CloneMaxDepth = dialog.DefaultCloneDepth
	}
	logger := opts.Logger.With("dialog", id)
	return &Session{
		id:     id,
		path:   path,
		d:      d,
		hist:   history.NewManager(opts.UndoDepth, logger),
		opts:   opts,
		logger: logger,
		stash:  make(map[string]trash.Entry),
	}
}

// Open reads and builds the dialog stored at path.
func Open(id, path string, opts Options) (*Session, error) {
	f, err := container.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := dialog.Build(f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s := New(id, path, d, opts)
	if errs := dialog.ValidateIndices(d); len(errs) > 0 {
		s.logger.Warn("dialog loaded with integrity violations", "path", path, "count", len(errs))
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Path returns the default save location.
func (s *Session) Path() string { return s.path }

// Dialog returns the live graph. It is replaced wholesale by Undo and Redo,
// so callers must not hold on to it across operations.
func (s *Session) Dialog() *dialog.Dialog { return s.d }

// Dirty reports whether there are edits since the last save.
func (s *Session) Dirty() bool { return s.dirty }

// History exposes the undo manager for inspection.
func (s *Session) History() *history.Manager { return s.hist }

// OnChange registers a listener called after every committed mutation.
// Listeners run synchronously and may call Checkpoint; during Undo and Redo
// such checkpoints are ignored.
func (s *Session) OnChange(l event.Listener) {
	s.listeners = append(s.listeners, l)
}

// Checkpoint records the current dialog on the undo stack.
func (s *Session) Checkpoint(label string) bool {
	return s.hist.Save(s.d, label)
}

func (s *Session) notify(op event.Op, label string, meta map[string]string) {
	s.dirty = true
	metrics.EditsApplied.WithLabelValues(string(op)).Inc()
	c := event.Change{
		ID:         uuid.New().String(),
		DialogID:   s.id,
		Op:         op,
		Label:      label,
		OccurredAt: time.Now(),
		Meta:       meta,
	}
	for _, l := range s.listeners {
		l(c)
	}
}

// reject counts and returns err for a refused operation.
func (s *Session) reject(op event.Op, err error) error {
	metrics.EditsRejected.WithLabelValues(string(op), reason(err)).Inc()
	s.logger.Debug("edit rejected", "op", op, "err", err)
	return err
}

func reason(err error) string {
	switch {
	case errors.Is(err, dialog.ErrMoveRejected):
		return "move_rejected"
	case errors.Is(err, dialog.ErrRestoreRejected):
		return "restore_rejected"
	case errors.Is(err, dialog.ErrCloneDepthExceeded):
		return "clone_depth"
	case errors.Is(err, dialog.ErrIntegrity):
		return "integrity"
	case errors.Is(err, dialog.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrClipboardEmpty):
		return "clipboard_empty"
	}
	return "other"
}

// edge resolves p against the live dialog to an edge whose target is
// stored.
func (s *Session) edge(p dialog.Path) (*dialog.Edge, error) {
	e, err := s.d.EdgeAt(p)
	if err != nil {
		return nil, err
	}
	if !s.d.Contains(e.Target) {
		return nil, fmt.Errorf("path %s: edge does not resolve: %w", p, dialog.ErrNotFound)
	}
	return e, nil
}

// Undo restores the previous snapshot. It returns false when there is none.
func (s *Session) Undo() bool {
	return s.hist.Undo(s.d, func(d *dialog.Dialog) {
		s.d = d
		s.clip.rebind(d)
		s.revertTrash(s.hist.Restored().Trash)
		s.notify(event.OpUndo, "undo", nil)
	})
}

// Redo reapplies the last undone edit.
func (s *Session) Redo() bool {
	return s.hist.Redo(s.d, func(d *dialog.Dialog) {
		s.d = d
		s.clip.rebind(d)
		s.replayTrash(s.hist.Restored().Trash)
		s.notify(event.OpRedo, "redo", nil)
	})
}

// Validate runs the pure index check and records violation metrics.
func (s *Session) Validate() []*dialog.IntegrityError {
	start := time.Now()
	errs := dialog.ValidateIndices(s.d)
	metrics.ValidationDuration.Observe(float64(time.Since(start).Microseconds()) / 1000)
	for _, e := range errs {
		metrics.IntegrityViolations.WithLabelValues(string(e.Violation)).Inc()
	}
	return errs
}

// Repair rebuilds the registry and recalculates indices, logging what it
// fixed and what remains. It records an undo snapshot first.
func (s *Session) Repair() []*dialog.IntegrityError {
	before := dialog.ValidateIndices(s.d)
	s.Checkpoint("repair")
	remaining := dialog.Repair(s.d)
	outcome := "clean"
	if len(remaining) > 0 {
		outcome = "residual"
	}
	metrics.Repairs.WithLabelValues(outcome).Inc()
	s.logger.Info("dialog repaired", "violations_before", len(before), "violations_after", len(remaining))
	for _, e := range remaining {
		s.logger.Warn("unrepairable violation", "err", e)
	}
	s.notify(event.OpRepair, "repair", nil)
	return remaining
}

// Package workspace holds the open dialogs of one process and serializes
// access to each of them.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/dlgedit/internal/config"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/editor"
	"github.com/gyaneshwarpardhi/dlgedit/internal/event"
	"github.com/gyaneshwarpardhi/dlgedit/internal/metrics"
	"github.com/gyaneshwarpardhi/dlgedit/internal/trash"
)

var (
	// ErrUnknownDialog is returned for ids that are not open.
	ErrUnknownDialog = errors.New("unknown dialog")
	// ErrShutdown is returned once Shutdown has started.
	ErrShutdown = errors.New("workspace shut down")
)

// entry guards one session. The mutex is the single-writer lock over the
// whole dialog store.
type entry struct {
	mu sync.Mutex
	s  *editor.Session
}

// Summary describes an open dialog.
type Summary struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Nodes int    `json:"nodes"`
	Dirty bool   `json:"dirty"`
}

// Workspace owns every open session plus the batch validation pool.
type Workspace struct {
	mu        sync.RWMutex
	sessions  map[string]*entry
	listeners []event.Listener

	conf     atomic.Pointer[config.EditorConf]
	trash    trash.Store
	resolver dialog.TextResolver
	logger   *slog.Logger
	pool     *workerPool[fileJob, FileReport]
}

// New creates a Workspace and starts its validation workers. trash and
// resolver may be nil.
func New(ctx context.Context, conf config.EditorConf, store trash.Store, resolver dialog.TextResolver, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Workspace{
		sessions: make(map[string]*entry),
		trash:    store,
		resolver: resolver,
		logger:   logger,
	}
	w.conf.Store(&conf)
	w.pool = newWorkerPool[fileJob, FileReport](
		ctx,
		conf.ValidateWorkers,
		conf.ValidateQueue,
		func(_ context.Context, j fileJob) (FileReport, error) {
			return validateFile(j), nil
		},
	)
	return w
}

// SetConfig swaps the editor settings used for dialogs opened from now on
// (used on hot-reload).
func (w *Workspace) SetConfig(conf config.EditorConf) {
	w.conf.Store(&conf)
	w.logger.Info("editor config updated", "undo_depth", conf.UndoDepth, "auto_repair", conf.AutoRepair)
}

// OnChange registers a listener on every current and future session.
func (w *Workspace) OnChange(l event.Listener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, l)
	for _, e := range w.sessions {
		e.mu.Lock()
		e.s.OnChange(l)
		e.mu.Unlock()
	}
}

func (w *Workspace) options() editor.Options {
	c := w.conf.Load()
	return editor.Options{
		Language:      dialog.LanguageID(c.Language),
		UndoDepth:     c.UndoDepth,
		CloneMaxDepth: c.CloneMaxDepth,
		AutoRepair:    c.AutoRepair,
		Resolver:      w.resolver,
		Trash:         w.trash,
		Logger:        w.logger,
	}
}

// Open loads the dialog at path and returns its session id.
func (w *Workspace) Open(path string) (string, error) {
	id := uuid.New().String()
	s, err := editor.Open(id, path, w.options())
	if err != nil {
		return "", err
	}
	w.add(s)
	w.logger.Info("dialog opened", "id", id, "path", path, "nodes", s.Dialog().NodeCount())
	return id, nil
}

// Create starts an empty dialog that will be saved to path.
func (w *Workspace) Create(path string) string {
	id := uuid.New().String()
	w.add(editor.New(id, path, dialog.New(), w.options()))
	w.logger.Info("dialog created", "id", id, "path", path)
	return id
}

func (w *Workspace) add(s *editor.Session) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, l := range w.listeners {
		s.OnChange(l)
	}
	w.sessions[s.ID()] = &entry{s: s}
	metrics.OpenDialogs.Set(float64(len(w.sessions)))
}

// Close forgets the session. Unsaved edits are lost.
func (w *Workspace) Close(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.sessions[id]
	if !ok {
		return fmt.Errorf("close %s: %w", id, ErrUnknownDialog)
	}
	delete(w.sessions, id)
	metrics.OpenDialogs.Set(float64(len(w.sessions)))
	e.mu.Lock()
	dirty := e.s.Dirty()
	e.mu.Unlock()
	if dirty {
		w.logger.Warn("dialog closed with unsaved edits", "id", id, "path", e.s.Path())
	}
	return nil
}

// Do runs fn with exclusive access to the session id.
func (w *Workspace) Do(id string, fn func(*editor.Session) error) error {
	w.mu.RLock()
	e, ok := w.sessions[id]
	w.mu.RUnlock()
	if !ok {
		return fmt.Errorf("dialog %s: %w", id, ErrUnknownDialog)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.s)
}

// List summarizes every open dialog, ordered by path then id.
func (w *Workspace) List() []Summary {
	w.mu.RLock()
	entries := make([]*entry, 0, len(w.sessions))
	for _, e := range w.sessions {
		entries = append(entries, e)
	}
	w.mu.RUnlock()

	out := make([]Summary, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, Summary{
			ID:    e.s.ID(),
			Path:  e.s.Path(),
			Nodes: e.s.Dialog().NodeCount(),
			Dirty: e.s.Dirty(),
		})
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Trash returns the shared trash store, nil when trashing is disabled.
func (w *Workspace) Trash() trash.Store { return w.trash }

// QueueUtilization returns queue used / capacity (0–1).
func (w *Workspace) QueueUtilization() float64 {
	if w.pool.QueueCap() == 0 {
		return 0
	}
	return float64(w.pool.QueueLen()) / float64(w.pool.QueueCap())
}

// Shutdown drains the validation pool.
func (w *Workspace) Shutdown() {
	w.pool.Drain()
	if n := len(w.List()); n > 0 {
		w.logger.Info("workspace shut down", "open_dialogs", n)
	}
}

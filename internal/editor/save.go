package editor

import (
	"fmt"

	"github.com/gyaneshwarpardhi/dlgedit/internal/container"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/event"
	"github.com/gyaneshwarpardhi/dlgedit/internal/metrics"
)

// prepare brings the dialog into a writable state: indices recalculated,
// validated, repaired once when AutoRepair is set. It returns the violations
// that remain joined under ErrSaveAborted.
func (s *Session) prepare() error {
	dialog.RecalculateIndices(s.d)
	errs := s.Validate()
	if len(errs) > 0 && s.opts.AutoRepair {
		s.logger.Warn("validation failed before save, repairing", "violations", len(errs))
		s.Repair()
		errs = s.Validate()
	}
	if len(errs) > 0 {
		metrics.Saves.WithLabelValues("aborted").Inc()
		s.logger.Error("save aborted", "violations", len(errs))
		return fmt.Errorf("%w: %w", ErrSaveAborted, dialog.Join(errs))
	}
	return nil
}

// Export returns the flat container for the dialog, or ErrSaveAborted when
// it is not consistent.
func (s *Session) Export() (*container.File, error) {
	if err := s.prepare(); err != nil {
		return nil, err
	}
	return dialog.Flatten(s.d), nil
}

// Save writes the dialog to path, or to the session path when path is
// empty. Nothing is written when validation fails.
func (s *Session) Save(path string) error {
	if path == "" {
		path = s.path
	}
	if path == "" {
		return fmt.Errorf("save: no path")
	}
	f, err := s.Export()
	if err != nil {
		return err
	}
	if err := container.WriteFile(path, f); err != nil {
		metrics.Saves.WithLabelValues("error").Inc()
		return fmt.Errorf("save: %w", err)
	}
	metrics.Saves.WithLabelValues("ok").Inc()
	s.path = path
	s.notify(event.OpSave, "save "+path, map[string]string{"path": path})
	s.dirty = false
	s.logger.Info("dialog saved", "path", path, "nodes", s.d.NodeCount())
	return nil
}

// Text returns the display text of the node reached through p.
func (s *Session) Text(p dialog.Path) (string, error) {
	e, err := s.edge(p)
	if err != nil {
		return "", err
	}
	return dialog.DisplayText(e.Target, s.opts.Language, s.opts.Resolver), nil
}

// Structure returns the flowchart export and its hash.
func (s *Session) Structure() (*dialog.Structure, string, error) {
	st := dialog.Export(s.d, s.opts.Language, s.opts.Resolver)
	h, err := dialog.StructureHash(st)
	if err != nil {
		return nil, "", err
	}
	return st, h, nil
}

// Colors returns the speaker palette.
func (s *Session) Colors() map[string]string {
	return dialog.SpeakerColors(s.d)
}

// NodeView is a read-only view of the node reached through a path.
type NodeView struct {
	Path      string      `json:"path"`
	ID        string      `json:"id"`
	Kind      string      `json:"kind"`
	Text      string      `json:"text"`
	Speaker   string      `json:"speaker,omitempty"`
	Action    string      `json:"action,omitempty"`
	Condition string      `json:"condition,omitempty"`
	IsLink    bool        `json:"is_link,omitempty"`
	CycleStub bool        `json:"cycle_stub,omitempty"`
	Children  []ChildView `json:"children"`
}

// ChildView summarizes one outgoing edge.
type ChildView struct {
	Path   string `json:"path"`
	ID     string `json:"id"`
	Text   string `json:"text"`
	IsLink bool   `json:"is_link,omitempty"`
}

// View describes the node at p. An empty path lists the conversation starts.
func (s *Session) View(p dialog.Path) (NodeView, error) {
	if len(p) == 0 {
		v := NodeView{Kind: "root", Text: "Dialog Start"}
		v.Children = s.children(p, s.d.Roots())
		return v, nil
	}
	e, err := s.edge(p)
	if err != nil {
		return NodeView{}, err
	}
	slot, _ := s.d.SlotOf(e.Target)
	v := NodeView{
		Path:      p.String(),
		ID:        dialog.NodeID(slot),
		Kind:      slot.Kind.String(),
		Text:      dialog.DisplayText(e.Target, s.opts.Language, s.opts.Resolver),
		Speaker:   e.Target.Speaker,
		Action:    e.Target.Action.Name,
		Condition: e.Condition.Name,
		IsLink:    e.IsLink,
		CycleStub: e.Target.CycleStub,
	}
	if !e.IsLink {
		v.Children = s.children(p, e.Target.Edges)
	}
	return v, nil
}

func (s *Session) children(p dialog.Path, edges []*dialog.Edge) []ChildView {
	out := make([]ChildView, 0, len(edges))
	for i, e := range edges {
		slot, ok := s.d.SlotOf(e.Target)
		if !ok {
			out = append(out, ChildView{Path: p.Child(i).String(), Text: "<unresolved>", IsLink: e.IsLink})
			continue
		}
		out = append(out, ChildView{
			Path:   p.Child(i).String(),
			ID:     dialog.NodeID(slot),
			Text:   dialog.DisplayText(e.Target, s.opts.Language, s.opts.Resolver),
			IsLink: e.IsLink,
		})
	}
	return out
}

package editor

import (
	"context"
	"fmt"

	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/event"
	"github.com/gyaneshwarpardhi/dlgedit/internal/history"
	"github.com/gyaneshwarpardhi/dlgedit/internal/metrics"
)

func restoreRejected(format string, args ...any) error {
	return &dialog.RestoreRejected{Reason: fmt.Sprintf(format, args...)}
}

// parentFor resolves the node a new child would hang under. A nil path
// means the root list; the returned node is then nil.
func (s *Session) parentFor(p dialog.Path) (*dialog.Node, error) {
	if len(p) == 0 {
		return nil, nil
	}
	e, err := s.edge(p)
	if err != nil {
		return nil, err
	}
	if e.IsLink {
		return nil, restoreRejected("cannot add under a link; use the original node at its own path")
	}
	return e.Target, nil
}

// placeable checks that a node of kind k may hang under parent.
func placeable(parent *dialog.Node, k dialog.Kind) error {
	if parent == nil {
		if k != dialog.SpeakerLine {
			return restoreRejected("a %s line cannot be a conversation start", k)
		}
		return nil
	}
	if parent.Kind.Other() != k {
		return restoreRejected("a %s line cannot be a child of a %s line", k, parent.Kind)
	}
	return nil
}

// attach appends a strong or link edge from parent (nil for the root list)
// to n and returns the new edge's path.
func (s *Session) attach(parentPath dialog.Path, parent, n *dialog.Node, isLink bool) (dialog.Path, error) {
	e := dialog.NewEdge(n, isLink)
	if parent == nil {
		if err := s.d.AppendRoot(e); err != nil {
			return nil, err
		}
		return dialog.Path{len(s.d.Roots()) - 1}, nil
	}
	owner, _ := s.d.SlotOf(parent)
	if err := s.d.AppendEdge(owner, e); err != nil {
		return nil, err
	}
	return parentPath.Child(len(parent.Edges) - 1), nil
}

// AddRoot creates a speaker line and appends it as a conversation start.
func (s *Session) AddRoot(text, speaker string) (dialog.Path, error) {
	return s.AddNode(nil, text, speaker)
}

// AddNode creates a line of the opposite kind under the node at parent (the
// root list when parent is empty) and returns its path.
func (s *Session) AddNode(parent dialog.Path, text, speaker string) (dialog.Path, error) {
	op := event.OpAddNode
	if len(parent) == 0 {
		op = event.OpAddRoot
	}
	pn, err := s.parentFor(parent)
	if err != nil {
		return nil, s.reject(op, err)
	}
	kind := dialog.SpeakerLine
	if pn != nil {
		kind = pn.Kind.Other()
	}

	s.Checkpoint(string(op))
	slot := s.d.CreateNode(kind)
	n, _ := s.d.NodeAt(slot)
	n.Text = dialog.NewLocString(s.opts.Language, text)
	n.Speaker = speaker
	p, err := s.attach(parent, pn, n, false)
	if err != nil {
		return nil, fmt.Errorf("add node: %w", err)
	}
	s.notify(op, fmt.Sprintf("add %s", slot), map[string]string{"path": p.String()})
	return p, nil
}

// SetText replaces the inline text of the node at p in the session language.
func (s *Session) SetText(p dialog.Path, text string) error {
	e, err := s.edge(p)
	if err != nil {
		return s.reject(event.OpSetText, err)
	}
	if e.IsLink {
		return s.reject(event.OpSetText, restoreRejected("edit the original node, not its link"))
	}
	s.Checkpoint("set text")
	e.Target.Text.Set(s.opts.Language, text)
	e.Target.Text.Resolved = ""
	s.notify(event.OpSetText, "set text", map[string]string{"path": p.String()})
	return nil
}

// DeleteResult describes what a delete removed.
type DeleteResult struct {
	Removed  int      `json:"removed"`
	Orphans  []string `json:"link_orphans,omitempty"` // link-only nodes swept with it
	TrashIDs []string `json:"trash_ids,omitempty"`
}

// DeleteImpact lists the nodes, at any depth below p, that deleting the
// edge at p would take down while links still point at them.
func (s *Session) DeleteImpact(p dialog.Path) ([]dialog.Slot, error) {
	e, err := s.d.EdgeAt(p)
	if err != nil {
		return nil, err
	}
	if !s.d.Contains(e.Target) {
		return nil, nil
	}
	return dialog.EdgeOrphans(s.d, e), nil
}

// Delete detaches the edge at p and sweeps every node that is no longer
// reachable along strong edges, links into them included. Removed nodes
// with content are copied to the trash store. Dangling edges can be deleted
// too.
func (s *Session) Delete(ctx context.Context, p dialog.Path) (DeleteResult, error) {
	return s.delete(ctx, event.OpDelete, p)
}

func (s *Session) delete(ctx context.Context, op event.Op, p dialog.Path) (DeleteResult, error) {
	e, err := s.d.EdgeAt(p)
	if err != nil {
		return DeleteResult{}, s.reject(op, err)
	}
	impact, err := s.DeleteImpact(p)
	if err != nil {
		return DeleteResult{}, s.reject(op, err)
	}
	var res DeleteResult
	for _, slot := range impact {
		res.Orphans = append(res.Orphans, dialog.NodeID(slot))
	}
	if len(impact) > 0 {
		s.logger.Info("deleting link-only children", "path", p.String(), "nodes", res.Orphans)
	}

	target := e.Target
	recorded := s.Checkpoint(string(op))
	if err := s.d.DetachEdge(e); err != nil {
		return DeleteResult{}, fmt.Errorf("delete %s: %w", p, err)
	}
	removed := dialog.RemoveOrphans(s.d)
	res.Removed = len(removed)
	metrics.OrphansRemoved.Add(float64(len(removed)))

	for _, n := range removed {
		if n.CycleStub || (n.Text.IsEmpty() && n.Action.Name == "") {
			continue
		}
		hint := "under path " + p.String()
		if n == target {
			hint = "path " + p.String()
		}
		id, ok := s.toTrash(ctx, n, hint)
		if ok {
			res.TrashIDs = append(res.TrashIDs, id)
		}
	}
	if recorded {
		s.hist.RecordTrash(res.TrashIDs, nil)
	}
	s.notify(op, fmt.Sprintf("%s %s", op, p), map[string]string{"path": p.String()})
	return res, nil
}

// toTrash stores n's values. Failures are logged; the edit has already been
// committed.
func (s *Session) toTrash(ctx context.Context, n *dialog.Node, hint string) (string, bool) {
	if s.opts.Trash == nil {
		return "", false
	}
	id, err := s.opts.Trash.Store(ctx, n.Kind, dialog.RecordOf(n), s.path, hint)
	if err != nil {
		s.logger.Warn("trash store failed", "hint", hint, "err", err)
		return "", false
	}
	metrics.TrashStored.Inc()
	s.logger.Debug("node trashed", "id", id, "kind", n.Kind, "hint", hint)
	return id, true
}

// revertTrash takes the entries an undone edit wrote out of the trash and
// puts back the ones it removed.
func (s *Session) revertTrash(t *history.Trash) {
	if t == nil || s.opts.Trash == nil {
		return
	}
	ctx := context.Background()
	s.takeTrash(ctx, t.Added)
	s.putTrash(ctx, t.Removed)
}

// replayTrash repeats a redone edit's trash writes.
func (s *Session) replayTrash(t *history.Trash) {
	if t == nil || s.opts.Trash == nil {
		return
	}
	ctx := context.Background()
	s.putTrash(ctx, t.Added)
	s.takeTrash(ctx, t.Removed)
}

func (s *Session) takeTrash(ctx context.Context, ids []string) {
	for _, id := range ids {
		e, ok, err := s.opts.Trash.Retrieve(ctx, id)
		if err != nil {
			s.logger.Warn("trash entry not retrieved", "id", id, "err", err)
			continue
		}
		if !ok {
			continue
		}
		if err := s.opts.Trash.Remove(ctx, id); err != nil {
			s.logger.Warn("trash entry not removed", "id", id, "err", err)
			continue
		}
		s.stash[id] = e
	}
}

func (s *Session) putTrash(ctx context.Context, ids []string) {
	for _, id := range ids {
		e, ok := s.stash[id]
		if !ok {
			continue
		}
		if err := s.opts.Trash.Put(ctx, e); err != nil {
			s.logger.Warn("trash entry not put back", "id", id, "err", err)
			continue
		}
		delete(s.stash, id)
	}
}

// Move drops the node reached through src relative to the edge at tgt.
func (s *Session) Move(src, tgt dialog.Path, pos dialog.Position) (dialog.MoveResult, error) {
	se, err := s.edge(src)
	if err != nil {
		return dialog.MoveResult{}, s.reject(event.OpMove, err)
	}
	te, err := s.edge(tgt)
	if err != nil {
		return dialog.MoveResult{}, s.reject(event.OpMove, err)
	}
	res, err := dialog.ValidateMove(s.d, se, te, pos)
	if err != nil {
		return dialog.MoveResult{}, s.reject(event.OpMove, err)
	}
	s.Checkpoint("move")
	if err := dialog.ApplyMove(s.d, se, res); err != nil {
		return dialog.MoveResult{}, fmt.Errorf("move %s: %w", src, err)
	}
	s.notify(event.OpMove, fmt.Sprintf("move %s %s %s", src, pos, tgt), nil)
	return res, nil
}

// RestoreFromTrash recreates a trashed node under parent (the root list when
// empty) and removes the trash entry.
func (s *Session) RestoreFromTrash(ctx context.Context, entryID string, parent dialog.Path) (dialog.Path, error) {
	if s.opts.Trash == nil {
		return nil, s.reject(event.OpRestore, fmt.Errorf("restore %s: no trash store: %w", entryID, dialog.ErrNotFound))
	}
	entry, ok, err := s.opts.Trash.Retrieve(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.reject(event.OpRestore, fmt.Errorf("trash entry %s: %w", entryID, dialog.ErrNotFound))
	}
	pn, err := s.parentFor(parent)
	if err != nil {
		return nil, s.reject(event.OpRestore, err)
	}
	if err := placeable(pn, entry.Kind); err != nil {
		return nil, s.reject(event.OpRestore, err)
	}

	recorded := s.Checkpoint("restore")
	slot := s.d.CreateNode(entry.Kind)
	n, _ := s.d.NodeAt(slot)
	n.SetValues(entry.Node)
	p, err := s.attach(parent, pn, n, false)
	if err != nil {
		return nil, fmt.Errorf("restore %s: %w", entryID, err)
	}
	dialog.RecalculateIndices(s.d)
	if err := s.opts.Trash.Remove(ctx, entryID); err != nil {
		s.logger.Warn("trash entry not removed after restore", "id", entryID, "err", err)
	} else if recorded {
		s.stash[entryID] = entry
		s.hist.RecordTrash(nil, []string{entryID})
	}
	s.notify(event.OpRestore, "restore "+entryID, map[string]string{"path": p.String(), "trash_id": entryID})
	return p, nil
}

package editor

import (
	"context"
	"fmt"

	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
	"github.com/gyaneshwarpardhi/dlgedit/internal/event"
	"github.com/gyaneshwarpardhi/dlgedit/internal/metrics"
)

// clipboard holds a detached copy of a subtree plus a reference to the node
// it was taken from, for paste-as-link. source is only usable while the live
// dialog contains it.
type clipboard struct {
	frag   *dialog.Fragment
	kind   dialog.Kind
	source *dialog.Node
	cut    bool
}

// ClipboardInfo describes the clipboard contents.
type ClipboardInfo struct {
	Kind  string `json:"kind"`
	Nodes int    `json:"nodes"`
	Cut   bool   `json:"cut"`
}

// rebind moves source onto d after undo or redo replaced the dialog.
func (c *clipboard) rebind(d *dialog.Dialog) {
	if c == nil {
		return
	}
	if n, ok := d.Counterpart(c.source); ok {
		c.source = n
	}
}

// Clipboard reports what is on the clipboard; ok is false when empty.
func (s *Session) Clipboard() (ClipboardInfo, bool) {
	if s.clip == nil {
		return ClipboardInfo{}, false
	}
	return ClipboardInfo{Kind: s.clip.kind.String(), Nodes: len(s.clip.frag.Nodes()), Cut: s.clip.cut}, true
}

// Copy clones the subtree at p onto the clipboard. The dialog is unchanged.
func (s *Session) Copy(p dialog.Path) error {
	c, err := s.copy(p)
	if err != nil {
		return s.reject(event.OpCopy, err)
	}
	s.clip = c
	return nil
}

func (s *Session) copy(p dialog.Path) (*clipboard, error) {
	e, err := s.edge(p)
	if err != nil {
		return nil, err
	}
	slot, ok := s.d.SlotOf(e.Target)
	if !ok {
		return nil, fmt.Errorf("copy %s: %w", p, dialog.ErrNotFound)
	}
	frag, err := dialog.CloneDetached(s.d, slot, s.opts.CloneMaxDepth)
	if err != nil {
		return nil, err
	}
	return &clipboard{frag: frag, kind: slot.Kind, source: e.Target}, nil
}

// Cut copies the subtree at p and then deletes the edge. When another
// strong edge still holds the node it survives in place and only this
// reference goes away; otherwise the node is swept with the edge and the
// clipboard can only be pasted as a copy.
func (s *Session) Cut(ctx context.Context, p dialog.Path) (DeleteResult, error) {
	c, err := s.copy(p)
	if err != nil {
		return DeleteResult{}, s.reject(event.OpCut, err)
	}
	res, err := s.delete(ctx, event.OpCut, p)
	if err != nil {
		return DeleteResult{}, err
	}
	c.cut = !s.d.Contains(c.source)
	s.clip = c
	return res, nil
}

// Paste commits a fresh copy of the clipboard under parent (the root list
// when empty). The clipboard can be pasted again.
func (s *Session) Paste(parent dialog.Path) (dialog.Path, error) {
	if s.clip == nil {
		return nil, s.reject(event.OpPaste, ErrClipboardEmpty)
	}
	pn, err := s.parentFor(parent)
	if err != nil {
		return nil, s.reject(event.OpPaste, err)
	}
	if err := placeable(pn, s.clip.kind); err != nil {
		return nil, s.reject(event.OpPaste, err)
	}
	frag := s.clip.frag.Copy()
	if err := dialog.CheckCommit(s.d, frag); err != nil {
		return nil, s.reject(event.OpPaste, err)
	}

	s.Checkpoint("paste")
	slot, err := dialog.Commit(s.d, frag)
	if err != nil {
		return nil, fmt.Errorf("paste: %w", err)
	}
	n, _ := s.d.NodeAt(slot)
	p, err := s.attach(parent, pn, n, false)
	if err != nil {
		return nil, fmt.Errorf("paste: %w", err)
	}
	metrics.ClonedNodes.Observe(float64(len(frag.Nodes())))
	s.notify(event.OpPaste, "paste", map[string]string{"path": p.String()})
	return p, nil
}

// PasteAsLink adds a link edge under parent to the node the clipboard was
// copied from. It is rejected once that node has been deleted.
func (s *Session) PasteAsLink(parent dialog.Path) (dialog.Path, error) {
	if s.clip == nil {
		return nil, s.reject(event.OpPasteLink, ErrClipboardEmpty)
	}
	if len(parent) == 0 {
		return nil, s.reject(event.OpPasteLink, restoreRejected("a link cannot be a conversation start"))
	}
	pn, err := s.parentFor(parent)
	if err != nil {
		return nil, s.reject(event.OpPasteLink, err)
	}
	target := s.clip.source
	if !s.d.Contains(target) {
		return nil, s.reject(event.OpPasteLink, restoreRejected("the copied node is no longer in the dialog"))
	}
	if err := placeable(pn, target.Kind); err != nil {
		return nil, s.reject(event.OpPasteLink, err)
	}

	s.Checkpoint("paste as link")
	p, err := s.attach(parent, pn, target, true)
	if err != nil {
		return nil, fmt.Errorf("paste as link: %w", err)
	}
	s.notify(event.OpPasteLink, "paste as link", map[string]string{"path": p.String()})
	return p, nil
}

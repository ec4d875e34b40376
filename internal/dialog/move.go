package dialog

import (
	"fmt"
	"strings"
)

// Position says where a dragged node lands relative to the drop target.
type Position int

const (
	Before Position = iota
	After
	Into
)

func (p Position) String() string {
	switch p {
	case Before:
		return "before"
	case After:
		return "after"
	case Into:
		return "into"
	}
	return fmt.Sprintf("position(%d)", int(p))
}

// ParsePosition maps "before", "after" and "into" to a Position.
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(s) {
	case "before":
		return Before, nil
	case "after":
		return After, nil
	case "into":
		return Into, nil
	}
	return 0, fmt.Errorf("unknown drop position %q", s)
}

// MoveResult is the placement computed for a valid move. Parent is nil when
// the node becomes a conversation start. Index is the insertion point in the
// parent's list after the source edge has been taken out.
type MoveResult struct {
	Parent *Node
	Index  int
}

// AtRoot reports whether the move lands in the root list.
func (r MoveResult) AtRoot() bool { return r.Parent == nil }

// ValidateMove checks whether the node reached through source may be dropped
// at target. It never mutates d. Rejections are checked in order: dropping on
// itself, dropping under its own strong descendant, dragging a link, and
// kind alternation against the computed new parent.
func ValidateMove(d *Dialog, source, target *Edge, pos Position) (MoveResult, error) {
	if source == nil || target == nil || source.Target == nil || target.Target == nil {
		return MoveResult{}, rejectMove("source or target does not resolve")
	}
	if d.edgeIndex(source) < 0 || d.edgeIndex(target) < 0 {
		return MoveResult{}, rejectMove("source or target is not part of this dialog")
	}
	if source == target || source.Target == target.Target {
		return MoveResult{}, rejectMove("cannot drop on itself")
	}
	if IsStrongDescendant(source.Target, target.Target) {
		return MoveResult{}, rejectMove("would create circular reference")
	}
	if source.IsLink {
		return MoveResult{}, rejectMove("drag the original node, not its link")
	}

	var res MoveResult
	switch pos {
	case Into:
		if target.IsLink {
			return MoveResult{}, rejectMove("cannot drop into a link; drop into the original node")
		}
		res.Parent = target.Target
		res.Index = len(target.Target.Edges)
	case Before, After:
		if !target.IsRoot {
			res.Parent = target.owner
		}
		res.Index = d.edgeIndex(target)
		if pos == After {
			res.Index++
		}
	default:
		return MoveResult{}, rejectMove(fmt.Sprintf("unknown drop position %d", int(pos)))
	}

	// Dropping next to a link can still put the node under its own subtree.
	if res.Parent != nil && (res.Parent == source.Target || IsStrongDescendant(source.Target, res.Parent)) {
		return MoveResult{}, rejectMove("would create circular reference")
	}

	kind := source.Target.Kind
	if res.Parent == nil {
		if kind != SpeakerLine {
			return MoveResult{}, rejectMove(fmt.Sprintf("a %s line cannot be a conversation start", kind))
		}
	} else if kind != res.Parent.Kind.Other() {
		return MoveResult{}, rejectMove(fmt.Sprintf("a %s line cannot be a child of a %s line", kind, res.Parent.Kind))
	}

	sameList := (res.Parent == nil && source.IsRoot) || (res.Parent != nil && !source.IsRoot && source.owner == res.Parent)
	if sameList && d.edgeIndex(source) < res.Index {
		res.Index--
	}
	return res, nil
}

// ApplyMove commits a validated move: source leaves its list and is inserted
// at res. The edge keeps its target, condition and registration.
func ApplyMove(d *Dialog, source *Edge, res MoveResult) error {
	defer d.begin()()
	from := source.owner
	if source.IsRoot {
		from = nil
	}
	at := d.edgeIndex(source)
	if at < 0 {
		return fmt.Errorf("apply move: %w", ErrNotFound)
	}
	// Check the insertion point against the list as it will be after unlink.
	dest := d.edgesOf(res.Parent)
	size := len(dest)
	if from == res.Parent {
		size--
	}
	if res.Index < 0 || res.Index > size {
		return fmt.Errorf("apply move: index %d of %d: %w", res.Index, size, ErrNotFound)
	}
	if err := d.unlink(source); err != nil {
		return err
	}
	dest = d.edgesOf(res.Parent)
	dest = append(dest, nil)
	copy(dest[res.Index+1:], dest[res.Index:])
	dest[res.Index] = source
	d.setEdges(res.Parent, dest)
	source.owner = res.Parent
	source.IsRoot = res.Parent == nil
	return nil
}

// Move validates and applies in one step.
func Move(d *Dialog, source, target *Edge, pos Position) (MoveResult, error) {
	res, err := ValidateMove(d, source, target, pos)
	if err != nil {
		return MoveResult{}, err
	}
	return res, ApplyMove(d, source, res)
}

// IsStrongDescendant reports whether target can be reached from n along
// strong edges.
func IsStrongDescendant(n, target *Node) bool {
	found := false
	Walk(n.Edges, StrongEdges, func(x *Node, _ *Edge, _ int) bool {
		if x == target {
			found = true
		}
		return !found
	})
	return found
}

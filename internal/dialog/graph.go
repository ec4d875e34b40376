// Package dialog is the conversation graph and the algorithms that keep it
// consistent under editing.
//
// A Dialog stores nodes in two flat lists, one per Kind, and addresses them
// by Slot. Edges carry the serialization-facing (TargetKind, Index) pair and
// a cached *Node; the pair is authoritative on load and the cache is
// authoritative while editing, with RecalculateIndices reconciling the two.
//
// # Thread Safety
//
// A Dialog is NOT safe for concurrent use. Mutators are non-reentrant and
// panic if called from inside another mutation.
package dialog

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

var lineageSeq atomic.Uint64

// Dialog is the graph container.
type Dialog struct {
	EndConversation string
	EndConverAbort  string
	PreventZoom     bool

	speakers  []*Node
	responses []*Node
	roots     []*Edge
	links     *LinkRegistry
	mutating  bool
}

// New allocates an empty Dialog.
func New() *Dialog {
	return &Dialog{links: NewLinkRegistry()}
}

// begin marks a mutation in flight. Call the returned func when done.
func (d *Dialog) begin() func() {
	if d.mutating {
		panic("dialog: mutation re-entered while another is in flight")
	}
	d.mutating = true
	return func() { d.mutating = false }
}

func (d *Dialog) list(k Kind) []*Node {
	if k == SpeakerLine {
		return d.speakers
	}
	return d.responses
}

func (d *Dialog) setList(k Kind, l []*Node) {
	if k == SpeakerLine {
		d.speakers = l
		return
	}
	d.responses = l
}

// Nodes returns the list for kind k. Callers must not modify it.
func (d *Dialog) Nodes(k Kind) []*Node { return d.list(k) }

// Roots returns the conversation starts. Callers must not modify it.
func (d *Dialog) Roots() []*Edge { return d.roots }

// Links returns the inbound-edge registry.
func (d *Dialog) Links() *LinkRegistry { return d.links }

// NodeCount returns the number of nodes across both lists.
func (d *Dialog) NodeCount() int { return len(d.speakers) + len(d.responses) }

// CreateNode appends an empty node of kind k and returns its slot.
func (d *Dialog) CreateNode(k Kind) Slot {
	defer d.begin()()
	n := &Node{Kind: k, Text: LocString{StrRef: NoStrRef}}
	d.insertNode(n)
	return Slot{Kind: k, Index: n.pos}
}

func (d *Dialog) insertNode(n *Node) {
	if n.lineage == 0 {
		n.lineage = lineageSeq.Add(1)
	}
	l := d.list(n.Kind)
	n.pos = len(l)
	d.setList(n.Kind, append(l, n))
}

// NodeAt returns the node stored at s.
func (d *Dialog) NodeAt(s Slot) (*Node, error) {
	n := d.lookup(s.Kind, s.Index)
	if n == nil {
		return nil, fmt.Errorf("node %s: %w", s, ErrNotFound)
	}
	return n, nil
}

func (d *Dialog) lookup(k Kind, i int) *Node {
	l := d.list(k)
	if i < 0 || i >= len(l) {
		return nil
	}
	return l[i]
}

// Contains reports whether n is currently stored in d.
func (d *Dialog) Contains(n *Node) bool {
	return n != nil && d.lookup(n.Kind, n.pos) == n
}

// Counterpart returns the node in d that is n or a Clone copy of it.
func (d *Dialog) Counterpart(n *Node) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	if d.Contains(n) {
		return n, true
	}
	for _, c := range d.list(n.Kind) {
		if n.lineage != 0 && c.lineage == n.lineage {
			return c, true
		}
	}
	return nil, false
}

// SlotOf returns n's address, or false when n is not in d.
func (d *Dialog) SlotOf(n *Node) (Slot, bool) {
	if !d.Contains(n) {
		return Slot{}, false
	}
	return Slot{Kind: n.Kind, Index: n.pos}, true
}

// AppendEdge attaches e to the end of owner's edge list and registers it.
// A nil e.Target is resolved from (TargetKind, Index).
func (d *Dialog) AppendEdge(owner Slot, e *Edge) error {
	defer d.begin()()
	o, err := d.NodeAt(owner)
	if err != nil {
		return err
	}
	return d.attach(o, e, len(o.Edges))
}

// AppendRoot adds e as a conversation start.
func (d *Dialog) AppendRoot(e *Edge) error {
	defer d.begin()()
	return d.attach(nil, e, len(d.roots))
}

// attach inserts e at position at of owner's list (the root list when owner
// is nil) after checking the target and the kind pairing.
func (d *Dialog) attach(owner *Node, e *Edge, at int) error {
	edges := d.edgesOf(owner)
	if at < 0 || at > len(edges) {
		return fmt.Errorf("insert edge at %d of %d: %w", at, len(edges), ErrNotFound)
	}
	if e.Target == nil {
		t := d.lookup(e.TargetKind, e.Index)
		if t == nil {
			return integrityf(DanglingIndex, owner, at, "%s index %d out of range (len %d)",
				e.TargetKind, e.Index, len(d.list(e.TargetKind)))
		}
		e.Target = t
	} else if !d.Contains(e.Target) {
		return integrityf(StaleCache, owner, at, "target is not stored in this dialog")
	}
	e.TargetKind, e.Index = e.Target.Kind, e.Target.pos
	if owner == nil {
		if e.TargetKind != SpeakerLine {
			return integrityf(RootKind, nil, at, "root edge must point at a speaker line, got %s", e.TargetKind)
		}
	} else if e.TargetKind != owner.Kind.Other() {
		return integrityf(Alternation, owner, at, "%s line cannot point at a %s line", owner.Kind, e.TargetKind)
	}
	e.owner = owner
	e.IsRoot = owner == nil
	edges = append(edges, nil)
	copy(edges[at+1:], edges[at:])
	edges[at] = e
	d.setEdges(owner, edges)
	d.links.Register(e)
	return nil
}

func (d *Dialog) edgesOf(owner *Node) []*Edge {
	if owner == nil {
		return d.roots
	}
	return owner.Edges
}

func (d *Dialog) setEdges(owner *Node, edges []*Edge) {
	if owner == nil {
		d.roots = edges
		return
	}
	owner.Edges = edges
}

// edgeIndex returns e's position in its owner's list, or -1.
func (d *Dialog) edgeIndex(e *Edge) int {
	var edges []*Edge
	if e.IsRoot {
		edges = d.roots
	} else if e.owner != nil {
		edges = e.owner.Edges
	}
	for i, x := range edges {
		if x == e {
			return i
		}
	}
	return -1
}

// DetachEdge removes e from its owner's list and from the registry.
func (d *Dialog) DetachEdge(e *Edge) error {
	defer d.begin()()
	return d.detach(e)
}

func (d *Dialog) detach(e *Edge) error {
	if err := d.unlink(e); err != nil {
		return err
	}
	d.links.Unregister(e)
	return nil
}

// unlink takes e out of its owner's list but leaves registration alone.
func (d *Dialog) unlink(e *Edge) error {
	i := d.edgeIndex(e)
	if i < 0 {
		return fmt.Errorf("detach edge: %w", ErrNotFound)
	}
	owner := e.owner
	if e.IsRoot {
		owner = nil
	}
	edges := d.edgesOf(owner)
	edges = append(edges[:i:i], edges[i+1:]...)
	d.setEdges(owner, edges)
	e.owner = nil
	return nil
}

// RemoveNode deletes the node at s. Every inbound edge must already be
// detached; use DeleteNode to do both.
func (d *Dialog) RemoveNode(s Slot) error {
	defer d.begin()()
	n, err := d.NodeAt(s)
	if err != nil {
		return err
	}
	if c := d.links.Count(n); c > 0 {
		return integrityf(InboundEdges, n, -1, "%d inbound edge(s) still attached", c)
	}
	d.removeNode(n)
	return nil
}

// DeleteNode detaches every edge pointing at the node at s, then removes it.
func (d *Dialog) DeleteNode(s Slot) error {
	defer d.begin()()
	n, err := d.NodeAt(s)
	if err != nil {
		return err
	}
	for _, e := range d.links.Incoming(n) {
		if err := d.detach(e); err != nil {
			return fmt.Errorf("delete %s: %w", s, err)
		}
	}
	d.removeNode(n)
	return nil
}

// removeNode drops n's outgoing edges and its list entry, then hands the
// gap to the index manager.
func (d *Dialog) removeNode(n *Node) {
	for _, e := range n.Edges {
		d.links.Unregister(e)
		e.owner = nil
	}
	n.Edges = nil
	pos := n.pos
	l := d.list(n.Kind)
	d.setList(n.Kind, append(l[:pos:pos], l[pos+1:]...))
	n.pos = -1
	d.links.forget(n)
	d.renumber(n.Kind, pos)
}

// Path addresses a tree position: edge indices starting at the root list.
type Path []int

// String renders p as dot-separated indices, "0.2.1".
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, x := range p {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ".")
}

// ParsePath is the inverse of Path.String. The empty string is the empty path.
func ParsePath(s string) (Path, error) {
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, ".")
	p := make(Path, len(parts))
	for i, part := range parts {
		x, err := strconv.Atoi(part)
		if err != nil || x < 0 {
			return nil, fmt.Errorf("invalid path %q", s)
		}
		p[i] = x
	}
	return p, nil
}

// Child returns p extended by i, without aliasing p.
func (p Path) Child(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, i)
}

// EdgeAt resolves p. Paths never descend through a link edge, since a link's
// children belong to the original node.
func (d *Dialog) EdgeAt(p Path) (*Edge, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("empty path: %w", ErrNotFound)
	}
	edges := d.roots
	var e *Edge
	for depth, i := range p {
		if i < 0 || i >= len(edges) {
			return nil, fmt.Errorf("path %v at depth %d: %w", p, depth, ErrNotFound)
		}
		e = edges[i]
		if depth == len(p)-1 {
			break
		}
		if e.IsLink {
			return nil, fmt.Errorf("path %v descends through a link at depth %d: %w", p, depth, ErrNotFound)
		}
		if e.Target == nil {
			return nil, fmt.Errorf("path %v: unresolved edge at depth %d: %w", p, depth, ErrNotFound)
		}
		edges = e.Target.Edges
	}
	return e, nil
}

// eachEdge calls fn for every edge: roots first (owner nil), then speaker
// lines, then response lines.
func (d *Dialog) eachEdge(fn func(owner *Node, i int, e *Edge)) {
	for i, e := range d.roots {
		fn(nil, i, e)
	}
	for _, l := range [][]*Node{d.speakers, d.responses} {
		for _, n := range l {
			for i, e := range n.Edges {
				fn(n, i, e)
			}
		}
	}
}

// Clone returns a deep, independent copy of d. Edges whose cached target is
// not stored in d keep only their index.
func (d *Dialog) Clone() *Dialog {
	out := New()
	out.EndConversation = d.EndConversation
	out.EndConverAbort = d.EndConverAbort
	out.PreventZoom = d.PreventZoom
	for _, k := range []Kind{SpeakerLine, ResponseLine} {
		src := d.list(k)
		dst := make([]*Node, len(src))
		for i, n := range src {
			c := n.copyValues()
			c.CycleStub = n.CycleStub
			c.pos = i
			c.lineage = n.lineage
			dst[i] = c
		}
		out.setList(k, dst)
	}
	remap := func(owner *Node, e *Edge) *Edge {
		c := e.copyValues()
		c.owner = owner
		c.Target = nil
		if d.Contains(e.Target) {
			c.Target = out.list(e.Target.Kind)[e.Target.pos]
		}
		return c
	}
	for _, e := range d.roots {
		out.roots = append(out.roots, remap(nil, e))
	}
	for _, k := range []Kind{SpeakerLine, ResponseLine} {
		for i, n := range d.list(k) {
			c := out.list(k)[i]
			for _, e := range n.Edges {
				c.Edges = append(c.Edges, remap(c, e))
			}
		}
	}
	out.links.rebuild(out)
	return out
}

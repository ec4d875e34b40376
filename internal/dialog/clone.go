package dialog

import "fmt"

// DefaultCloneDepth is the recursion bound for CloneSubtree.
const DefaultCloneDepth = 100

// Fragment is a cloned subtree that is not stored in any dialog yet.
// Strong edges inside it point at fragment nodes; link edges keep pointing
// at the nodes they shared in the source dialog.
type Fragment struct {
	Root  *Node
	nodes []*Node
}

// Nodes returns the fragment's nodes in creation order, root first.
func (f *Fragment) Nodes() []*Node { return f.nodes }

type cloner struct {
	maxDepth int
	subtree  map[*Node]struct{}
	seen     map[*Node]bool
	nodes    []*Node
}

// CloneDetached deep-copies the subtree rooted at s without touching d.
// Recursing deeper than maxDepth fails with ErrCloneDepthExceeded.
//
// Back-references become terminal stubs: a node met a second time in the
// same pass, or a link pointing back into the subtree, is copied as a
// childless CycleStub owned by a strong edge. Conversation loops therefore
// clone without failing. Links leaving the subtree keep pointing at the
// original shared node.
func CloneDetached(d *Dialog, s Slot, maxDepth int) (*Fragment, error) {
	src, err := d.NodeAt(s)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = DefaultCloneDepth
	}
	c := &cloner{
		maxDepth: maxDepth,
		subtree:  Walk(src.Edges, StrongEdges, nil),
		seen:     make(map[*Node]bool),
	}
	c.subtree[src] = struct{}{}
	root, err := c.clone(src, 0)
	if err != nil {
		return nil, fmt.Errorf("clone %s: %w", s, err)
	}
	return &Fragment{Root: root, nodes: c.nodes}, nil
}

func (c *cloner) clone(n *Node, depth int) (*Node, error) {
	if depth > c.maxDepth {
		return nil, fmt.Errorf("%w: deeper than %d", ErrCloneDepthExceeded, c.maxDepth)
	}
	if c.seen[n] {
		return c.stub(n), nil
	}
	c.seen[n] = true
	cp := n.copyValues()
	c.nodes = append(c.nodes, cp)
	for _, e := range n.Edges {
		ce := e.copyValues()
		ce.owner = cp
		if e.IsLink {
			if _, inside := c.subtree[e.Target]; inside {
				ce.IsLink = false
				ce.Target = c.stub(e.Target)
			}
		} else if e.Target != nil {
			t, err := c.clone(e.Target, depth+1)
			if err != nil {
				return nil, err
			}
			ce.Target = t
		}
		cp.Edges = append(cp.Edges, ce)
	}
	return cp, nil
}

func (c *cloner) stub(n *Node) *Node {
	stub := n.copyValues()
	stub.CycleStub = true
	c.nodes = append(c.nodes, stub)
	return stub
}

// Copy returns an independent duplicate of f, so one clipboard fragment can
// be pasted several times.
func (f *Fragment) Copy() *Fragment {
	remap := make(map[*Node]*Node, len(f.nodes))
	out := &Fragment{nodes: make([]*Node, 0, len(f.nodes))}
	for _, n := range f.nodes {
		c := n.copyValues()
		c.CycleStub = n.CycleStub
		remap[n] = c
		out.nodes = append(out.nodes, c)
	}
	for _, n := range f.nodes {
		c := remap[n]
		for _, e := range n.Edges {
			ce := e.copyValues()
			ce.owner = c
			if t, ok := remap[e.Target]; ok {
				ce.Target = t
			}
			c.Edges = append(c.Edges, ce)
		}
	}
	out.Root = remap[f.Root]
	return out
}

// Commit stores every fragment node in d and registers its edges, returning
// the root's slot. The root is left unattached; the caller hangs it
// somewhere. Link targets that are no longer stored in d are matched to
// their copies in d (after an undo swapped the dialog); if one has no copy
// nothing is committed.
func Commit(d *Dialog, f *Fragment) (Slot, error) {
	defer d.begin()()
	external, err := resolveExternal(d, f)
	if err != nil {
		return Slot{}, err
	}
	for _, n := range f.nodes {
		d.insertNode(n)
	}
	for _, n := range f.nodes {
		for _, e := range n.Edges {
			if t, ok := external[e]; ok {
				e.Target = t
			}
			e.owner = n
			e.IsRoot = false
			e.TargetKind, e.Index = e.Target.Kind, e.Target.pos
			d.links.Register(e)
		}
	}
	return Slot{Kind: f.Root.Kind, Index: f.Root.pos}, nil
}

// CheckCommit reports the error Commit would return, without mutating d.
func CheckCommit(d *Dialog, f *Fragment) error {
	_, err := resolveExternal(d, f)
	return err
}

// resolveExternal maps every fragment edge that leaves the fragment to the
// node it will point at in d.
func resolveExternal(d *Dialog, f *Fragment) (map[*Edge]*Node, error) {
	inFragment := make(map[*Node]bool, len(f.nodes))
	for _, n := range f.nodes {
		inFragment[n] = true
	}
	external := make(map[*Edge]*Node)
	for _, n := range f.nodes {
		for i, e := range n.Edges {
			switch {
			case inFragment[e.Target]:
			case d.Contains(e.Target):
				external[e] = e.Target
			default:
				t, ok := d.Counterpart(e.Target)
				if !ok {
					return nil, integrityf(DanglingIndex, nil, i,
						"fragment edge to %s#%d does not resolve", e.TargetKind, e.Index)
				}
				external[e] = t
			}
		}
	}
	return external, nil
}

// CloneSubtree deep-copies the subtree at s into d and returns the new
// root's slot. The new root has no inbound edge yet.
func CloneSubtree(d *Dialog, s Slot) (Slot, error) {
	f, err := CloneDetached(d, s, DefaultCloneDepth)
	if err != nil {
		return Slot{}, err
	}
	return Commit(d, f)
}

package dialog

// LinkRegistry answers "who points at node X" without scanning the graph.
// It is keyed by the edge's cached target, so an edge must be unregistered
// before its Target changes and registered again afterwards.
type LinkRegistry struct {
	incoming map[*Node][]*Edge
}

// NewLinkRegistry allocates an empty registry.
func NewLinkRegistry() *LinkRegistry {
	return &LinkRegistry{incoming: make(map[*Node][]*Edge)}
}

// Register records e as an inbound edge of its target. Edges without a
// resolved target are ignored.
func (r *LinkRegistry) Register(e *Edge) {
	if e.Target == nil {
		return
	}
	for _, x := range r.incoming[e.Target] {
		if x == e {
			return
		}
	}
	r.incoming[e.Target] = append(r.incoming[e.Target], e)
}

// Unregister removes e from its target's inbound list.
func (r *LinkRegistry) Unregister(e *Edge) {
	if e.Target == nil {
		return
	}
	list := r.incoming[e.Target]
	for i, x := range list {
		if x == e {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.incoming, e.Target)
		return
	}
	r.incoming[e.Target] = list
}

// Incoming returns the edges currently pointing at n, roots included.
// The slice is a copy.
func (r *LinkRegistry) Incoming(n *Node) []*Edge {
	list := r.incoming[n]
	out := make([]*Edge, len(list))
	copy(out, list)
	return out
}

// Count returns the number of edges pointing at n.
func (r *LinkRegistry) Count(n *Node) int { return len(r.incoming[n]) }

// forget drops every record about n as a target.
func (r *LinkRegistry) forget(n *Node) { delete(r.incoming, n) }

// rebuild recomputes the registry from the graph's edge lists.
func (r *LinkRegistry) rebuild(d *Dialog) {
	r.incoming = make(map[*Node][]*Edge)
	d.eachEdge(func(_ *Node, _ int, e *Edge) {
		r.Register(e)
	})
}

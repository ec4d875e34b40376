package dialog

// ReachableSet returns the slots reachable from the roots along strong
// edges. A node referenced only by links is not in the set.
func ReachableSet(d *Dialog) map[Slot]struct{} {
	seen := reachable(d, nil)
	out := make(map[Slot]struct{}, len(seen))
	for n := range seen {
		if s, ok := d.SlotOf(n); ok {
			out[s] = struct{}{}
		}
	}
	return out
}

// reachable walks strong edges from the roots, ignoring every edge that
// leaves or enters a node in skip.
func reachable(d *Dialog, skip map[*Node]bool) map[*Node]struct{} {
	follow := func(e *Edge) bool {
		if e.IsLink {
			return false
		}
		return !skip[e.owner] && !skip[e.Target]
	}
	return Walk(d.roots, follow, nil)
}

// IncomingEdgeCount returns how many edges, links and roots included, point
// at the node at s. A count above one means some other holder keeps the
// node alive when one reference is cut.
func IncomingEdgeCount(d *Dialog, s Slot) int {
	n, err := d.NodeAt(s)
	if err != nil {
		return 0
	}
	return d.links.Count(n)
}

// OrphanedLinkChildren returns the nodes outside deleting that would stop
// being reachable if deleting were removed while still being pointed at by
// a link from a surviving node. Such nodes must be removed too, otherwise
// the surviving links resolve to nothing once saved. With an empty deleting
// set it reports the link-only orphans already present.
func OrphanedLinkChildren(d *Dialog, deleting []Slot) []Slot {
	gone := make(map[*Node]bool, len(deleting))
	for _, s := range deleting {
		if n := d.lookup(s.Kind, s.Index); n != nil {
			gone[n] = true
		}
	}
	return linkOrphans(d, gone, reachable(d, gone), nil)
}

// EdgeOrphans is OrphanedLinkChildren for the removal of a single edge: it
// reports every node, at any depth below e, that RemoveOrphans would sweep
// after e is detached while a surviving link still points at it. The node e
// itself points at is not reported.
func EdgeOrphans(d *Dialog, e *Edge) []Slot {
	live := Walk(d.roots, func(x *Edge) bool { return !x.IsLink && x != e }, nil)
	gone := make(map[*Node]bool, 1)
	if !e.IsLink {
		if _, ok := live[e.Target]; !ok {
			gone[e.Target] = true
		}
	}
	return linkOrphans(d, gone, live, e)
}

// linkOrphans lists the nodes that are neither gone nor live but have an
// inbound link, other than cut, from a live node.
func linkOrphans(d *Dialog, gone map[*Node]bool, live map[*Node]struct{}, cut *Edge) []Slot {
	var out []Slot
	for _, k := range []Kind{SpeakerLine, ResponseLine} {
		for _, n := range d.list(k) {
			if gone[n] {
				continue
			}
			if _, ok := live[n]; ok {
				continue
			}
			for _, in := range d.links.Incoming(n) {
				if in == cut || !in.IsLink || in.owner == nil {
					continue
				}
				if _, ok := live[in.owner]; ok {
					out = append(out, Slot{Kind: k, Index: n.pos})
					break
				}
			}
		}
	}
	return out
}

// RemoveOrphans deletes every node not reachable from the roots along strong
// edges. Edges into an orphan are detached first (including links from live
// nodes), then its own edges, then its list entry. The removed nodes are
// returned value-only, in removal order.
func RemoveOrphans(d *Dialog) []*Node {
	defer d.begin()()
	live := reachable(d, nil)
	var doomed []*Node
	for _, k := range []Kind{SpeakerLine, ResponseLine} {
		for _, n := range d.list(k) {
			if _, ok := live[n]; !ok {
				doomed = append(doomed, n)
			}
		}
	}
	for _, n := range doomed {
		for _, e := range d.links.Incoming(n) {
			if err := d.detach(e); err != nil {
				// Not in any list; only the registry still knows it.
				d.links.Unregister(e)
			}
		}
	}
	for _, n := range doomed {
		d.removeNode(n)
	}
	return doomed
}

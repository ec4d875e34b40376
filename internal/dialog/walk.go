package dialog

// EdgeFilter decides whether a traversal follows an edge.
type EdgeFilter func(e *Edge) bool

// StrongEdges follows structural edges only.
func StrongEdges(e *Edge) bool { return !e.IsLink }

// AllEdges follows every edge, links included.
func AllEdges(*Edge) bool { return true }

// Visitor is called once per node, on first arrival, with the edge that
// reached it and the depth below the starting edges. Returning false stops
// the walk from descending into that node.
type Visitor func(n *Node, via *Edge, depth int) bool

// Walk runs a depth-first traversal from the given edges and returns the set
// of nodes it reached. The visited set bounds the work: a node is entered
// once and never re-descended, so cycles terminate.
func Walk(from []*Edge, follow EdgeFilter, visit Visitor) map[*Node]struct{} {
	seen := make(map[*Node]struct{})
	var dfs func(edges []*Edge, depth int)
	dfs = func(edges []*Edge, depth int) {
		for _, e := range edges {
			if e.Target == nil || !follow(e) {
				continue
			}
			n := e.Target
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			if visit != nil && !visit(n, e, depth) {
				continue
			}
			dfs(n.Edges, depth+1)
		}
	}
	dfs(from, 0)
	return seen
}

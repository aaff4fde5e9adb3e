package digraph

// BackLinkMap maps a node ID to the IDs of edges that target the node from
// outside its own subtree, in edge traversal order without duplicates.
type BackLinkMap map[string][]string

// Get returns the back-edge IDs for nodeID.
func (m BackLinkMap) Get(nodeID string) []string { return m[nodeID] }

// Has reports whether edgeID is a back edge of nodeID.
func (m BackLinkMap) Has(nodeID, edgeID string) bool {
	for _, id := range m[nodeID] {
		if id == edgeID {
			return true
		}
	}
	return false
}

// BackLinks builds the back-link index of g.
//
// An edge is a back link of its target when its source is neither the target
// itself nor one of the target's descendants. Self-loops and edges from a
// child into an enclosing state therefore never reserve a port.
func BackLinks(g *Graph) BackLinkMap {
	m := make(BackLinkMap)
	seen := make(map[string]bool)
	for _, e := range g.Edges() {
		if e.IsSelfLoop() || g.IsDescendant(e.Source, e.Target) {
			continue
		}
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		m[e.Target] = append(m[e.Target], e.ID)
	}
	return m
}

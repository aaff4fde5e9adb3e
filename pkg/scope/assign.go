package scope

import "github.com/matzehuels/statelayout/pkg/digraph"

// Assignment maps scopes to the edges they route and edges back to their
// scope. Every edge of the graph is in exactly one bucket.
type Assignment struct {
	buckets map[Scope][]*digraph.Edge
	byEdge  map[string]Scope
	order   []Scope
}

// Assign computes the scope of every edge in g.
//
// Edges are visited in pre-order by nesting and, within one level, in
// declaration order, so buckets are deterministic for a given graph.
// It fails fast with ErrUnknownNode if an edge endpoint is missing.
func Assign(g *digraph.Graph) (*Assignment, error) {
	edges := g.Edges()
	a := &Assignment{
		buckets: make(map[Scope][]*digraph.Edge),
		byEdge:  make(map[string]Scope, len(edges)),
	}
	for _, e := range edges {
		s, err := LCA(g, e.Source, e.Target)
		if err != nil {
			return nil, err
		}
		if _, ok := a.buckets[s]; !ok {
			a.order = append(a.order, s)
		}
		a.buckets[s] = append(a.buckets[s], e)
		a.byEdge[e.ID] = s
	}
	return a, nil
}

// Edges returns the edges routed in scope s, or nil.
func (a *Assignment) Edges(s Scope) []*digraph.Edge { return a.buckets[s] }

// ScopeOf returns the scope of the edge with the given ID.
func (a *Assignment) ScopeOf(edgeID string) (Scope, bool) {
	s, ok := a.byEdge[edgeID]
	return s, ok
}

// Scopes returns the non-empty scopes in first-seen order.
func (a *Assignment) Scopes() []Scope { return a.order }

// Len returns the number of assigned edges.
func (a *Assignment) Len() int { return len(a.byEdge) }

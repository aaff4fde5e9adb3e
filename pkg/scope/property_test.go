package scope

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/matzehuels/statelayout/pkg/digraph"
)

// randomGraph builds a nesting tree where node i (i >= 1) hangs below node
// parents[i-1] % i, plus one edge per entry of ends (pairs of node indexes).
func randomGraph(parents []int, ends []int) *digraph.Graph {
	g, _ := digraph.New(digraph.Node{ID: "n0"})
	for i, p := range parents {
		_ = g.AddNode(fmt.Sprintf("n%d", p%(i+1)), digraph.Node{ID: fmt.Sprintf("n%d", i+1)})
	}
	n := len(parents) + 1
	for i := 0; i+1 < len(ends); i += 2 {
		_ = g.AddEdge(digraph.Edge{
			ID:     fmt.Sprintf("e%d", i/2),
			Source: fmt.Sprintf("n%d", ends[i]%n),
			Target: fmt.Sprintf("n%d", ends[i+1]%n),
		})
	}
	return g
}

// TestScopeProperties verifies LCA and assignment invariants on random trees.
func TestScopeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	treeGen := gen.SliceOfN(12, gen.IntRange(0, 1000))
	endsGen := gen.SliceOfN(24, gen.IntRange(0, 1000))

	properties.Property("LCA is symmetric for nodes not nested in one another", prop.ForAll(
		func(parents, ends []int) bool {
			g := randomGraph(parents, ends)
			for _, a := range g.Nodes() {
				for _, b := range g.Nodes() {
					if a.ID == b.ID || g.IsDescendant(a.ID, b.ID) || g.IsDescendant(b.ID, a.ID) {
						continue
					}
					ab, err1 := LCA(g, a.ID, b.ID)
					ba, err2 := LCA(g, b.ID, a.ID)
					if err1 != nil || err2 != nil || ab != ba {
						return false
					}
				}
			}
			return true
		},
		treeGen, endsGen,
	))

	properties.Property("self-loop scope is the parent scope", prop.ForAll(
		func(parents, ends []int) bool {
			g := randomGraph(parents, ends)
			for _, n := range g.Nodes() {
				s, err := LCA(g, n.ID, n.ID)
				if err != nil {
					return false
				}
				want := Root
				if n.Parent != "" && n.Parent != g.Root().ID {
					want = Node(n.Parent)
				}
				if s != want {
					return false
				}
			}
			return true
		},
		treeGen, endsGen,
	))

	properties.Property("scope encloses both endpoints", prop.ForAll(
		func(parents, ends []int) bool {
			g := randomGraph(parents, ends)
			for _, e := range g.Edges() {
				s, err := LCA(g, e.Source, e.Target)
				if err != nil {
					return false
				}
				id, ok := s.NodeID()
				if !ok {
					continue
				}
				inside := func(n string) bool { return n == id || g.IsDescendant(n, id) }
				if !inside(e.Source) || !inside(e.Target) {
					return false
				}
			}
			return true
		},
		treeGen, endsGen,
	))

	properties.Property("every edge lands in exactly one bucket", prop.ForAll(
		func(parents, ends []int) bool {
			g := randomGraph(parents, ends)
			a, err := Assign(g)
			if err != nil {
				return false
			}
			seen := make(map[string]int)
			for _, s := range a.Scopes() {
				for _, e := range a.Edges(s) {
					seen[e.ID]++
					if got, _ := a.ScopeOf(e.ID); got != s {
						return false
					}
				}
			}
			if len(seen) != g.EdgeCount() || a.Len() != g.EdgeCount() {
				return false
			}
			for _, c := range seen {
				if c != 1 {
					return false
				}
			}
			return true
		},
		treeGen, endsGen,
	))

	properties.TestingRun(t)
}

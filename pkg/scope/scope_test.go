package scope

import (
	"errors"
	"testing"

	"github.com/matzehuels/statelayout/pkg/digraph"
)

// newTree builds a graph from parent/child pairs; the first pair's parent is
// the graph root.
func newTree(t *testing.T, pairs ...[2]string) *digraph.Graph {
	t.Helper()
	g, err := digraph.New(digraph.Node{ID: pairs[0][0]})
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range pairs {
		if err := g.AddNode(p[0], digraph.Node{ID: p[1]}); err != nil {
			t.Fatalf("AddNode(%s, %s): %v", p[0], p[1], err)
		}
	}
	return g
}

func TestScopeValues(t *testing.T) {
	if !Root.IsRoot() || !Node("").IsRoot() {
		t.Error("Root and Node(\"\") should be the root scope")
	}
	var zero Scope
	if zero != Root {
		t.Error("zero Scope should equal Root")
	}
	if id, ok := Node("a").NodeID(); !ok || id != "a" {
		t.Errorf("NodeID = %q, %v", id, ok)
	}
	if _, ok := Root.NodeID(); ok {
		t.Error("Root.NodeID should report false")
	}
	if Root.String() != "<root>" || Node("a").String() != "a" {
		t.Errorf("String = %q, %q", Root.String(), Node("a").String())
	}
}

func TestLCA(t *testing.T) {
	//	m
	//	├── p
	//	│   ├── x
	//	│   └── y
	//	│       └── y1
	//	└── q
	//	    └── z
	g := newTree(t,
		[2]string{"m", "p"}, [2]string{"p", "x"}, [2]string{"p", "y"},
		[2]string{"y", "y1"}, [2]string{"m", "q"}, [2]string{"q", "z"},
	)

	tests := []struct {
		name string
		a, b string
		want Scope
	}{
		{"TopLevelSiblings", "p", "q", Root},
		{"NestedSiblings", "x", "y", Node("p")},
		{"DeepToShallow", "y1", "x", Node("p")},
		{"AcrossBranches", "y1", "z", Root},
		{"SelfLoopLeaf", "z", "z", Node("q")},
		{"SelfLoopTopLevel", "q", "q", Root},
		{"SelfLoopRoot", "m", "m", Root},
		{"ChildToContainer", "y1", "y", Node("y")},
		{"ContainerToChild", "y", "y1", Node("p")},
		{"FromRoot", "m", "x", Root},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LCA(g, tt.a, tt.b)
			if err != nil {
				t.Fatalf("LCA error: %v", err)
			}
			if got != tt.want {
				t.Errorf("LCA(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLCAUnknownNode(t *testing.T) {
	g := newTree(t, [2]string{"m", "a"})
	for _, pair := range [][2]string{{"a", "ghost"}, {"ghost", "a"}} {
		if _, err := LCA(g, pair[0], pair[1]); !errors.Is(err, ErrUnknownNode) {
			t.Errorf("LCA(%s, %s) error = %v, want %v", pair[0], pair[1], err, ErrUnknownNode)
		}
	}
}

func TestAssignTopLevelEdge(t *testing.T) {
	g := newTree(t, [2]string{"m", "A"}, [2]string{"m", "B"})
	mustEdge(t, g, digraph.Edge{ID: "A->B", Source: "A", Target: "B"})

	a, err := Assign(g)
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Edges(Root); len(got) != 1 || got[0].ID != "A->B" {
		t.Errorf("root bucket = %v, want [A->B]", ids(got))
	}
	for _, n := range []string{"A", "B"} {
		if got := a.Edges(Node(n)); len(got) != 0 {
			t.Errorf("bucket %s = %v, want empty", n, ids(got))
		}
	}
}

func TestAssignCompositeEdge(t *testing.T) {
	g := newTree(t, [2]string{"m", "P"}, [2]string{"P", "X"}, [2]string{"P", "Y"})
	mustEdge(t, g, digraph.Edge{ID: "X->Y", Source: "X", Target: "Y"})

	a, err := Assign(g)
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := a.ScopeOf("X->Y"); s != Node("P") {
		t.Errorf("ScopeOf(X->Y) = %v, want P", s)
	}
	if got := a.Edges(Node("P")); len(got) != 1 {
		t.Errorf("P bucket = %v, want one edge", ids(got))
	}
	if got := a.Edges(Root); len(got) != 0 {
		t.Errorf("root bucket = %v, want empty", ids(got))
	}
}

func TestAssignSelfLoop(t *testing.T) {
	g := newTree(t, [2]string{"m", "Q"}, [2]string{"Q", "Z"})
	mustEdge(t, g, digraph.Edge{ID: "Z->Z", Source: "Z", Target: "Z"})

	a, err := Assign(g)
	if err != nil {
		t.Fatal(err)
	}
	if s, ok := a.ScopeOf("Z->Z"); !ok || s != Node("Q") {
		t.Errorf("ScopeOf(Z->Z) = %v, %v; want Q", s, ok)
	}
	if len(a.Edges(Node("Z"))) != 0 {
		t.Error("self-loop must not be routed inside its own node")
	}
}

func TestAssignOrder(t *testing.T) {
	g := newTree(t, [2]string{"m", "P"}, [2]string{"P", "X"}, [2]string{"P", "Y"}, [2]string{"m", "R"})
	mustEdge(t, g, digraph.Edge{ID: "R->P", Source: "R", Target: "P"})
	mustEdge(t, g, digraph.Edge{ID: "Y->X", Source: "Y", Target: "X"})
	mustEdge(t, g, digraph.Edge{ID: "X->Y", Source: "X", Target: "Y"})
	mustEdge(t, g, digraph.Edge{ID: "X->R", Source: "X", Target: "R"})

	a, err := Assign(g)
	if err != nil {
		t.Fatal(err)
	}

	// Pre-order by owner: X (X->Y, X->R), Y (Y->X), R (R->P).
	if got, want := ids(a.Edges(Node("P"))), "X->Y,Y->X"; got != want {
		t.Errorf("P bucket = %s, want %s", got, want)
	}
	if got, want := ids(a.Edges(Root)), "X->R,R->P"; got != want {
		t.Errorf("root bucket = %s, want %s", got, want)
	}
	if got := a.Scopes(); len(got) != 2 || got[0] != Node("P") || got[1] != Root {
		t.Errorf("Scopes = %v", got)
	}
	if a.Len() != 4 {
		t.Errorf("Len = %d, want 4", a.Len())
	}
}

func mustEdge(t *testing.T, g *digraph.Graph, e digraph.Edge) {
	t.Helper()
	if err := g.AddEdge(e); err != nil {
		t.Fatalf("AddEdge %s: %v", e.ID, err)
	}
}

func ids(edges []*digraph.Edge) string {
	s := ""
	for i, e := range edges {
		if i > 0 {
			s += ","
		}
		s += e.ID
	}
	return s
}

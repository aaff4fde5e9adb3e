// Package scope assigns every edge of a nested graph to the narrowest
// enclosing node (its lowest common ancestor) that can route it.
//
// Scopes are explicit tagged values: [Root] for the implicit top-level scope
// that encloses the whole machine, and [Node] for a scope owned by a nested
// graph node. The graph root node is the machine itself, so its scope is
// always reported as Root. The zero Scope is the root scope, which makes
// Scope usable as a map key without a nil sentinel.
package scope

import (
	"errors"
	"fmt"

	"github.com/matzehuels/statelayout/pkg/digraph"
)

// ErrUnknownNode is returned when an edge endpoint is not part of the
// nesting tree.
var ErrUnknownNode = errors.New("scope: unknown node")

// Scope is either the root scope or the scope of one graph node.
type Scope struct {
	id string
}

// Root is the implicit scope enclosing the whole graph.
var Root = Scope{}

// Node returns the scope owned by the graph node id.
// Node("") is the root scope.
func Node(id string) Scope { return Scope{id: id} }

// IsRoot reports whether s is the root scope.
func (s Scope) IsRoot() bool { return s.id == "" }

// NodeID returns the owning node ID. ok is false for the root scope.
func (s Scope) NodeID() (id string, ok bool) { return s.id, s.id != "" }

func (s Scope) String() string {
	if s.IsRoot() {
		return "<root>"
	}
	return s.id
}

// LCA returns the lowest common ancestor scope of the source a and target b.
//
// The strict ancestors of a are collected first, then b and its ancestors are
// walked until one of them is found. A self-loop (a == b) belongs to the scope
// of the node's parent, so it is laid out alongside the sibling edges of that
// node. If the chains never meet the root scope is returned.
//
// For nodes that are not nested in one another LCA is symmetric. When a
// contains b the result is the scope around a, while LCA(b, a) is a itself.
func LCA(g *digraph.Graph, a, b string) (Scope, error) {
	na, ok := g.Node(a)
	if !ok {
		return Root, fmt.Errorf("%w: %q", ErrUnknownNode, a)
	}
	if _, ok := g.Node(b); !ok {
		return Root, fmt.Errorf("%w: %q", ErrUnknownNode, b)
	}

	if a == b {
		return nodeScope(g, na.Parent), nil
	}

	seen := make(map[string]struct{})
	for _, id := range g.Ancestors(a) {
		seen[id] = struct{}{}
	}
	// b itself counts: a may be nested inside b.
	for cur := b; cur != ""; {
		if _, hit := seen[cur]; hit {
			return nodeScope(g, cur), nil
		}
		n, _ := g.Node(cur)
		cur = n.Parent
	}
	return Root, nil
}

func nodeScope(g *digraph.Graph, id string) Scope {
	if id == "" || id == g.Root().ID {
		return Root
	}
	return Node(id)
}

package graph

import (
	"errors"
	"fmt"
	"maps"

	"github.com/matzehuels/statelayout/pkg/digraph"
	"github.com/matzehuels/statelayout/pkg/geo"
	"github.com/matzehuels/statelayout/pkg/scope"
)

// ErrNotLaidOut is returned by [Export] when the graph root carries no layout
// record.
var ErrNotLaidOut = errors.New("graph has no layout")

// Export flattens the layout records on g into a Layout. engine is recorded as
// provenance only.
//
// Nodes without a record (added after the last pass) get an empty box at
// their parent's origin; edges without a record get no sections.
func Export(g *digraph.Graph, engine string) (Layout, error) {
	root := g.Root()
	rootLayout, ok := g.NodeLayout(root.ID)
	if !ok {
		return Layout{}, fmt.Errorf("%w: %s", ErrNotLaidOut, root.ID)
	}
	asg, err := scope.Assign(g)
	if err != nil {
		return Layout{}, err
	}

	out := Layout{
		Version:    Version,
		Root:       root.ID,
		Engine:     engine,
		Generation: g.AppliedGeneration(),
		Width:      rootLayout.Width,
		Height:     rootLayout.Height,
		Nodes:      make([]Node, 0, g.NodeCount()),
		Edges:      make([]Edge, 0, g.EdgeCount()),
	}

	absolute := make(map[string]geo.Point, g.NodeCount())
	g.Walk(func(n *digraph.Node, _ int) bool {
		rec, _ := g.NodeLayout(n.ID)
		abs := absolute[n.Parent].Add(geo.Point{X: rec.X, Y: rec.Y})
		absolute[n.ID] = abs

		out.Nodes = append(out.Nodes, Node{
			ID:       n.ID,
			Label:    n.DisplayLabel(),
			Parent:   n.Parent,
			Box:      geo.Rect{X: rec.X, Y: rec.Y, Width: rec.Width, Height: rec.Height},
			Absolute: abs,
			Details:  details(n.Meta),
			Meta:     exportMeta(n.Meta),
		})
		return true
	})

	for _, e := range g.Edges() {
		geom, _ := g.EdgeGeometry(e.ID)
		s, _ := asg.ScopeOf(e.ID)
		scopeID, _ := s.NodeID()

		sections := geom.Sections
		if sections == nil {
			sections = []geo.Section{}
		}
		out.Edges = append(out.Edges, Edge{
			ID:            e.ID,
			Source:        e.Source,
			Target:        e.Target,
			Label:         e.Label,
			Scope:         scopeID,
			Sections:      sections,
			LabelPosition: geom.Label,
			Meta:          exportMeta(e.Meta),
		})
	}
	return out, nil
}

func details(m digraph.Metadata) []string {
	switch v := m[digraph.MetaDetails].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// exportMeta copies m without the keys Export lifts into dedicated fields.
func exportMeta(m digraph.Metadata) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := maps.Clone(map[string]any(m))
	delete(out, digraph.MetaDetails)
	if len(out) == 0 {
		return nil
	}
	return out
}

package layout

import (
	"errors"
	"fmt"

	"github.com/matzehuels/statelayout/pkg/digraph"
	"github.com/matzehuels/statelayout/pkg/engine"
	"github.com/matzehuels/statelayout/pkg/geo"
	"github.com/matzehuels/statelayout/pkg/scope"
)

var (
	// ErrUnknownResultNode is returned when the engine result contains a
	// node that is not part of the graph.
	ErrUnknownResultNode = errors.New("layout: result node not in graph")

	// ErrUnknownResultEdge is returned when the engine result contains an
	// edge that is not part of the graph.
	ErrUnknownResultEdge = errors.New("layout: result edge not in graph")
)

// Translate converts an engine result into absolute coordinates and stages
// the layout records of every node and edge on w.
//
// result is either the synthetic root returned for a [Builder.Request] or the
// result node of the graph root itself. Node records keep the engine's
// parent-relative offsets; ResultNode.Absolute is set on every visited node.
// Edge sections and label positions are shifted by the absolute origin of the
// edge's scope, so all edge geometry written to w is absolute.
//
// g is the graph the request was built from. It may be a snapshot of the
// graph that w belongs to.
func Translate(g *digraph.Graph, asg *scope.Assignment, result *engine.ResultNode, w *digraph.Writer) error {
	t := &translator{
		g:        g,
		asg:      asg,
		w:        w,
		absolute: make(map[string]geo.Point, g.NodeCount()),
	}

	if result.ID != SyntheticRootID {
		return t.node(result, geo.Point{})
	}

	// Root-scope edges first; their coordinates are already absolute.
	for _, e := range result.Edges {
		if err := t.edge(e); err != nil {
			return err
		}
	}
	for _, c := range result.Children {
		if err := t.node(c, geo.Point{}); err != nil {
			return err
		}
	}
	return nil
}

type translator struct {
	g        *digraph.Graph
	asg      *scope.Assignment
	w        *digraph.Writer
	absolute map[string]geo.Point
}

func (t *translator) node(n *engine.ResultNode, parent geo.Point) error {
	if _, ok := t.g.Node(n.ID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownResultNode, n.ID)
	}

	n.Absolute = parent.Add(geo.Point{X: n.X, Y: n.Y})
	t.absolute[n.ID] = n.Absolute
	t.w.SetNodeLayout(n.ID, digraph.NodeLayout{
		Width:  n.Width,
		Height: n.Height,
		X:      n.X,
		Y:      n.Y,
	})

	// Edges before children: a child's edges may be scoped to this node.
	for _, e := range n.Edges {
		if err := t.edge(e); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := t.node(c, n.Absolute); err != nil {
			return err
		}
	}
	return nil
}

func (t *translator) edge(e *engine.ResultEdge) error {
	offset := t.offset(e.ID)

	geom := digraph.EdgeGeometry{
		Sections: geo.TranslateAll(e.Sections, offset),
		Label:    offset,
	}
	if l := e.Label(); l != nil {
		geom.Label = offset.Add(geo.Point{X: l.X, Y: l.Y})
	}

	if !t.w.SetEdgeGeometry(e.ID, geom) {
		return fmt.Errorf("%w: %q", ErrUnknownResultEdge, e.ID)
	}
	return nil
}

// offset returns the absolute origin of the edge's scope. Root-scope edges
// and scopes not visited yet have no offset.
func (t *translator) offset(edgeID string) geo.Point {
	s, ok := t.asg.ScopeOf(edgeID)
	if !ok {
		return geo.Point{}
	}
	id, ok := s.NodeID()
	if !ok {
		return geo.Point{}
	}
	return t.absolute[id]
}

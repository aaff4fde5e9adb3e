package layout

import (
	"strconv"

	"github.com/matzehuels/statelayout/pkg/digraph"
	"github.com/matzehuels/statelayout/pkg/engine"
	"github.com/matzehuels/statelayout/pkg/rect"
	"github.com/matzehuels/statelayout/pkg/scope"
)

// SyntheticRootID is the ID of the request node wrapping the graph root.
const SyntheticRootID = "__root__"

// PortID returns the ID of the back-edge port reserved for an edge.
func PortID(edgeID string) string { return "port:" + edgeID }

// SelfPortID returns the ID of a node's self-loop port.
func SelfPortID(nodeID string) string { return "self:" + nodeID }

// LabelID returns the ID of an edge's label placeholder.
func LabelID(edgeID string) string { return edgeID + "--label" }

// DefaultRootOptions are the options set on the synthetic root.
func DefaultRootOptions() engine.Options {
	return engine.Options{
		engine.OptAlgorithm:         engine.AlgorithmLayered,
		engine.OptHierarchyHandling: engine.HierarchyIncludeChildren,
		engine.OptSemiInteractive:   "true",
		engine.OptAspectRatio:       "0.5",
	}
}

// Builder converts a graph into an engine request tree.
type Builder struct {
	Rects rect.Provider

	Margin       float64        // Padding around children, added below the header
	PortSize     float64        // Width and height of every port
	LabelWidth   float64        // Label width when unmeasured
	LabelHeight  float64        // Label height when unmeasured
	LabelSpacing float64        // elk.spacing.labelLabel on every node
	FallbackSize rect.Size      // Leaf size when unmeasured
	RootOptions  engine.Options // Options on the synthetic root
}

// NewBuilder returns a builder with the default sizing.
func NewBuilder(rects rect.Provider) Builder {
	return Builder{
		Rects:        rects,
		Margin:       30,
		PortSize:     5,
		LabelHeight:  100,
		LabelSpacing: 10,
		RootOptions:  DefaultRootOptions(),
	}
}

// Request builds the full request: the graph root wrapped under a synthetic
// root that holds the edges of the root scope.
func (b Builder) Request(g *digraph.Graph, asg *scope.Assignment, backLinks digraph.BackLinkMap) *engine.Request {
	root := &engine.Node{
		ID:            SyntheticRootID,
		Children:      []*engine.Node{b.Node(g, g.Root().ID, asg, backLinks)},
		Edges:         b.edges(asg.Edges(scope.Root), backLinks),
		LayoutOptions: b.RootOptions.Merge(nil),
	}
	return &engine.Request{Root: root}
}

// Node builds the request node for id and, recursively, its subtree.
func (b Builder) Node(g *digraph.Graph, id string, asg *scope.Assignment, backLinks digraph.BackLinkMap) *engine.Node {
	n, _ := g.Node(id)

	out := &engine.Node{
		ID:    id,
		Edges: b.edges(asg.Edges(scope.Node(id)), backLinks),
		Ports: b.ports(id, backLinks),
		LayoutOptions: engine.Options{
			engine.OptPadding:           b.padding(id).String(),
			engine.OptHierarchyHandling: engine.HierarchyIncludeChildren,
			engine.OptLabelLabelSpacing: strconv.FormatFloat(b.LabelSpacing, 'f', -1, 64),
		},
	}

	if n.IsLeaf() {
		size, ok := b.Rects.GetRect(id)
		if !ok {
			size = b.FallbackSize
		}
		out.Width, out.Height = size.Width, size.Height
		return out
	}

	out.Children = make([]*engine.Node, 0, len(n.ChildIDs()))
	for _, c := range n.ChildIDs() {
		out.Children = append(out.Children, b.Node(g, c, asg, backLinks))
	}
	return out
}

func (b Builder) padding(id string) engine.Padding {
	p := engine.Uniform(b.Margin)
	if content, ok := b.Rects.ReadRect(rect.ContentID(id)); ok {
		p.Top += content.Height
	}
	return p
}

func (b Builder) ports(id string, backLinks digraph.BackLinkMap) []*engine.Port {
	edges := backLinks.Get(id)
	ports := make([]*engine.Port, 0, len(edges)+1)
	for _, e := range edges {
		ports = append(ports, &engine.Port{ID: PortID(e), Width: b.PortSize, Height: b.PortSize})
	}
	return append(ports, &engine.Port{ID: SelfPortID(id), Width: b.PortSize, Height: b.PortSize})
}

func (b Builder) edges(edges []*digraph.Edge, backLinks digraph.BackLinkMap) []*engine.Edge {
	if len(edges) == 0 {
		return nil
	}
	out := make([]*engine.Edge, 0, len(edges))
	for _, e := range edges {
		out = append(out, b.edge(e, backLinks))
	}
	return out
}

func (b Builder) edge(e *digraph.Edge, backLinks digraph.BackLinkMap) *engine.Edge {
	size, ok := b.Rects.ReadRect(e.ID)
	if !ok {
		size = rect.Size{Width: b.LabelWidth, Height: b.LabelHeight}
	}

	out := &engine.Edge{
		ID: e.ID,
		Labels: []*engine.Label{{
			ID:     LabelID(e.ID),
			Text:   rect.LabelText(e),
			Width:  size.Width,
			Height: size.Height,
			LayoutOptions: engine.Options{
				engine.OptEdgeLabelsInline:   "true",
				engine.OptEdgeLabelPlacement: engine.LabelPlacementCenter,
			},
		}},
	}

	switch {
	case e.IsSelfLoop():
		out.Sources = []string{SelfPortID(e.Source)}
		out.Targets = []string{SelfPortID(e.Target)}
	case backLinks.Has(e.Target, e.ID):
		out.Sources = []string{e.Source}
		out.Targets = []string{PortID(e.ID)}
	default:
		// Edges into an enclosing node have no reserved port.
		out.Sources = []string{e.Source}
		out.Targets = []string{e.Target}
	}
	return out
}

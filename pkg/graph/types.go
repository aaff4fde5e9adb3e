package graph

import "github.com/matzehuels/statelayout/pkg/geo"

// Version is the current layout format version.
const Version = 1

// =============================================================================
// Layout
// =============================================================================

// Layout is one laid-out chart.
type Layout struct {
	Version    int     `json:"version" bson:"version"`
	Root       string  `json:"root" bson:"root"`
	Engine     string  `json:"engine,omitempty" bson:"engine,omitempty"`
	Generation uint64  `json:"generation" bson:"generation"`
	Width      float64 `json:"width" bson:"width"`
	Height     float64 `json:"height" bson:"height"`
	Nodes      []Node  `json:"nodes" bson:"nodes"`
	Edges      []Edge  `json:"edges" bson:"edges"`
}

// Node returns the node with the given ID.
func (l *Layout) Node(id string) (Node, bool) {
	for _, n := range l.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Edge returns the edge with the given ID.
func (l *Layout) Edge(id string) (Edge, bool) {
	for _, e := range l.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// =============================================================================
// Node
// =============================================================================

// Node is one state. Box is relative to the parent; Absolute is the box's
// top-left corner in layout space.
type Node struct {
	ID       string         `json:"id" bson:"id"`
	Label    string         `json:"label,omitempty" bson:"label,omitempty"`
	Parent   string         `json:"parent,omitempty" bson:"parent,omitempty"`
	Box      geo.Rect       `json:"box" bson:"box"`
	Absolute geo.Point      `json:"absolute" bson:"absolute"`
	Details  []string       `json:"details,omitempty" bson:"details,omitempty"`
	Meta     map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

// =============================================================================
// Edge
// =============================================================================

// Edge is one transition. Scope is the ID of the node the edge was routed in,
// empty for the root scope.
type Edge struct {
	ID            string         `json:"id" bson:"id"`
	Source        string         `json:"source" bson:"source"`
	Target        string         `json:"target" bson:"target"`
	Label         string         `json:"label,omitempty" bson:"label,omitempty"`
	Scope         string         `json:"scope,omitempty" bson:"scope,omitempty"`
	Sections      []geo.Section  `json:"sections" bson:"sections"`
	LabelPosition geo.Point      `json:"labelPosition" bson:"label_position"`
	Meta          map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}

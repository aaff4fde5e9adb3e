package digraph

import (
	"errors"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/matzehuels/statelayout/pkg/geo"
)

var (
	// ErrInvalidNodeID is returned by [New] and [Graph.AddNode] when the node
	// ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists anywhere in the nesting tree.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownParent is returned by [Graph.AddNode] when the parent does not
	// exist.
	ErrUnknownParent = errors.New("unknown parent node")

	// ErrInvalidEdgeID is returned by [Graph.AddEdge] when the edge ID is empty.
	ErrInvalidEdgeID = errors.New("edge ID must not be empty")

	// ErrDuplicateEdgeID is returned by [Graph.AddEdge] when an edge with the
	// same ID already exists.
	ErrDuplicateEdgeID = errors.New("duplicate edge ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the source node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the target node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrUnknownOwner is returned by [Graph.AddEdge] when the declaring node
	// does not exist.
	ErrUnknownOwner = errors.New("unknown owner node")
)

// MetaDetails is the metadata key holding extra text lines rendered below a
// node's label (for example entry and exit actions). The value is a []string.
const MetaDetails = "details"

// Metadata stores arbitrary key-value pairs attached to nodes, edges or the
// graph. Metadata maps are never nil once added to a graph.
type Metadata map[string]any

// NodeLayout is the layout record written onto a node by a layout pass.
// X and Y are relative to the parent node's origin.
type NodeLayout struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// EdgeGeometry is the layout record written onto an edge by a layout pass.
// All coordinates are absolute.
type EdgeGeometry struct {
	Sections []geo.Section `json:"sections"`
	Label    geo.Point     `json:"label"`
}

// Node is one state of the machine. Composite states have children.
type Node struct {
	ID     string   // Unique identifier across the whole graph
	Label  string   // Display label (defaults to ID)
	Parent string   // Parent ID, empty for the graph root
	Meta   Metadata // Arbitrary key-value metadata (never nil after insertion)

	children []string
	edges    []string
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// ChildIDs returns the ordered child IDs. The slice must not be modified.
func (n *Node) ChildIDs() []string { return n.children }

// EdgeIDs returns the IDs of edges declared at this node's level, in
// declaration order. The slice must not be modified.
func (n *Node) EdgeIDs() []string { return n.edges }

// Edge is one transition of the machine.
type Edge struct {
	ID     string   // Unique identifier
	Source string   // Source node ID
	Target string   // Target node ID (may equal Source)
	Owner  string   // Node level that declared the edge (defaults to Source)
	Label  string   // Label text, may be empty for event-less transitions
	Meta   Metadata // Arbitrary key-value metadata (never nil after insertion)
}

// IsSelfLoop reports whether the edge starts and ends on the same node.
func (e *Edge) IsSelfLoop() bool { return e.Source == e.Target }

// Graph is the arena holding the nesting tree and the edge set.
//
// Structural mutations and lookups are safe for concurrent use. Node and Edge
// values returned by a graph that is still being mutated share their child
// and edge slices with it; code that walks a whole graph while other
// goroutines add to it should work on a [Graph.Snapshot].
//
// The zero value is not usable; create graphs with [New].
type Graph struct {
	// smu guards root, nodes, edges and the child and edge slices of every
	// node. mu guards the layout records. Neither is held while taking the
	// other, except Apply, which takes smu.RLock for membership checks.
	smu   sync.RWMutex
	root  string
	nodes map[string]*Node
	edges map[string]*Edge
	meta  Metadata

	generation atomic.Uint64

	mu          sync.RWMutex
	applied     uint64
	nodeLayouts map[string]NodeLayout
	edgeLayouts map[string]EdgeGeometry
}

// New creates a graph whose nesting tree is rooted at root.
// Returns ErrInvalidNodeID if root.ID is empty.
func New(root Node) (*Graph, error) {
	if root.ID == "" {
		return nil, ErrInvalidNodeID
	}
	if root.Meta == nil {
		root.Meta = Metadata{}
	}
	root.Parent = ""
	root.children = nil
	root.edges = nil

	g := &Graph{
		root:        root.ID,
		nodes:       map[string]*Node{root.ID: &root},
		edges:       make(map[string]*Edge),
		meta:        Metadata{},
		nodeLayouts: make(map[string]NodeLayout),
		edgeLayouts: make(map[string]EdgeGeometry),
	}
	g.generation.Store(1)
	return g, nil
}

// Meta returns the graph-level metadata map.
func (g *Graph) Meta() Metadata { return g.meta }

// Root returns the root node of the nesting tree.
func (g *Graph) Root() *Node {
	g.smu.RLock()
	defer g.smu.RUnlock()
	return g.nodes[g.root]
}

// AddNode inserts n as the last child of parentID.
func (g *Graph) AddNode(parentID string, n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	n.Parent = parentID
	n.children = nil
	n.edges = nil

	g.smu.Lock()
	defer g.smu.Unlock()
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	parent, ok := g.nodes[parentID]
	if !ok {
		return ErrUnknownParent
	}

	g.nodes[n.ID] = &n
	// Copy on append so slices handed out earlier never change under a reader.
	parent.children = append(parent.children[:len(parent.children):len(parent.children)], n.ID)
	g.generation.Add(1)
	return nil
}

// AddEdge inserts e at its owner's level. An empty Owner defaults to Source.
func (g *Graph) AddEdge(e Edge) error {
	if e.ID == "" {
		return ErrInvalidEdgeID
	}
	if e.Owner == "" {
		e.Owner = e.Source
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}

	g.smu.Lock()
	defer g.smu.Unlock()
	if _, exists := g.edges[e.ID]; exists {
		return ErrDuplicateEdgeID
	}
	if _, ok := g.nodes[e.Source]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return ErrUnknownTargetNode
	}
	owner, ok := g.nodes[e.Owner]
	if !ok {
		return ErrUnknownOwner
	}

	g.edges[e.ID] = &e
	owner.edges = append(owner.edges[:len(owner.edges):len(owner.edges)], e.ID)
	g.generation.Add(1)
	return nil
}

// Snapshot returns a copy of the structure together with the generation it
// was taken at. Nodes, edges and their metadata maps are copied; layout
// records are not. Mutating g afterwards does not affect the snapshot.
func (g *Graph) Snapshot() *Graph {
	g.smu.RLock()
	defer g.smu.RUnlock()

	s := &Graph{
		root:        g.root,
		nodes:       make(map[string]*Node, len(g.nodes)),
		edges:       make(map[string]*Edge, len(g.edges)),
		meta:        maps.Clone(g.meta),
		nodeLayouts: make(map[string]NodeLayout),
		edgeLayouts: make(map[string]EdgeGeometry),
	}
	for id, n := range g.nodes {
		c := *n
		c.children = slices.Clone(n.children)
		c.edges = slices.Clone(n.edges)
		c.Meta = maps.Clone(n.Meta)
		s.nodes[id] = &c
	}
	for id, e := range g.edges {
		c := *e
		c.Meta = maps.Clone(e.Meta)
		s.edges[id] = &c
	}
	// Structural bumps happen under smu, so this matches the copied structure.
	s.generation.Store(g.generation.Load())
	return s
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	g.smu.RLock()
	defer g.smu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns the edge with the given ID.
func (g *Graph) Edge(id string) (*Edge, bool) {
	g.smu.RLock()
	defer g.smu.RUnlock()
	e, ok := g.edges[id]
	return e, ok
}

// NodeCount returns the number of nodes, including the root.
func (g *Graph) NodeCount() int {
	g.smu.RLock()
	defer g.smu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.smu.RLock()
	defer g.smu.RUnlock()
	return len(g.edges)
}

// Parent returns the parent of id. The root and unknown IDs have none.
func (g *Graph) Parent(id string) (*Node, bool) {
	g.smu.RLock()
	defer g.smu.RUnlock()
	n, ok := g.nodes[id]
	if !ok || n.Parent == "" {
		return nil, false
	}
	return g.nodes[n.Parent], true
}

// Children returns the children of id in insertion order.
func (g *Graph) Children(id string) []*Node {
	g.smu.RLock()
	defer g.smu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	out := make([]*Node, len(n.children))
	for i, c := range n.children {
		out[i] = g.nodes[c]
	}
	return out
}

// OwnedEdges returns the edges declared at id's level in declaration order.
func (g *Graph) OwnedEdges(id string) []*Edge {
	g.smu.RLock()
	defer g.smu.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	out := make([]*Edge, len(n.edges))
	for i, e := range n.edges {
		out[i] = g.edges[e]
	}
	return out
}

// Walk visits every node in pre-order (parent before children, children in
// insertion order). Returning false from fn skips the node's subtree.
//
// No lock is held while fn runs, so fn may call back into g.
func (g *Graph) Walk(fn func(n *Node, depth int) bool) {
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		g.smu.RLock()
		n := g.nodes[id]
		children := n.children
		g.smu.RUnlock()

		if !fn(n, depth) {
			return
		}
		for _, c := range children {
			visit(c, depth+1)
		}
	}
	visit(g.root, 0)
}

// Nodes returns every node in pre-order.
func (g *Graph) Nodes() []*Node {
	g.smu.RLock()
	defer g.smu.RUnlock()
	out := make([]*Node, 0, len(g.nodes))
	g.preorder(func(n *Node) { out = append(out, n) })
	return out
}

// Edges returns every edge, ordered by owner in pre-order and by declaration
// within one owner. The order is deterministic for a given construction order.
func (g *Graph) Edges() []*Edge {
	g.smu.RLock()
	defer g.smu.RUnlock()
	out := make([]*Edge, 0, len(g.edges))
	g.preorder(func(n *Node) {
		for _, id := range n.edges {
			out = append(out, g.edges[id])
		}
	})
	return out
}

// preorder visits every node; the caller holds smu.
func (g *Graph) preorder(fn func(n *Node)) {
	var visit func(id string)
	visit = func(id string) {
		n := g.nodes[id]
		fn(n)
		for _, c := range n.children {
			visit(c)
		}
	}
	visit(g.root)
}

// Ancestors returns the strict ancestors of id, nearest first.
func (g *Graph) Ancestors(id string) []string {
	g.smu.RLock()
	defer g.smu.RUnlock()
	return g.ancestors(id)
}

func (g *Graph) ancestors(id string) []string {
	var out []string
	n, ok := g.nodes[id]
	for ok && n.Parent != "" {
		out = append(out, n.Parent)
		n, ok = g.nodes[n.Parent]
	}
	return out
}

// IsDescendant reports whether id lies strictly inside ancestor's subtree.
func (g *Graph) IsDescendant(id, ancestor string) bool {
	return slices.Contains(g.Ancestors(id), ancestor)
}

// Depth returns the nesting depth of id (0 for the root, -1 if unknown).
func (g *Graph) Depth(id string) int {
	g.smu.RLock()
	defer g.smu.RUnlock()
	if _, ok := g.nodes[id]; !ok {
		return -1
	}
	return len(g.ancestors(id))
}

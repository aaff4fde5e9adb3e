// Package engine defines the contract between the layout core and an external
// constraint-solving layout engine.
//
// Requests and results are two separate trees. A request tree ([Node]) mirrors
// the nesting of the graph and carries intrinsic sizes, ports, scoped edges
// and layout options. A result tree ([ResultNode]) carries the positions the
// engine resolved, each relative to the parent node, and the routed edge
// sections, relative to the node that holds the edge.
//
// Both trees use the field names of the ELK JSON graph format, so a request can
// be sent to any elkjs-compatible service as is.
package engine

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/statelayout/pkg/geo"
)

// Engine computes positions, sizes and routed edges for a request tree.
//
// Implementations must not retain the request after returning. Errors are
// engine specific; callers propagate them unmodified.
type Engine interface {
	Layout(ctx context.Context, req *Request) (*ResultNode, error)
}

// Func adapts a plain function to the Engine interface.
type Func func(ctx context.Context, req *Request) (*ResultNode, error)

// Layout calls f(ctx, req).
func (f Func) Layout(ctx context.Context, req *Request) (*ResultNode, error) {
	return f(ctx, req)
}

// Named is implemented by engines that report a name for logs, metrics and
// cache keys.
type Named interface {
	Name() string
}

// NameOf returns e's name, or "custom" for engines that are not [Named].
func NameOf(e Engine) string {
	if n, ok := e.(Named); ok {
		return n.Name()
	}
	return "custom"
}

// Request is one invocation of an engine: the root of the request tree plus
// global layout options.
type Request struct {
	Root    *Node   `json:"graph"`
	Options Options `json:"layoutOptions,omitempty"`
}

// Key returns a stable encoding of the request, suitable for hashing.
func (r *Request) Key() ([]byte, error) {
	return json.Marshal(r)
}

// Options are engine options in ELK's key/value form.
type Options map[string]string

// Get returns the value for key, or def when unset.
func (o Options) Get(key, def string) string {
	if v, ok := o[key]; ok {
		return v
	}
	return def
}

// Merge returns a new map holding o overlaid with other.
func (o Options) Merge(other Options) Options {
	out := make(Options, len(o)+len(other))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Node is one node of the request tree. Composite nodes leave Width and
// Height zero and let the engine derive their size from children and padding.
type Node struct {
	ID            string   `json:"id"`
	Width         float64  `json:"width,omitempty"`
	Height        float64  `json:"height,omitempty"`
	Children      []*Node  `json:"children,omitempty"`
	Edges         []*Edge  `json:"edges,omitempty"`
	Ports         []*Port  `json:"ports,omitempty"`
	Labels        []*Label `json:"labels,omitempty"`
	LayoutOptions Options  `json:"layoutOptions,omitempty"`
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(n *Node, parent *Node) bool) {
	var visit func(n, parent *Node)
	visit = func(n, parent *Node) {
		if !fn(n, parent) {
			return
		}
		for _, c := range n.Children {
			visit(c, n)
		}
	}
	visit(n, nil)
}

// Find returns the node with the given ID in the subtree rooted at n.
func (n *Node) Find(id string) *Node {
	var found *Node
	n.Walk(func(c, _ *Node) bool {
		if found != nil {
			return false
		}
		if c.ID == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// Port is a fixed-size anchor on a node that edges can attach to.
type Port struct {
	ID            string  `json:"id"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	LayoutOptions Options `json:"layoutOptions,omitempty"`
}

// Edge is an edge of the request tree. Sources and Targets reference node or
// port IDs.
type Edge struct {
	ID            string   `json:"id"`
	Sources       []string `json:"sources"`
	Targets       []string `json:"targets"`
	Labels        []*Label `json:"labels,omitempty"`
	LayoutOptions Options  `json:"layoutOptions,omitempty"`
}

// Label is a placeholder box the engine reserves space for.
type Label struct {
	ID            string  `json:"id"`
	Text          string  `json:"text,omitempty"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	LayoutOptions Options `json:"layoutOptions,omitempty"`
}

// ResultNode is the engine's output for one request node. X and Y are
// relative to the parent's origin.
//
// Absolute is not produced by engines; the coordinate translator fills it.
type ResultNode struct {
	ID       string         `json:"id"`
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Width    float64        `json:"width"`
	Height   float64        `json:"height"`
	Children []*ResultNode  `json:"children,omitempty"`
	Edges    []*ResultEdge  `json:"edges,omitempty"`
	Ports    []*ResultPort  `json:"ports,omitempty"`
	Labels   []*ResultLabel `json:"labels,omitempty"`

	Absolute geo.Point `json:"-"`
}

// Walk visits n and its descendants in pre-order.
func (n *ResultNode) Walk(fn func(n *ResultNode, depth int)) {
	var visit func(n *ResultNode, depth int)
	visit = func(n *ResultNode, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(n, 0)
}

// Find returns the result node with the given ID in the subtree rooted at n.
func (n *ResultNode) Find(id string) *ResultNode {
	if n.ID == id {
		return n
	}
	for _, c := range n.Children {
		if f := c.Find(id); f != nil {
			return f
		}
	}
	return nil
}

// ResultPort is the resolved position of a port, relative to its node.
type ResultPort struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ResultEdge is a routed edge. Sections are relative to the node that holds
// the edge in the request tree.
type ResultEdge struct {
	ID       string         `json:"id"`
	Sources  []string       `json:"sources,omitempty"`
	Targets  []string       `json:"targets,omitempty"`
	Sections []geo.Section  `json:"sections,omitempty"`
	Labels   []*ResultLabel `json:"labels,omitempty"`
}

// Label returns the first label, or nil.
func (e *ResultEdge) Label() *ResultLabel {
	if len(e.Labels) == 0 {
		return nil
	}
	return e.Labels[0]
}

// ResultLabel is a placed label box. X and Y are relative like the owning
// edge's sections.
type ResultLabel struct {
	ID     string  `json:"id"`
	Text   string  `json:"text,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

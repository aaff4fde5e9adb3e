package digraph

import "github.com/matzehuels/statelayout/pkg/geo"

// Generation returns the graph's current generation. It increases with every
// structural mutation and with [Graph.Invalidate].
func (g *Graph) Generation() uint64 { return g.generation.Load() }

// Invalidate bumps the generation without changing structure, e.g. after the
// caller changed measurements that feed into layout. Returns the new value.
func (g *Graph) Invalidate() uint64 { return g.generation.Add(1) }

// AppliedGeneration returns the generation of the last pass committed by
// [Graph.Apply], or 0 if none has been committed.
func (g *Graph) AppliedGeneration() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.applied
}

// Apply commits layout records computed from the snapshot at generation.
//
// fn stages writes on a [Writer]; they become visible only if fn returns nil
// and generation is not older than the last committed pass. Apply reports
// whether the records were committed. A stale pass returns (false, nil)
// without calling fn.
func (g *Graph) Apply(generation uint64, fn func(w *Writer) error) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if generation < g.applied {
		return false, nil
	}

	w := &Writer{
		g:     g,
		nodes: make(map[string]NodeLayout),
		edges: make(map[string]EdgeGeometry),
	}
	if err := fn(w); err != nil {
		return false, err
	}

	for id, l := range w.nodes {
		g.nodeLayouts[id] = l
	}
	for id, e := range w.edges {
		g.edgeLayouts[id] = e
	}
	g.applied = generation
	return true, nil
}

// NodeLayout returns the committed layout record for a node.
func (g *Graph) NodeLayout(id string) (NodeLayout, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	l, ok := g.nodeLayouts[id]
	return l, ok
}

// EdgeGeometry returns the committed geometry for an edge. The returned
// sections are a copy.
func (g *Graph) EdgeGeometry(id string) (EdgeGeometry, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.edgeLayouts[id]
	if !ok {
		return EdgeGeometry{}, false
	}
	return EdgeGeometry{
		Sections: geo.TranslateAll(e.Sections, geo.Point{}),
		Label:    e.Label,
	}, true
}

// Writer stages layout records inside [Graph.Apply].
type Writer struct {
	g     *Graph
	nodes map[string]NodeLayout
	edges map[string]EdgeGeometry
}

// SetNodeLayout stages the layout record for a node.
// It returns false if id is not a node of the graph.
func (w *Writer) SetNodeLayout(id string, l NodeLayout) bool {
	if _, ok := w.g.Node(id); !ok {
		return false
	}
	w.nodes[id] = l
	return true
}

// SetEdgeGeometry stages the geometry record for an edge.
// It returns false if id is not an edge of the graph.
func (w *Writer) SetEdgeGeometry(id string, e EdgeGeometry) bool {
	if _, ok := w.g.Edge(id); !ok {
		return false
	}
	w.edges[id] = e
	return true
}

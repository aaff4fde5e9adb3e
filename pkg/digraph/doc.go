// Package digraph provides the nested directed graph model of a hierarchical
// state machine.
//
// # Overview
//
// A [Graph] is an arena of [Node] values addressed by stable string IDs. Nodes
// form a nesting tree (each node has at most one parent; the graph root has
// none). Nesting is the scope hierarchy used for layout and is independent of
// the [Edge] set: an edge may connect any two nodes in the tree, may stay inside
// a composite node, cross several nesting levels or loop back onto its own
// source.
//
// Every edge is owned by the node level that declared it ([Edge.Owner]), which
// is usually, but not necessarily, its source.
//
// # Layout Records
//
// Layout passes write their results back onto the graph: a [NodeLayout] per
// node (size and offset relative to the parent) and an [EdgeGeometry] per edge
// (absolute route sections and label position). Writes go through
// [Graph.Apply], which is guarded by a generation counter so that a pass
// computed from an older snapshot never overwrites a newer one:
//
//	gen := g.Generation()
//	// ... compute layout asynchronously ...
//	applied, err := g.Apply(gen, func(w *digraph.Writer) error {
//	    w.SetNodeLayout("light.green", digraph.NodeLayout{Width: 120, Height: 40})
//	    return nil
//	})
//
// # Concurrency
//
// Structural mutation (AddNode, AddEdge) is not safe for concurrent use.
// Layout records may be written by [Graph.Apply] and read by
// [Graph.NodeLayout] / [Graph.EdgeGeometry] from any goroutine.
package digraph

// Package layout orchestrates hierarchical layout of nested state-machine
// graphs on top of an external layout engine.
//
// A pass runs in four steps:
//
//  1. [scope.Assign] places every edge in the narrowest node that encloses
//     both of its endpoints.
//  2. [Builder] converts the nesting tree into an engine request tree. Leaves
//     carry measured sizes, composites carry padding for their header, every
//     node gets one port per back edge plus one self-loop port, and each
//     edge is attached to the request node of its scope.
//  3. The [Layouter] waits until the root has been measured, lets pending
//     measurements settle and calls the engine once.
//  4. [Translate] walks the result top-down, composes absolute origins from
//     parent-relative offsets and shifts every routed edge by the absolute
//     origin of its scope.
//
// # Generations
//
// Results are written onto the graph through [digraph.Graph.Apply] tagged
// with the generation captured when the pass started. A pass that finishes
// after a newer pass was applied is dropped with [ErrSuperseded]; overlapping
// passes never interleave their writes.
//
// # Example
//
//	store := rect.NewStore()
//	rect.MeasureGraph(store, g, rect.DefaultEstimator())
//
//	l := layout.New(graphviz.New(), store, layout.WithLogger(logger))
//	res, err := l.Layout(ctx, g)
//	if errors.Is(err, layout.ErrSuperseded) {
//	    return nil // a newer layout is already on the graph
//	}
package layout

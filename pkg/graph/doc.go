// Package graph provides the serialization format for computed layouts.
//
// The format is the boundary between the layout core and everything that
// consumes its output: JSON files written by the CLI, API responses, stored
// documents and the layout cache.
//
// # Core Types
//
//   - [Layout]: one laid-out chart, with frame size and provenance
//   - [Node]: a state with its parent-relative box and absolute origin
//   - [Edge]: a transition with absolute route sections and label position
//
// # Export
//
// [Export] reads the layout records a pass wrote onto a digraph.Graph and
// flattens them into a [Layout]. Nodes appear in pre-order, edges in the
// graph's deterministic edge order, so exporting the same pass twice gives
// byte-identical JSON:
//
//	l, err := graph.Export(g, "graphviz")
//	data, err := graph.MarshalLayout(l)
//
// # Files
//
//	graph.WriteLayoutFile(l, "door.layout.json")
//	l, err := graph.ReadLayoutFile("door.layout.json")
//
// # Coordinates
//
// Node boxes are relative to the parent node, matching the records on the
// graph. Node absolute origins, edge sections and label positions share one
// absolute space whose origin is the top-left corner of the root.
package graph

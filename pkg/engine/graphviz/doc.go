// Package graphviz implements an in-process layout engine on top of Graphviz.
//
// The request tree is converted into DOT: composite request nodes become
// clusters whose label reserves the header padding, leaves become fixed-size
// boxes, and edges carry fixed-size HTML labels as placeholders. Edges that
// end on a composite node are drawn to an invisible anchor inside its cluster
// and clipped at the cluster border (compound=true with lhead/ltail).
//
// Graphviz has no ports in the ELK sense, so edges attached to a port are
// drawn to the node that owns it.
//
// The laid-out graph is read back from Graphviz's JSON output and converted
// into a result tree with the conventions of [engine.ResultNode]: node
// positions relative to the parent node and edge geometry relative to the
// request node that holds the edge.
package graphviz

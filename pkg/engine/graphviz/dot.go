package graphviz

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/statelayout/pkg/engine"
)

// pointsPerInch converts pixel sizes into Graphviz inches (1px = 1pt).
const pointsPerInch = 72.0

// index resolves request IDs while writing and reading back a graph.
type index struct {
	nodes     map[string]*engine.Node // request node by ID
	parent    map[string]string       // parent request node ID
	portOwner map[string]string       // port ID -> node ID
	holder    map[string]string       // edge ID -> request node holding it
	labels    map[string]*engine.Label
}

func newIndex(root *engine.Node) *index {
	idx := &index{
		nodes:     make(map[string]*engine.Node),
		parent:    make(map[string]string),
		portOwner: make(map[string]string),
		holder:    make(map[string]string),
		labels:    make(map[string]*engine.Label),
	}
	root.Walk(func(n, parent *engine.Node) bool {
		idx.nodes[n.ID] = n
		if parent != nil {
			idx.parent[n.ID] = parent.ID
		}
		for _, p := range n.Ports {
			idx.portOwner[p.ID] = n.ID
		}
		for _, e := range n.Edges {
			idx.holder[e.ID] = n.ID
			if len(e.Labels) > 0 {
				idx.labels[e.ID] = e.Labels[0]
			}
		}
		return true
	})
	return idx
}

func (idx *index) isCluster(id string) bool {
	n, ok := idx.nodes[id]
	return ok && len(n.Children) > 0
}

// owner returns the node an edge endpoint refers to.
func (idx *index) owner(ref string) string {
	if id, ok := idx.portOwner[ref]; ok {
		return id
	}
	return ref
}

func clusterName(id string) string { return "cluster_" + id }
func anchorName(id string) string  { return id + "::anchor" }

var rankdirs = map[string]string{
	"DOWN":  "TB",
	"UP":    "BT",
	"RIGHT": "LR",
	"LEFT":  "RL",
}

// ToDOT converts a request into DOT source. The synthetic root maps to the
// graph itself; every other composite node becomes a cluster.
func ToDOT(req *engine.Request) string {
	idx := newIndex(req.Root)
	opts := req.Root.LayoutOptions.Merge(req.Options)

	var buf bytes.Buffer
	buf.WriteString("digraph \"G\" {\n")
	buf.WriteString("  compound=true;\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir(opts.Get(engine.OptDirection, "DOWN")))
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("  ranksep=0.4;\n")
	buf.WriteString("  node [shape=box, label=\"\", fixedsize=true];\n")
	buf.WriteString("\n")

	for _, c := range req.Root.Children {
		writeNode(&buf, c, "  ")
	}

	buf.WriteString("\n")
	req.Root.Walk(func(n, _ *engine.Node) bool {
		for _, e := range n.Edges {
			writeEdge(&buf, idx, e)
		}
		return true
	})

	buf.WriteString("}\n")
	return buf.String()
}

func rankdir(direction string) string {
	if d, ok := rankdirs[strings.ToUpper(direction)]; ok {
		return d
	}
	return "TB"
}

func writeNode(buf *bytes.Buffer, n *engine.Node, indent string) {
	if len(n.Children) == 0 {
		fmt.Fprintf(buf, "%s%s [width=%s, height=%s];\n", indent, quote(n.ID), inches(n.Width), inches(n.Height))
		return
	}

	pad, _ := engine.ParsePadding(n.LayoutOptions.Get(engine.OptPadding, ""))
	header := pad.Top - pad.Bottom

	fmt.Fprintf(buf, "%ssubgraph %s {\n", indent, quote(clusterName(n.ID)))
	inner := indent + "  "
	fmt.Fprintf(buf, "%smargin=%s;\n", inner, num(max(pad.Left, pad.Right, pad.Bottom)))
	if header > 0 {
		fmt.Fprintf(buf, "%slabelloc=t;\n", inner)
		fmt.Fprintf(buf, "%slabel=%s;\n", inner, placeholder(1, header))
	}
	fmt.Fprintf(buf, "%s%s [shape=point, style=invis, width=0.01, height=0.01];\n", inner, quote(anchorName(n.ID)))
	for _, c := range n.Children {
		writeNode(buf, c, inner)
	}
	fmt.Fprintf(buf, "%s}\n", indent)
}

func writeEdge(buf *bytes.Buffer, idx *index, e *engine.Edge) {
	if len(e.Sources) == 0 || len(e.Targets) == 0 {
		return
	}
	src, dst := idx.owner(e.Sources[0]), idx.owner(e.Targets[0])

	attrs := []string{"id=" + quote(e.ID)}
	tail, head := src, dst
	if idx.isCluster(src) {
		tail = anchorName(src)
		if src != dst {
			attrs = append(attrs, "ltail="+quote(clusterName(src)))
		}
	}
	if idx.isCluster(dst) {
		head = anchorName(dst)
		if src != dst {
			attrs = append(attrs, "lhead="+quote(clusterName(dst)))
		}
	}
	if l, ok := idx.labels[e.ID]; ok {
		attrs = append(attrs, "label="+placeholder(l.Width, l.Height))
	}
	fmt.Fprintf(buf, "  %s -> %s [%s];\n", quote(tail), quote(head), strings.Join(attrs, ", "))
}

// placeholder returns an HTML label that reserves w x h points.
func placeholder(w, h float64) string {
	return fmt.Sprintf(`<<table border="0" cellborder="0" cellspacing="0" cellpadding="0"><tr><td width="%d" height="%d" fixedsize="true"></td></tr></table>>`,
		max(1, int(w+0.5)), max(1, int(h+0.5)))
}

func inches(px float64) string {
	return strconv.FormatFloat(max(px, 1)/pointsPerInch, 'f', 4, 64)
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// quote returns s as a DOT double-quoted string.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

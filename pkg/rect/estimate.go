package rect

import (
	"math"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/matzehuels/statelayout/pkg/digraph"
)

// Estimator derives element sizes from text instead of a rendering surface.
// Widths count terminal cells (wide runes count twice) times an average
// glyph width.
type Estimator struct {
	FontSize    float64 // Label font size in px
	CharWidth   float64 // Average glyph width as a fraction of FontSize
	LineHeight  float64 // Line height as a multiple of FontSize
	PadX, PadY  float64 // Inner padding around node content
	MinWidth    float64 // Minimum width of a leaf node
	LabelPadX   float64 // Horizontal padding around edge labels
	DetailScale float64 // Font scale for detail lines below the label
}

// DefaultEstimator returns the estimator used by the CLI and server.
func DefaultEstimator() Estimator {
	return Estimator{
		FontSize:    14,
		CharWidth:   0.55,
		LineHeight:  1.4,
		PadX:        16,
		PadY:        10,
		MinWidth:    60,
		LabelPadX:   8,
		DetailScale: 0.85,
	}
}

// Text returns the size of a block of lines at the given font scale.
func (e Estimator) Text(scale float64, lines ...string) Size {
	fs := e.FontSize * scale
	var cells int
	for _, l := range lines {
		cells = max(cells, runewidth.StringWidth(l))
	}
	return Size{
		Width:  math.Ceil(float64(cells) * fs * e.CharWidth),
		Height: math.Ceil(float64(len(lines)) * fs * e.LineHeight),
	}
}

// Content returns the size of a node's header region: its label plus any
// detail lines.
func (e Estimator) Content(n *digraph.Node) Size {
	label := e.Text(1, n.DisplayLabel())
	details := detailLines(n)
	if len(details) == 0 {
		return Size{Width: label.Width + 2*e.PadX, Height: label.Height + 2*e.PadY}
	}
	d := e.Text(e.DetailScale, details...)
	return Size{
		Width:  math.Max(label.Width, d.Width) + 2*e.PadX,
		Height: label.Height + d.Height + 2*e.PadY,
	}
}

// Node returns the outer size of a leaf node.
func (e Estimator) Node(n *digraph.Node) Size {
	c := e.Content(n)
	c.Width = math.Max(c.Width, e.MinWidth)
	return c
}

// Label returns the size of an edge label box.
func (e Estimator) Label(text string) Size {
	s := e.Text(1, text)
	s.Width += 2 * e.LabelPadX
	return s
}

// MeasureGraph records estimated sizes for every element of g in s: each
// node, its content region and each edge label. Edges without a label are
// measured with the placeholder text "always". The graph root is measured
// last so that waiters on it see a fully measured graph.
func MeasureGraph(s *Store, g *digraph.Graph, e Estimator) {
	for _, edge := range g.Edges() {
		s.SetRect(edge.ID, e.Label(LabelText(edge)))
	}
	nodes := g.Nodes()
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		s.SetRect(ContentID(n.ID), e.Content(n))
		s.SetRect(n.ID, e.Node(n))
	}
}

// Release deletes every measurement owned by g from p.
func Release(p Provider, g *digraph.Graph) {
	for _, n := range g.Nodes() {
		p.DeleteRect(n.ID)
		p.DeleteRect(ContentID(n.ID))
	}
	for _, edge := range g.Edges() {
		p.DeleteRect(edge.ID)
	}
}

// DefaultLabelText is shown on transitions without an event.
const DefaultLabelText = "always"

// LabelText returns the text displayed on an edge's label.
func LabelText(e *digraph.Edge) string {
	if strings.TrimSpace(e.Label) == "" {
		return DefaultLabelText
	}
	return e.Label
}

func detailLines(n *digraph.Node) []string {
	switch v := n.Meta[digraph.MetaDetails].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

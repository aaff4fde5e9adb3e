package graphviz

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/matzehuels/statelayout/pkg/engine"
	"github.com/matzehuels/statelayout/pkg/geo"
)

// output is the subset of Graphviz's "json" format read back after layout.
// All attribute values are strings in Graphviz's native units (points, with
// the origin at the bottom left).
type output struct {
	BB      string   `json:"bb"`
	Objects []object `json:"objects"`
	Edges   []edge   `json:"edges"`
}

type object struct {
	GVID   int    `json:"_gvid"`
	Name   string `json:"name"`
	BB     string `json:"bb"`
	Pos    string `json:"pos"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

type edge struct {
	Tail int    `json:"tail"`
	Head int    `json:"head"`
	ID   string `json:"id"`
	Pos  string `json:"pos"`
	LP   string `json:"lp"`
}

// decoder turns absolute Graphviz geometry into a relative result tree.
type decoder struct {
	idx     *index
	height  float64 // graph height, for flipping y
	objects map[string]object
	abs     map[string]geo.Rect
}

// Decode converts Graphviz JSON output for req into a result tree.
func Decode(req *engine.Request, data []byte) (*engine.ResultNode, error) {
	var out output
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode graphviz output: %w", err)
	}
	bb, err := parseBox(out.BB)
	if err != nil {
		return nil, fmt.Errorf("graph bounding box: %w", err)
	}

	d := &decoder{
		idx:     newIndex(req.Root),
		height:  bb[3],
		objects: make(map[string]object, len(out.Objects)),
		abs:     make(map[string]geo.Rect),
	}
	for _, o := range out.Objects {
		d.objects[o.Name] = o
	}

	d.abs[req.Root.ID] = geo.Rect{Width: bb[2] - bb[0], Height: bb[3] - bb[1]}
	root, err := d.node(req.Root, geo.Point{})
	if err != nil {
		return nil, err
	}

	edgeByID := make(map[string]*engine.ResultEdge)
	for _, e := range out.Edges {
		if e.ID == "" {
			continue
		}
		re, err := d.edge(e)
		if err != nil {
			return nil, err
		}
		edgeByID[e.ID] = re
	}

	// Attach edges to the result node that mirrors their request holder.
	var attach func(rn *engine.ResultNode, n *engine.Node)
	attach = func(rn *engine.ResultNode, n *engine.Node) {
		for _, e := range n.Edges {
			if re, ok := edgeByID[e.ID]; ok {
				re.Sources, re.Targets = e.Sources, e.Targets
				rn.Edges = append(rn.Edges, re)
			}
		}
		for i, c := range n.Children {
			attach(rn.Children[i], c)
		}
	}
	attach(root, req.Root)
	return root, nil
}

func (d *decoder) node(n *engine.Node, parent geo.Point) (*engine.ResultNode, error) {
	box, ok := d.abs[n.ID]
	if !ok {
		var err error
		if box, err = d.box(n); err != nil {
			return nil, err
		}
		d.abs[n.ID] = box
	}

	rn := &engine.ResultNode{
		ID:     n.ID,
		X:      box.X - parent.X,
		Y:      box.Y - parent.Y,
		Width:  box.Width,
		Height: box.Height,
	}
	for _, c := range n.Children {
		child, err := d.node(c, box.Origin())
		if err != nil {
			return nil, err
		}
		rn.Children = append(rn.Children, child)
	}
	return rn, nil
}

// box returns the absolute, y-down bounding box of a request node.
func (d *decoder) box(n *engine.Node) (geo.Rect, error) {
	if len(n.Children) > 0 {
		o, ok := d.objects[clusterName(n.ID)]
		if !ok {
			return geo.Rect{}, fmt.Errorf("cluster %q missing from graphviz output", n.ID)
		}
		b, err := parseBox(o.BB)
		if err != nil {
			return geo.Rect{}, fmt.Errorf("cluster %q: %w", n.ID, err)
		}
		return geo.Rect{X: b[0], Y: d.height - b[3], Width: b[2] - b[0], Height: b[3] - b[1]}, nil
	}

	o, ok := d.objects[n.ID]
	if !ok {
		return geo.Rect{}, fmt.Errorf("node %q missing from graphviz output", n.ID)
	}
	c, err := parsePoint(o.Pos)
	if err != nil {
		return geo.Rect{}, fmt.Errorf("node %q: %w", n.ID, err)
	}
	w, _ := strconv.ParseFloat(o.Width, 64)
	h, _ := strconv.ParseFloat(o.Height, 64)
	w, h = w*pointsPerInch, h*pointsPerInch
	return geo.Rect{X: c.X - w/2, Y: d.height - c.Y - h/2, Width: w, Height: h}, nil
}

func (d *decoder) edge(e edge) (*engine.ResultEdge, error) {
	holder := d.idx.holder[e.ID]
	origin := d.abs[holder].Origin()

	re := &engine.ResultEdge{ID: e.ID}
	for i, spline := range strings.Split(e.Pos, ";") {
		s, err := d.section(spline)
		if err != nil {
			return nil, fmt.Errorf("edge %q: %w", e.ID, err)
		}
		s.ID = fmt.Sprintf("%s_s%d", e.ID, i)
		re.Sections = append(re.Sections, s.Translate(geo.Point{}.Sub(origin)))
	}

	if l, ok := d.idx.labels[e.ID]; ok {
		rl := &engine.ResultLabel{ID: l.ID, Text: l.Text, Width: l.Width, Height: l.Height}
		if e.LP != "" {
			c, err := parsePoint(e.LP)
			if err != nil {
				return nil, fmt.Errorf("edge %q label: %w", e.ID, err)
			}
			c = d.flip(c)
			rl.X = c.X - l.Width/2 - origin.X
			rl.Y = c.Y - l.Height/2 - origin.Y
		}
		re.Labels = []*engine.ResultLabel{rl}
	}
	return re, nil
}

// section parses one spline of an edge "pos" attribute,
// "[s,x,y ][e,x,y ]x1,y1 x2,y2 ...", into a route from the start point
// (or first control point) to the arrow tip (or last control point).
func (d *decoder) section(spline string) (geo.Section, error) {
	var (
		start, end []geo.Point
		pts        []geo.Point
	)
	for _, f := range strings.Fields(spline) {
		raw := f
		if strings.HasPrefix(f, "s,") || strings.HasPrefix(f, "e,") {
			raw = f[2:]
		}
		p, err := parsePoint(raw)
		if err != nil {
			return geo.Section{}, err
		}
		p = d.flip(p)
		switch {
		case strings.HasPrefix(f, "s,"):
			start = []geo.Point{p}
		case strings.HasPrefix(f, "e,"):
			end = []geo.Point{p}
		default:
			pts = append(pts, p)
		}
	}
	route := append(append(start, pts...), end...)
	if len(route) < 2 {
		return geo.Section{}, fmt.Errorf("invalid spline %q", spline)
	}

	s := geo.Section{StartPoint: route[0], EndPoint: route[len(route)-1]}
	if len(route) > 2 {
		s.BendPoints = route[1 : len(route)-1]
	}
	return s, nil
}

func (d *decoder) flip(p geo.Point) geo.Point { return geo.Point{X: p.X, Y: d.height - p.Y} }

func parsePoint(s string) (geo.Point, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return geo.Point{}, fmt.Errorf("invalid point %q", s)
	}
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid point %q: %w", s, err)
	}
	return geo.Point{X: x, Y: y}, nil
}

func parseBox(s string) ([4]float64, error) {
	var b [4]float64
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return b, fmt.Errorf("invalid box %q", s)
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return b, fmt.Errorf("invalid box %q: %w", s, err)
		}
		b[i] = f
	}
	return b, nil
}

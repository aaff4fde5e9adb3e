// Package geo provides the small set of geometry primitives shared by the
// layout request/result trees and the graph model.
//
// Coordinates follow screen conventions: x grows to the right and y grows
// downward. All values are in pixels.
package geo

// Point is a position in a 2D coordinate space.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Add returns the component-wise sum of p and q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the component-wise difference p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Section is one routed segment of an edge: a start point, an end point and
// the bend points visited in between.
type Section struct {
	ID         string  `json:"id,omitempty" bson:"id,omitempty"`
	StartPoint Point   `json:"startPoint" bson:"start"`
	EndPoint   Point   `json:"endPoint" bson:"end"`
	BendPoints []Point `json:"bendPoints,omitempty" bson:"bends,omitempty"`
}

// Translate returns a copy of s with every point shifted by offset.
// The receiver is not modified.
func (s Section) Translate(offset Point) Section {
	out := Section{
		ID:         s.ID,
		StartPoint: s.StartPoint.Add(offset),
		EndPoint:   s.EndPoint.Add(offset),
	}
	if len(s.BendPoints) > 0 {
		out.BendPoints = make([]Point, len(s.BendPoints))
		for i, bp := range s.BendPoints {
			out.BendPoints[i] = bp.Add(offset)
		}
	}
	return out
}

// Points returns the start point, bend points and end point in route order.
func (s Section) Points() []Point {
	pts := make([]Point, 0, len(s.BendPoints)+2)
	pts = append(pts, s.StartPoint)
	pts = append(pts, s.BendPoints...)
	return append(pts, s.EndPoint)
}

// TranslateAll shifts every section by offset and returns the new slice.
func TranslateAll(sections []Section, offset Point) []Section {
	if sections == nil {
		return nil
	}
	out := make([]Section, len(sections))
	for i, s := range sections {
		out[i] = s.Translate(offset)
	}
	return out
}

// Rect is an axis-aligned box anchored at its top-left corner.
type Rect struct {
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// Origin returns the top-left corner of r.
func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

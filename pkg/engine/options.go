package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Option keys understood by the engines in this module.
const (
	OptAlgorithm          = "elk.algorithm"
	OptHierarchyHandling  = "elk.hierarchyHandling"
	OptSemiInteractive    = "elk.layered.crossingMinimization.semiInteractive"
	OptAspectRatio        = "elk.aspectRatio"
	OptPadding            = "elk.padding"
	OptLabelLabelSpacing  = "elk.spacing.labelLabel"
	OptDirection          = "elk.direction"
	OptEdgeLabelsInline   = "edgeLabels.inline"
	OptEdgeLabelPlacement = "edgeLabels.placement"
)

// Option values.
const (
	AlgorithmLayered         = "layered"
	HierarchyIncludeChildren = "INCLUDE_CHILDREN"
	LabelPlacementCenter     = "CENTER"
)

// Padding is the space a composite node reserves around its children.
type Padding struct {
	Top, Left, Right, Bottom float64
}

// Uniform returns a padding with the same margin on all sides.
func Uniform(m float64) Padding { return Padding{Top: m, Left: m, Right: m, Bottom: m} }

// String formats p as an ELK padding value, e.g. "[top=42, left=30, right=30, bottom=30]".
func (p Padding) String() string {
	return fmt.Sprintf("[top=%s, left=%s, right=%s, bottom=%s]",
		formatFloat(p.Top), formatFloat(p.Left), formatFloat(p.Right), formatFloat(p.Bottom))
}

// ParsePadding parses an ELK padding value. Missing sides are zero.
func ParsePadding(s string) (Padding, error) {
	var p Padding
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return p, nil
	}
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return Padding{}, fmt.Errorf("invalid padding entry %q", part)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Padding{}, fmt.Errorf("invalid padding value %q: %w", v, err)
		}
		switch strings.TrimSpace(k) {
		case "top":
			p.Top = f
		case "left":
			p.Left = f
		case "right":
			p.Right = f
		case "bottom":
			p.Bottom = f
		default:
			return Padding{}, fmt.Errorf("unknown padding side %q", k)
		}
	}
	return p, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

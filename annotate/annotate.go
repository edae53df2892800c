// Package annotate schedules time-indexed vector annotations for the
// cvloop playback pipeline.
//
// Annotations target exactly one frame index. On every tick the
// scheduler resolves which annotations apply to the current index,
// merges their style over a default set, and emits drawable shape
// descriptors for the render sink. Shapes are vector primitives, never
// baked into the pixel buffer.
package annotate

import (
	"fmt"
)

// Shape identifies the outline drawn for an annotation.
type Shape string

const (
	// ShapeRect is a rectangle outline centered at the annotation position.
	ShapeRect Shape = "RECT"
	// ShapeCircle is a circle outline centered at the annotation position.
	ShapeCircle Shape = "CIRC"
)

// DefaultCircleRadius substitutes for a two-element size configured on a
// circle annotation, which only takes a scalar radius.
const DefaultCircleRadius = 30

// Color is an RGB triple.
type Color struct {
	R, G, B uint8
}

// Gray broadcasts a scalar gray value to an RGB triple by repetition.
func Gray(v uint8) Color {
	return Color{R: v, G: v, B: v}
}

// ParseHexColor parses an HTML hex color string like "#228B22".
func ParseHexColor(s string) (Color, error) {
	var c Color
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("invalid hex color %q", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("invalid hex color %q: %v", s, err)
	}
	return c, nil
}

// Size is a scalar or two-element annotation size. A zero H marks a
// scalar: circles read W as their radius, rectangles read W and H as
// full extents.
type Size struct {
	W, H int
}

// Scalar builds a scalar size (circle radius).
func Scalar(v int) Size {
	return Size{W: v}
}

// IsScalar reports whether the size is a single scalar value.
func (s Size) IsScalar() bool {
	return s.H == 0
}

// Style is the set of drawing attributes an annotation can override.
type Style struct {
	Shape Shape
	Color Color
	Line  int
	Size  Size
}

// DefaultStyle returns the global default style: a 20×20 forest green
// rectangle outline with line width 2.
func DefaultStyle() Style {
	return Style{
		Shape: ShapeRect,
		Color: Color{R: 34, G: 139, B: 34},
		Line:  2,
		Size:  Size{W: 20, H: 20},
	}
}

// Annotation is a vector shape scheduled to render on a specific frame
// index. Zero-valued style fields (empty Shape, nil Color, zero Line,
// nil Size) fall back to the scheduler's default style, each
// independently.
type Annotation struct {
	X, Y       int
	FrameIndex int
	Shape      Shape
	Color      *Color
	Line       int
	Size       *Size
}

// style merges the annotation's overrides over the default style.
func (a *Annotation) style(defaults Style) Style {
	merged := defaults
	if a.Shape != "" {
		merged.Shape = a.Shape
	}
	if a.Color != nil {
		merged.Color = *a.Color
	}
	if a.Line != 0 {
		merged.Line = a.Line
	}
	if a.Size != nil {
		merged.Size = *a.Size
	}
	return merged
}

// Kind tags the concrete shape of a descriptor.
type Kind uint8

const (
	// KindRect is a rectangle outline.
	KindRect Kind = iota
	// KindCircle is a circle outline.
	KindCircle
)

// ShapeDescriptor is a drawable vector primitive handed to the render
// sink. Rectangles are centered at (X, Y) with the given half-extents,
// circles are centered at (X, Y) with the given radius.
type ShapeDescriptor struct {
	Kind       Kind
	X, Y       int
	HalfWidth  int
	HalfHeight int
	Radius     int
	Color      Color
	Line       int
}

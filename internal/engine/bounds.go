package engine

import (
	"math"

	"github.com/leetdraw/leetdraw/internal/document"
)

const (
	// PercentPadding is the default bounds margin in percentage space.
	PercentPadding = 2.0

	// pixelPaddingScale converts the percentage margin to the pixel margin
	// (2 units in percentage space, 10 in pixel space).
	pixelPaddingScale = 5.0
)

// ComputeBounds derives the padded bounding box of a stored shape from its
// own geometry. It is the only place bounds are produced.
func ComputeBounds(s document.Shape, padding float64) document.Bounds {
	if s.Type == document.ShapeFree {
		return BoundsForPoints(s.Points, true, padding)
	}
	return BoundsForPoints([]float64{s.StartX, s.StartY, s.EndX, s.EndY}, true, padding)
}

// BoundsForPoints computes the padded box around a flat [x, y, x, y, ...]
// list. padding is the percentage-space margin; pixel-space boxes use five
// times that.
func BoundsForPoints(coords []float64, isPercentage bool, padding float64) document.Bounds {
	if len(coords) < 2 {
		return document.Bounds{IsPercentage: isPercentage}
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i+1 < len(coords); i += 2 {
		x, y := coords[i], coords[i+1]
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
		minY = math.Min(minY, y)
		maxY = math.Max(maxY, y)
	}

	pad := padding
	if !isPercentage {
		pad = padding * pixelPaddingScale
	}

	return document.Bounds{
		X1:           minX - pad,
		Y1:           minY - pad,
		X2:           maxX + pad,
		Y2:           maxY + pad,
		IsPercentage: isPercentage,
	}
}

// Rect represents an axis-aligned box in pixel space.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// cornerRect returns the normalized box spanned by two corners.
func cornerRect(x1, y1, x2, y2 float64) Rect {
	return Rect{
		X:      math.Min(x1, x2),
		Y:      math.Min(y1, y2),
		Width:  math.Abs(x2 - x1),
		Height: math.Abs(y2 - y1),
	}
}

// PixelBounds maps a shape's bounds onto a width x height surface, for
// selection outlines in the host UI.
func PixelBounds(b document.Bounds, width, height float64) Rect {
	if !b.IsPercentage {
		return cornerRect(b.X1, b.Y1, b.X2, b.Y2)
	}
	m := Denormalize(width, height)
	x1, y1 := m.TransformPoint(b.X1, b.Y1)
	x2, y2 := m.TransformPoint(b.X2, b.Y2)
	return cornerRect(x1, y1, x2, y2)
}

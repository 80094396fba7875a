package engine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/leetdraw/leetdraw/internal/document"
)

// Model owns the canonical, ordered list of shapes. Shapes are stored in
// percentage space; pixel coordinates only cross the boundary on insert
// and hit-test.
type Model struct {
	mu      sync.RWMutex
	shapes  []document.Shape
	padding float64
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithPadding sets the bounds margin in percentage space.
func WithPadding(padding float64) ModelOption {
	return func(m *Model) {
		if padding >= 0 {
			m.padding = padding
		}
	}
}

// NewModel creates an empty shape model.
func NewModel(opts ...ModelOption) *Model {
	m := &Model{
		shapes:  []document.Shape{},
		padding: PercentPadding,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Padding returns the bounds margin in percentage space.
func (m *Model) Padding() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.padding
}

// SetPadding changes the bounds margin and re-derives the bounds of every
// stored shape. Negative values are ignored.
func (m *Model) SetPadding(padding float64) {
	if padding < 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.padding = padding
	for i := range m.shapes {
		m.shapes[i].Bounds = ComputeBounds(m.shapes[i], padding)
	}
}

// AddFreehand normalizes a finished stroke and appends it. Empty input or a
// degenerate canvas is ignored.
func (m *Model) AddFreehand(raw []Point, style document.Style, width, height float64) {
	if len(raw) == 0 || width <= 0 || height <= 0 {
		return
	}

	norm := Normalize(width, height)
	coords := make([]float64, 0, len(raw)*2)
	for _, p := range raw {
		x, y := norm.TransformPoint(p.X, p.Y)
		coords = append(coords, x, y)
	}

	shape := document.Shape{
		Type:   document.ShapeFree,
		Points: coords,
		Style:  style,
	}
	m.mu.Lock()
	shape.Bounds = ComputeBounds(shape, m.padding)
	m.shapes = append(m.shapes, shape)
	m.mu.Unlock()
}

// AddParametric normalizes the two corners of a geometric shape and
// appends it. Unknown kinds are rejected with ErrInvalidShapeKind.
func (m *Model) AddParametric(kind document.ShapeType, start, end Point, style document.Style, width, height float64) error {
	if !kind.IsParametric() {
		return fmt.Errorf("%w: %q", document.ErrInvalidShapeKind, kind)
	}
	if width <= 0 || height <= 0 {
		return nil
	}

	norm := Normalize(width, height)
	sx, sy := norm.TransformPoint(start.X, start.Y)
	ex, ey := norm.TransformPoint(end.X, end.Y)

	shape := document.Shape{
		Type:   kind,
		StartX: sx,
		StartY: sy,
		EndX:   ex,
		EndY:   ey,
		Style:  style,
	}
	m.mu.Lock()
	shape.Bounds = ComputeBounds(shape, m.padding)
	m.shapes = append(m.shapes, shape)
	m.mu.Unlock()
	return nil
}

// HitTest returns the indices of every shape whose padded bounds contain
// the pixel point, in list order.
func (m *Model) HitTest(px, py, width, height float64) []int {
	if width <= 0 || height <= 0 {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return hitTest(m.shapes, px, py, width, height)
}

func hitTest(shapes []document.Shape, px, py, width, height float64) []int {
	pctX, pctY := Normalize(width, height).TransformPoint(px, py)

	var hits []int
	for i, s := range shapes {
		x, y := px, py
		if s.Bounds.IsPercentage {
			x, y = pctX, pctY
		}
		if s.Bounds.Contains(x, y) {
			hits = append(hits, i)
		}
	}
	return hits
}

// Remove deletes the shapes at the given indices in one pass and returns
// how many were removed. Out-of-range and duplicate indices are ignored.
func (m *Model) Remove(indices []int) int {
	if len(indices) == 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(indices)
}

func (m *Model) removeLocked(indices []int) int {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i >= 0 && i < len(m.shapes) {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return 0
	}

	kept := make([]document.Shape, 0, len(m.shapes)-len(drop))
	for i, s := range m.shapes {
		if !drop[i] {
			kept = append(kept, s)
		}
	}
	m.shapes = kept
	return len(drop)
}

// EraseAt removes every shape hit by the pixel point.
func (m *Model) EraseAt(px, py, width, height float64) int {
	if width <= 0 || height <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(hitTest(m.shapes, px, py, width, height))
}

// Clear empties the model.
func (m *Model) Clear() {
	m.mu.Lock()
	m.shapes = []document.Shape{}
	m.mu.Unlock()
}

// ReplaceAll adopts a whole shape list. Every shape is validated and its
// bounds re-derived before the swap; on error the model is left untouched.
func (m *Model) ReplaceAll(shapes []document.Shape) error {
	next := make([]document.Shape, len(shapes))
	for i, s := range shapes {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("shape %d: %w", i, err)
		}
		s.Points = slices.Clone(s.Points)
		next[i] = s
	}

	m.mu.Lock()
	for i := range next {
		next[i].Bounds = ComputeBounds(next[i], m.padding)
	}
	m.shapes = next
	m.mu.Unlock()
	return nil
}

// LoadDocument adopts a decoded canvas document.
func (m *Model) LoadDocument(doc *document.CanvasDocument) error {
	return m.ReplaceAll(doc.Shapes)
}

// Shapes returns a copy of the current shape list.
func (m *Model) Shapes() []document.Shape {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]document.Shape, len(m.shapes))
	for i, s := range m.shapes {
		s.Points = slices.Clone(s.Points)
		out[i] = s
	}
	return out
}

// Document snapshots the model as a canvas document.
func (m *Model) Document() *document.CanvasDocument {
	return &document.CanvasDocument{Shapes: m.Shapes()}
}

// Len returns the number of shapes.
func (m *Model) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.shapes)
}

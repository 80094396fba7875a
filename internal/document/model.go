package document

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidShapeKind = errors.New("invalid shape kind")

// ShapeType discriminates the shape union on the wire.
type ShapeType string

const (
	ShapeFree      ShapeType = "free"
	ShapeRectangle ShapeType = "rectangle"
	ShapeCircle    ShapeType = "circle"
	ShapeLine      ShapeType = "line"
	ShapeArrow     ShapeType = "arrow"
	ShapeArray     ShapeType = "array"
	ShapeStack     ShapeType = "stack"
)

// ParametricKinds lists the shape types defined by two corner points.
var ParametricKinds = []ShapeType{
	ShapeRectangle,
	ShapeCircle,
	ShapeLine,
	ShapeArrow,
	ShapeArray,
	ShapeStack,
}

// IsParametric reports whether t is one of the two-corner shape kinds.
func (t ShapeType) IsParametric() bool {
	for _, k := range ParametricKinds {
		if k == t {
			return true
		}
	}
	return false
}

// Valid reports whether t is a recognized shape type.
func (t ShapeType) Valid() bool {
	return t == ShapeFree || t.IsParametric()
}

// ParseShapeType converts a tool or wire name into a ShapeType.
func ParseShapeType(s string) (ShapeType, error) {
	t := ShapeType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidShapeKind, s)
	}
	return t, nil
}

// Style is captured when a shape is finalized.
type Style struct {
	StrokeColor string  `json:"strokeStyle"`
	LineWidth   float64 `json:"lineWidth"`
}

// Bounds is a padded axis-aligned box used for erase hit-testing.
type Bounds struct {
	X1           float64 `json:"x1"`
	Y1           float64 `json:"y1"`
	X2           float64 `json:"x2"`
	Y2           float64 `json:"y2"`
	IsPercentage bool    `json:"isPercentage"`
}

// Contains checks if a point (in the same space as the bounds) lies inside.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.X1 && x <= b.X2 && y >= b.Y1 && y <= b.Y2
}

// Shape is one drawn element. Freehand shapes carry Points as a flat
// [x%, y%, x%, y%, ...] list; parametric shapes carry the two corners.
type Shape struct {
	Type   ShapeType
	Points []float64
	StartX float64
	StartY float64
	EndX   float64
	EndY   float64
	Style  Style
	Bounds Bounds
}

type freeShapeJSON struct {
	Type   ShapeType `json:"type"`
	Points []float64 `json:"points"`
	Style  Style     `json:"style"`
	Bounds Bounds    `json:"bounds"`
}

type parametricShapeJSON struct {
	Type   ShapeType `json:"type"`
	StartX float64   `json:"startX"`
	StartY float64   `json:"startY"`
	EndX   float64   `json:"endX"`
	EndY   float64   `json:"endY"`
	Style  Style     `json:"style"`
	Bounds Bounds    `json:"bounds"`
}

type shapeWire struct {
	Type   ShapeType `json:"type"`
	Points []float64 `json:"points"`
	StartX float64   `json:"startX"`
	StartY float64   `json:"startY"`
	EndX   float64   `json:"endX"`
	EndY   float64   `json:"endY"`
	Style  Style     `json:"style"`
	Bounds *Bounds   `json:"bounds"`
}

func (s Shape) MarshalJSON() ([]byte, error) {
	switch {
	case s.Type == ShapeFree:
		points := s.Points
		if points == nil {
			points = []float64{}
		}
		return json.Marshal(freeShapeJSON{Type: s.Type, Points: points, Style: s.Style, Bounds: s.Bounds})
	case s.Type.IsParametric():
		return json.Marshal(parametricShapeJSON{
			Type:   s.Type,
			StartX: s.StartX,
			StartY: s.StartY,
			EndX:   s.EndX,
			EndY:   s.EndY,
			Style:  s.Style,
			Bounds: s.Bounds,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidShapeKind, s.Type)
	}
}

func (s *Shape) UnmarshalJSON(data []byte) error {
	var w shapeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidShapeKind, w.Type)
	}

	*s = Shape{Type: w.Type, Style: w.Style}
	if w.Bounds != nil {
		s.Bounds = *w.Bounds
	}
	if w.Type == ShapeFree {
		s.Points = w.Points
		return nil
	}
	s.StartX, s.StartY, s.EndX, s.EndY = w.StartX, w.StartY, w.EndX, w.EndY
	return nil
}

// Validate checks the geometry carried by the shape against its type.
func (s Shape) Validate() error {
	if !s.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidShapeKind, s.Type)
	}
	if s.Type == ShapeFree {
		if len(s.Points) < 2 || len(s.Points)%2 != 0 {
			return fmt.Errorf("free shape needs an even, non-empty coordinate list (got %d values)", len(s.Points))
		}
	}
	return nil
}

// CanvasDocument is the unit of persistence. Shape order is z-order.
type CanvasDocument struct {
	Shapes []Shape `json:"shapes"`
}

// Validate checks every shape; the first failure is returned with its index.
func (d *CanvasDocument) Validate() error {
	for i, s := range d.Shapes {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("shape %d: %w", i, err)
		}
	}
	return nil
}

// Encode serializes the document to its wire form.
func Encode(doc *CanvasDocument) ([]byte, error) {
	out := CanvasDocument{Shapes: doc.Shapes}
	if out.Shapes == nil {
		out.Shapes = []Shape{}
	}
	return json.Marshal(out)
}

// Decode parses and validates a wire document.
func Decode(data []byte) (*CanvasDocument, error) {
	var doc CanvasDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode canvas document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("decode canvas document: %w", err)
	}
	if doc.Shapes == nil {
		doc.Shapes = []Shape{}
	}
	return &doc, nil
}

// NewEmptyDocument creates a document with no shapes.
func NewEmptyDocument() *CanvasDocument {
	return &CanvasDocument{Shapes: []Shape{}}
}

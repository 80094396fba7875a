package document

// NewSampleDocument returns a small sketch of a two-pointer walk over an
// array: the array glyph, a pointer arrow, a stack, a scribbled note and a
// circled cell. Bounds are left zero; they are derived when a model adopts
// the shapes.
func NewSampleDocument() *CanvasDocument {
	pen := Style{StrokeColor: "#1a1a2e", LineWidth: 2}
	accent := Style{StrokeColor: "#e94560", LineWidth: 3}

	return &CanvasDocument{
		Shapes: []Shape{
			{
				Type:   ShapeArray,
				StartX: 10, StartY: 20,
				EndX: 60, EndY: 30,
				Style: pen,
			},
			{
				Type:   ShapeArrow,
				StartX: 15, StartY: 50,
				EndX: 15, EndY: 32,
				Style: accent,
			},
			{
				Type:   ShapeArrow,
				StartX: 55, StartY: 50,
				EndX: 55, EndY: 32,
				Style: accent,
			},
			{
				Type:   ShapeStack,
				StartX: 75, StartY: 20,
				EndX: 90, EndY: 70,
				Style: pen,
			},
			{
				Type:   ShapeCircle,
				StartX: 35, StartY: 25,
				EndX: 39, EndY: 25,
				Style: accent,
			},
			{
				Type: ShapeFree,
				Points: []float64{
					12, 60, 18, 62, 24, 61, 30, 63, 36, 62, 42, 64,
				},
				Style: pen,
			},
		},
	}
}

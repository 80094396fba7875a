package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leetdraw/leetdraw/internal/document"
)

func TestCompileStartsWithClear(t *testing.T) {
	cmds := Compile(nil, 100, 100)
	require.Len(t, cmds, 1)
	assert.Equal(t, "clear", cmds[0].Op)
	assert.Equal(t, -1, cmds[0].Index)
}

func TestCompileResolutionIndependent(t *testing.T) {
	shapes := []document.Shape{
		{Type: document.ShapeLine, StartX: 10, StartY: 20, EndX: 30, EndY: 40, Style: pen},
	}

	small := Compile(shapes, 100, 100)
	large := Compile(shapes, 500, 400)

	require.Len(t, small, 2)
	require.Len(t, large, 2)
	assert.Equal(t, []PathCommand{{"M", 10.0, 20.0}, {"L", 30.0, 40.0}}, small[1].Path)
	assert.Equal(t, []PathCommand{{"M", 50.0, 80.0}, {"L", 150.0, 160.0}}, large[1].Path)
	assert.Equal(t, "#000000", large[1].Stroke)
	assert.Equal(t, 2.0, large[1].StrokeWidth)
}

func TestCompileIsPure(t *testing.T) {
	shapes := document.NewSampleDocument().Shapes
	assert.Equal(t, Compile(shapes, 640, 480), Compile(shapes, 640, 480))
}

func TestCompileKeepsPainterOrder(t *testing.T) {
	shapes := []document.Shape{
		{Type: document.ShapeRectangle, StartX: 0, StartY: 0, EndX: 10, EndY: 10},
		{Type: document.ShapeFree, Points: []float64{1, 1, 2, 2}},
		{Type: document.ShapeCircle, StartX: 5, StartY: 5, EndX: 6, EndY: 6},
	}
	cmds := Compile(shapes, 100, 100)
	require.Len(t, cmds, 4)
	for i := 1; i < len(cmds); i++ {
		assert.Equal(t, i-1, cmds[i].Index)
	}
}

func TestShapePathCircle(t *testing.T) {
	s := document.Shape{Type: document.ShapeCircle, StartX: 50, StartY: 50, EndX: 50, EndY: 80}
	assert.Equal(t, []PathCommand{{"A", 50.0, 50.0, 30.0}}, shapePath(s, Identity()))
}

func TestShapePathRectangleNormalizesCorners(t *testing.T) {
	s := document.Shape{Type: document.ShapeRectangle, StartX: 40, StartY: 30, EndX: 10, EndY: 10}
	path := shapePath(s, Identity())
	require.Len(t, path, 5)
	assert.Equal(t, PathCommand{"M", 10.0, 10.0}, path[0])
	assert.Equal(t, PathCommand{"L", 40.0, 30.0}, path[2])
	assert.Equal(t, PathCommand{"Z"}, path[4])
}

func TestShapePathArrowBarbs(t *testing.T) {
	s := document.Shape{Type: document.ShapeArrow, StartX: 0, StartY: 0, EndX: 100, EndY: 0}
	path := shapePath(s, Identity())
	require.Len(t, path, 5)

	assert.Equal(t, PathCommand{"L", 100.0, 0.0}, path[1])

	// barbs sit 15px back along the shaft, 30 degrees either side
	assert.InDelta(t, 87.009, path[2][1].(float64), 1e-3)
	assert.InDelta(t, 7.5, path[2][2].(float64), 1e-9)
	assert.Equal(t, PathCommand{"M", 100.0, 0.0}, path[3])
	assert.InDelta(t, 87.009, path[4][1].(float64), 1e-3)
	assert.InDelta(t, -7.5, path[4][2].(float64), 1e-9)
}

func TestShapePathGlyphCells(t *testing.T) {
	array := shapePath(document.Shape{Type: document.ShapeArray, StartX: 0, StartY: 0, EndX: 50, EndY: 10}, Identity())
	require.Len(t, array, GlyphCells*5)
	assert.Equal(t, PathCommand{"M", 10.0, 0.0}, array[5])

	stack := shapePath(document.Shape{Type: document.ShapeStack, StartX: 0, StartY: 0, EndX: 10, EndY: 50}, Identity())
	require.Len(t, stack, GlyphCells*5)
	assert.Equal(t, PathCommand{"M", 0.0, 10.0}, stack[5])
}

func TestShapePathFreehand(t *testing.T) {
	s := document.Shape{Type: document.ShapeFree, Points: []float64{10, 10, 20, 10, 30, 20}}
	path := shapePath(s, Denormalize(200, 100))
	assert.Equal(t, []PathCommand{
		{"M", 20.0, 10.0},
		{"Q", 40.0, 10.0, 50.0, 15.0},
		{"L", 60.0, 20.0},
	}, path)
}

func TestDrawCommandsToJSON(t *testing.T) {
	out, err := DrawCommandsToJSON(Compile([]document.Shape{
		{Type: document.ShapeLine, StartX: 0, StartY: 0, EndX: 10, EndY: 10, Style: pen},
	}, 100, 100))
	require.NoError(t, err)

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "clear", decoded[0]["op"])
	assert.Equal(t, "path", decoded[1]["op"])
	assert.Equal(t, "#000000", decoded[1]["stroke"])
}

func TestPixelBounds(t *testing.T) {
	b := document.Bounds{X1: 10, Y1: 20, X2: 30, Y2: 40, IsPercentage: true}
	assert.Equal(t, Rect{X: 50, Y: 80, Width: 100, Height: 80}, PixelBounds(b, 500, 400))

	px := document.Bounds{X1: 1, Y1: 2, X2: 3, Y2: 5}
	assert.Equal(t, Rect{X: 1, Y: 2, Width: 2, Height: 3}, PixelBounds(px, 500, 400))
}

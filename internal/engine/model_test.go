package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leetdraw/leetdraw/internal/document"
)

var pen = document.Style{StrokeColor: "#000000", LineWidth: 2}

func TestAddFreehandNormalizes(t *testing.T) {
	m := NewModel()
	m.AddFreehand([]Point{{10, 10}, {20, 10}, {30, 10}, {40, 10}}, pen, 100, 100)

	shapes := m.Shapes()
	require.Len(t, shapes, 1)
	s := shapes[0]
	assert.Equal(t, document.ShapeFree, s.Type)
	assert.Equal(t, []float64{10, 10, 20, 10, 30, 10, 40, 10}, s.Points)
	assert.Equal(t, document.Bounds{X1: 8, Y1: 8, X2: 42, Y2: 12, IsPercentage: true}, s.Bounds)
	assert.Equal(t, pen, s.Style)
}

func TestAddFreehandPercentOfCanvas(t *testing.T) {
	m := NewModel()
	m.AddFreehand([]Point{{250, 100}}, pen, 500, 400)

	s := m.Shapes()[0]
	assert.InDelta(t, 50, s.Points[0], 1e-9)
	assert.InDelta(t, 25, s.Points[1], 1e-9)
}

func TestAddFreehandIgnoresEmpty(t *testing.T) {
	m := NewModel()
	m.AddFreehand(nil, pen, 100, 100)
	m.AddFreehand([]Point{{1, 1}}, pen, 0, 100)
	assert.Equal(t, 0, m.Len())
}

func TestAddParametric(t *testing.T) {
	m := NewModel()
	err := m.AddParametric(document.ShapeRectangle, Point{80, 60}, Point{20, 20}, pen, 200, 100)
	require.NoError(t, err)

	s := m.Shapes()[0]
	assert.Equal(t, 40.0, s.StartX)
	assert.Equal(t, 60.0, s.StartY)
	assert.Equal(t, 10.0, s.EndX)
	assert.Equal(t, 20.0, s.EndY)
	assert.Equal(t, document.Bounds{X1: 8, Y1: 18, X2: 42, Y2: 62, IsPercentage: true}, s.Bounds)
}

func TestAddParametricRejectsUnknownKind(t *testing.T) {
	m := NewModel()
	err := m.AddParametric("hexagon", Point{0, 0}, Point{10, 10}, pen, 100, 100)
	assert.ErrorIs(t, err, document.ErrInvalidShapeKind)

	err = m.AddParametric(document.ShapeFree, Point{0, 0}, Point{10, 10}, pen, 100, 100)
	assert.ErrorIs(t, err, document.ErrInvalidShapeKind)
	assert.Equal(t, 0, m.Len())
}

func TestHitTestContainment(t *testing.T) {
	sizes := [][2]float64{{100, 100}, {500, 400}, {1920, 1080}, {37, 911}}

	for _, size := range sizes {
		w, h := size[0], size[1]
		m := NewModel()
		require.NoError(t, m.AddParametric(document.ShapeArray, Point{0.2 * w, 0.3 * h}, Point{0.6 * w, 0.5 * h}, pen, w, h))

		// strictly inside the unpadded box, at a different canvas size
		for _, scale := range []float64{0.5, 1, 3} {
			sw, sh := w*scale, h*scale
			hits := m.HitTest(0.4*sw, 0.31*sh, sw, sh)
			assert.Equal(t, []int{0}, hits, "size %vx%v scale %v", w, h, scale)
		}
	}
}

func TestHitTestPaddingBoundary(t *testing.T) {
	m := NewModel()
	m.AddFreehand([]Point{{50, 50}, {60, 50}}, pen, 100, 100)

	assert.Equal(t, []int{0}, m.HitTest(48, 50, 100, 100), "on the padded edge")
	assert.Empty(t, m.HitTest(47.9, 50, 100, 100), "just outside the padding")
	assert.Equal(t, []int{0}, m.HitTest(62, 52, 100, 100))
	assert.Empty(t, m.HitTest(62.1, 52, 100, 100))
}

func TestHitTestConfigurablePadding(t *testing.T) {
	m := NewModel(WithPadding(0))
	m.AddFreehand([]Point{{50, 50}, {60, 50}}, pen, 100, 100)

	assert.Empty(t, m.HitTest(49, 50, 100, 100))
	assert.Equal(t, []int{0}, m.HitTest(55, 50, 100, 100))
}

func TestHitTestPixelBounds(t *testing.T) {
	m := NewModel()
	m.shapes = append(m.shapes, document.Shape{
		Type:   document.ShapeFree,
		Points: []float64{100, 100, 120, 100},
		Bounds: BoundsForPoints([]float64{100, 100, 120, 100}, false, PercentPadding),
	})

	assert.Equal(t, []int{0}, m.HitTest(92, 100, 400, 400))
	assert.Empty(t, m.HitTest(89, 100, 400, 400))
}

func TestEraseAtRemovesAllHits(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.AddParametric(document.ShapeRectangle, Point{10, 10}, Point{50, 50}, pen, 100, 100))
	m.AddFreehand([]Point{{80, 80}, {90, 90}}, pen, 100, 100)
	require.NoError(t, m.AddParametric(document.ShapeCircle, Point{20, 20}, Point{40, 40}, pen, 100, 100))

	removed := m.EraseAt(30, 30, 100, 100)
	assert.Equal(t, 2, removed)

	shapes := m.Shapes()
	require.Len(t, shapes, 1)
	assert.Equal(t, document.ShapeFree, shapes[0].Type)
}

func TestRemoveIgnoresBadIndices(t *testing.T) {
	m := NewModel()
	m.AddFreehand([]Point{{1, 1}}, pen, 100, 100)
	m.AddFreehand([]Point{{2, 2}}, pen, 100, 100)

	assert.Equal(t, 1, m.Remove([]int{1, 1, 7, -1}))
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 0, m.Remove(nil))
}

func TestClear(t *testing.T) {
	m := NewModel()
	m.AddFreehand([]Point{{1, 1}}, pen, 100, 100)
	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.NotNil(t, m.Shapes())
}

func TestReplaceAllIsAtomic(t *testing.T) {
	m := NewModel()
	m.AddFreehand([]Point{{1, 1}, {2, 2}}, pen, 100, 100)
	before := m.Shapes()

	err := m.ReplaceAll([]document.Shape{
		{Type: document.ShapeLine, StartX: 1, StartY: 1, EndX: 2, EndY: 2},
		{Type: "hexagon"},
	})
	require.ErrorIs(t, err, document.ErrInvalidShapeKind)
	assert.Equal(t, before, m.Shapes())
}

func TestReplaceAllRederivesBounds(t *testing.T) {
	m := NewModel()
	err := m.ReplaceAll([]document.Shape{{
		Type:   document.ShapeLine,
		StartX: 10, StartY: 20, EndX: 30, EndY: 40,
		Bounds: document.Bounds{X1: -999, Y1: -999, X2: 999, Y2: 999},
	}})
	require.NoError(t, err)

	assert.Equal(t, document.Bounds{X1: 8, Y1: 18, X2: 32, Y2: 42, IsPercentage: true}, m.Shapes()[0].Bounds)
}

func TestShapesReturnsCopy(t *testing.T) {
	m := NewModel()
	m.AddFreehand([]Point{{10, 10}, {20, 20}}, pen, 100, 100)

	shapes := m.Shapes()
	shapes[0].Points[0] = 99
	assert.Equal(t, 10.0, m.Shapes()[0].Points[0])
}

func TestModelRoundTrip(t *testing.T) {
	m := NewModel()
	m.AddFreehand(Smooth([]Point{{13, 27}, {41, 33}, {77, 12}, {90, 95}, {3, 3}}), pen, 333, 217)
	require.NoError(t, m.AddParametric(document.ShapeStack, Point{5, 7}, Point{200, 150}, document.Style{StrokeColor: "#ff0000", LineWidth: 5}, 333, 217))
	require.NoError(t, m.AddParametric(document.ShapeArrow, Point{300, 10}, Point{11, 200}, pen, 333, 217))

	data, err := document.Encode(m.Document())
	require.NoError(t, err)
	doc, err := document.Decode(data)
	require.NoError(t, err)

	loaded := NewModel()
	require.NoError(t, loaded.LoadDocument(doc))
	assert.Equal(t, m.Shapes(), loaded.Shapes())
}

func TestReplaceAllConcurrentWithRender(t *testing.T) {
	m := NewModel()
	a := []document.Shape{{Type: document.ShapeLine, StartX: 1, StartY: 1, EndX: 2, EndY: 2}}
	b := []document.Shape{
		{Type: document.ShapeRectangle, StartX: 1, StartY: 1, EndX: 2, EndY: 2},
		{Type: document.ShapeCircle, StartX: 1, StartY: 1, EndX: 2, EndY: 2},
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				_ = m.ReplaceAll(a)
			} else {
				_ = m.ReplaceAll(b)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			cmds := Compile(m.Shapes(), 100, 100)
			n := len(cmds) - 1
			assert.Contains(t, []int{0, 1, 2}, n)
			if n == 2 {
				assert.Equal(t, cmds[1].Path[0][0], "M")
			}
		}
	}()
	wg.Wait()
}

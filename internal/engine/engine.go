package engine

import (
	"encoding/json"
	"fmt"

	"github.com/leetdraw/leetdraw/internal/document"
)

// ToolEraser selects erase mode.
const ToolEraser = "eraser"

// Engine owns the shape model of one open drawer along with the tool,
// pen and in-progress gesture state. It processes pointer input from the
// frontend and answers render queries.
type Engine struct {
	model *Model

	// Surface size in pixels
	width  float64
	height float64

	// Tool state: "free", a parametric kind, or "eraser"
	tool  string
	style document.Style

	// Gesture state
	drawing bool
	stroke  *Stroke
	start   Point
	last    Point
}

// NewEngine creates an engine with an empty model on the extension's
// initial 500x400 surface.
func NewEngine(opts ...ModelOption) *Engine {
	return &Engine{
		model:  NewModel(opts...),
		width:  500,
		height: 400,
		tool:   string(document.ShapeFree),
		style:  document.Style{StrokeColor: defaultStrokeColor, LineWidth: 2},
	}
}

// Model returns the engine's shape model.
func (e *Engine) Model() *Model {
	return e.model
}

// --- Commands (frontend → backend) ---

// Resize records the new surface size. Callers redraw with Render.
func (e *Engine) Resize(width, height float64) {
	if width > 0 && height > 0 {
		e.width = width
		e.height = height
	}
}

// SetTool selects "free", a parametric shape kind, or "eraser". A gesture
// in progress is dropped without adding a shape.
func (e *Engine) SetTool(tool string) error {
	if tool != ToolEraser {
		if _, err := document.ParseShapeType(tool); err != nil {
			return err
		}
	}
	e.tool = tool
	e.drawing = false
	e.stroke = nil
	return nil
}

// SetPadding changes the hit-test margin for every shape on the surface.
func (e *Engine) SetPadding(padding float64) {
	e.model.SetPadding(padding)
}

// SetStyle updates the pen. Shapes already finalized keep their style.
func (e *Engine) SetStyle(color string, lineWidth float64) {
	if color != "" {
		e.style.StrokeColor = color
	}
	if lineWidth > 0 {
		e.style.LineWidth = lineWidth
	}
}

// PointerDown starts a gesture at a pixel position.
func (e *Engine) PointerDown(x, y float64) {
	p := Point{X: x, Y: y}
	e.drawing = true
	e.start, e.last = p, p

	switch e.tool {
	case ToolEraser:
		e.model.EraseAt(x, y, e.width, e.height)
	case string(document.ShapeFree):
		e.stroke = NewStroke(p)
	}
}

// PointerMove extends the gesture and returns preview draw commands: the
// incremental stroke segment for freehand, the shape outline for
// parametric tools, nothing for the eraser.
func (e *Engine) PointerMove(x, y float64) []DrawCommand {
	if !e.drawing {
		return nil
	}
	p := Point{X: x, Y: y}
	e.last = p

	switch e.tool {
	case ToolEraser:
		e.model.EraseAt(x, y, e.width, e.height)
		return nil
	case string(document.ShapeFree):
		return []DrawCommand{e.previewCommand(e.stroke.Add(p))}
	default:
		preview := document.Shape{Type: document.ShapeType(e.tool)}
		return []DrawCommand{e.previewCommand(shapePath(e.pixelShape(preview), Identity()))}
	}
}

// PointerUp finalizes the gesture into the model.
func (e *Engine) PointerUp() error {
	if !e.drawing {
		return nil
	}
	e.drawing = false
	style := e.style

	switch e.tool {
	case ToolEraser:
		return nil
	case string(document.ShapeFree):
		s := e.stroke
		e.stroke = nil
		if s == nil || s.Len() == 0 {
			return nil
		}
		e.model.AddFreehand(s.Finish(), style, e.width, e.height)
		return nil
	default:
		return e.model.AddParametric(document.ShapeType(e.tool), e.start, e.last, style, e.width, e.height)
	}
}

// EraseAt removes every shape under a pixel position.
func (e *Engine) EraseAt(x, y float64) int {
	return e.model.EraseAt(x, y, e.width, e.height)
}

// Clear empties the model.
func (e *Engine) Clear() {
	e.model.Clear()
}

// LoadDocument replaces the model from document JSON. A document that does
// not decode leaves the model untouched.
func (e *Engine) LoadDocument(jsonData string) error {
	doc, err := document.Decode([]byte(jsonData))
	if err != nil {
		return err
	}
	return e.model.LoadDocument(doc)
}

// LoadSampleDocument loads the built-in sample sketch.
func (e *Engine) LoadSampleDocument() error {
	return e.model.LoadDocument(document.NewSampleDocument())
}

// --- Queries (frontend ← backend) ---

// Render compiles the model at the current surface size.
func (e *Engine) Render() []DrawCommand {
	return Compile(e.model.Shapes(), e.width, e.height)
}

// RenderJSON compiles the model and serializes the commands.
func (e *Engine) RenderJSON() string {
	result, _ := DrawCommandsToJSON(e.Render())
	return result
}

// HitTest returns the indices of shapes under a pixel position.
func (e *Engine) HitTest(x, y float64) []int {
	return e.model.HitTest(x, y, e.width, e.height)
}

// HitBounds returns the pixel box enclosing every shape under a position.
func (e *Engine) HitBounds(x, y float64) Rect {
	shapes := e.model.Shapes()
	var result Rect
	for _, i := range e.HitTest(x, y) {
		result = result.Union(PixelBounds(shapes[i].Bounds, e.width, e.height))
	}
	return result
}

// Document returns the model as document JSON.
func (e *Engine) Document() (string, error) {
	data, err := document.Encode(e.model.Document())
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(data), nil
}

// State returns the tool and surface state as JSON.
func (e *Engine) State() string {
	data, _ := json.Marshal(map[string]interface{}{
		"tool":    e.tool,
		"style":   e.style,
		"width":   e.width,
		"height":  e.height,
		"drawing": e.drawing,
		"shapes":  e.model.Len(),
		"padding": e.model.Padding(),
	})
	return string(data)
}

// pixelShape fills a parametric shape with the current drag corners in
// pixel space, for previews.
func (e *Engine) pixelShape(s document.Shape) document.Shape {
	s.StartX, s.StartY = e.start.X, e.start.Y
	s.EndX, s.EndY = e.last.X, e.last.Y
	return s
}

func (e *Engine) previewCommand(path []PathCommand) DrawCommand {
	return DrawCommand{
		Op:          "path",
		Index:       -1,
		Path:        path,
		Stroke:      e.style.StrokeColor,
		StrokeWidth: e.style.LineWidth,
	}
}

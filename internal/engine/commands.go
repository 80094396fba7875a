package engine

import (
	"encoding/json"
	"math"

	"github.com/leetdraw/leetdraw/internal/document"
)

const (
	// GlyphCells is the number of cells drawn for array and stack glyphs.
	GlyphCells = 5

	// ArrowHeadLength is the barb length in pixels.
	ArrowHeadLength = 15.0

	// ArrowHeadAngle is the barb angle from the shaft.
	ArrowHeadAngle = math.Pi / 6
)

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Q", cx, cy, x, y],
// ["A", cx, cy, r] for a full circle, ["Z"].
type PathCommand []interface{}

// DrawCommand represents a single drawing operation for the frontend to execute.
type DrawCommand struct {
	Op          string        `json:"op"`                    // "clear" or "path"
	Index       int           `json:"index"`                 // shape index, for hit correlation
	Path        []PathCommand `json:"path,omitempty"`        // pixel-space path data
	Stroke      string        `json:"stroke,omitempty"`      // stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // line width
}

// Compile generates the draw command buffer for a shape list on a
// width x height surface. Commands are in painter's order, starting with a
// clear. The result depends only on the arguments.
func Compile(shapes []document.Shape, width, height float64) []DrawCommand {
	commands := make([]DrawCommand, 0, len(shapes)+1)
	commands = append(commands, DrawCommand{Op: "clear", Index: -1})

	m := Denormalize(width, height)
	for i, s := range shapes {
		path := shapePath(s, m)
		if len(path) == 0 {
			continue
		}
		commands = append(commands, DrawCommand{
			Op:          "path",
			Index:       i,
			Path:        path,
			Stroke:      s.Style.StrokeColor,
			StrokeWidth: s.Style.LineWidth,
		})
	}
	return commands
}

// shapePath generates pixel-space path commands for one shape.
func shapePath(s document.Shape, m Matrix2D) []PathCommand {
	if s.Type == document.ShapeFree {
		points := make([]Point, 0, len(s.Points)/2)
		for i := 0; i+1 < len(s.Points); i += 2 {
			x, y := m.TransformPoint(s.Points[i], s.Points[i+1])
			points = append(points, Point{X: x, Y: y})
		}
		return QuadraticPath(points)
	}

	sx, sy := m.TransformPoint(s.StartX, s.StartY)
	ex, ey := m.TransformPoint(s.EndX, s.EndY)

	switch s.Type {
	case document.ShapeRectangle:
		return rectPath(cornerRect(sx, sy, ex, ey))

	case document.ShapeCircle:
		radius := math.Hypot(ex-sx, ey-sy)
		return []PathCommand{{"A", sx, sy, radius}}

	case document.ShapeLine:
		return []PathCommand{{"M", sx, sy}, {"L", ex, ey}}

	case document.ShapeArrow:
		return arrowPath(sx, sy, ex, ey)

	case document.ShapeArray:
		r := cornerRect(sx, sy, ex, ey)
		cell := r.Width / GlyphCells
		var path []PathCommand
		for i := 0; i < GlyphCells; i++ {
			path = append(path, rectPath(Rect{X: r.X + float64(i)*cell, Y: r.Y, Width: cell, Height: r.Height})...)
		}
		return path

	case document.ShapeStack:
		r := cornerRect(sx, sy, ex, ey)
		cell := r.Height / GlyphCells
		var path []PathCommand
		for i := 0; i < GlyphCells; i++ {
			path = append(path, rectPath(Rect{X: r.X, Y: r.Y + float64(i)*cell, Width: r.Width, Height: cell})...)
		}
		return path
	}
	return nil
}

func rectPath(r Rect) []PathCommand {
	return []PathCommand{
		{"M", r.X, r.Y},
		{"L", r.X + r.Width, r.Y},
		{"L", r.X + r.Width, r.Y + r.Height},
		{"L", r.X, r.Y + r.Height},
		{"Z"},
	}
}

// arrowPath draws the shaft and two barbs rotated ±ArrowHeadAngle from the
// reversed shaft direction.
func arrowPath(sx, sy, ex, ey float64) []PathCommand {
	angle := math.Atan2(ey-sy, ex-sx)
	dx, dy := math.Cos(angle), math.Sin(angle)

	lx, ly := Rotate(-ArrowHeadAngle).TransformPoint(dx, dy)
	rx, ry := Rotate(ArrowHeadAngle).TransformPoint(dx, dy)

	return []PathCommand{
		{"M", sx, sy},
		{"L", ex, ey},
		{"L", ex - ArrowHeadLength*lx, ey - ArrowHeadLength*ly},
		{"M", ex, ey},
		{"L", ex - ArrowHeadLength*rx, ey - ArrowHeadLength*ry},
	}
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// toFloat64 converts a path command operand to float64.
func toFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

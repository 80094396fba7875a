package engine

import (
	"fmt"
	"image"
	"io"
	"math"

	"github.com/gogpu/gg"

	"github.com/leetdraw/leetdraw/internal/document"
)

const defaultStrokeColor = "#000000"

// Rasterize executes a draw command buffer on a fresh width x height
// surface using the software renderer.
func Rasterize(commands []DrawCommand, width, height int) (image.Image, error) {
	dc, err := rasterize(commands, width, height)
	if err != nil {
		return nil, err
	}
	defer dc.Close()
	return dc.Image(), nil
}

// Render rasterizes a shape list at the given pixel size. Resizing always
// goes through here with the new size; pixels are never rescaled.
func Render(shapes []document.Shape, width, height int) (image.Image, error) {
	return Rasterize(Compile(shapes, float64(width), float64(height)), width, height)
}

// RenderPNG renders a shape list and writes it as PNG.
func RenderPNG(w io.Writer, shapes []document.Shape, width, height int) error {
	dc, err := rasterize(Compile(shapes, float64(width), float64(height)), width, height)
	if err != nil {
		return err
	}
	defer dc.Close()
	return dc.EncodePNG(w)
}

func rasterize(commands []DrawCommand, width, height int) (*gg.Context, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid surface size %dx%d", width, height)
	}

	dc := gg.NewContext(width, height)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	for i, cmd := range commands {
		switch cmd.Op {
		case "clear":
			dc.Clear()
		case "path":
			if err := strokePath(dc, cmd); err != nil {
				dc.Close()
				return nil, fmt.Errorf("draw command %d: %w", i, err)
			}
		}
	}
	if err := dc.FlushGPU(); err != nil {
		dc.Close()
		return nil, fmt.Errorf("flush: %w", err)
	}
	return dc, nil
}

func strokePath(dc *gg.Context, cmd DrawCommand) error {
	color := cmd.Stroke
	if color == "" {
		color = defaultStrokeColor
	}
	width := cmd.StrokeWidth
	if width <= 0 {
		width = 1
	}
	dc.SetHexColor(color)
	dc.SetLineWidth(width)

	for _, pc := range cmd.Path {
		if len(pc) == 0 {
			continue
		}
		op, ok := pc[0].(string)
		if !ok {
			continue
		}

		switch op {
		case "M":
			if len(pc) >= 3 {
				dc.MoveTo(toFloat64(pc[1]), toFloat64(pc[2]))
			}
		case "L":
			if len(pc) >= 3 {
				dc.LineTo(toFloat64(pc[1]), toFloat64(pc[2]))
			}
		case "Q":
			if len(pc) >= 5 {
				dc.QuadraticTo(toFloat64(pc[1]), toFloat64(pc[2]), toFloat64(pc[3]), toFloat64(pc[4]))
			}
		case "A":
			if len(pc) >= 4 {
				if r := toFloat64(pc[3]); r > 0 && !math.IsInf(r, 0) {
					dc.DrawCircle(toFloat64(pc[1]), toFloat64(pc[2]), r)
				}
			}
		case "Z":
			dc.ClosePath()
		}
	}
	return dc.Stroke()
}

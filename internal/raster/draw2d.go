package raster

import (
	"image/color"

	ftraster "github.com/golang/freetype/raster"
	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dimg"
)

// coverageCutoff is the span coverage at or above which a pixel takes the
// paint value; it is the 1-bit equivalent of the 128 luminance threshold.
const coverageCutoff = 0x8000

// ringWidth is the stroke width of ellipse outlines. A 1px stroke leaves
// gaps on diagonals once coverage is thresholded.
const ringWidth = 1.25

// spanPainter writes rasterizer spans straight into the canvas. draw2dimg's
// stock painters only target RGBA images.
type spanPainter struct {
	c *Canvas
	v uint8
}

func (p *spanPainter) Paint(ss []ftraster.Span, done bool) {
	for _, s := range ss {
		if s.Alpha < coverageCutoff || s.Y < 0 || s.Y >= p.c.height {
			continue
		}
		x0, x1 := max(s.X0, 0), min(s.X1, p.c.width)
		row := p.c.pix[s.Y*p.c.width : (s.Y+1)*p.c.width]
		for x := x0; x < x1; x++ {
			row[x] = p.v
		}
	}
}

func (p *spanPainter) SetColor(col color.Color) {
	p.v = Threshold(col)
}

// pen returns a graphic context that paints v onto the canvas with 1px
// square-capped strokes.
func (c *Canvas) pen(v uint8) *draw2dimg.GraphicContext {
	gc := draw2dimg.NewGraphicContextWithPainter(c, &spanPainter{c: c, v: v})
	col := color.Gray{Y: 0xff}
	if v == Ink {
		col = color.Gray{Y: 0}
	}
	gc.SetFillColor(col)
	gc.SetStrokeColor(col)
	gc.SetLineWidth(1)
	gc.SetLineCap(draw2d.SquareCap)
	gc.SetLineJoin(draw2d.RoundJoin)
	return gc
}

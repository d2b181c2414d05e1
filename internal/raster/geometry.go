package raster

import (
	"github.com/llgcode/draw2d"
	"github.com/llgcode/draw2d/draw2dkit"
)

// Shapes go through draw2d with integer coordinates naming pixels: a pixel
// (x, y) is the unit square whose centre is (x+0.5, y+0.5).

// Line draws a 1px line between both end points, inclusive.
func (c *Canvas) Line(x0, y0, x1, y1 int, v uint8) {
	if x0 == x1 || y0 == y1 {
		c.FillRect(min(x0, x1), min(y0, y1), abs(x1-x0)+1, abs(y1-y0)+1, v)
		return
	}
	gc := c.pen(v)
	gc.MoveTo(float64(x0)+0.5, float64(y0)+0.5)
	gc.LineTo(float64(x1)+0.5, float64(y1)+0.5)
	gc.Stroke()
}

func (c *Canvas) HLine(x0, x1, y int, v uint8) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	c.FillRect(x0, y, x1-x0+1, 1, v)
}

func (c *Canvas) VLine(x, y0, y1 int, v uint8) {
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	c.FillRect(x, y0, 1, y1-y0+1, v)
}

// Rect outlines the w×h rectangle whose top-left corner is (x, y).
func (c *Canvas) Rect(x, y, w, h int, v uint8) {
	if w <= 0 || h <= 0 {
		return
	}
	gc := c.pen(v)
	draw2dkit.Rectangle(gc, float64(x), float64(y), float64(x+w), float64(y+h))
	if w > 2 && h > 2 {
		// even-odd fill of the inner rectangle leaves a 1px frame
		draw2dkit.Rectangle(gc, float64(x+1), float64(y+1), float64(x+w-1), float64(y+h-1))
	}
	gc.Fill()
}

// FillRect paints the w×h rectangle whose top-left corner is (x, y). Empty
// rectangles draw nothing.
func (c *Canvas) FillRect(x, y, w, h int, v uint8) {
	if w <= 0 || h <= 0 {
		return
	}
	gc := c.pen(v)
	draw2dkit.Rectangle(gc, float64(x), float64(y), float64(x+w), float64(y+h))
	gc.Fill()
}

// Ellipse outlines the ellipse inscribed in the bounding box (x0,y0)-(x1,y1).
// The ring is centred on the box's edge pixels.
func (c *Canvas) Ellipse(x0, y0, x1, y1 int, v uint8) {
	cx, cy, rx, ry, ok := ellipseBox(x0, y0, x1, y1)
	if !ok {
		c.Line(x0, y0, x1, y1, v)
		return
	}
	gc := c.pen(v)
	gc.SetLineWidth(ringWidth)
	gc.SetLineCap(draw2d.ButtCap)
	draw2dkit.Ellipse(gc, cx, cy, rx, ry)
	gc.Stroke()
}

// FillEllipse paints the ellipse inscribed in the bounding box (x0,y0)-(x1,y1),
// edge pixels included.
func (c *Canvas) FillEllipse(x0, y0, x1, y1 int, v uint8) {
	cx, cy, rx, ry, ok := ellipseBox(x0, y0, x1, y1)
	if !ok {
		c.Line(x0, y0, x1, y1, v)
		return
	}
	gc := c.pen(v)
	draw2dkit.Ellipse(gc, cx, cy, rx+0.5, ry+0.5)
	gc.Fill()
}

func ellipseBox(x0, y0, x1, y1 int) (cx, cy, rx, ry float64, ok bool) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	rx = float64(x1-x0) / 2
	ry = float64(y1-y0) / 2
	cx = float64(x0+x1)/2 + 0.5
	cy = float64(y0+y1)/2 + 0.5
	return cx, cy, rx, ry, rx > 0 && ry > 0
}

// FillTriangle paints the triangle with the given vertices. The outline is
// stroked and every vertex gets a dot, so edges and vertex pixels are
// included even at sharp tips.
func (c *Canvas) FillTriangle(x0, y0, x1, y1, x2, y2 int, v uint8) {
	gc := c.pen(v)
	gc.SetLineCap(draw2d.ButtCap)
	gc.MoveTo(float64(x0)+0.5, float64(y0)+0.5)
	gc.LineTo(float64(x1)+0.5, float64(y1)+0.5)
	gc.LineTo(float64(x2)+0.5, float64(y2)+0.5)
	gc.Close()
	gc.FillStroke()

	// one fill per dot: ArcTo joins a non-empty path with a line
	for _, p := range [3][2]int{{x0, y0}, {x1, y1}, {x2, y2}} {
		draw2dkit.Circle(gc, float64(p[0])+0.5, float64(p[1])+0.5, 0.5)
		gc.Fill()
	}
}

// DrawDirectionalSunGlyph draws a sunrise (ascending) or sunset glyph into the
// size×size box at (x, y): a ringed sun on the left and a triangular arrow on
// the right. The arrow base is size/4 wide and its tip stops 2px short of the
// glyph edge it points to.
func (c *Canvas) DrawDirectionalSunGlyph(x, y, size int, ascending bool) {
	if size < 8 {
		return
	}
	r := size / 3
	cx := x + r
	cy := y + size/2
	c.Ellipse(cx-r, cy-r, cx+r, cy+r, Ink)
	c.Ellipse(cx-r+2, cy-r+2, cx+r-2, cy+r-2, Ink)

	base := size / 4
	ax := x + size - 3 - base/2
	left := ax - base/2
	right := left + base
	mid := y + size/2
	if ascending {
		tip := y + 2
		c.FillTriangle(left, mid, right, mid, ax, tip, Ink)
		return
	}
	tip := y + size - 1 - 2
	c.FillTriangle(left, mid, right, mid, ax, tip, Ink)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

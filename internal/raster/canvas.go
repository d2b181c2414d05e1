// Package raster holds the monochrome canvas every panel widget is drawn on,
// the shape primitives used by the widgets and the bitmap packer that turns a
// canvas into the byte layout the display firmware expects.
package raster

import (
	"image"
	"image/color"
)

const (
	// Ink is a black pixel.
	Ink uint8 = 0
	// Paper is a white (background) pixel.
	Paper uint8 = 1
)

// BinaryModel converts any color to pure black or white, thresholding the
// luminance at 128 the same way icons are binarized.
var BinaryModel = color.ModelFunc(func(c color.Color) color.Color {
	if Threshold(c) == Ink {
		return color.Gray{Y: 0}
	}
	return color.Gray{Y: 0xff}
})

// Threshold maps a color to Ink when its luminance is below 128.
func Threshold(c color.Color) uint8 {
	g := color.GrayModel.Convert(c).(color.Gray)
	if g.Y < 128 {
		return Ink
	}
	return Paper
}

// Canvas is a fixed size 1-bit raster. It implements draw.Image so glyphs and
// icons can be composited onto it with the image/draw machinery; every write
// is thresholded so the canvas never holds anything but Ink or Paper.
type Canvas struct {
	width  int
	height int
	pix    []uint8
}

// New returns a canvas filled with bg.
func New(width, height int, bg uint8) *Canvas {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	c := &Canvas{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height),
	}
	if bg != Ink {
		c.Fill(bg)
	}
	return c
}

func (c *Canvas) Width() int  { return c.width }
func (c *Canvas) Height() int { return c.height }

func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.width, c.height)
}

func (c *Canvas) ColorModel() color.Model { return BinaryModel }

func (c *Canvas) At(x, y int) color.Color {
	if c.Pixel(x, y) == Ink {
		return color.Gray{Y: 0}
	}
	return color.Gray{Y: 0xff}
}

func (c *Canvas) Set(x, y int, col color.Color) {
	c.SetPixel(x, y, Threshold(col))
}

// Pixel returns the value at (x, y). Out of range reads return Paper.
func (c *Canvas) Pixel(x, y int) uint8 {
	if !c.in(x, y) {
		return Paper
	}
	return c.pix[y*c.width+x]
}

// SetPixel writes v at (x, y), silently clipping out of range writes.
func (c *Canvas) SetPixel(x, y int, v uint8) {
	if !c.in(x, y) {
		return
	}
	if v != Ink {
		v = Paper
	}
	c.pix[y*c.width+x] = v
}

func (c *Canvas) Fill(v uint8) {
	if v != Ink {
		v = Paper
	}
	for i := range c.pix {
		c.pix[i] = v
	}
}

// Blit copies the ink pixels of src onto c with src's origin at (x, y). Paper
// pixels of src are transparent.
func (c *Canvas) Blit(src *Canvas, x, y int, ink uint8) {
	if src == nil {
		return
	}
	for sy := 0; sy < src.height; sy++ {
		for sx := 0; sx < src.width; sx++ {
			if src.pix[sy*src.width+sx] == Ink {
				c.SetPixel(x+sx, y+sy, ink)
			}
		}
	}
}

// Gray converts the canvas to an 8-bit image for PNG previews.
func (c *Canvas) Gray() *image.Gray {
	img := image.NewGray(c.Bounds())
	for i, v := range c.pix {
		if v != Ink {
			img.Pix[i] = 0xff
		}
	}
	return img
}

// FromImage binarizes any image into a new canvas.
func FromImage(img image.Image) *Canvas {
	b := img.Bounds()
	c := New(b.Dx(), b.Dy(), Paper)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c.pix[(y-b.Min.Y)*c.width+(x-b.Min.X)] = Threshold(img.At(x, y))
		}
	}
	return c
}

func (c *Canvas) in(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

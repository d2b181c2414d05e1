package raster

import "fmt"

// FormatBitmap is the only format tag the panel firmware accepts.
const FormatBitmap = "bitmap"

// PackedFrame is a canvas serialized for the display: rows top to bottom,
// pixels left to right, most significant bit first, each row padded to a whole
// byte. A set bit is Paper.
type PackedFrame struct {
	Payload []byte
	Width   int
	Height  int
	Format  string
}

// BytesPerRow returns ceil(width/8).
func BytesPerRow(width int) int {
	return (width + 7) / 8
}

// Pack serializes c. When invert is set every pixel is flipped before
// packing; the trailing padding bits of each row are always zero.
func Pack(c *Canvas, invert bool) PackedFrame {
	stride := BytesPerRow(c.width)
	out := make([]byte, stride*c.height)
	for y := 0; y < c.height; y++ {
		row := out[y*stride : (y+1)*stride]
		for x := 0; x < c.width; x++ {
			bit := c.pix[y*c.width+x]
			if invert {
				bit ^= 1
			}
			if bit != 0 {
				row[x>>3] |= 0x80 >> uint(x&7)
			}
		}
	}
	return PackedFrame{
		Payload: out,
		Width:   c.width,
		Height:  c.height,
		Format:  FormatBitmap,
	}
}

// Unpack rebuilds the canvas a frame was packed from (with invert=false).
func Unpack(f PackedFrame) (*Canvas, error) {
	stride := BytesPerRow(f.Width)
	if f.Width < 0 || f.Height < 0 || len(f.Payload) != stride*f.Height {
		return nil, fmt.Errorf("raster: payload is %d bytes, want %d for %dx%d",
			len(f.Payload), stride*f.Height, f.Width, f.Height)
	}
	c := New(f.Width, f.Height, Ink)
	for y := 0; y < f.Height; y++ {
		row := f.Payload[y*stride : (y+1)*stride]
		for x := 0; x < f.Width; x++ {
			if row[x>>3]&(0x80>>uint(x&7)) != 0 {
				c.pix[y*c.width+x] = Paper
			}
		}
	}
	return c, nil
}

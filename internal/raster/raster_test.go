package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackLengthInvariant(t *testing.T) {
	sizes := []struct{ w, h int }{
		{800, 56}, {496, 120}, {304, 176}, {304, 192}, {496, 128},
		{1, 1}, {7, 3}, {9, 2}, {13, 5}, {0, 4},
	}
	for _, s := range sizes {
		f := Pack(New(s.w, s.h, Paper), false)
		assert.Equal(t, BytesPerRow(s.w)*s.h, len(f.Payload), "%dx%d", s.w, s.h)
		assert.Equal(t, FormatBitmap, f.Format)
	}
}

func TestPackBitOrder(t *testing.T) {
	c := New(8, 1, Ink)
	c.SetPixel(0, 0, Paper)
	c.SetPixel(7, 0, Paper)

	assert.Equal(t, []byte{0x81}, Pack(c, false).Payload)
	assert.Equal(t, []byte{0x7e}, Pack(c, true).Payload)
}

func TestPackPaddingStaysZero(t *testing.T) {
	c := New(3, 2, Paper)
	assert.Equal(t, []byte{0xe0, 0xe0}, Pack(c, false).Payload)

	c.Fill(Ink)
	assert.Equal(t, []byte{0xe0, 0xe0}, Pack(c, true).Payload)
}

func TestPackUnpackCheckerboard(t *testing.T) {
	for _, w := range []int{8, 13, 304} {
		c := New(w, 11, Paper)
		for y := 0; y < 11; y++ {
			for x := 0; x < w; x++ {
				if (x+y)%2 == 0 {
					c.SetPixel(x, y, Ink)
				}
			}
		}

		back, err := Unpack(Pack(c, false))
		require.NoError(t, err)
		require.Equal(t, c.Width(), back.Width())
		require.Equal(t, c.Height(), back.Height())
		for y := 0; y < 11; y++ {
			for x := 0; x < w; x++ {
				require.Equal(t, c.Pixel(x, y), back.Pixel(x, y), "pixel %d,%d width %d", x, y, w)
			}
		}
	}
}

func TestUnpackRejectsShortPayload(t *testing.T) {
	_, err := Unpack(PackedFrame{Payload: make([]byte, 3), Width: 16, Height: 2})
	assert.Error(t, err)
}

func TestCanvasClipsAndThresholds(t *testing.T) {
	c := New(4, 4, Paper)
	c.SetPixel(-1, 0, Ink)
	c.SetPixel(4, 4, Ink)
	assert.Equal(t, Paper, c.Pixel(-1, 0))

	c.Set(1, 1, BinaryModel.Convert(c.At(0, 0)))
	assert.Equal(t, Paper, c.Pixel(1, 1))

	c.SetPixel(2, 2, 7)
	assert.Equal(t, Paper, c.Pixel(2, 2))
}

func TestBlitCopiesInkOnly(t *testing.T) {
	dst := New(4, 4, Ink)
	src := New(2, 2, Paper)
	src.SetPixel(0, 0, Ink)
	dst.Fill(Paper)
	dst.Blit(src, 1, 1, Ink)

	assert.Equal(t, Ink, dst.Pixel(1, 1))
	assert.Equal(t, Paper, dst.Pixel(2, 2))
}

func TestRectAndFillRect(t *testing.T) {
	c := New(10, 10, Paper)
	c.Rect(1, 1, 5, 4, Ink)
	assert.Equal(t, Ink, c.Pixel(1, 1))
	assert.Equal(t, Ink, c.Pixel(5, 4))
	assert.Equal(t, Paper, c.Pixel(3, 2))

	c.FillRect(0, 0, 0, 10, Ink)
	assert.Equal(t, Paper, c.Pixel(0, 5))
	c.FillRect(6, 6, 2, 2, Ink)
	assert.Equal(t, Ink, c.Pixel(7, 7))
	assert.Equal(t, Paper, c.Pixel(8, 8))
}

func TestMoonPhaseShading(t *testing.T) {
	const cx, cy, r = 30, 30, 20
	tests := []struct {
		name      string
		phase     float64
		leftInk   bool
		centerInk bool
		rightInk  bool
	}{
		{"new", 0, true, true, true},
		{"waxing quarter", 0.25, true, true, false},
		{"full", 0.5, false, false, false},
		{"waning quarter", 0.75, false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(61, 61, Paper)
			c.DrawMoonPhase(cx, cy, r, tt.phase)
			assert.Equal(t, tt.leftInk, c.Pixel(cx-r/2, cy) == Ink, "left")
			assert.Equal(t, tt.centerInk, c.Pixel(cx, cy) == Ink, "center")
			assert.Equal(t, tt.rightInk, c.Pixel(cx+r/2, cy) == Ink, "right")
			// outline is always drawn
			assert.Equal(t, Ink, c.Pixel(cx, cy-r))
			assert.Equal(t, Paper, c.Pixel(cx, cy-r-2))
		})
	}
}

func TestDirectionalSunGlyph(t *testing.T) {
	const size = 28
	ax := size - 3 - (size/4)/2

	up := New(size, size, Paper)
	up.DrawDirectionalSunGlyph(0, 0, size, true)
	assert.Equal(t, Ink, up.Pixel(ax, 2), "tip 2px below the top edge")
	assert.Equal(t, Paper, up.Pixel(ax, 1))
	assert.Equal(t, Paper, up.Pixel(ax, size-3))

	down := New(size, size, Paper)
	down.DrawDirectionalSunGlyph(0, 0, size, false)
	assert.Equal(t, Ink, down.Pixel(ax, size-3), "tip 2px above the bottom edge")
	assert.Equal(t, Paper, down.Pixel(ax, size-2))
	assert.Equal(t, Paper, down.Pixel(ax, 2))

	// the sun ring sits on the left half
	assert.Equal(t, Ink, up.Pixel(0, size/2))
}

func TestFillTriangleIncludesVertices(t *testing.T) {
	c := New(20, 20, Paper)
	c.FillTriangle(2, 10, 12, 10, 7, 2, Ink)
	assert.Equal(t, Ink, c.Pixel(7, 2))
	assert.Equal(t, Ink, c.Pixel(7, 8))
	assert.Equal(t, Paper, c.Pixel(7, 11))
}

func TestFillEllipseSymmetric(t *testing.T) {
	c := New(41, 41, Paper)
	c.FillEllipse(10, 10, 30, 30, Ink)

	assert.Equal(t, Ink, c.Pixel(20, 20))
	assert.Equal(t, Ink, c.Pixel(10, 20), "edge pixels included")
	assert.Equal(t, Ink, c.Pixel(20, 30))
	assert.Equal(t, Paper, c.Pixel(9, 20))
	assert.Equal(t, Paper, c.Pixel(11, 11), "corner stays outside")

	// curve flattening may flip a pixel at the threshold, not more
	rowInk := func(y int) int {
		n := 0
		for x := 0; x < 41; x++ {
			if c.Pixel(x, y) == Ink {
				n++
			}
		}
		return n
	}
	for y := 0; y < 41; y++ {
		assert.InDelta(t, rowInk(y), rowInk(40-y), 2, "row %d", y)
	}
}

func TestEllipseRingHasNoRowGaps(t *testing.T) {
	const cx, cy, r = 30, 30, 20
	c := New(61, 61, Paper)
	c.Ellipse(cx-r, cy-r, cx+r, cy+r, Ink)

	assert.Equal(t, Paper, c.Pixel(cx, cy))
	for y := cy - r; y <= cy+r; y++ {
		n := 0
		for x := cx - r - 1; x <= cx; x++ {
			if c.Pixel(x, y) == Ink {
				n++
			}
		}
		assert.Positive(t, n, "row %d", y)
	}
}

func TestLineEndpointsAndAxes(t *testing.T) {
	c := New(20, 20, Paper)
	c.Line(2, 2, 12, 12, Ink)
	assert.Equal(t, Ink, c.Pixel(2, 2))
	assert.Equal(t, Ink, c.Pixel(7, 7))
	assert.Equal(t, Ink, c.Pixel(12, 12))
	assert.Equal(t, Paper, c.Pixel(2, 12))

	c = New(20, 20, Paper)
	c.HLine(15, 5, 3, Ink)
	c.VLine(1, 4, 8, Ink)
	n := 0
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if c.Pixel(x, y) == Ink {
				n++
			}
		}
	}
	assert.Equal(t, 11+5, n, "axis lines cover exactly their pixels")
	assert.Equal(t, Ink, c.Pixel(5, 3))
	assert.Equal(t, Ink, c.Pixel(1, 8))
}

func TestShapesClipToCanvas(t *testing.T) {
	c := New(10, 10, Paper)
	c.FillRect(-5, -5, 8, 8, Ink)
	c.FillEllipse(5, 5, 20, 20, Ink)
	assert.Equal(t, Ink, c.Pixel(0, 0))
	assert.Equal(t, Ink, c.Pixel(2, 2))
	assert.Equal(t, Paper, c.Pixel(3, 3))
	assert.Equal(t, Ink, c.Pixel(9, 9))
}

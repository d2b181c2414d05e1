package raster

import "math"

// DrawMoonPhase draws the moon at phase ∈ [0,1) as a lit disc of radius r
// centred on (cx, cy). 0 is a new moon (fully shadowed) and 0.5 a full moon.
//
// The terminator is a linear approximation: on every row the shadow covers a
// span of the chord whose width shrinks linearly from the full chord at phase
// 0 to nothing at 0.5, then grows back. The shadow hugs the left limb while
// waxing and the right limb while waning.
func (c *Canvas) DrawMoonPhase(cx, cy, r int, phase float64) {
	if r <= 0 {
		return
	}
	phase = phase - math.Floor(phase)

	c.FillEllipse(cx-r, cy-r, cx+r, cy+r, Paper)
	c.Ellipse(cx-r, cy-r, cx+r, cy+r, Ink)

	rf := float64(r)
	for dy := -r; dy <= r; dy++ {
		offset := math.Sqrt(rf*rf - float64(dy*dy))
		chord := 2 * offset

		var from, to float64
		if phase < 0.5 {
			shadow := (1 - phase/0.5) * chord
			from = float64(cx) - offset
			to = from + shadow
		} else {
			shadow := ((phase - 0.5) / 0.5) * chord
			to = float64(cx) + offset
			from = to - shadow
		}
		if to-from < 0.5 {
			continue
		}
		c.span(int(math.Round(from)), int(math.Round(to)), cy+dy, Ink)
	}
}

// span sets pixels x0..x1 of row y. The terminator is a per-row run of
// rounded chord positions, which no path shape describes.
func (c *Canvas) span(x0, x1, y int, v uint8) {
	for x := x0; x <= x1; x++ {
		c.SetPixel(x, y, v)
	}
}

// Package textlayout measures and draws text on a raster.Canvas. Two font
// families are configured (a CJK text face and a numeric face); a missing or
// unreadable font degrades to the built-in 7x13 bitmap face.
package textlayout

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"deskhud/internal/logging"
	"deskhud/internal/raster"
)

// ErrFontMissing reports a configured font that could not be loaded.
var ErrFontMissing = errors.New("textlayout: font not available")

// Family selects one of the two configured fonts.
type Family int

const (
	FamilyText Family = iota
	FamilyNumeric
)

// Style is a font role: family, pixel size and synthetic bold.
type Style struct {
	Family Family
	Size   float64
	// Bold strokes every glyph with a 1px outline instead of using a heavier
	// face. Measurements include the stroke.
	Bold bool
}

// Box is a text extent relative to the draw origin (the top-left corner of
// the line box).
type Box struct {
	Left, Top, Right, Bottom int
}

func (b Box) Width() int  { return b.Right - b.Left }
func (b Box) Height() int { return b.Bottom - b.Top }

// FontConfig names the font files. Either may be empty.
type FontConfig struct {
	TextPath    string
	NumericPath string
}

// Engine holds parsed fonts. Faces are created per call, so an Engine is safe
// for concurrent use.
type Engine struct {
	text    *source
	numeric *source
}

type source struct {
	tt *truetype.Font
	ot *opentype.Font
}

// Load parses the configured fonts. Missing fonts are logged and replaced by
// the bitmap fallback; Load itself never fails.
func Load(cfg FontConfig, log *slog.Logger) *Engine {
	log = logging.Component(log, "textlayout")
	e := &Engine{}
	for _, f := range []struct {
		name string
		path string
		dst  **source
	}{
		{"text", cfg.TextPath, &e.text},
		{"numeric", cfg.NumericPath, &e.numeric},
	} {
		src, err := loadSource(f.path)
		if err != nil {
			log.Warn("font unavailable, using bitmap fallback", "font", f.name, "path", f.path, "error", err)
			continue
		}
		*f.dst = src
	}
	if e.numeric == nil {
		e.numeric = e.text
	}
	return e
}

// Fallback returns an engine that only uses the bitmap face.
func Fallback() *Engine {
	return &Engine{}
}

func loadSource(path string) (*source, error) {
	if path == "" {
		return nil, ErrFontMissing
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFontMissing, err)
	}
	if tt, err := truetype.Parse(data); err == nil {
		return &source{tt: tt}, nil
	}
	// CFF flavoured OpenType is not handled by freetype
	ot, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return &source{ot: ot}, nil
}

func (e *Engine) face(st Style) font.Face {
	src := e.text
	if st.Family == FamilyNumeric {
		src = e.numeric
	}
	if src == nil || st.Size <= 0 {
		return basicfont.Face7x13
	}
	if src.tt != nil {
		return truetype.NewFace(src.tt, &truetype.Options{
			Size:    st.Size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
	}
	f, err := opentype.NewFace(src.ot, &opentype.FaceOptions{
		Size:    st.Size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return basicfont.Face7x13
	}
	return f
}

// Measure returns the ink extent of text drawn at the origin.
func (e *Engine) Measure(text string, st Style) Box {
	face := e.face(st)
	defer face.Close()
	return measure(face, text, st.Bold)
}

func measure(face font.Face, text string, bold bool) Box {
	if text == "" {
		return Box{}
	}
	ascent := face.Metrics().Ascent.Ceil()
	bounds, _ := font.BoundString(face, text)
	b := Box{
		Left:   bounds.Min.X.Floor(),
		Top:    ascent + bounds.Min.Y.Floor(),
		Right:  bounds.Max.X.Ceil(),
		Bottom: ascent + bounds.Max.Y.Ceil(),
	}
	if bold {
		b.Left--
		b.Top--
		b.Right++
		b.Bottom++
	}
	return b
}

// Width is Measure(text, st).Width().
func (e *Engine) Width(text string, st Style) int {
	return e.Measure(text, st).Width()
}

// Clip drops trailing runes until the ink of text, drawn at x, ends at or
// before x+maxWidth. Nothing fitting yields "".
func (e *Engine) Clip(text string, st Style, maxWidth int) string {
	face := e.face(st)
	defer face.Close()
	runes := []rune(text)
	for n := len(runes); n > 0; n-- {
		s := string(runes[:n])
		if measure(face, s, st.Bold).Right <= maxWidth {
			return s
		}
	}
	return ""
}

// LineHeight returns the font's line spacing in pixels.
func (e *Engine) LineHeight(st Style) int {
	face := e.face(st)
	defer face.Close()
	return face.Metrics().Height.Ceil()
}

// CenterX returns the x that centres text horizontally in the region.
func (e *Engine) CenterX(regionX, regionW int, text string, st Style) int {
	return regionX + (regionW-e.Width(text, st))/2
}

// RightX returns the x that right-aligns text margin pixels left of regionRight.
func (e *Engine) RightX(regionRight, margin int, text string, st Style) int {
	return regionRight - e.Width(text, st) - margin
}

var strokeOffsets = []image.Point{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Draw renders text with the top of its line box at y. Pixels touched by a
// glyph are set to ink.
func (e *Engine) Draw(c *raster.Canvas, x, y int, text string, st Style, ink uint8) {
	if text == "" {
		return
	}
	face := e.face(st)
	defer face.Close()

	col := image.White
	if ink == raster.Ink {
		col = image.Black
	}
	baseline := y + face.Metrics().Ascent.Ceil()
	d := font.Drawer{Dst: c, Src: col, Face: face}
	if st.Bold {
		for _, o := range strokeOffsets {
			d.Dot = fixed.P(x+o.X, baseline+o.Y)
			d.DrawString(text)
		}
	}
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)
}

// Package widgets draws the five panel regions. Every renderer is a pure
// function of its data and layout: it returns a fresh canvas and never
// touches shared state. Debug output is left to an optional Observer.
package widgets

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"deskhud/internal/logging"
	"deskhud/internal/raster"
	"deskhud/internal/textlayout"
	"deskhud/internal/weather"
)

// IconSource resolves condition codes to square 1-bit glyphs.
type IconSource interface {
	Resolve(code string, size int) (*raster.Canvas, bool)
}

// Observer sees every canvas after it is rendered. Implementations must not
// modify the canvas.
type Observer interface {
	Rendered(widget string, c *raster.Canvas)
}

// Renderer binds the text engine, icon source and layouts.
type Renderer struct {
	text     *textlayout.Engine
	icons    IconSource
	layouts  Layouts
	observer Observer
}

type Option func(*Renderer)

// WithObserver attaches a debug observer.
func WithObserver(o Observer) Option {
	return func(r *Renderer) { r.observer = o }
}

func WithLayouts(l Layouts) Option {
	return func(r *Renderer) { r.layouts = l }
}

func NewRenderer(text *textlayout.Engine, icons IconSource, opts ...Option) *Renderer {
	if text == nil {
		text = textlayout.Fallback()
	}
	r := &Renderer{
		text:    text,
		icons:   icons,
		layouts: DefaultLayouts(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Renderer) Layouts() Layouts { return r.layouts }

func (r *Renderer) notify(widget string, c *raster.Canvas) *raster.Canvas {
	if r.observer != nil {
		r.observer.Rendered(widget, c)
	}
	return c
}

func (r *Renderer) icon(code string, size int) (*raster.Canvas, bool) {
	if r.icons == nil || code == "" {
		return nil, false
	}
	return r.icons.Resolve(code, size)
}

// present reports whether an optional text field should be drawn.
func present(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && s != weather.Unknown
}

// PNGSnapshotter writes every rendered canvas to {Dir}/{widget}.png.
type PNGSnapshotter struct {
	dir string
	log *slog.Logger
}

func NewPNGSnapshotter(dir string, log *slog.Logger) *PNGSnapshotter {
	return &PNGSnapshotter{dir: dir, log: logging.Component(log, "snapshot")}
}

func (p *PNGSnapshotter) Rendered(widget string, c *raster.Canvas) {
	if err := p.write(widget, c); err != nil {
		p.log.Warn("write debug snapshot failed", "widget", widget, "error", err)
	}
}

func (p *PNGSnapshotter) write(widget string, c *raster.Canvas) error {
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(p.dir, widget+".png"))
	if err != nil {
		return err
	}
	if err := png.Encode(f, c.Gray()); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", widget, err)
	}
	return f.Close()
}

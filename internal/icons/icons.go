// Package icons resolves weather condition codes to 1-bit glyphs loaded from
// a directory of pre-rendered PNG files.
package icons

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	xdraw "golang.org/x/image/draw"

	"deskhud/internal/logging"
	"deskhud/internal/raster"
)

// ErrIconMissing is returned by Load when no raster variant exists for a code.
var ErrIconMissing = errors.New("icons: no raster icon")

type cacheKey struct {
	code string
	size int
}

// Resolver loads and caches icons. It is safe for concurrent use; cached
// canvases are shared and must be treated as read-only.
type Resolver struct {
	dir string
	log *slog.Logger

	mu    sync.RWMutex
	cache map[cacheKey]*raster.Canvas
}

func NewResolver(dir string, log *slog.Logger) *Resolver {
	return &Resolver{
		dir:   dir,
		log:   logging.Component(log, "icons"),
		cache: make(map[cacheKey]*raster.Canvas),
	}
}

// Resolve returns the size×size glyph for code, or false when the code has
// no raster icon. Failures are logged, never returned, and not cached, so an
// icon dropped into the directory later is picked up.
func (r *Resolver) Resolve(code string, size int) (*raster.Canvas, bool) {
	if r == nil || code == "" || size <= 0 {
		return nil, false
	}
	key := cacheKey{code: code, size: size}

	r.mu.RLock()
	c, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return c, true
	}

	c, err := r.Load(code, size)
	if err != nil {
		r.log.Warn("icon unavailable", "code", code, "size", size, "error", err)
		return nil, false
	}

	r.mu.Lock()
	r.cache[key] = c
	r.mu.Unlock()
	return c, true
}

// Load reads the icon for code from disk without touching the cache. The
// filled variant wins over the plain one; SVG sources are never rasterized.
func (r *Resolver) Load(code string, size int) (*raster.Canvas, error) {
	for _, name := range []string{code + "-fill.png", code + ".png"} {
		path := filepath.Join(r.dir, name)
		img, err := readPNG(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return Normalize(img, size), nil
	}
	if _, err := os.Stat(filepath.Join(r.dir, code+".svg")); err == nil {
		return nil, fmt.Errorf("%w: %s only has an svg source, convert it to png", ErrIconMissing, code)
	}
	return nil, fmt.Errorf("%w: %s", ErrIconMissing, code)
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// Normalize flattens img onto white, converts it to luminance, resamples it
// to size×size with Catmull-Rom when needed and thresholds at 128.
func Normalize(img image.Image, size int) *raster.Canvas {
	b := img.Bounds()
	flat := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)

	gray := flat
	if b.Dx() != size || b.Dy() != size {
		gray = image.NewGray(image.Rect(0, 0, size, size))
		xdraw.CatmullRom.Scale(gray, gray.Bounds(), flat, flat.Bounds(), xdraw.Src, nil)
	}
	return raster.FromImage(gray)
}

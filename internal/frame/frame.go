// Package frame assembles one full panel frame: it gathers the day's data,
// renders every widget, packs the canvases and stamps them with a shared
// version.
package frame

import (
	"context"
	"encoding/base64"
	"log/slog"
	"sync"
	"time"

	"deskhud/internal/astro"
	"deskhud/internal/calendar"
	"deskhud/internal/logging"
	"deskhud/internal/metrics"
	"deskhud/internal/quote"
	"deskhud/internal/raster"
	"deskhud/internal/weather"
	"deskhud/internal/widgets"
)

// VersionBound keeps versions inside a signed 32-bit range.
const VersionBound = 2147483647

// ForecastDays is how many days the forecast widget shows.
const ForecastDays = 3

// Version derives the frame version from a timestamp.
func Version(now time.Time) uint32 {
	return uint32(now.Unix() % VersionBound)
}

// WeatherSource is the subset of the weather client the assembler needs.
type WeatherSource interface {
	CurrentWeather(ctx context.Context, location string) (*weather.Now, error)
	AirQuality(ctx context.Context, location string) (*weather.Air, error)
	Forecast(ctx context.Context, location, horizon string) ([]weather.Daily, error)
}

// QuoteSource always yields a printable sentence; fresh is false when it came
// from a fallback pool instead of the upstream.
type QuoteSource interface {
	Sentence(ctx context.Context) (text string, fresh bool)
}

// Config is the location the frame is built for.
type Config struct {
	Location string
	City     string
	Horizon  string
	TimeZone *time.Location
}

// Widget is one packed region in the panel's wire shape.
type Widget struct {
	Buffer string `json:"buffer"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Info is the /api/info response body.
type Info struct {
	SentenceVer uint32 `json:"sentence_ver"`
	WxVer       uint32 `json:"wx_ver"`
	CalVer      uint32 `json:"cal_ver"`
	NoteVer     uint32 `json:"note_ver"`
	ForecastVer uint32 `json:"forecast_ver"`

	Sentence Widget `json:"sentence"`
	Wx       Widget `json:"wx"`
	Cal      Widget `json:"cal"`
	Note     Widget `json:"note"`
	Forecast Widget `json:"forecast"`
}

// Frame is the result of one assembly.
type Frame struct {
	Version     uint32
	GeneratedAt time.Time
	Packed      map[string]raster.PackedFrame
	// Degraded names the data sources that fell back to defaults.
	Degraded []string
}

// Widget returns the wire form of one packed widget.
func (f *Frame) Widget(name string) (Widget, bool) {
	p, ok := f.Packed[name]
	if !ok {
		return Widget{}, false
	}
	return Widget{
		Buffer: base64.StdEncoding.EncodeToString(p.Payload),
		Width:  p.Width,
		Height: p.Height,
		Format: p.Format,
	}, true
}

// Info builds the response body; every widget carries the frame version.
func (f *Frame) Info() Info {
	w := func(name string) Widget {
		v, _ := f.Widget(name)
		return v
	}
	return Info{
		SentenceVer: f.Version,
		WxVer:       f.Version,
		CalVer:      f.Version,
		NoteVer:     f.Version,
		ForecastVer: f.Version,
		Sentence:    w(widgets.Sentence),
		Wx:          w(widgets.CurrentWeather),
		Cal:         w(widgets.Calendar),
		Note:        w(widgets.Progress),
		Forecast:    w(widgets.Forecast),
	}
}

// Assembler builds frames. It holds no per-frame state and is safe for
// concurrent use.
type Assembler struct {
	cfg      Config
	renderer *widgets.Renderer
	weather  WeatherSource
	quotes   QuoteSource
	lunar    calendar.LunarSource
	sun      weather.SunProvider
	log      *slog.Logger
}

type Option func(*Assembler)

func WithWeather(w WeatherSource) Option {
	return func(a *Assembler) { a.weather = w }
}

func WithQuotes(q QuoteSource) Option {
	return func(a *Assembler) { a.quotes = q }
}

func WithLunar(l calendar.LunarSource) Option {
	return func(a *Assembler) { a.lunar = l }
}

func WithSun(s weather.SunProvider) Option {
	return func(a *Assembler) { a.sun = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Assembler) { a.log = l }
}

func NewAssembler(cfg Config, r *widgets.Renderer, opts ...Option) *Assembler {
	if cfg.TimeZone == nil {
		cfg.TimeZone = time.Local
	}
	if cfg.Horizon == "" {
		cfg.Horizon = "3d"
	}
	a := &Assembler{cfg: cfg, renderer: r}
	for _, opt := range opts {
		opt(a)
	}
	a.log = logging.Component(a.log, "frame")
	return a
}

type gathered struct {
	now      *weather.Now
	air      *weather.Air
	days     []weather.Daily
	sentence string
	fresh    bool
	sun      weather.SunTimes
	degraded []string
}

// Assemble builds a frame for now. Upstream failures only degrade fields;
// the error is non-nil only when ctx ends before the frame is complete.
func (a *Assembler) Assemble(ctx context.Context, now time.Time) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		metrics.RecordFrameAssembly("cancelled")
		return nil, err
	}
	local := now.In(a.cfg.TimeZone)
	d := a.gather(ctx, local)
	if err := ctx.Err(); err != nil {
		metrics.RecordFrameAssembly("cancelled")
		return nil, err
	}

	canvases := a.render(d, local)
	f := &Frame{
		Version:     Version(now),
		GeneratedAt: now,
		Packed:      make(map[string]raster.PackedFrame, len(canvases)),
		Degraded:    d.degraded,
	}
	for name, c := range canvases {
		f.Packed[name] = raster.Pack(c, false)
	}

	if len(d.degraded) > 0 {
		a.log.Info("frame assembled with fallbacks", "version", f.Version, "degraded", d.degraded)
		metrics.RecordFrameAssembly("degraded")
	} else {
		a.log.Debug("frame assembled", "version", f.Version)
		metrics.RecordFrameAssembly("ok")
	}
	return f, nil
}

func (a *Assembler) gather(ctx context.Context, local time.Time) gathered {
	var (
		d                                   gathered
		nowErr, airErr, forecastErr, sunErr error
		wg                                  sync.WaitGroup
	)
	loc := a.cfg.Location
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	if a.weather != nil {
		spawn(func() { d.now, nowErr = a.weather.CurrentWeather(ctx, loc) })
		spawn(func() { d.air, airErr = a.weather.AirQuality(ctx, loc) })
		spawn(func() { d.days, forecastErr = a.weather.Forecast(ctx, loc, a.cfg.Horizon) })
	}
	if a.quotes != nil {
		spawn(func() { d.sentence, d.fresh = a.quotes.Sentence(ctx) })
	}
	if a.sun != nil {
		spawn(func() { d.sun, sunErr = a.sun.SunTimes(ctx, local) })
	}
	wg.Wait()

	if a.weather == nil {
		d.degraded = append(d.degraded, "weather", "air", "forecast")
	}
	for _, e := range []struct {
		name string
		err  error
	}{{"weather", nowErr}, {"air", airErr}, {"forecast", forecastErr}, {"sun", sunErr}} {
		if e.err != nil {
			a.log.Warn("data source unavailable", "source", e.name, "error", e.err)
			d.degraded = append(d.degraded, e.name)
		}
	}
	if d.sentence == "" {
		d.sentence = quote.Fallbacks[0]
		d.fresh = false
	}
	if !d.fresh {
		d.degraded = append(d.degraded, "quote")
	}
	return d
}

func (a *Assembler) render(d gathered, local time.Time) map[string]*raster.Canvas {
	r := a.renderer
	jobs := map[string]func() *raster.Canvas{
		widgets.Sentence: func() *raster.Canvas { return r.Sentence(d.sentence) },
		widgets.Calendar: func() *raster.Canvas {
			return r.Calendar(widgets.CalendarView{
				Facts:   calendar.FactsFor(local, a.lunar),
				Sunrise: d.sun.Sunrise,
				Sunset:  d.sun.Sunset,
				MoonAge: astro.MoonAge(local),
			})
		},
		widgets.CurrentWeather: func() *raster.Canvas {
			return r.CurrentWeather(weather.NewSnapshot(a.cfg.City, d.now, d.air))
		},
		widgets.Forecast: func() *raster.Canvas {
			return r.Forecast(weather.NewForecast(d.days, ForecastDays))
		},
		widgets.Progress: func() *raster.Canvas { return r.Progress(calendar.ProgressAt(local)) },
	}

	out := make([]*raster.Canvas, len(widgets.Names))
	var wg sync.WaitGroup
	for i, name := range widgets.Names {
		job := jobs[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			out[i] = job()
			metrics.RecordRender(name, time.Since(start))
		}()
	}
	wg.Wait()

	canvases := make(map[string]*raster.Canvas, len(out))
	for i, name := range widgets.Names {
		canvases[name] = out[i]
	}
	return canvases
}

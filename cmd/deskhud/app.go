package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"deskhud/config"
	"deskhud/internal/calendar"
	"deskhud/internal/frame"
	"deskhud/internal/icons"
	"deskhud/internal/logging"
	"deskhud/internal/quote"
	"deskhud/internal/storage"
	"deskhud/internal/textlayout"
	"deskhud/internal/weather"
	"deskhud/internal/widgets"
)

// app holds the components shared by every command.
type app struct {
	cfg       *config.Config
	log       *slog.Logger
	logCloser io.Closer
	db        *storage.Database
	weather   *weather.Client
	quotes    *quote.Client
	assembler *frame.Assembler
}

type appOptions struct {
	withStorage bool
	// snapshotDir receives a PNG of every rendered widget; it overrides
	// log.debug_dir.
	snapshotDir string
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log, closer, err := logging.New(logging.Config{
		Level:       level,
		Environment: cfg.Log.Environment,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	a := &app{cfg: cfg, log: log, logCloser: closer}

	if opts.withStorage && cfg.Database.Enabled {
		db, err := storage.NewDatabase(cfg.Database.Path)
		if err != nil {
			log.Warn("database unavailable, running without persistence", "path", cfg.Database.Path, "error", err)
		} else {
			a.db = db
			log.Info("database opened", "path", cfg.Database.Path)
		}
	}

	a.weather = weather.NewClient(weather.Config{
		Host:           cfg.Weather.Host,
		KeyID:          cfg.Weather.KeyID,
		SubjectID:      cfg.Weather.SubjectID,
		PrivateKeyPath: cfg.Weather.PrivateKeyPath,
		CacheTTL:       cfg.Weather.CacheTTL,
		Timeout:        cfg.Weather.Timeout,
	}, a.weatherOptions()...)
	if err := a.weather.Warm(ctx); err != nil {
		log.Warn("weather cache warm-up failed", "error", err)
	}

	a.quotes = quote.NewClient(a.quoteOptions()...)

	renderOpts := []widgets.Option{}
	snapshotDir := cfg.Log.DebugDir
	if opts.snapshotDir != "" {
		snapshotDir = opts.snapshotDir
	}
	if snapshotDir != "" {
		renderOpts = append(renderOpts, widgets.WithObserver(widgets.NewPNGSnapshotter(snapshotDir, log)))
	}
	text := textlayout.Load(textlayout.FontConfig{
		TextPath:    cfg.Fonts.Text,
		NumericPath: cfg.Fonts.Numeric,
	}, log)
	renderer := widgets.NewRenderer(text, icons.NewResolver(cfg.Icons.Dir, log), renderOpts...)

	a.assembler = frame.NewAssembler(frame.Config{
		Location: cfg.Weather.Location,
		City:     cfg.Weather.City,
		Horizon:  cfg.Weather.Horizon,
		TimeZone: cfg.Location(),
	}, renderer,
		frame.WithWeather(a.weather),
		frame.WithQuotes(a.quotes),
		frame.WithLunar(calendar.LunarGo{}),
		frame.WithSun(a.sunProvider()),
		frame.WithLogger(log),
	)
	return a, nil
}

func (a *app) weatherOptions() []weather.Option {
	opts := []weather.Option{weather.WithLogger(a.log)}
	if a.db != nil {
		opts = append(opts, weather.WithSnapshotStore(a.db))
	}
	return opts
}

func (a *app) quoteOptions() []quote.Option {
	opts := []quote.Option{
		quote.WithBaseURL(a.cfg.Quote.BaseURL),
		quote.WithHTTPClient(&http.Client{Timeout: a.cfg.Quote.Timeout}),
		quote.WithLogger(a.log),
	}
	if a.db != nil {
		opts = append(opts, quote.WithStore(a.db))
	}
	return opts
}

func (a *app) sunProvider() weather.SunProvider {
	local := weather.LocalSun{
		Latitude:  a.cfg.Weather.Latitude,
		Longitude: a.cfg.Weather.Longitude,
		Location:  a.cfg.Location(),
	}
	if a.cfg.Sun.Provider != "openmeteo" {
		return local
	}
	primary := weather.NewOpenMeteoClient(a.cfg.Weather.Latitude, a.cfg.Weather.Longitude)
	return weather.NewSunChain(primary, local, a.cfg.Location(), a.log)
}

func (a *app) now() time.Time {
	return time.Now().In(a.cfg.Location())
}

// close releases what the app opened. The database is left to whoever took
// ownership of it.
func (a *app) close() {
	if a.logCloser != nil {
		a.logCloser.Close()
	}
}

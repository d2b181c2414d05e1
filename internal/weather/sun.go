package weather

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"deskhud/internal/astro"
	"deskhud/internal/logging"
)

// LocalSun computes sun times offline with the NOAA approximation.
type LocalSun struct {
	Latitude  float64
	Longitude float64
	Location  *time.Location
}

func (s LocalSun) SunTimes(_ context.Context, day time.Time) (SunTimes, error) {
	rise, set, err := astro.SunTimes(day, s.Latitude, s.Longitude, s.Location)
	if err != nil {
		return SunTimes{}, err
	}
	return SunTimes{Sunrise: rise, Sunset: set}, nil
}

// SunChain asks Primary first and falls back to Fallback. Results are kept
// for the rest of the calendar day.
type SunChain struct {
	primary  SunProvider
	fallback SunProvider
	loc      *time.Location
	log      *slog.Logger

	mu     sync.Mutex
	day    string
	cached SunTimes
}

func NewSunChain(primary, fallback SunProvider, loc *time.Location, log *slog.Logger) *SunChain {
	if loc == nil {
		loc = time.Local
	}
	return &SunChain{
		primary:  primary,
		fallback: fallback,
		loc:      loc,
		log:      logging.Component(log, "sun"),
	}
}

func (s *SunChain) SunTimes(ctx context.Context, day time.Time) (SunTimes, error) {
	key := day.In(s.loc).Format("2006-01-02")

	s.mu.Lock()
	if s.day == key {
		st := s.cached
		s.mu.Unlock()
		return st, nil
	}
	s.mu.Unlock()

	st, err := s.lookup(ctx, day)
	if err != nil {
		return SunTimes{}, err
	}
	st.Sunrise = st.Sunrise.In(s.loc)
	st.Sunset = st.Sunset.In(s.loc)

	s.mu.Lock()
	s.day = key
	s.cached = st
	s.mu.Unlock()
	return st, nil
}

func (s *SunChain) lookup(ctx context.Context, day time.Time) (SunTimes, error) {
	if s.primary != nil {
		st, err := s.primary.SunTimes(ctx, day)
		if err == nil {
			return st, nil
		}
		s.log.Warn("primary sun source failed, computing locally", "error", err)
	}
	if s.fallback == nil {
		return SunTimes{}, errors.New("weather: no sun source configured")
	}
	return s.fallback.SunTimes(ctx, day)
}

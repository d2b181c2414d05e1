// Package astro computes the small amount of astronomy the calendar panel
// needs: the age of the moon, its traditional phase name and local sunrise and
// sunset times.
package astro

import (
	"errors"
	"math"
	"time"
)

// SynodicMonth is the mean length of a lunation in days.
const SynodicMonth = 29.530588853

// referenceNewMoon is the new moon of 2000-01-06 18:14 UTC.
var referenceNewMoon = time.Date(2000, time.January, 6, 18, 14, 0, 0, time.UTC)

// ErrNoSunEvent is returned for polar day or night.
var ErrNoSunEvent = errors.New("astro: sun does not rise or set on this date")

// MoonAge returns the days elapsed since the last new moon, in [0, SynodicMonth).
func MoonAge(t time.Time) float64 {
	days := t.UTC().Sub(referenceNewMoon).Hours() / 24
	age := math.Mod(days, SynodicMonth)
	if age < 0 {
		age += SynodicMonth
	}
	return age
}

// PhaseFraction maps a moon age to the [0,1) phase used by the moon glyph.
func PhaseFraction(age float64) float64 {
	f := age / SynodicMonth
	return f - math.Floor(f)
}

// phaseBreaks are the upper bounds, in days since new moon, of each named
// phase. Anything at or above the last bound wraps back to a new moon.
var phaseBreaks = []struct {
	below float64
	name  string
}{
	{1.0, "新月"},
	{6.382, "娥眉月"},
	{8.382, "上弦月"},
	{13.765, "盈凸月"},
	{15.765, "满月"},
	{21.148, "亏凸月"},
	{23.148, "下弦月"},
	{28.53, "残月"},
}

// PhaseName returns the Chinese name of the moon phase for the given age.
func PhaseName(days float64) string {
	for _, b := range phaseBreaks {
		if days < b.below {
			return b.name
		}
	}
	return "新月"
}

// SunTimes returns sunrise and sunset for the calendar day of day in loc using
// the NOAA sunrise equation approximation.
func SunTimes(day time.Time, lat, lon float64, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	local := day.In(loc)
	date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	rise, err := sunEvent(date, lat, lon, loc, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	set, err := sunEvent(date, lat, lon, loc, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return rise, set, nil
}

func sunEvent(day time.Time, lat, lon float64, loc *time.Location, rising bool) (time.Time, error) {
	n := float64(day.YearDay())
	lngHour := lon / 15.0
	approx := 18.0
	if rising {
		approx = 6.0
	}
	t := n + (approx-lngHour)/24.0
	m := 0.9856*t - 3.289
	l := normalizeDeg(m + 1.916*math.Sin(deg2rad(m)) + 0.020*math.Sin(2*deg2rad(m)) + 282.634)
	ra := normalizeDeg(rad2deg(math.Atan(0.91764 * math.Tan(deg2rad(l)))))
	lQuadrant := math.Floor(l/90.0) * 90.0
	raQuadrant := math.Floor(ra/90.0) * 90.0
	ra = (ra + (lQuadrant - raQuadrant)) / 15.0
	sinDec := 0.39782 * math.Sin(deg2rad(l))
	cosDec := math.Cos(math.Asin(sinDec))
	cosH := (math.Cos(deg2rad(90.833)) - sinDec*math.Sin(deg2rad(lat))) / (cosDec * math.Cos(deg2rad(lat)))
	if cosH > 1 || cosH < -1 {
		return time.Time{}, ErrNoSunEvent
	}
	h := rad2deg(math.Acos(cosH)) / 15.0
	if rising {
		h = (360.0 - rad2deg(math.Acos(cosH))) / 15.0
	}
	localT := h + ra - 0.06571*t - 6.622
	ut := normalizeHour(localT - lngHour)
	utc := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).
		Add(time.Duration(ut * float64(time.Hour)))
	out := utc.In(loc)
	// the UT hour wraps around midnight; pull the result back onto the
	// requested local calendar day
	if d := dayDiff(out, day); d != 0 {
		out = out.AddDate(0, 0, -d)
	}
	return out, nil
}

func dayDiff(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ad.Sub(bd).Hours() / 24)
}

func deg2rad(v float64) float64 { return v * math.Pi / 180.0 }
func rad2deg(v float64) float64 { return v * 180.0 / math.Pi }

func normalizeDeg(v float64) float64 {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return v
}

func normalizeHour(v float64) float64 {
	v = math.Mod(v, 24)
	if v < 0 {
		v += 24
	}
	return v
}

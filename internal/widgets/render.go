package widgets

import (
	"fmt"
	"math"
	"time"

	"deskhud/internal/astro"
	"deskhud/internal/calendar"
	"deskhud/internal/raster"
	"deskhud/internal/weather"
)

// Sentence draws one centred line of paper-coloured text on an ink
// background. The caller keeps text within the panel's 26 characters.
func (r *Renderer) Sentence(text string) *raster.Canvas {
	l := r.layouts.Sentence
	c := raster.New(l.Width, l.Height, raster.Ink)
	if text != "" {
		x := r.text.CenterX(0, l.Width, text, l.Font)
		y := (l.Height - r.text.LineHeight(l.Font)) / 2
		r.text.Draw(c, x, y, text, l.Font, raster.Paper)
	}
	return r.notify(Sentence, c)
}

// CalendarView is everything the calendar panel shows.
type CalendarView struct {
	Facts   calendar.Facts
	Sunrise time.Time
	Sunset  time.Time
	// MoonAge is days since new moon.
	MoonAge float64
}

// Calendar draws three zones split by two short rules: the date block, the
// sunrise/sunset pair and the moon.
func (r *Renderer) Calendar(v CalendarView) *raster.Canvas {
	l := r.layouts.Calendar
	c := raster.New(l.Width, l.Height, raster.Paper)
	x1, x2 := l.RuleX(0), l.RuleX(1)
	c.VLine(x1, l.RuleTop, l.RuleBottom, raster.Ink)
	c.VLine(x2, l.RuleTop, l.RuleBottom, raster.Ink)

	// zone 1: date is always drawn, even as a placeholder
	date := v.Facts.Date
	if date == "" {
		date = "----/--/--"
	}
	r.text.Draw(c, l.Margin, l.DateY, date, l.DateFont, raster.Ink)
	if present(v.Facts.Weekday) {
		r.text.Draw(c, l.Margin, l.WeekdayY, v.Facts.Weekday, l.WeekdayFont, raster.Ink)
	}
	if present(v.Facts.Lunar) {
		r.text.Draw(c, l.Margin, l.LunarY, v.Facts.Lunar, l.LunarFont, raster.Ink)
	}
	if present(v.Facts.Extra) {
		r.text.Draw(c, l.Margin, l.ExtraY, v.Facts.Extra, l.LunarFont, raster.Ink)
	}

	// zone 2
	gx := x1 + l.Margin + 2
	r.sunRow(c, gx, l.SunRiseY, v.Sunrise, true)
	r.sunRow(c, gx, l.SunSetY, v.Sunset, false)

	// zone 3
	zoneW := l.Width - x2
	cx := x2 + zoneW/2
	c.DrawMoonPhase(cx, l.MoonY, l.MoonRadius, astro.PhaseFraction(v.MoonAge))
	name := astro.PhaseName(v.MoonAge)
	r.text.Draw(c, r.text.CenterX(x2, zoneW, name, l.PhaseFont), l.PhaseY, name, l.PhaseFont, raster.Ink)

	return r.notify(Calendar, c)
}

func (r *Renderer) sunRow(c *raster.Canvas, x, y int, t time.Time, rising bool) {
	l := r.layouts.Calendar
	c.DrawDirectionalSunGlyph(x, y, l.SunGlyph, rising)
	label := "--:--"
	if !t.IsZero() {
		label = t.Format("15:04")
	}
	ty := y + (l.SunGlyph-r.text.LineHeight(l.TimeFont))/2
	r.text.Draw(c, x+l.SunGlyph+8, ty, label, l.TimeFont, raster.Ink)
}

// CurrentWeather draws the current conditions. Temperature is always drawn;
// the other lines only when their values are known.
func (r *Renderer) CurrentWeather(s weather.Snapshot) *raster.Canvas {
	l := r.layouts.Weather
	c := raster.New(l.Width, l.Height, raster.Paper)
	right := l.Width - l.Margin

	if icon, ok := r.icon(s.Icon, l.IconSize); ok {
		c.Blit(icon, right-l.IconSize, l.Margin, raster.Ink)
	}
	if present(s.City) {
		r.text.Draw(c, l.Margin, l.CityY, s.City, l.CityFont, raster.Ink)
	}

	r.text.Draw(c, l.Margin, l.TempY, fmt.Sprintf("%d°", s.Temp), l.TempFont, raster.Ink)
	if s.FeelsLike != 0 {
		r.text.Draw(c, l.Margin, l.FeelsY, fmt.Sprintf("体感 %d°", s.FeelsLike), l.SmallFont, raster.Ink)
	}
	if present(s.AQI) {
		aqi := "空气 " + s.AQI
		y := l.Height - l.Margin - r.text.LineHeight(l.SmallFont)
		r.text.Draw(c, l.Margin, y, aqi, l.SmallFont, raster.Ink)
	}

	if present(s.Text) {
		r.text.Draw(c, r.text.RightX(l.Width, l.Margin, s.Text, l.TextFont), l.TextY, s.Text, l.TextFont, raster.Ink)
	}
	if wind := windLabel(s); wind != "" {
		r.text.Draw(c, r.text.RightX(l.Width, l.Margin, wind, l.SmallFont), l.WindY, wind, l.SmallFont, raster.Ink)
	}
	return r.notify(CurrentWeather, c)
}

func windLabel(s weather.Snapshot) string {
	if !present(s.WindDir) {
		return ""
	}
	if present(s.WindScale) {
		return s.WindDir + " " + s.WindScale + "级"
	}
	return s.WindDir
}

// Forecast draws up to Bands days, one per horizontal band, with a rule
// between bands but not after the last.
func (r *Renderer) Forecast(days []weather.ForecastEntry) *raster.Canvas {
	l := r.layouts.Forecast
	c := raster.New(l.Width, l.Height, raster.Paper)
	bh := l.BandHeight()

	for i := 0; i < l.Bands; i++ {
		y0 := i * bh
		if i > 0 {
			c.HLine(l.Margin, l.Width-l.Margin-1, y0, raster.Ink)
		}
		if i >= len(days) {
			continue
		}
		d := days[i]
		lh := r.text.LineHeight(l.Font)
		ty := y0 + (bh-lh)/2

		day := "--"
		if d.Day > 0 {
			day = fmt.Sprintf("%d日", d.Day)
		}
		r.text.Draw(c, l.Margin, ty, day, l.Font, raster.Ink)
		if icon, ok := r.icon(d.Icon, l.IconSize); ok {
			c.Blit(icon, l.IconX, y0+(bh-l.IconSize)/2, raster.Ink)
		}
		temp := fmt.Sprintf("%d~%d°", d.TempMin, d.TempMax)
		tempX := r.text.RightX(l.Width, l.Margin, temp, l.TempFont)
		if present(d.Text) {
			text := r.text.Clip(d.Text, l.Font, tempX-l.Margin-l.TextX)
			r.text.Draw(c, l.TextX, ty, text, l.Font, raster.Ink)
		}
		r.text.Draw(c, tempX, ty, temp, l.TempFont, raster.Ink)
	}
	return r.notify(Forecast, c)
}

// FillWidth is floor(barWidth*pct/100) with pct clamped to [0,100].
func FillWidth(barWidth int, pct float64) int {
	pct = math.Max(0, math.Min(100, pct))
	return int(math.Floor(float64(barWidth) * pct / 100))
}

// Progress draws the year, month and day completion bars.
func (r *Renderer) Progress(p calendar.Progress) *raster.Canvas {
	l := r.layouts.Progress
	c := raster.New(l.Width, l.Height, raster.Paper)
	values := [3]float64{p.Year, p.Month, p.Day}
	rh := l.RowHeight()
	lh := r.text.LineHeight(l.Font)

	for i := 0; i < l.Rows && i < len(values); i++ {
		ty := i*rh + (rh-lh)/2
		r.text.Draw(c, l.Margin, ty, l.Labels[i], l.Font, raster.Ink)

		by := l.BarY(i)
		c.Rect(l.BarX, by, l.BarWidth, l.BarHeight, raster.Ink)
		if fill := FillWidth(l.BarWidth, values[i]); fill > 0 {
			c.FillRect(l.BarX, by, fill, l.BarHeight, raster.Ink)
		}

		pct := fmt.Sprintf("%.1f%%", values[i])
		r.text.Draw(c, r.text.RightX(l.Width, l.Margin, pct, l.Font), ty, pct, l.Font, raster.Ink)
	}
	return r.notify(Progress, c)
}

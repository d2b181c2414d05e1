// Package calendar derives the date facts shown on the calendar panel and the
// day/month/year completion ratios shown on the progress panel.
package calendar

import (
	"math"
	"strings"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	lunar "github.com/6tail/lunar-go/calendar"
)

// Facts is what the calendar widget prints in its first zone.
type Facts struct {
	Date    string // YYYY-MM-DD
	Weekday string
	Lunar   string
	// Extra is the holiday and solar term joined by a space, or empty.
	Extra string
}

var weekdays = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

// WeekdayName returns the Chinese weekday name.
func WeekdayName(d time.Weekday) string {
	return weekdays[d]
}

// LunarInfo is what a LunarSource knows about one solar day.
type LunarInfo struct {
	Label     string // e.g. 正月初一
	Holiday   string
	SolarTerm string
}

// LunarSource looks up the lunar calendar for a solar day.
type LunarSource interface {
	Lookup(day time.Time) LunarInfo
}

// FactsFor builds the facts for the calendar day of now.
func FactsFor(now time.Time, src LunarSource) Facts {
	f := Facts{
		Date:    now.Format("2006-01-02"),
		Weekday: WeekdayName(now.Weekday()),
	}
	if src == nil {
		return f
	}
	info := src.Lookup(now)
	f.Lunar = info.Label
	f.Extra = joinExtra(info.Holiday, info.SolarTerm)
	return f
}

func joinExtra(parts ...string) string {
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return strings.Join(out, " ")
}

// LunarGo is the LunarSource backed by github.com/6tail/lunar-go.
type LunarGo struct{}

func (LunarGo) Lookup(day time.Time) LunarInfo {
	l := lunar.NewLunarFromDate(day)
	return LunarInfo{
		Label:     l.GetMonthInChinese() + "月" + l.GetDayInChinese(),
		Holiday:   holidayName(day, l),
		SolarTerm: l.GetJieQi(),
	}
}

// holidayName prefers the official day off, then traditional lunar festivals,
// then solar ones. Adjusted working days are not holidays.
func holidayName(day time.Time, l *lunar.Lunar) string {
	if h := HolidayUtil.GetHolidayByYmd(day.Year(), int(day.Month()), day.Day()); h != nil && !h.IsWork() {
		return h.GetName()
	}
	if fs := l.GetFestivals(); fs != nil && fs.Len() > 0 {
		if s, ok := fs.Front().Value.(string); ok {
			return s
		}
	}
	if fs := lunar.NewSolarFromDate(day).GetFestivals(); fs != nil && fs.Len() > 0 {
		if s, ok := fs.Front().Value.(string); ok {
			return s
		}
	}
	return ""
}

// Progress holds elapsed percentages in [0,100] with one decimal.
type Progress struct {
	Year  float64
	Month float64
	Day   float64
}

// ProgressAt computes how much of the current year, month and day has passed.
func ProgressAt(now time.Time) Progress {
	loc := now.Location()
	y, m, d := now.Date()
	yearStart := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return Progress{
		Year:  ratio(now, yearStart, yearStart.AddDate(1, 0, 0)),
		Month: ratio(now, monthStart, monthStart.AddDate(0, 1, 0)),
		Day:   ratio(now, dayStart, dayStart.AddDate(0, 0, 1)),
	}
}

func ratio(now, start, end time.Time) float64 {
	total := end.Sub(start).Seconds()
	if total <= 0 {
		return 0
	}
	p := now.Sub(start).Seconds() / total * 100
	p = math.Round(p*10) / 10
	return math.Max(0, math.Min(100, p))
}

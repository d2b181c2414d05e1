package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Unknown is the placeholder for fields the provider did not send.
const Unknown = "未知"

// Now is the provider's current conditions object. Numbers arrive as strings.
type Now struct {
	ObsTime   string `json:"obsTime"`
	Temp      string `json:"temp"`
	FeelsLike string `json:"feelsLike"`
	Icon      string `json:"icon"`
	Text      string `json:"text"`
	WindDir   string `json:"windDir"`
	WindScale string `json:"windScale"`
	Humidity  string `json:"humidity"`
}

// Air is the provider's real-time air quality object.
type Air struct {
	AQI      string `json:"aqi"`
	Level    string `json:"level"`
	Category string `json:"category"`
	Primary  string `json:"primary"`
}

// Daily is one day of a forecast.
type Daily struct {
	FxDate  string `json:"fxDate"`
	TempMax string `json:"tempMax"`
	TempMin string `json:"tempMin"`
	IconDay string `json:"iconDay"`
	TextDay string `json:"textDay"`
	Sunrise string `json:"sunrise"`
	Sunset  string `json:"sunset"`
}

type envelope struct {
	Code    string          `json:"code"`
	Message string          `json:"message,omitempty"`
	Now     json.RawMessage `json:"now,omitempty"`
	Daily   json.RawMessage `json:"daily,omitempty"`
}

// Snapshot is the current weather as the panel shows it.
type Snapshot struct {
	City      string `json:"city"`
	Temp      int    `json:"temp"`
	FeelsLike int    `json:"feels_like"`
	Text      string `json:"text"`
	WindDir   string `json:"wind_dir"`
	WindScale string `json:"wind_scale"`
	Icon      string `json:"icon"`
	AQI       string `json:"aqi"`
}

// ForecastEntry is one forecast band.
type ForecastEntry struct {
	Day     int    `json:"day"`
	Icon    string `json:"icon"`
	Text    string `json:"text"`
	TempMax int    `json:"temp_max"`
	TempMin int    `json:"temp_min"`
}

// NewSnapshot merges current conditions and air quality. Either may be nil;
// absent text fields become Unknown and absent numbers 0.
func NewSnapshot(city string, now *Now, air *Air) Snapshot {
	s := Snapshot{
		City:      orUnknown(city),
		Text:      Unknown,
		WindDir:   Unknown,
		WindScale: Unknown,
		AQI:       FormatAQI(air),
	}
	if now == nil {
		return s
	}
	s.Temp = parseInt(now.Temp)
	s.FeelsLike = parseInt(now.FeelsLike)
	s.Text = orUnknown(now.Text)
	s.WindDir = orUnknown(now.WindDir)
	s.WindScale = orUnknown(now.WindScale)
	s.Icon = strings.TrimSpace(now.Icon)
	return s
}

// FormatAQI renders "{category}({aqi})", or Unknown without data.
func FormatAQI(air *Air) string {
	if air == nil || strings.TrimSpace(air.AQI) == "" {
		return Unknown
	}
	return fmt.Sprintf("%s(%s)", orUnknown(air.Category), strings.TrimSpace(air.AQI))
}

// NewForecast converts provider days in order, keeping at most limit entries.
func NewForecast(days []Daily, limit int) []ForecastEntry {
	if limit <= 0 || limit > len(days) {
		limit = len(days)
	}
	out := make([]ForecastEntry, 0, limit)
	for _, d := range days[:limit] {
		e := ForecastEntry{
			Icon:    strings.TrimSpace(d.IconDay),
			Text:    orUnknown(d.TextDay),
			TempMax: parseInt(d.TempMax),
			TempMin: parseInt(d.TempMin),
		}
		if t, err := time.Parse("2006-01-02", d.FxDate); err == nil {
			e.Day = t.Day()
		}
		out = append(out, e)
	}
	return out
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	return s
}

func parseInt(s string) int {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(math.Round(f))
	}
	return 0
}

// SunTimes is the sunrise and sunset of one day.
type SunTimes struct {
	Sunrise time.Time `json:"sunrise"`
	Sunset  time.Time `json:"sunset"`
}

// SunProvider returns sun times for the calendar day of day.
type SunProvider interface {
	SunTimes(ctx context.Context, day time.Time) (SunTimes, error)
}

package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"deskhud/internal/metrics"
)

const openMeteoBaseURL = "https://api.open-meteo.com"

// OpenMeteoClient reads sunrise and sunset from Open-Meteo, which needs no
// API key.
type OpenMeteoClient struct {
	latitude  float64
	longitude float64
	baseURL   string
	client    *http.Client
}

// OpenMeteoOption mutates an OpenMeteoClient during construction.
type OpenMeteoOption func(*OpenMeteoClient)

// OpenMeteoBaseURL points the client at another host, mostly for tests.
func OpenMeteoBaseURL(u string) OpenMeteoOption {
	return func(c *OpenMeteoClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func NewOpenMeteoClient(latitude, longitude float64, opts ...OpenMeteoOption) *OpenMeteoClient {
	c := &OpenMeteoClient{
		latitude:  latitude,
		longitude: longitude,
		baseURL:   openMeteoBaseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type openMeteoResponse struct {
	Timezone string `json:"timezone"`
	Daily    struct {
		Time    []string `json:"time"`
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

// SunTimes returns the sun times of the day closest to day.
func (c *OpenMeteoClient) SunTimes(ctx context.Context, day time.Time) (SunTimes, error) {
	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%.6f", c.latitude))
	query.Set("longitude", fmt.Sprintf("%.6f", c.longitude))
	query.Set("daily", "sunrise,sunset")
	query.Set("timezone", "auto")
	query.Set("forecast_days", "2")
	query.Set("past_days", "1")

	endpoint := c.baseURL + "/v1/forecast?" + query.Encode()
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return SunTimes{}, fmt.Errorf("open-meteo request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordUpstream("openmeteo", "error", start)
		return SunTimes{}, fmt.Errorf("open-meteo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordUpstream("openmeteo", "error", start)
		return SunTimes{}, fmt.Errorf("open-meteo bad status: %s", resp.Status)
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		metrics.RecordUpstream("openmeteo", "error", start)
		return SunTimes{}, fmt.Errorf("open-meteo decode: %w", err)
	}

	sunrise, sunset := pickOpenMeteoSunTimes(day, payload.Timezone, payload.Daily.Sunrise, payload.Daily.Sunset)
	if sunrise.IsZero() || sunset.IsZero() {
		metrics.RecordUpstream("openmeteo", "error", start)
		return SunTimes{}, fmt.Errorf("open-meteo daily sun times missing")
	}
	metrics.RecordUpstream("openmeteo", "ok", start)
	return SunTimes{Sunrise: sunrise, Sunset: sunset}, nil
}

func parseOpenMeteoTime(value, timezone string) (time.Time, *time.Location) {
	loc := time.UTC
	if strings.TrimSpace(timezone) != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			loc = parsed
		}
	}

	if t, err := time.ParseInLocation("2006-01-02T15:04", value, loc); err == nil {
		return t, loc
	}
	if t, err := time.ParseInLocation(time.RFC3339, value, loc); err == nil {
		return t, loc
	}
	return time.Time{}, loc
}

// pickOpenMeteoSunTimes returns the pair on the same calendar date as
// observed, or the pair whose date is closest.
func pickOpenMeteoSunTimes(observed time.Time, timezone string, sunrises, sunsets []string) (time.Time, time.Time) {
	count := min(len(sunrises), len(sunsets))
	if count == 0 {
		return time.Time{}, time.Time{}
	}

	if _, loc := parseOpenMeteoTime("", timezone); loc != nil {
		observed = observed.In(loc)
	}
	observedDate := time.Date(observed.Year(), observed.Month(), observed.Day(), 0, 0, 0, 0, observed.Location())
	closestDiff := time.Duration(1<<63 - 1)
	var closestSunrise time.Time
	var closestSunset time.Time

	for i := 0; i < count; i++ {
		sunrise, _ := parseOpenMeteoTime(sunrises[i], timezone)
		sunset, _ := parseOpenMeteoTime(sunsets[i], timezone)
		if sunrise.IsZero() || sunset.IsZero() {
			continue
		}
		if sameDate(observed, sunrise) || sameDate(observed, sunset) {
			return sunrise, sunset
		}

		sunriseDate := time.Date(sunrise.Year(), sunrise.Month(), sunrise.Day(), 0, 0, 0, 0, sunrise.Location())
		diff := observedDate.Sub(sunriseDate)
		if diff < 0 {
			diff = -diff
		}
		if diff < closestDiff {
			closestDiff = diff
			closestSunrise = sunrise
			closestSunset = sunset
		}
	}

	return closestSunrise, closestSunset
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

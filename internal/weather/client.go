// Package weather talks to the QWeather v7 API with EdDSA JWT bearer
// authentication, keeps a short fallback cache for current conditions and
// provides sunrise/sunset sources for the calendar panel.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"deskhud/internal/logging"
	"deskhud/internal/metrics"
)

const (
	DefaultCacheTTL = 3600 * time.Second
	DefaultTimeout  = 10 * time.Second

	maxResponseBodySize = 1 << 20
)

// Config holds the provider credentials. Missing credentials are not an error
// at construction time; calls degrade instead.
type Config struct {
	Host           string
	KeyID          string
	SubjectID      string
	PrivateKeyPath string
	CacheTTL       time.Duration
	Timeout        time.Duration
}

// SnapshotStore persists the last good current-weather payload so a restart
// can still serve the fallback.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, location string, payload []byte, capturedAt time.Time) error
	LatestSnapshot(ctx context.Context) (location string, payload []byte, capturedAt time.Time, err error)
}

type cachedNow struct {
	location string
	now      Now
	captured time.Time
}

// Client is the QWeather client. One instance is shared by the process; it is
// safe for concurrent use.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	clock   func() time.Time
	store   SnapshotStore
	log     *slog.Logger

	mu     sync.Mutex
	tokens tokenSource
	cache  *cachedNow
}

// Option mutates the client during construction.
type Option func(*Client)

// WithClock replaces time.Now for token and cache decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.clock = now }
}

// WithHTTPClient installs a custom http.Client. Its transport is wrapped with
// gzip decoding.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *gobreaker.CircuitBreaker[[]byte]) Option {
	return func(c *Client) { c.breaker = cb }
}

// WithBaseURL overrides https://{host}/v7, mostly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithSnapshotStore(s SnapshotStore) Option {
	return func(c *Client) { c.store = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// NewBreaker returns the breaker used when none is supplied.
func NewBreaker(name string) *gobreaker.CircuitBreaker[[]byte] {
	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		cfg:     cfg,
		baseURL: "https://" + strings.TrimSpace(cfg.Host) + "/v7",
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.log = logging.Component(c.log, "weather")
	if c.http == nil {
		c.http = &http.Client{Timeout: cfg.Timeout}
	}
	hc := *c.http
	hc.Transport = newGzipTransport(hc.Transport)
	c.http = &hc
	if c.breaker == nil {
		c.breaker = NewBreaker("qweather")
	}
	if strings.TrimSpace(cfg.Host) == "" {
		c.log.Warn("QW_API_HOST not set, weather calls will fail")
	}
	c.tokens = tokenSource{
		keyID:   cfg.KeyID,
		subject: cfg.SubjectID,
		keyPath: cfg.PrivateKeyPath,
		log:     c.log,
	}
	return c
}

// Token returns the current bearer token, signing a new one when needed.
func (c *Client) Token() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens.get(c.clock())
}

// dropToken forgets the bearer token after the provider rejected it, so the
// next request signs a fresh one.
func (c *Client) dropToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Warn("provider rejected token, re-signing on next request")
	c.tokens.reset()
}

// CurrentWeather fetches current conditions for location. On any failure it
// falls back to the last good payload if that is younger than the cache TTL;
// the fallback is returned with a nil error. The cache holds one entry and is
// served whatever location was asked for.
func (c *Client) CurrentWeather(ctx context.Context, location string) (*Now, error) {
	var env envelope
	err := c.get(ctx, "qweather_now", "/weather/now", location, false, &env)
	if err == nil {
		var now Now
		if err = decodePayload(env.Now, &now); err == nil {
			c.remember(ctx, location, now, env.Now)
			return &now, nil
		}
	}

	c.log.Error("current weather failed", "location", location, "error", err)
	if cached, ok := c.fallback(); ok {
		return cached, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrNoFallback, err)
}

// AirQuality fetches real-time air quality. It has no fallback.
func (c *Client) AirQuality(ctx context.Context, location string) (*Air, error) {
	var env envelope
	if err := c.get(ctx, "qweather_air", "/air/now", location, false, &env); err != nil {
		c.log.Error("air quality failed", "location", location, "error", err)
		return nil, err
	}
	var air Air
	if err := decodePayload(env.Now, &air); err != nil {
		return nil, err
	}
	return &air, nil
}

var horizons = map[string]bool{"3d": true, "7d": true, "10d": true, "15d": true, "30d": true}

// Forecast fetches the daily forecast for horizon ("3d", "7d", ...). A 3d
// request never returns more than three days. It has no fallback.
func (c *Client) Forecast(ctx context.Context, location, horizon string) ([]Daily, error) {
	if horizon == "" {
		horizon = "3d"
	}
	if !horizons[horizon] {
		return nil, fmt.Errorf("weather: unsupported forecast horizon %q", horizon)
	}
	var env envelope
	if err := c.get(ctx, "qweather_forecast", "/weather/"+horizon, location, true, &env); err != nil {
		c.log.Error("forecast failed", "location", location, "horizon", horizon, "error", err)
		return nil, err
	}
	var days []Daily
	if err := decodePayload(env.Daily, &days); err != nil {
		return nil, err
	}
	if horizon == "3d" && len(days) > 3 {
		days = days[:3]
	}
	return days, nil
}

// Warm seeds the fallback cache from the snapshot store. Entries older than
// the cache TTL are ignored.
func (c *Client) Warm(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	location, payload, captured, err := c.store.LatestSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load weather snapshot: %w", err)
	}
	if len(payload) == 0 {
		return nil
	}
	var now Now
	if err := json.Unmarshal(payload, &now); err != nil {
		return fmt.Errorf("decode weather snapshot: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clock().Sub(captured) >= c.cfg.CacheTTL {
		return nil
	}
	if c.cache == nil || c.cache.captured.Before(captured) {
		c.cache = &cachedNow{location: location, now: now, captured: captured}
	}
	return nil
}

func (c *Client) remember(ctx context.Context, location string, now Now, raw []byte) {
	captured := c.clock()
	c.mu.Lock()
	c.cache = &cachedNow{location: location, now: now, captured: captured}
	c.mu.Unlock()

	if c.store == nil {
		return
	}
	if err := c.store.SaveSnapshot(ctx, location, raw, captured); err != nil {
		c.log.Warn("persist weather snapshot failed", "error", err)
	}
}

func (c *Client) fallback() (*Now, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache == nil {
		metrics.RecordWeatherFallback("empty")
		return nil, false
	}
	age := c.clock().Sub(c.cache.captured)
	if age >= c.cfg.CacheTTL {
		metrics.RecordWeatherFallback("expired")
		c.log.Warn("cached weather expired", "age", age.Round(time.Second))
		return nil, false
	}
	metrics.RecordWeatherFallback("hit")
	c.log.Info("serving cached weather", "location", c.cache.location, "age", age.Round(time.Second))
	now := c.cache.now
	return &now, true
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("status %d", e.status)
	}
	return fmt.Sprintf("status %d: %s", e.status, e.body)
}

// get issues one authenticated GET and decodes the envelope into env.
func (c *Client) get(ctx context.Context, service, path, location string, gzip bool, env *envelope) error {
	token, err := c.Token()
	if err != nil {
		metrics.RecordUpstream(service, "no_token", time.Now())
		return err
	}

	q := url.Values{}
	q.Set("location", location)
	endpoint := c.baseURL + path + "?" + q.Encode()

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if gzip {
			req.Header.Set("Accept-Encoding", "gzip")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &statusError{status: resp.StatusCode, body: truncate(string(data), 200)}
		}
		return data, nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "breaker_open"
		}
		metrics.RecordUpstream(service, outcome, start)
		if IsAuthError(err) {
			c.dropToken()
		}
		return fmt.Errorf("%w: %s: %w", ErrUpstreamUnavailable, path, err)
	}

	if err := json.Unmarshal(body, env); err != nil {
		metrics.RecordUpstream(service, "error", start)
		return fmt.Errorf("%w: %w: %v", ErrUpstreamUnavailable, ErrMalformedInput, err)
	}
	if env.Code != "200" {
		metrics.RecordUpstream(service, "api_error", start)
		apiErr := &APIError{Code: env.Code, Message: env.Message}
		if IsAuthError(apiErr) {
			c.dropToken()
		}
		return apiErr
	}
	metrics.RecordUpstream(service, "ok", start)
	return nil
}

func decodePayload(raw json.RawMessage, out any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return fmt.Errorf("%w: %w: payload missing", ErrUpstreamUnavailable, ErrMalformedInput)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %w: %v", ErrUpstreamUnavailable, ErrMalformedInput, err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

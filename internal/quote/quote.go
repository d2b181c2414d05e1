// Package quote supplies the one-line sentence shown on the top panel, from
// the hitokoto service or a local fallback pool.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"deskhud/internal/logging"
	"deskhud/internal/metrics"
)

const (
	DefaultBaseURL = "https://v1.hitokoto.cn"
	// MaxRunes is the longest sentence the 800px panel fits on one line.
	MaxRunes       = 26
	defaultTimeout = 5 * time.Second
)

var ErrTooLong = errors.New("quote: sentence too long")

// Fallbacks are served when the upstream fails or returns something unusable.
var Fallbacks = []string{
	"海内存知己，天涯若比邻。",
	"长风破浪会有时，直挂云帆济沧海。",
	"会当凌绝顶，一览众山小。",
	"千里之行，始于足下。",
	"路漫漫其修远兮，吾将上下而求索。",
	"业精于勤，荒于嬉；行成于思，毁于随。",
	"不积跬步，无以至千里。",
	"博观而约取，厚积而薄发。",
	"宝剑锋从磨砺出，梅花香自苦寒来。",
	"少年易老学难成，一寸光阴不可轻。",
}

// Store keeps quotes that were fetched successfully so the fallback pool
// grows over time.
type Store interface {
	SaveQuote(ctx context.Context, text string) error
	Quotes(ctx context.Context, limit int) ([]string, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	store   Store
	pick    func(n int) int
	log     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithStore(s Store) Option {
	return func(c *Client) { c.store = s }
}

// WithPicker replaces the random index choice used for fallbacks.
func WithPicker(pick func(n int) int) Option {
	return func(c *Client) { c.pick = pick }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		pick:    rand.Intn,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	c.log = logging.Component(c.log, "quote")
	return c
}

type hitokotoResponse struct {
	Hitokoto string `json:"hitokoto"`
	From     string `json:"from"`
}

// Fetch asks hitokoto for one sentence of at most MaxRunes characters.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	q := url.Values{}
	q.Set("max_length", strconv.Itoa(MaxRunes))
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/?"+q.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("hitokoto request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstream("hitokoto", "error", start)
		return "", fmt.Errorf("hitokoto request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordUpstream("hitokoto", "error", start)
		return "", fmt.Errorf("hitokoto bad status: %s", resp.Status)
	}
	var payload hitokotoResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err != nil {
		metrics.RecordUpstream("hitokoto", "error", start)
		return "", fmt.Errorf("hitokoto decode: %w", err)
	}
	text := strings.TrimSpace(payload.Hitokoto)
	if text == "" {
		metrics.RecordUpstream("hitokoto", "error", start)
		return "", errors.New("hitokoto returned an empty sentence")
	}
	if n := utf8.RuneCountInString(text); n > MaxRunes {
		metrics.RecordUpstream("hitokoto", "error", start)
		return "", fmt.Errorf("%w: %d runes", ErrTooLong, n)
	}
	metrics.RecordUpstream("hitokoto", "ok", start)
	return text, nil
}

// Sentence always returns something printable: the upstream sentence when it
// is usable, a pooled one otherwise. fresh is false for pooled sentences.
func (c *Client) Sentence(ctx context.Context) (text string, fresh bool) {
	text, err := c.Fetch(ctx)
	if err == nil {
		if c.store != nil {
			if serr := c.store.SaveQuote(ctx, text); serr != nil {
				c.log.Warn("store quote failed", "error", serr)
			}
		}
		return text, true
	}
	c.log.Warn("quote upstream unusable, using fallback", "error", err)
	return c.Fallback(ctx), false
}

// Fallback picks from the built-in list plus stored quotes.
func (c *Client) Fallback(ctx context.Context) string {
	pool := append([]string(nil), Fallbacks...)
	if c.store != nil {
		stored, err := c.store.Quotes(ctx, 200)
		if err != nil {
			c.log.Warn("load stored quotes failed", "error", err)
		}
		for _, s := range stored {
			if s != "" && utf8.RuneCountInString(s) <= MaxRunes {
				pool = append(pool, s)
			}
		}
	}
	i := c.pick(len(pool))
	if i < 0 || i >= len(pool) {
		i = 0
	}
	return pool[i]
}

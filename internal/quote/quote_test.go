package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskhud/internal/logging"
)

type memStore struct {
	saved []string
}

func (m *memStore) SaveQuote(_ context.Context, text string) error {
	m.saved = append(m.saved, text)
	return nil
}

func (m *memStore) Quotes(context.Context, int) ([]string, error) {
	return m.saved, nil
}

func serve(body string, status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("max_length") != "26" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestFallbacksFit(t *testing.T) {
	for _, s := range Fallbacks {
		assert.LessOrEqual(t, utf8.RuneCountInString(s), MaxRunes, s)
	}
}

func TestSentenceFromUpstream(t *testing.T) {
	srv := serve(`{"hitokoto":"人生如逆旅，我亦是行人。","from":"临江仙"}`, http.StatusOK)
	defer srv.Close()

	store := &memStore{}
	c := NewClient(WithBaseURL(srv.URL), WithStore(store), WithLogger(logging.Discard()))
	text, fresh := c.Sentence(context.Background())
	assert.Equal(t, "人生如逆旅，我亦是行人。", text)
	assert.True(t, fresh)
	assert.Equal(t, []string{"人生如逆旅，我亦是行人。"}, store.saved)
}

func TestSentenceTooLongFallsBack(t *testing.T) {
	long := strings.Repeat("长", MaxRunes+1)
	srv := serve(`{"hitokoto":"`+long+`"}`, http.StatusOK)
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithPicker(func(int) int { return 0 }), WithLogger(logging.Discard()))
	_, err := c.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrTooLong)
	text, fresh := c.Sentence(context.Background())
	assert.Equal(t, Fallbacks[0], text)
	assert.False(t, fresh)
}

func TestSentenceUpstreamErrors(t *testing.T) {
	for name, srv := range map[string]*httptest.Server{
		"status": serve(`{}`, http.StatusInternalServerError),
		"empty":  serve(`{"hitokoto":"  "}`, http.StatusOK),
		"json":   serve(`not json`, http.StatusOK),
	} {
		t.Run(name, func(t *testing.T) {
			defer srv.Close()
			c := NewClient(WithBaseURL(srv.URL), WithPicker(func(n int) int { return n - 1 }), WithLogger(logging.Discard()))
			text, fresh := c.Sentence(context.Background())
			assert.Equal(t, Fallbacks[len(Fallbacks)-1], text)
			assert.False(t, fresh)
		})
	}
}

func TestFallbackIncludesStoredQuotes(t *testing.T) {
	store := &memStore{saved: []string{"采菊东篱下，悠然见南山。", strings.Repeat("长", 40)}}
	var poolSize int
	c := NewClient(WithStore(store), WithLogger(logging.Discard()), WithPicker(func(n int) int {
		poolSize = n
		return n - 1
	}))

	require.Equal(t, "采菊东篱下，悠然见南山。", c.Fallback(context.Background()))
	assert.Equal(t, len(Fallbacks)+1, poolSize)
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskhud/internal/frame"
	"deskhud/internal/logging"
	"deskhud/internal/raster"
	"deskhud/internal/textlayout"
	"deskhud/internal/widgets"
)

var fixedNow = time.Date(2024, 2, 10, 4, 0, 0, 0, time.UTC)

type errFrames struct{}

func (errFrames) Assemble(context.Context, time.Time) (*frame.Frame, error) {
	return nil, errors.New("cancelled")
}

type latest struct{ f *frame.Frame }

func (l latest) GetLatestFrame() *frame.Frame { return l.f }
func (l latest) IsCollecting() bool           { return l.f != nil }

func newTestServer(frames FrameSource, coll LatestFrames) *Server {
	return NewServer(ServerConfig{
		Frames:    frames,
		Collector: coll,
		Clock:     func() time.Time { return fixedNow },
		Logger:    logging.Discard(),
	})
}

func assembler() *frame.Assembler {
	r := widgets.NewRenderer(textlayout.Fallback(), nil)
	return frame.NewAssembler(frame.Config{City: "北京", TimeZone: time.UTC}, r, frame.WithLogger(logging.Discard()))
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestRoot(t *testing.T) {
	w := get(t, newTestServer(assembler(), nil), "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"DeskHUD Backend API"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDKept(t *testing.T) {
	s := newTestServer(assembler(), nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestInfo(t *testing.T) {
	w := get(t, newTestServer(assembler(), nil), "/api/info")
	require.Equal(t, http.StatusOK, w.Code)

	var body frame.Info
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	want := frame.Version(fixedNow)
	assert.Equal(t, want, body.WxVer)
	assert.Equal(t, want, body.CalVer)
	assert.Equal(t, want, body.NoteVer)
	assert.Equal(t, want, body.SentenceVer)
	assert.Equal(t, want, body.ForecastVer)
	assert.Equal(t, 800, body.Sentence.Width)
	assert.Equal(t, "bitmap", body.Forecast.Format)
	assert.NotEmpty(t, body.Note.Buffer)
}

func TestInfoAssemblyFailure(t *testing.T) {
	w := get(t, newTestServer(errFrames{}, nil), "/api/info")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestPreview(t *testing.T) {
	s := newTestServer(assembler(), nil)
	w := get(t, s, "/api/preview/cal")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 496, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())

	w = get(t, s, "/api/preview/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreviewUsesCollectorFrame(t *testing.T) {
	f, err := assembler().Assemble(context.Background(), fixedNow)
	require.NoError(t, err)
	s := newTestServer(errFrames{}, latest{f: f})

	w := get(t, s, "/api/preview/wx")
	assert.Equal(t, http.StatusOK, w.Code)

	w = get(t, s, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["collecting"])
	assert.EqualValues(t, f.Version, body["last_frame_version"])
}

type broker struct{ up bool }

func (b broker) IsConnected() bool { return b.up }

func TestHealthReportsBroker(t *testing.T) {
	w := get(t, newTestServer(assembler(), nil), "/health")
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body, "mqtt_connected")

	for _, up := range []bool{true, false} {
		s := NewServer(ServerConfig{Frames: assembler(), Broker: broker{up: up}, Logger: logging.Discard()})
		w := get(t, s, "/health")
		require.Equal(t, http.StatusOK, w.Code)
		body = nil
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, up, body["mqtt_connected"])
	}
}

func TestPreviewMatchesPackedPayload(t *testing.T) {
	f, err := assembler().Assemble(context.Background(), fixedNow)
	require.NoError(t, err)
	s := newTestServer(errFrames{}, latest{f: f})

	w := get(t, s, "/api/preview/note")
	require.Equal(t, http.StatusOK, w.Code)
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)

	back := raster.FromImage(img)
	assert.Equal(t, f.Packed[widgets.Progress].Payload, raster.Pack(back, false).Payload)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(assembler(), nil)
	get(t, s, "/")
	w := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deskhud_http_requests_total")
}

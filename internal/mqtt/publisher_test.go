package mqtt

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskhud/internal/frame"
	"deskhud/internal/logging"
	"deskhud/internal/raster"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	sent         []message
	fail         map[string]error
	disconnected bool
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var b []byte
	switch v := payload.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	}
	f.sent = append(f.sent, message{topic, qos, retained, b})
	return doneToken{err: f.fail[topic]}
}

func (f *fakeClient) IsConnected() bool       { return !f.disconnected }
func (f *fakeClient) Disconnect(quiesce uint) { f.disconnected = true }

func testFrame() *frame.Frame {
	return &frame.Frame{
		Version:     1707537600,
		GeneratedAt: time.Date(2024, 2, 10, 4, 0, 0, 0, time.UTC),
		Packed: map[string]raster.PackedFrame{
			"wx":  {Payload: make([]byte, 38*176), Width: 304, Height: 176, Format: raster.FormatBitmap},
			"cal": {Payload: make([]byte, 62*120), Width: 496, Height: 120, Format: raster.FormatBitmap},
		},
	}
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	p, err := NewPublisher(PublisherConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, p.PublishFrame(testFrame(), []string{"wx"}))
	assert.False(t, p.IsConnected())
	p.Close()
}

func TestPublishFrame(t *testing.T) {
	fc := &fakeClient{}
	p := newPublisher(fc, "deskhud", logging.Discard())
	require.NoError(t, p.PublishFrame(testFrame(), []string{"wx"}))

	require.Len(t, fc.sent, 2)
	assert.Equal(t, "deskhud/wx/version", fc.sent[0].topic)
	assert.Equal(t, "1707537600", string(fc.sent[0].payload))

	last := fc.sent[1]
	assert.Equal(t, "deskhud/frame", last.topic)
	assert.True(t, last.retained)
	var n FrameNotice
	require.NoError(t, json.Unmarshal(last.payload, &n))
	assert.Equal(t, uint32(1707537600), n.Version)
	assert.True(t, n.Widgets["wx"].Changed)
	assert.False(t, n.Widgets["cal"].Changed)
	assert.Equal(t, 62*120, n.Widgets["cal"].Bytes)
}

func TestPublishFrameNoticeFailure(t *testing.T) {
	fc := &fakeClient{fail: map[string]error{"deskhud/frame": errors.New("broker gone")}}
	p := newPublisher(fc, "deskhud", logging.Discard())
	err := p.PublishFrame(testFrame(), nil)
	assert.ErrorContains(t, err, "broker gone")
}

func TestDiscoveryAndClose(t *testing.T) {
	fc := &fakeClient{}
	p := newPublisher(fc, "deskhud", logging.Discard())
	require.NoError(t, p.PublishHomeAssistantDiscovery())
	require.Len(t, fc.sent, 1)
	assert.Contains(t, string(fc.sent[0].payload), `"state_topic":"deskhud/frame"`)

	assert.True(t, p.IsConnected())
	p.Close()
	assert.False(t, p.IsConnected())
}

func TestPublisherLogsComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	log := logging.Component(slog.New(slog.NewJSONHandler(&buf, nil)), "mqtt")
	fc := &fakeClient{fail: map[string]error{"deskhud/wx/version": errors.New("broker gone")}}
	p := newPublisher(fc, "deskhud", log)

	require.NoError(t, p.PublishFrame(testFrame(), []string{"wx"}))
	line := strings.TrimSpace(buf.String())
	require.NotEmpty(t, line)
	assert.Equal(t, 1, strings.Count(line, `"component":"mqtt"`), line)
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordUpstream(t *testing.T) {
	upstreamRequestsTotal.Reset()

	RecordUpstream("hitokoto", "ok", time.Now())
	RecordUpstream("hitokoto", "ok", time.Now())
	RecordUpstream("hitokoto", "error", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(upstreamRequestsTotal.WithLabelValues("hitokoto", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(upstreamRequestsTotal.WithLabelValues("hitokoto", "error")))
}

func TestRecordWeatherFallback(t *testing.T) {
	weatherFallbackTotal.Reset()
	RecordWeatherFallback("hit")
	assert.Equal(t, 1.0, testutil.ToFloat64(weatherFallbackTotal.WithLabelValues("hit")))
}

func TestRecordFramePublish(t *testing.T) {
	before := testutil.ToFloat64(framePublishesTotal)
	RecordFramePublish()
	assert.Equal(t, before+1, testutil.ToFloat64(framePublishesTotal))
}

func TestRecordRenderDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordRender("cal", 3*time.Millisecond)
		RecordFrameAssembly("ok")
		RecordHTTPRequest("GET", "/api/info", "200")
	})
}

package frame

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskhud/internal/logging"
	"deskhud/internal/quote"
	"deskhud/internal/raster"
	"deskhud/internal/textlayout"
	"deskhud/internal/weather"
	"deskhud/internal/widgets"
)

type fakeWeather struct {
	err   error
	delay time.Duration
}

func (f fakeWeather) wait(ctx context.Context) error {
	select {
	case <-time.After(f.delay):
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f fakeWeather) CurrentWeather(ctx context.Context, _ string) (*weather.Now, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return &weather.Now{Temp: "21", FeelsLike: "19", Icon: "100", Text: "晴", WindDir: "北风", WindScale: "3"}, nil
}

func (f fakeWeather) AirQuality(ctx context.Context, _ string) (*weather.Air, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return &weather.Air{AQI: "42", Category: "优"}, nil
}

func (f fakeWeather) Forecast(ctx context.Context, _, _ string) ([]weather.Daily, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return []weather.Daily{
		{FxDate: "2024-02-10", TempMax: "8", TempMin: "-3", IconDay: "100", TextDay: "晴"},
		{FxDate: "2024-02-11", TempMax: "6", TempMin: "-4", IconDay: "101", TextDay: "多云"},
		{FxDate: "2024-02-12", TempMax: "5", TempMin: "-5", IconDay: "104", TextDay: "阴"},
	}, nil
}

type fixedQuote string

func (q fixedQuote) Sentence(context.Context) (string, bool) { return string(q), true }

// pooledQuote behaves like a quote client whose upstream failed.
type pooledQuote string

func (q pooledQuote) Sentence(context.Context) (string, bool) { return string(q), false }

type fixedSun struct{ err error }

func (s fixedSun) SunTimes(_ context.Context, day time.Time) (weather.SunTimes, error) {
	if s.err != nil {
		return weather.SunTimes{}, s.err
	}
	y, m, d := day.Date()
	return weather.SunTimes{
		Sunrise: time.Date(y, m, d, 7, 18, 0, 0, day.Location()),
		Sunset:  time.Date(y, m, d, 17, 39, 0, 0, day.Location()),
	}, nil
}

func newAssembler(opts ...Option) *Assembler {
	r := widgets.NewRenderer(textlayout.Fallback(), nil)
	cfg := Config{Location: "101010100", City: "北京", TimeZone: time.FixedZone("CST", 8*3600)}
	return NewAssembler(cfg, r, append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

var when = time.Date(2024, 2, 10, 4, 0, 0, 0, time.UTC)

func TestVersion(t *testing.T) {
	assert.Equal(t, uint32(1707537600), Version(when))
	assert.Equal(t, uint32(0), Version(time.Unix(VersionBound, 0)))
	assert.Equal(t, uint32(5), Version(time.Unix(VersionBound+5, 0)))
}

func TestAssembleAllWidgets(t *testing.T) {
	a := newAssembler(WithWeather(fakeWeather{}), WithQuotes(fixedQuote("海内存知己")), WithSun(fixedSun{}))
	f, err := a.Assemble(context.Background(), when)
	require.NoError(t, err)

	assert.Empty(t, f.Degraded)
	assert.Equal(t, Version(when), f.Version)
	require.Len(t, f.Packed, len(widgets.Names))
	for _, name := range widgets.Names {
		p := f.Packed[name]
		assert.Equal(t, raster.FormatBitmap, p.Format, name)
		assert.Len(t, p.Payload, raster.BytesPerRow(p.Width)*p.Height, name)
	}
}

func TestInfoShape(t *testing.T) {
	a := newAssembler(WithWeather(fakeWeather{}), WithQuotes(fixedQuote("x")))
	f, err := a.Assemble(context.Background(), when)
	require.NoError(t, err)

	raw, err := json.Marshal(f.Info())
	require.NoError(t, err)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &body))

	for _, key := range []string{"sentence_ver", "wx_ver", "cal_ver", "note_ver", "forecast_ver"} {
		var v uint32
		require.NoError(t, json.Unmarshal(body[key], &v), key)
		assert.Equal(t, f.Version, v, key)
	}

	var cal Widget
	require.NoError(t, json.Unmarshal(body["cal"], &cal))
	assert.Equal(t, 496, cal.Width)
	assert.Equal(t, 120, cal.Height)
	assert.Equal(t, "bitmap", cal.Format)
	decoded, err := base64.StdEncoding.DecodeString(cal.Buffer)
	require.NoError(t, err)
	assert.Len(t, decoded, 62*120)

	var wx Widget
	require.NoError(t, json.Unmarshal(body["wx"], &wx))
	decoded, err = base64.StdEncoding.DecodeString(wx.Buffer)
	require.NoError(t, err)
	assert.Len(t, decoded, 38*176)
}

func TestAssembleDegradesOnUpstreamFailure(t *testing.T) {
	down := errors.New("down")
	a := newAssembler(WithWeather(fakeWeather{err: down}), WithSun(fixedSun{err: down}))
	f, err := a.Assemble(context.Background(), when)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"weather", "air", "forecast", "sun", "quote"}, f.Degraded)
	assert.Len(t, f.Packed, len(widgets.Names))

	quoted := newAssembler(WithQuotes(fixedQuote(quote.Fallbacks[0])))
	g, err := quoted.Assemble(context.Background(), when)
	require.NoError(t, err)
	assert.Equal(t, g.Packed[widgets.Sentence].Payload, f.Packed[widgets.Sentence].Payload,
		"missing quote source renders the first fallback")
}

func TestAssembleMarksPooledQuoteDegraded(t *testing.T) {
	a := newAssembler(WithWeather(fakeWeather{}), WithQuotes(pooledQuote(quote.Fallbacks[3])), WithSun(fixedSun{}))
	f, err := a.Assemble(context.Background(), when)
	require.NoError(t, err)
	assert.Equal(t, []string{"quote"}, f.Degraded)

	fresh := newAssembler(WithWeather(fakeWeather{}), WithQuotes(fixedQuote(quote.Fallbacks[3])), WithSun(fixedSun{}))
	g, err := fresh.Assemble(context.Background(), when)
	require.NoError(t, err)
	assert.Empty(t, g.Degraded)
	assert.Equal(t, g.Packed[widgets.Sentence].Payload, f.Packed[widgets.Sentence].Payload)
}

func TestAssembleGathersConcurrently(t *testing.T) {
	a := newAssembler(WithWeather(fakeWeather{delay: 150 * time.Millisecond}))
	start := time.Now()
	_, err := a.Assemble(context.Background(), when)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestAssembleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f, err := newAssembler().Assemble(ctx, when)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, f)

	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	f, err = newAssembler(WithWeather(fakeWeather{delay: time.Second})).Assemble(ctx, when)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, f)
}

func TestSameInputSamePayloads(t *testing.T) {
	a := newAssembler(WithWeather(fakeWeather{}), WithQuotes(fixedQuote("x")), WithSun(fixedSun{}))
	f1, err := a.Assemble(context.Background(), when)
	require.NoError(t, err)
	f2, err := a.Assemble(context.Background(), when)
	require.NoError(t, err)
	for _, name := range widgets.Names {
		assert.Equal(t, f1.Packed[name].Payload, f2.Packed[name].Payload, name)
	}
}

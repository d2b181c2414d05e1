package widgets

import "deskhud/internal/textlayout"

// Widget names as the panel firmware knows them.
const (
	Sentence       = "sentence"
	Calendar       = "cal"
	CurrentWeather = "wx"
	Forecast       = "forecast"
	Progress       = "note"
)

// Names lists every widget in frame order.
var Names = []string{Sentence, CurrentWeather, Calendar, Progress, Forecast}

type SentenceLayout struct {
	Width, Height int
	Font          textlayout.Style
}

type CalendarLayout struct {
	Width, Height int
	// Rules are the x positions of the two zone separators as fractions of
	// Width; they run from RuleTop to RuleBottom.
	Rules      [2]float64
	RuleTop    int
	RuleBottom int
	Margin     int

	DateY    int
	WeekdayY int
	LunarY   int
	ExtraY   int

	SunGlyph int
	SunRiseY int
	SunSetY  int

	MoonRadius int
	MoonY      int
	PhaseY     int

	DateFont    textlayout.Style
	WeekdayFont textlayout.Style
	LunarFont   textlayout.Style
	TimeFont    textlayout.Style
	PhaseFont   textlayout.Style
}

// RuleX returns the x of rule i.
func (l CalendarLayout) RuleX(i int) int {
	return int(float64(l.Width) * l.Rules[i])
}

type WeatherLayout struct {
	Width, Height int
	Margin        int
	IconSize      int
	CityY         int
	TempY         int
	FeelsY        int
	TextY         int
	WindY         int

	CityFont  textlayout.Style
	TempFont  textlayout.Style
	SmallFont textlayout.Style
	TextFont  textlayout.Style
}

type ForecastLayout struct {
	Width, Height int
	Bands         int
	Margin        int
	IconSize      int
	IconX         int
	TextX         int
	Font          textlayout.Style
	TempFont      textlayout.Style
}

// BandHeight is Height/Bands.
func (l ForecastLayout) BandHeight() int {
	if l.Bands <= 0 {
		return l.Height
	}
	return l.Height / l.Bands
}

type ProgressLayout struct {
	Width, Height int
	Rows          int
	Margin        int
	Labels        [3]string
	BarX          int
	BarWidth      int
	BarHeight     int
	Font          textlayout.Style
}

// RowHeight is Height/Rows.
func (l ProgressLayout) RowHeight() int {
	if l.Rows <= 0 {
		return l.Height
	}
	return l.Height / l.Rows
}

// BarY returns the top of the bar in row i.
func (l ProgressLayout) BarY(i int) int {
	rh := l.RowHeight()
	return i*rh + (rh-l.BarHeight)/2
}

// Layouts is the full table of widget layouts.
type Layouts struct {
	Sentence SentenceLayout
	Calendar CalendarLayout
	Weather  WeatherLayout
	Forecast ForecastLayout
	Progress ProgressLayout
}

// DefaultLayouts returns the layouts matching the panel firmware's fixed
// region sizes.
func DefaultLayouts() Layouts {
	text := func(size float64) textlayout.Style {
		return textlayout.Style{Family: textlayout.FamilyText, Size: size}
	}
	num := func(size float64, bold bool) textlayout.Style {
		return textlayout.Style{Family: textlayout.FamilyNumeric, Size: size, Bold: bold}
	}

	return Layouts{
		Sentence: SentenceLayout{Width: 800, Height: 56, Font: text(30)},
		Calendar: CalendarLayout{
			Width: 496, Height: 120,
			Rules:   [2]float64{0.45, 0.75},
			RuleTop: 8, RuleBottom: 112,
			Margin: 10,
			DateY:  8, WeekdayY: 44, LunarY: 72, ExtraY: 94,
			SunGlyph: 28, SunRiseY: 22, SunSetY: 68,
			MoonRadius: 26, MoonY: 46, PhaseY: 82,
			DateFont:    num(28, true),
			WeekdayFont: text(22),
			LunarFont:   text(18),
			TimeFont:    num(24, false),
			PhaseFont:   text(18),
		},
		Weather: WeatherLayout{
			Width: 304, Height: 176,
			Margin: 10, IconSize: 64,
			CityY: 10, TempY: 44, FeelsY: 104, TextY: 84, WindY: 112,
			CityFont:  text(22),
			TempFont:  num(48, true),
			SmallFont: text(16),
			TextFont:  text(20),
		},
		Forecast: ForecastLayout{
			Width: 304, Height: 192,
			Bands: 3, Margin: 10,
			IconSize: 40, IconX: 70, TextX: 120,
			Font:     text(20),
			TempFont: num(20, false),
		},
		Progress: ProgressLayout{
			Width: 496, Height: 128,
			Rows: 3, Margin: 10,
			Labels: [3]string{"本年", "本月", "今日"},
			BarX:   80, BarWidth: 320, BarHeight: 16,
			Font: text(20),
		},
	}
}

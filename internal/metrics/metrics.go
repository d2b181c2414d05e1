// Package metrics provides Prometheus metrics for the panel server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// upstreamRequestsTotal counts calls to external services.
	// Labels:
	//   - service: "qweather_now", "qweather_air", "qweather_forecast", "hitokoto", "openmeteo"
	//   - outcome: "ok", "error", "api_error", "breaker_open", "no_token"
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskhud_upstream_requests_total",
			Help: "Total number of upstream requests by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskhud_upstream_duration_seconds",
			Help:    "Duration of upstream requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service"},
	)

	// weatherFallbackTotal counts fallback cache lookups.
	// Labels:
	//   - result: "hit", "expired", "empty"
	weatherFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskhud_weather_fallback_total",
			Help: "Current weather fallback cache lookups by result",
		},
		[]string{"result"},
	)

	renderDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deskhud_render_duration_seconds",
			Help:    "Time spent rendering and packing one widget",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"widget"},
	)

	frameAssembliesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskhud_frame_assemblies_total",
			Help: "Frame assemblies by result",
		},
		[]string{"result"},
	)

	framePublishesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "deskhud_frame_publishes_total",
			Help: "Frame change notifications published over MQTT",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deskhud_http_requests_total",
			Help: "HTTP requests served by route and status",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(upstreamRequestsTotal)
	prometheus.MustRegister(upstreamDuration)
	prometheus.MustRegister(weatherFallbackTotal)
	prometheus.MustRegister(renderDuration)
	prometheus.MustRegister(frameAssembliesTotal)
	prometheus.MustRegister(framePublishesTotal)
	prometheus.MustRegister(httpRequestsTotal)
}

// RecordUpstream records one upstream call that started at start.
func RecordUpstream(service, outcome string, start time.Time) {
	upstreamRequestsTotal.WithLabelValues(service, outcome).Inc()
	upstreamDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
}

func RecordWeatherFallback(result string) {
	weatherFallbackTotal.WithLabelValues(result).Inc()
}

func RecordRender(widget string, d time.Duration) {
	renderDuration.WithLabelValues(widget).Observe(d.Seconds())
}

func RecordFrameAssembly(result string) {
	frameAssembliesTotal.WithLabelValues(result).Inc()
}

func RecordFramePublish() {
	framePublishesTotal.Inc()
}

func RecordHTTPRequest(method, route, status string) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
}

package weather

import (
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrConfigurationMissing means credentials or the signing key are absent.
	ErrConfigurationMissing = errors.New("weather: configuration missing")
	// ErrUpstreamUnavailable covers transport failures, bad HTTP statuses and
	// an open circuit breaker.
	ErrUpstreamUnavailable = errors.New("weather: upstream unavailable")
	// ErrMalformedInput is a response that could not be decoded. It always
	// travels together with ErrUpstreamUnavailable.
	ErrMalformedInput = errors.New("weather: malformed response")
	// ErrNoFallback is returned when current weather failed and the cached
	// payload is missing or too old.
	ErrNoFallback = errors.New("weather: no usable cached weather")
)

// APIError is a provider envelope whose code is not "200".
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	b := strings.Builder{}
	b.WriteString("weather: provider error (code=")
	b.WriteString(e.Code)
	b.WriteString(")")
	if m := strings.TrimSpace(e.Message); m != "" {
		b.WriteString(": ")
		b.WriteString(m)
	}
	return b.String()
}

// IsAuthError reports whether err is a provider rejection of our token,
// either as an HTTP status or as an envelope code.
func IsAuthError(err error) bool {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Code == "401" || ae.Code == "403"
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusUnauthorized || se.status == http.StatusForbidden
	}
	return false
}

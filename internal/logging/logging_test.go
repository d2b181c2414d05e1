package logging

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input     string
		expect    slog.Level
		expectErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"WARNING", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		lvl, err := levelFromString(tt.input)
		if tt.expectErr {
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid log level")
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.expect, lvl)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, closer, err := New(Config{Level: "loud"})
	assert.Error(t, err)
	assert.NotNil(t, closer)
}

func TestNewWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deskhud.log")
	log, closer, err := New(Config{Level: "info", File: path})
	require.NoError(t, err)
	log.Info("hello")
	assert.NoError(t, closer.Close())
	assert.FileExists(t, path)
}

func TestProdUsesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(newHandler(&buf, Config{Environment: "prod"}, slog.LevelInfo))
	Component(l, "frame").Info("assembled")
	assert.Contains(t, buf.String(), `"component":"frame"`)
}

func TestComponentNil(t *testing.T) {
	assert.NotPanics(t, func() {
		Component(nil, "x").Error("dropped")
	})
}

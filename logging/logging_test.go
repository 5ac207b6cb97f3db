package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/optcal/config"
	"github.com/meenmo/optcal/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"Warning": slog.LevelWarn,
		"error":   slog.LevelError,
	} {
		got, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := logging.ParseLevel("verbose")
	assert.Error(t, err)
}

func TestNew_JSONWithRunID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := logging.New(config.Logging{Level: "info", Format: "json"}, &buf)
	require.NoError(t, err)

	logging.WithRunID(l, "abc").Info("calibration finished", slog.Float64("loss", 0.5))
	l.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "calibration finished", rec["msg"])
	assert.Equal(t, "abc", rec[logging.RunIDKey])
	assert.Equal(t, 0.5, rec["loss"])
}

func TestNew_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, err := logging.New(config.Logging{Level: "debug", Format: "text"}, &buf)
	require.NoError(t, err)
	l.Debug("iteration", slog.Int("n", 3))
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "n=3")
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	_, err := logging.New(config.Logging{Level: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = logging.New(config.Logging{Format: "xml"}, &bytes.Buffer{})
	assert.Error(t, err)
}

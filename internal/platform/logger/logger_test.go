package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/phrazzld/hitster/internal/config"
	"github.com/phrazzld/hitster/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		want  slog.Level
		known bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"Warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		level, ok := logger.ParseLevel(tt.name)
		assert.Equal(t, tt.want, level, "level for %q", tt.name)
		assert.Equal(t, tt.known, ok, "known for %q", tt.name)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json output respects level", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		l, err := logger.New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
		require.NoError(t, err)

		l.Info("dropped")
		l.Warn("kept", "job_id", "abc")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output should be one JSON line")
		assert.Equal(t, "kept", entry["msg"])
		assert.Equal(t, "abc", entry["job_id"])
	})

	t.Run("text output", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		l, err := logger.New(config.LogConfig{Level: "debug", Format: "text"}, &buf)
		require.NoError(t, err)

		l.Debug("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("unknown format", func(t *testing.T) {
		t.Parallel()
		_, err := logger.New(config.LogConfig{Level: "info", Format: "xml"}, &bytes.Buffer{})
		assert.Error(t, err)
	})
}

func TestContextLogger(t *testing.T) {
	t.Parallel()
	l, buf := logger.NewTestLogger()

	ctx := logger.WithLogger(context.Background(), l.With("worker_id", 3))
	logger.FromContext(ctx).Info("claimed")

	entries := buf.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, float64(3), entries[0]["worker_id"])

	assert.Same(t, slog.Default(), logger.FromContext(context.Background()))

	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
	assert.Same(t, slog.Default(), logger.FromContextOrDefault(context.Background(), nil))
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewWritesRotatingFile(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	dir := filepath.Join(t.TempDir(), "logs")

	log, cleanup, err := New(&Config{Level: "warn", LogDir: dir, MaxSize: 1, MaxBackups: 1, MaxAge: 1, FileOutput: true})
	require.NoError(t, err)

	log.Info("server.listen", "addr", "127.0.0.1:8000")
	log.Warn("upstream.retry.anonymous", "model", "gemma-3-12b", "error", errors.New("429"))
	cleanup()

	data, err := os.ReadFile(filepath.Join(dir, DefaultLogOutputName))
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 1, "info must be filtered at warn level")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "upstream.retry.anonymous", rec["msg"])
	assert.Equal(t, "429", rec["error"])
	assert.Contains(t, rec, "timestamp")
}

func TestNewWithoutFile(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	log, cleanup, err := New(&Config{Level: "debug"})
	require.NoError(t, err)
	defer cleanup()
	assert.True(t, log.Enabled(context.Background(), slog.LevelDebug))
}

type recordingHandler struct {
	level   slog.Level
	records []slog.Record
}

func (h *recordingHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return nil
}
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func TestMultiHandlerRespectsLevels(t *testing.T) {
	debug := &recordingHandler{level: slog.LevelDebug}
	errs := &recordingHandler{level: slog.LevelError}
	log := slog.New(&multiHandler{handlers: []slog.Handler{debug, errs}})

	log.Debug("a")
	log.Error("b")

	assert.Len(t, debug.records, 2)
	assert.Len(t, errs.records, 1)
}

func TestShouldUseColors(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ShouldUseColors())

	t.Setenv("NO_COLOR", "")
	t.Setenv("FORCE_COLOR", "1")
	assert.True(t, ShouldUseColors())

	t.Setenv("FORCE_COLOR", "0")
	assert.False(t, ShouldUseColors())
}

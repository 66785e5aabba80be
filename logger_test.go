package stoat

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlogLogger(slog.New(handler))

	logger.Debug("aggregate loaded", "stream_id", "acc-1")
	logger.Info("ready")
	logger.Warn("concurrency conflict", "events", 2)
	logger.Error("append failed")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "stoat.stream_id=acc-1")
	assert.Contains(t, out, "level=INFO msg=ready")
	assert.Contains(t, out, "stoat.events=2")
	assert.Contains(t, out, "level=ERROR")
}

func TestNewSlogLogger_NilUsesDefault(t *testing.T) {
	logger := NewSlogLogger(nil)
	assert.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Debug("ignored") })
}

func TestNoopLogger(t *testing.T) {
	var l Logger = &noopLogger{}
	assert.NotPanics(t, func() {
		l.Debug("a")
		l.Info("b")
		l.Warn("c")
		l.Error("d", "k", "v")
	})
}

func TestWithLogger_IgnoresNil(t *testing.T) {
	o := newOptions([]Option{WithLogger(nil)})
	assert.IsType(t, &noopLogger{}, o.logger)
}

package stoat

import (
	"context"
	"log/slog"
)

// Logger defines the logging interface used by processors and repositories.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// noopLogger is a no-op logger implementation.
type noopLogger struct{}

func (l *noopLogger) Debug(msg string, args ...interface{}) {}
func (l *noopLogger) Info(msg string, args ...interface{})  {}
func (l *noopLogger) Warn(msg string, args ...interface{})  {}
func (l *noopLogger) Error(msg string, args ...interface{}) {}

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l.WithGroup("stoat")}
}

func (l *SlogLogger) Debug(msg string, args ...interface{}) { l.log(slog.LevelDebug, msg, args) }
func (l *SlogLogger) Info(msg string, args ...interface{})  { l.log(slog.LevelInfo, msg, args) }
func (l *SlogLogger) Warn(msg string, args ...interface{})  { l.log(slog.LevelWarn, msg, args) }
func (l *SlogLogger) Error(msg string, args ...interface{}) { l.log(slog.LevelError, msg, args) }

func (l *SlogLogger) log(level slog.Level, msg string, args []interface{}) {
	l.logger.Log(context.Background(), level, msg, args...)
}

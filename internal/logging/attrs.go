package logging

import (
	"context"
	"log/slog"
	"time"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Hint suggests the operator's next step on a warning or error.
func Hint(text string) Attr { return slog.String(FieldErrorHint, text) }

// Impact states what a warning costs the current run.
func Impact(text string) Attr { return slog.String(FieldImpact, text) }

func Args(attrs ...Attr) []any {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return args
}

func NewNop() *slog.Logger {
	return slog.New(NoopHandler{})
}

// NewComponentLogger tags logger with a component name. A nil logger
// yields a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

const (
	FieldImpact    = "impact"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
)

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact; missing ones get defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	attrs = withDefault(attrs, String(FieldEventType, eventType))
	attrs = withDefault(attrs, Hint("check the log file for details"))
	attrs = withDefault(attrs, Impact("run continues"))
	emit(logger, slog.LevelWarn, msg, attrs)
}

// ErrorWithContext logs an error that always carries event_type and
// error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	attrs = withDefault(attrs, String(FieldEventType, eventType))
	attrs = withDefault(attrs, Hint("check the log file for details"))
	emit(logger, slog.LevelError, msg, attrs)
}

func withDefault(attrs []Attr, fallback Attr) []Attr {
	for _, attr := range attrs {
		if attr.Key == fallback.Key {
			return attrs
		}
	}
	return append(attrs, fallback)
}

func emit(logger *slog.Logger, level slog.Level, msg string, attrs []Attr) {
	if logger == nil {
		return
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }

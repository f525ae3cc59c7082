package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

// consoleHandler renders one line per record for a terminal:
//
//	14:03:07 INFO  downloader[012]: episode downloaded output=tv/012.mp4
//
// The component and episode fields become the line prefix. Run and pipeline
// fields only go to the JSON log file.
type consoleHandler struct {
	mu        *sync.Mutex
	w         io.Writer
	level     slog.Leveler
	addSource bool
	group     string
	attrs     []slog.Attr
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var component, episode string
	fields := make([]slog.Attr, 0, len(h.attrs)+record.NumAttrs())
	collect := func(attr slog.Attr) {
		attr.Value = attr.Value.Resolve()
		switch attr.Key {
		case FieldComponent:
			component = attr.Value.String()
		case FieldEpisode:
			episode = attr.Value.String()
		case FieldRunID, FieldPipeline, "":
		default:
			fields = append(fields, attr)
		}
	}
	for _, attr := range h.attrs {
		collect(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		attr.Key = h.group + attr.Key
		collect(attr)
		return true
	})

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var buf bytes.Buffer
	buf.WriteString(ts.Local().Format("15:04:05"))
	fmt.Fprintf(&buf, " %-5s ", levelLabel(record.Level))
	switch {
	case component != "" && episode != "":
		fmt.Fprintf(&buf, "%s[%s]: ", component, episode)
	case component != "":
		buf.WriteString(component + ": ")
	case episode != "":
		fmt.Fprintf(&buf, "[%s]: ", episode)
	}
	buf.WriteString(record.Message)
	if h.addSource && record.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{record.PC}).Next()
		fmt.Fprintf(&buf, " (%s:%d)", filepath.Base(frame.File), frame.Line)
	}
	for _, attr := range fields {
		writeField(&buf, "", attr)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, attr := range attrs {
		attr.Key = h.group + attr.Key
		clone.attrs = append(clone.attrs, attr)
	}
	return &clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

func writeField(buf *bytes.Buffer, prefix string, attr slog.Attr) {
	key := prefix + attr.Key
	if attr.Value.Kind() == slog.KindGroup {
		for _, member := range attr.Value.Group() {
			member.Value = member.Value.Resolve()
			writeField(buf, key+".", member)
		}
		return
	}
	buf.WriteByte(' ')
	buf.WriteString(key)
	buf.WriteByte('=')
	buf.WriteString(quoteIfNeeded(valueText(attr.Value)))
}

func valueText(v slog.Value) string {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().Local().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.String()
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}

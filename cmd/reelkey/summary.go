package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"reelkey/internal/episodes"
	"reelkey/internal/services"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusColor(status episodes.Status) string {
	switch status {
	case episodes.StatusOK:
		return ansiGreen
	case episodes.StatusMissing, episodes.StatusSkipped:
		return ansiYellow
	case episodes.StatusFailed:
		return ansiRed
	default:
		return ""
	}
}

func colorStatus(status episodes.Status, colorize bool) string {
	label := string(status)
	if colorize {
		if color := statusColor(status); color != "" {
			return color + label + ansiReset
		}
	}
	return label
}

// renderResults prints the per-episode table. Successful rows are omitted
// unless verbose is set so large batches stay readable.
func renderResults(w io.Writer, results []episodes.Result, verbose bool, showSize bool) {
	colorize := shouldColorize(w)
	columns := append(append([]column(nil), episodeColumns...), column{title: "Status"}, column{title: "Time", numeric: true})
	if showSize {
		columns = append(columns, column{title: "Size", numeric: true})
	}
	columns = append(columns, column{title: "Error"})

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		if !verbose && r.Status == episodes.StatusOK {
			continue
		}
		row := []string{r.Index, r.Key, colorStatus(r.Status, colorize), formatDuration(r.Duration)}
		if showSize {
			row = append(row, formatSize(r.Bytes))
		}
		row = append(row, describeError(r.Err))
		rows = append(rows, row)
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable(columns, rows))
	}
}

func renderSummaryLine(w io.Writer, label string, results []episodes.Result, elapsed time.Duration) {
	s := episodes.Summarize(results)
	parts := []string{fmt.Sprintf("%d ok", s.Succeeded)}
	if s.Missing > 0 {
		parts = append(parts, fmt.Sprintf("%d missing", s.Missing))
	}
	if s.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", s.Skipped))
	}
	if s.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", s.Failed))
	}
	line := fmt.Sprintf("%s: %d episodes (%s) in %s", label, s.Total, strings.Join(parts, ", "), formatDuration(elapsed))
	if shouldColorize(w) {
		color := ansiGreen
		if s.Failed > 0 {
			color = ansiRed
		} else if s.Missing > 0 || s.Skipped > 0 {
			color = ansiYellow
		}
		line = color + line + ansiReset
	}
	fmt.Fprintln(w, line)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

func describeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 80 {
		msg = msg[:77] + "..."
	}
	return fmt.Sprintf("[%s] %s", services.Kind(err), msg)
}

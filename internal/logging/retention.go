package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const dailyLogLayout = "20060102"

// PruneDailyLogs removes <prefix>-YYYYMMDD.log files in dir dated more than
// retentionDays before now. Files whose name does not carry a date are left
// alone. A retentionDays value of 0 disables pruning. It returns how many
// files were removed.
func PruneDailyLogs(logger *slog.Logger, dir, prefix string, retentionDays int, now time.Time) (int, error) {
	if retentionDays <= 0 || strings.TrimSpace(dir) == "" {
		return 0, nil
	}
	if logger == nil {
		logger = NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read log dir: %w", err)
	}

	y, m, d := now.Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -retentionDays)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		day, ok := logDate(entry.Name(), prefix, now.Location())
		if !ok || !day.Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "old log file not removed", "log_retention_failed",
				String("path", path),
				Error(err),
				Hint("check permissions on paths.log_dir"),
				Impact("old log file stays on disk"),
			)
			continue
		}
		removed++
		logger.Debug("log pruned", String("path", path))
	}
	if removed > 0 {
		logger.Info("old logs pruned", Int("files", removed), Int("retention_days", retentionDays))
	}
	return removed, nil
}

func logDate(name, prefix string, loc *time.Location) (time.Time, bool) {
	stamp, ok := strings.CutPrefix(name, prefix+"-")
	if !ok {
		return time.Time{}, false
	}
	stamp, ok = strings.CutSuffix(stamp, ".log")
	if !ok {
		return time.Time{}, false
	}
	day, err := time.ParseInLocation(dailyLogLayout, stamp, loc)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

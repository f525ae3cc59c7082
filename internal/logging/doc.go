// Package logging assembles structured slog loggers and formatting helpers used
// across reelkey.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// tees a JSON copy of every record into the persistent log file, and exposes
// context-aware helpers so pipeline code can tag log lines with run IDs,
// pipeline names, and episode indices. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
package logging

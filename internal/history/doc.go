// Package history records harvest and download runs in a local SQLite
// database so past batches can be reviewed with `reelkey history`.
//
// Each run gets a UUID that is also attached to every log line emitted while
// the run is active, and one row per episode describing its outcome. The
// schema is versioned; a mismatch is reported rather than migrated.
package history

// Package preflight provides readiness checks for the external programs,
// site, and filesystem paths that reelkey depends on.
//
// `reelkey check` prints every result. The download command runs the
// binary checks before launching a browser so a missing Java runtime or
// Chromium fails fast instead of once per episode.
package preflight

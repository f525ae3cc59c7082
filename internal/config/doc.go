// Package config loads, normalizes, and validates reelkey configuration data.
//
// It supplies defaults that reproduce the fixed parameters of a plain run
// (episode range, worker counts, timeouts, paths, site URL template), expands
// user paths (including tilde shortcuts), and reads TOML files. The Config type
// is passed explicitly into the harvester and downloader so tests can inject
// small ranges and limits.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

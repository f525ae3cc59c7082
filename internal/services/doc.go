// Package services defines shared utilities consumed by the harvest and
// download pipelines.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, pipeline names, episode indices, and
//     step names for logging and history.
//   - Structured error markers plus the Wrap helper so item failures can be
//     classified with errors.Is.
//
// Use these helpers when wiring new pipeline steps so error handling and
// observability stay uniform.
package services

// Package harvest fetches every episode page in the configured range and
// extracts the player key embedded in it.
//
// A fixed-size worker pool issues one GET per index; a single draining loop
// collects results so no shared state needs locking. Fetch failures and pages
// without a key both produce the sentinel key for that episode and never stop
// the batch. Run persists the sorted key file and regenerates the download
// script.
package harvest

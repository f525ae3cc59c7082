// Package episodes models episode records and owns the on-disk formats that
// connect the harvester to the downloader: the colon-delimited key file and
// the generated download script.
//
// The key file is authoritative. The script is a derived artifact rebuilt in
// full from the records on every harvest run.
package episodes

package episodes

import "time"

// Status is the outcome of one item in a pipeline run.
type Status string

const (
	// StatusOK means the item completed: a key was found or a download exited 0.
	StatusOK Status = "ok"
	// StatusMissing means the page was fetched but carried no key.
	StatusMissing Status = "missing"
	// StatusFailed means the item hit an error and was abandoned.
	StatusFailed Status = "failed"
	// StatusSkipped means the item was never dispatched.
	StatusSkipped Status = "skipped"
)

// Result is the per-item outcome returned by the harvester and downloader.
type Result struct {
	Index    string
	Key      string
	Status   Status
	Err      error
	Duration time.Duration
	// Bytes is the size of the downloaded file, when known.
	Bytes int64
}

// Summary tallies results by status.
type Summary struct {
	Total     int
	Succeeded int
	Missing   int
	Failed    int
	Skipped   int
}

// Summarize counts results by status.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.Succeeded++
		case StatusMissing:
			s.Missing++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// Records converts harvest results into key file records. Anything other than
// StatusOK is stored with the sentinel key.
func Records(results []Result) []Record {
	records := make([]Record, 0, len(results))
	for _, r := range results {
		key := r.Key
		if r.Status != StatusOK || key == "" {
			key = MissingKey
		}
		records = append(records, Record{Index: r.Index, Key: key})
	}
	SortRecords(records)
	return records
}

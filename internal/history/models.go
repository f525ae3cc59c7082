package history

import "time"

// RunStatus is the lifecycle state of a recorded run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunFinished RunStatus = "finished"
	// RunAborted marks a run that was canceled before every item reported.
	RunAborted RunStatus = "aborted"
)

// Run is one invocation of the harvester or downloader.
type Run struct {
	ID         string
	Kind       string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Missing    int
	Failed     int
	Skipped    int
}

// Duration reports how long the run took, or zero if it never finished.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Item is the recorded outcome of one episode within a run.
type Item struct {
	RunID        string
	Episode      string
	Key          string
	Status       string
	ErrorKind    string
	ErrorMessage string
	Duration     time.Duration
	Bytes        int64
}

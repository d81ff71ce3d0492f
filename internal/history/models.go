package history

import "time"

// RunStatus is the lifecycle status of a recorded run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// Run is one invocation of a pipeline command.
type Run struct {
	ID            string
	Command       string
	StartedAt     time.Time
	FinishedAt    time.Time
	Status        RunStatus
	FinalOutput   string
	FinalDuration float64
	Error         string
	Chapters      []ChapterResult
}

// Finished reports whether the run reached a terminal status.
func (r Run) Finished() bool {
	return r.Status != RunStatusRunning
}

// Elapsed returns the wall-clock time of a finished run.
func (r Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ChapterResult is the recorded outcome of one chapter within a run.
type ChapterResult struct {
	Chapter     string
	State       string
	Skipped     bool
	Pages       int
	Synthesized int
	Repaired    int
	Duration    float64
	Elapsed     time.Duration
	ErrorCode   string
	Error       string
	RecordedAt  time.Time
}

// Completion summarizes how a run ended.
type Completion struct {
	Status        RunStatus
	FinalOutput   string
	FinalDuration float64
	Err           error
}

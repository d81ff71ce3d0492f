package pipeline

import (
	"time"

	"panelcast/internal/chapter"
	"panelcast/internal/concat"
	"panelcast/internal/history"
	"panelcast/internal/layout"
	"panelcast/internal/media/runner"
	"panelcast/internal/services"
	"panelcast/internal/standardize"
)

// Summary reports what a pipeline invocation did.
type Summary struct {
	RunID   string
	Command string
	DryRun  bool

	// ToProcess and ToSkip are the plan made before any chapter ran.
	ToProcess      []layout.Chapter
	ToSkip         []layout.Chapter
	Outcomes       []chapter.Outcome
	Processed      int
	Skipped        int
	Failed         int
	ChapterVideos  int
	OutputDir      string
	AudioAvailable bool

	Analysis     []standardize.Analysis
	Standardized []standardize.Result
	FinalInputs  []string
	Final        *concat.Report
	FinalSkipped bool

	// Commands lists what a dry run would execute, in order.
	Commands []runner.Command
	Elapsed  time.Duration
}

func (s *Summary) add(out chapter.Outcome) {
	s.Outcomes = append(s.Outcomes, out)
	switch {
	case out.Err != nil:
		s.Failed++
	case out.Skipped:
		s.Skipped++
	default:
		s.Processed++
	}
}

// FailedChapters returns the outcomes that ended in the Failed state.
func (s Summary) FailedChapters() []chapter.Outcome {
	var failed []chapter.Outcome
	for _, out := range s.Outcomes {
		if out.Err != nil {
			failed = append(failed, out)
		}
	}
	return failed
}

// RestandardizeCount returns how many chapter videos were re-encoded.
func (s Summary) RestandardizeCount() int {
	n := 0
	for _, res := range s.Standardized {
		if res.Standardized {
			n++
		}
	}
	return n
}

func historyResult(out chapter.Outcome) history.ChapterResult {
	result := history.ChapterResult{
		Chapter:     out.Chapter.Name,
		State:       string(out.State),
		Skipped:     out.Skipped,
		Pages:       out.Pages,
		Synthesized: out.Synthesized,
		Repaired:    out.Repaired,
		Duration:    out.Duration,
		Elapsed:     out.Elapsed,
	}
	if out.Err != nil {
		result.ErrorCode = services.ErrorCode(out.Err)
		result.Error = out.Err.Error()
	}
	return result
}

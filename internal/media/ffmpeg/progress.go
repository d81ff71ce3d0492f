package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var timeRegex = regexp.MustCompile(`(?:^|\s)(?:out_)?time=\s*([0-9][0-9:.]*)`)

// ParseProgressTime extracts the encoder position in seconds from a
// diagnostic line carrying time=HH:MM:SS.xx or time=<seconds>.
func ParseProgressTime(line string) (float64, bool) {
	matches := timeRegex.FindStringSubmatch(line)
	if len(matches) < 2 {
		return 0, false
	}
	return timeToSeconds(matches[1])
}

func timeToSeconds(value string) (float64, bool) {
	if !strings.Contains(value, ":") {
		seconds, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}
		return seconds, true
	}
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err1 := strconv.Atoi(parts[0])
	minutes, err2 := strconv.Atoi(parts[1])
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return float64(hours)*3600 + float64(minutes)*60 + seconds, true
}

// ProgressTracker turns diagnostic lines into a position that never moves
// backwards. Unparseable lines are ignored.
type ProgressTracker struct {
	mu       sync.Mutex
	total    float64
	position float64
}

// NewProgressTracker tracks progress toward total seconds (0 when unknown).
func NewProgressTracker(total float64) *ProgressTracker {
	if total < 0 {
		total = 0
	}
	return &ProgressTracker{total: total}
}

// Observe parses line and returns the seconds advanced by it, or false when
// the line carried no forward progress.
func (t *ProgressTracker) Observe(line string) (float64, bool) {
	seconds, ok := ParseProgressTime(line)
	if !ok {
		return 0, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total > 0 && seconds > t.total {
		seconds = t.total
	}
	if seconds <= t.position {
		return 0, false
	}
	delta := seconds - t.position
	t.position = seconds
	return delta, true
}

// Position returns the furthest position seen.
func (t *ProgressTracker) Position() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.position
}

// Percent returns completion in [0,100], or -1 when the total is unknown.
func (t *ProgressTracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total <= 0 {
		return -1
	}
	return t.position / t.total * 100
}

// DiagnosticTailLines is how many trailing stderr lines accompany failures.
const DiagnosticTailLines = 10

// StderrTail returns the last n non-empty lines of an encoder's diagnostic
// output, splitting on carriage returns as well as newlines.
func StderrTail(stderr string, n int) []string {
	if n <= 0 {
		return nil
	}
	lines := strings.FieldsFunc(stderr, func(r rune) bool { return r == '\n' || r == '\r' })
	kept := make([]string, 0, n)
	for i := len(lines) - 1; i >= 0 && len(kept) < n; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			kept = append(kept, line)
		}
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

// Diagnostic formats a stderr tail for inclusion in an error message.
func Diagnostic(stderr string) string {
	tail := StderrTail(stderr, DiagnosticTailLines)
	if len(tail) == 0 {
		return "no diagnostic output"
	}
	return strings.Join(tail, " | ")
}

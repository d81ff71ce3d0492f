package testsupport

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"panelcast/internal/media/runner"
)

// Handler produces the scripted outcome for a matched command.
type Handler func(cmd runner.Command) (runner.Result, error)

type rule struct {
	match   func(runner.Command) bool
	handler Handler
}

// FakeRunner returns scripted results by matching command arguments and
// records every invocation. The most recently registered matching rule wins.
type FakeRunner struct {
	mu      sync.Mutex
	rules   []rule
	calls   []runner.Command
	Default runner.Result
}

// NewFakeRunner returns an empty fake whose unmatched commands exit 0.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// On registers handler for commands accepted by match.
func (f *FakeRunner) On(match func(runner.Command) bool, handler Handler) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{match: match, handler: handler})
	return f
}

// OnArgs registers handler for commands whose joined arguments contain every
// fragment.
func (f *FakeRunner) OnArgs(handler Handler, fragments ...string) *FakeRunner {
	return f.On(ArgsContain(fragments...), handler)
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRunner) Calls() []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]runner.Command(nil), f.calls...)
}

// CountCalls returns how many recorded invocations match.
func (f *FakeRunner) CountCalls(match func(runner.Command) bool) int {
	count := 0
	for _, cmd := range f.Calls() {
		if match(cmd) {
			count++
		}
	}
	return count
}

func (f *FakeRunner) Run(ctx context.Context, cmd runner.Command, _ time.Duration) (runner.Result, error) {
	if err := ctx.Err(); err != nil {
		return runner.Result{ExitCode: -1}, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	var handler Handler
	for i := len(f.rules) - 1; i >= 0; i-- {
		if f.rules[i].match(cmd) {
			handler = f.rules[i].handler
			break
		}
	}
	def := f.Default
	f.mu.Unlock()

	if handler == nil {
		return def, nil
	}
	return handler(cmd)
}

func (f *FakeRunner) Stream(ctx context.Context, cmd runner.Command, onLine func(string)) (runner.Result, error) {
	res, err := f.Run(ctx, cmd, 0)
	if onLine != nil {
		runner.ScanLines(strings.NewReader(res.Stderr), onLine)
	}
	return res, err
}

// ArgsContain matches commands whose joined arguments contain every fragment.
func ArgsContain(fragments ...string) func(runner.Command) bool {
	return func(cmd runner.Command) bool {
		joined := strings.Join(cmd.Args, " ")
		for _, fragment := range fragments {
			if !strings.Contains(joined, fragment) {
				return false
			}
		}
		return true
	}
}

// Respond returns a handler that exits 0 with stdout.
func Respond(stdout string) Handler {
	return func(runner.Command) (runner.Result, error) {
		return runner.Result{Stdout: stdout}, nil
	}
}

// Fail returns a handler that exits with code and stderr.
func Fail(code int, stderr string) Handler {
	return func(runner.Command) (runner.Result, error) {
		return runner.Result{Stderr: stderr, ExitCode: code}, nil
	}
}

// Error returns a handler that fails to run with err.
func Error(err error) Handler {
	return func(runner.Command) (runner.Result, error) {
		return runner.Result{ExitCode: -1}, err
	}
}

// WriteOutput returns a handler that creates the command's output file (its
// last argument) and exits 0.
func WriteOutput() Handler {
	return func(cmd runner.Command) (runner.Result, error) {
		if err := touch(OutputPath(cmd)); err != nil {
			return runner.Result{ExitCode: 1, Stderr: err.Error()}, nil
		}
		return runner.Result{}, nil
	}
}

// OutputPath returns the last argument, which is the output file for every
// ffmpeg command and the input file for every ffprobe query.
func OutputPath(cmd runner.Command) string {
	if len(cmd.Args) == 0 {
		return ""
	}
	return cmd.Args[len(cmd.Args)-1]
}

func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("media"), 0o644)
}

package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// ErrStart reports that the tool binary could not be launched.
var ErrStart = errors.New("tool could not be started")

// ErrTimeout reports that the invocation exceeded its wall-clock bound.
var ErrTimeout = errors.New("tool timed out")

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string
}

// String renders the command line for logs and dry-run output.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, c.Name)
	for _, arg := range c.Args {
		if arg == "" || strings.ContainsAny(arg, " \t'\"") {
			arg = "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Result captures the outcome of a completed invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// OK reports a zero exit status.
func (r Result) OK() bool { return r.ExitCode == 0 }

// Runner executes external tools.
type Runner interface {
	// Run executes cmd and buffers its output. A zero timeout means no bound
	// beyond ctx.
	Run(ctx context.Context, cmd Command, timeout time.Duration) (Result, error)
	// Stream executes cmd, forwarding each stderr line (split on \r or \n) to
	// onLine while it runs. Stdout is buffered.
	Stream(ctx context.Context, cmd Command, onLine func(string)) (Result, error)
}

// Exec runs commands with os/exec.
type Exec struct{}

// New returns the OS-backed runner.
func New() Exec { return Exec{} }

func (Exec) Run(ctx context.Context, cmd Command, timeout time.Duration) (Result, error) {
	runCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	proc := exec.CommandContext(runCtx, cmd.Name, cmd.Args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	err := proc.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	return finish(runCtx, ctx, cmd, proc, result, err, timeout)
}

func (Exec) Stream(ctx context.Context, cmd Command, onLine func(string)) (Result, error) {
	proc := exec.CommandContext(ctx, cmd.Name, cmd.Args...) //nolint:gosec
	var stdout bytes.Buffer
	proc.Stdout = &stdout
	stderrPipe, err := proc.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := proc.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %s: %w", ErrStart, cmd.Name, err)
	}

	// The pipe must be drained before Wait closes it.
	var stderr bytes.Buffer
	ScanLines(io.TeeReader(stderrPipe, &stderr), func(line string) {
		if onLine != nil {
			onLine(line)
		}
	})

	err = proc.Wait()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	return finish(ctx, ctx, cmd, proc, result, err, 0)
}

func finish(runCtx, parent context.Context, cmd Command, proc *exec.Cmd, result Result, err error, timeout time.Duration) (Result, error) {
	if err == nil {
		return result, nil
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
		result.ExitCode = -1
		return result, fmt.Errorf("%w: %s after %s", ErrTimeout, cmd.Name, timeout)
	}
	if parent.Err() != nil {
		result.ExitCode = -1
		return result, parent.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if proc.ProcessState == nil {
		result.ExitCode = -1
		return result, fmt.Errorf("%w: %s: %w", ErrStart, cmd.Name, err)
	}
	result.ExitCode = proc.ProcessState.ExitCode()
	return result, nil
}

// ScanLines splits r on carriage returns and newlines, which is how ffmpeg
// separates its in-place progress updates, and calls fn for each non-empty line.
func ScanLines(r io.Reader, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitCRLF)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			fn(line)
		}
	}
	// Drain the rest so the child never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, r)
}

func splitCRLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

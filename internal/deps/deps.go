package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"panelcast/internal/config"
	"panelcast/internal/media/runner"
)

// Requirement defines an external binary panelcast relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Version     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the binaries the pipeline invokes for cfg.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Required for segment encoding, standardization, and concatenation",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.FFprobeBinary(),
			Description: "Required for media inspection",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Path = path
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

// DetectVersions fills Version for available statuses by running
// `<command> -version`. Failures leave Version empty and note the reason in
// Detail; they never flip Available.
func DetectVersions(ctx context.Context, r runner.Runner, statuses []Status, timeout time.Duration) []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	for i := range out {
		if !out[i].Available {
			continue
		}
		res, err := r.Run(ctx, runner.Command{Name: out[i].Command, Args: []string{"-version"}}, timeout)
		if err != nil || !res.OK() {
			out[i].Detail = "version query failed"
			continue
		}
		out[i].Version = ParseVersion(res.Stdout)
	}
	return out
}

// ParseVersion extracts the version token from the first line of
// `ffmpeg -version` style output ("ffmpeg version 6.1.1-3ubuntu5 Copyright ...").
func ParseVersion(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "version" {
			return fields[i+1]
		}
	}
	return ""
}

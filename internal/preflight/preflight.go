package preflight

import (
	"context"
	"fmt"
	"strings"

	"panelcast/internal/config"
	"panelcast/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	// Degraded marks a passing check whose input is absent or will be
	// created, so the run proceeds differently than configured.
	Degraded bool
	Detail   string
}

// RunAll executes every preflight check for cfg. Output directories are
// expected to exist already (config.EnsureDirectories).
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckReadableDirectory("Images directory", cfg.Paths.ImagesDir),
		CheckOptionalDirectory("Audio directory", cfg.Paths.AudioDir),
		CheckDirectoryAccess("Chapter videos directory", cfg.Paths.ChapterVideosDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}
	return append(results, DependencyResults(ctx, cfg)...)
}

// DependencyResults reports each required binary as a check result.
func DependencyResults(ctx context.Context, cfg *config.Config) []Result {
	statuses := CheckSystemDeps(ctx, cfg)
	results := make([]Result, 0, len(statuses))
	for _, status := range statuses {
		detail := status.Path
		if !status.Available {
			detail = status.Detail
		}
		results = append(results, Result{
			Name:     status.Name,
			Passed:   status.Available,
			Optional: status.Optional,
			Detail:   detail,
		})
	}
	return results
}

// Failures returns the required checks that did not pass.
func Failures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err folds failed required checks into a single configuration error, or nil.
func Err(results []Result) error {
	failed := Failures(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "check", strings.Join(parts, "; "), nil)
}

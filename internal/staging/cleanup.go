package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"panelcast/internal/fileutil"
	"panelcast/internal/logging"
)

const (
	// ChapterDirPrefix names per-chapter assembly directories.
	ChapterDirPrefix = "temp_"
	// FinalizeDirPrefix names per-run standardize and concat directories.
	FinalizeDirPrefix = "finalize_"
)

// IsWorkDir reports whether name is a directory panelcast creates for its own
// scratch work. The work dir defaults to the current directory, so nothing
// else is ever touched.
func IsWorkDir(name string) bool {
	return strings.HasPrefix(name, ChapterDirPrefix) || strings.HasPrefix(name, FinalizeDirPrefix)
}

// CleanupResult contains the outcome of a cleanup operation.
type CleanupResult struct {
	Removed        []string
	ReclaimedBytes int64
	Errors         []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Merge folds other into r.
func (r *CleanupResult) Merge(other CleanupResult) {
	r.Removed = append(r.Removed, other.Removed...)
	r.ReclaimedBytes += other.ReclaimedBytes
	r.Errors = append(r.Errors, other.Errors...)
}

func (r *CleanupResult) fail(path string, err error) {
	r.Errors = append(r.Errors, CleanupError{Path: path, Error: err})
}

// CleanStale removes work directories older than maxAge. A non-positive maxAge
// removes every work directory regardless of age.
func CleanStale(ctx context.Context, workDir string, maxAge time.Duration, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}

	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return result
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.fail(workDir, err)
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() || !IsWorkDir(entry.Name()) {
			continue
		}

		dirPath := filepath.Join(workDir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.fail(dirPath, err)
			continue
		}
		if maxAge > 0 && !info.ModTime().Before(cutoff) {
			continue
		}

		size, _ := dirSize(dirPath)
		if err := os.RemoveAll(dirPath); err != nil {
			result.fail(dirPath, err)
			warnCleanup(logger, "failed to remove stale work directory", dirPath, err)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		result.ReclaimedBytes += size
		if logger != nil {
			logger.Info("removed stale work directory",
				logging.String("path", dirPath),
				logging.String("kind", workDirKind(entry.Name())),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.Int64("output_size_bytes", size),
				logging.String(logging.FieldEventType, "staging_cleanup"),
			)
		}
	}

	return result
}

// CleanPartials removes uncommitted partial outputs from dirs. Callers must
// hold the run lock; a partial file is only ever live inside a running
// pipeline.
func CleanPartials(ctx context.Context, dirs []string, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}
	seen := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		result.Merge(cleanPartialsIn(ctx, dir, logger))
	}
	return result
}

func cleanPartialsIn(ctx context.Context, dir string, logger *slog.Logger) CleanupResult {
	result := CleanupResult{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.fail(dir, err)
		}
		return result
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if entry.IsDir() || !fileutil.IsPartial(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		var size int64
		if info, err := entry.Info(); err == nil {
			size = info.Size()
		}
		if err := fileutil.RemoveIfExists(path); err != nil {
			result.fail(path, err)
			warnCleanup(logger, "failed to remove partial output", path, err)
			continue
		}
		result.Removed = append(result.Removed, path)
		result.ReclaimedBytes += size
		if logger != nil {
			logger.Info("removed partial output",
				logging.String("path", path),
				logging.String(logging.FieldEventType, "partial_cleanup"),
			)
		}
	}
	return result
}

func warnCleanup(logger *slog.Logger, msg, path string, err error) {
	logging.WarnWithContext(logger, msg, "staging_cleanup_failed",
		logging.String("path", path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check work_dir and chapter_videos_dir permissions"),
		logging.String(logging.FieldImpact, "disk space not reclaimed"),
	)
}

// ListDirectories returns the work directories under workDir, oldest first.
func ListDirectories(workDir string) ([]DirInfo, error) {
	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !IsWorkDir(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(workDir, entry.Name())
		size, _ := dirSize(dirPath)

		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Kind:    workDirKind(entry.Name()),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
		})
	}
	sort.SliceStable(dirs, func(i, j int) bool { return dirs[i].ModTime.Before(dirs[j].ModTime) })
	return dirs, nil
}

// DirInfo describes one work directory. Kind is "chapter" for per-chapter
// assembly dirs and "finalize" for per-run standardize/concat dirs.
type DirInfo struct {
	Name    string    `json:"name"`
	Kind    string    `json:"kind"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"modified_at"`
	Size    int64     `json:"size_bytes"`
}

func workDirKind(name string) string {
	if strings.HasPrefix(name, FinalizeDirPrefix) {
		return "finalize"
	}
	return "chapter"
}

// dirSize sums file sizes under path, best effort.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

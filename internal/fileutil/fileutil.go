package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PartialMarker tags outputs that are still being written. It sits before the
// extension so ffmpeg still infers the container from the name.
const PartialMarker = ".partial"

// PartialPath returns the in-progress path for final, e.g.
// chapter_1.mp4 -> chapter_1.partial.mp4.
func PartialPath(final string) string {
	ext := filepath.Ext(final)
	return strings.TrimSuffix(final, ext) + PartialMarker + ext
}

// IsPartial reports whether name is an in-progress output.
func IsPartial(name string) bool {
	base := filepath.Base(name)
	return strings.HasSuffix(strings.TrimSuffix(base, filepath.Ext(base)), PartialMarker)
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Commit renames a finished partial output into place. The partial file is
// removed when the rename fails so no half-written output survives.
func Commit(partial, final string) error {
	info, err := os.Stat(partial)
	if err != nil {
		return fmt.Errorf("stat partial output: %w", err)
	}
	if info.Size() == 0 {
		_ = os.Remove(partial)
		return fmt.Errorf("partial output %s is empty", partial)
	}
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.Rename(partial, final); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("rename %s: %w", partial, err)
	}
	return nil
}

// IsFile reports whether path is an existing regular file.
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the size of path in bytes, or 0 when it cannot be read.
func Size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

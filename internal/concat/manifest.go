package concat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"panelcast/internal/fileutil"
	"panelcast/internal/services"
)

// AudioVerifier reports whether a file carries an audio stream.
type AudioVerifier interface {
	HasAudio(ctx context.Context, path string) (bool, error)
}

// Manifest is a written concat list.
type Manifest struct {
	Path    string
	Entries []string
}

// EscapePath renders path for a concat manifest line. Backslashes become
// forward slashes and single quotes are closed, double-quoted, and reopened.
func EscapePath(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	return strings.ReplaceAll(path, "'", `'"'"'`)
}

// Render returns the manifest body for absolute paths.
func Render(paths []string) string {
	var b strings.Builder
	for _, path := range paths {
		fmt.Fprintf(&b, "file '%s'\n", EscapePath(path))
	}
	return b.String()
}

// BuildManifest verifies files and writes their manifest to path. Each file
// must exist, and when verifier is non-nil must carry audio.
func BuildManifest(ctx context.Context, files []string, verifier AudioVerifier, path string) (Manifest, error) {
	if len(files) == 0 {
		return Manifest{}, services.Wrap(services.ErrConcatVerification, "concat", "verify inputs", "no input files", nil)
	}
	entries := make([]string, 0, len(files))
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			return Manifest{}, services.Wrap(services.ErrConcatVerification, "concat", "verify inputs", file, err)
		}
		if !fileutil.IsFile(abs) {
			return Manifest{}, services.Wrap(services.ErrConcatVerification, "concat", "verify inputs", fmt.Sprintf("missing file %s", abs), nil)
		}
		if verifier != nil {
			ok, err := verifier.HasAudio(ctx, abs)
			if err != nil {
				return Manifest{}, err
			}
			if !ok {
				return Manifest{}, services.Wrap(services.ErrConcatVerification, "concat", "verify inputs", fmt.Sprintf("no audio stream in %s", abs), nil)
			}
		}
		entries = append(entries, abs)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Manifest{}, services.Wrap(services.ErrConcatVerification, "concat", "write manifest", path, err)
	}
	if err := os.WriteFile(path, []byte(Render(entries)), 0o644); err != nil {
		return Manifest{}, services.Wrap(services.ErrConcatVerification, "concat", "write manifest", path, err)
	}
	return Manifest{Path: path, Entries: entries}, nil
}

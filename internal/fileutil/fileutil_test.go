package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCommitRenamesPartial(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "videos", "chapter_1.mp4")
	partial := filepath.Join(dir, "chapter_1.partial.mp4")
	if err := os.WriteFile(partial, []byte("video"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Commit(partial, final); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !IsFile(final) {
		t.Fatal("final output missing")
	}
	if IsFile(partial) {
		t.Fatal("partial output should be gone")
	}
	if Size(final) != 5 {
		t.Fatalf("size = %d", Size(final))
	}
}

func TestCommitRejectsEmptyPartial(t *testing.T) {
	dir := t.TempDir()
	partial := PartialPath(filepath.Join(dir, "out.mp4"))
	if err := os.WriteFile(partial, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Commit(partial, filepath.Join(dir, "out.mp4")); err == nil {
		t.Fatal("expected error for empty partial")
	}
	if IsFile(partial) || IsFile(filepath.Join(dir, "out.mp4")) {
		t.Fatal("empty partial must not produce output")
	}
}

func TestRemoveIfExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "segment.mp4")
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveIfExists(path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if IsFile(path) {
		t.Fatal("file should be removed")
	}
	if Size(path) != 0 {
		t.Fatal("size of missing file should be 0")
	}
}

func TestPartialPath(t *testing.T) {
	if got := PartialPath("/videos/chapter_1.mp4"); got != "/videos/chapter_1.partial.mp4" {
		t.Fatalf("PartialPath = %q", got)
	}
	if !IsPartial("/videos/chapter_1.partial.mp4") || IsPartial("/videos/chapter_1.mp4") {
		t.Fatal("IsPartial misclassified outputs")
	}
}

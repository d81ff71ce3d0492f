package layout_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"panelcast/internal/layout"
	"panelcast/internal/services"
	"panelcast/internal/testsupport"
)

func TestChaptersNaturalOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	for _, name := range []string{"chapter_10", "chapter_2", "extras", "chapter_1"} {
		if err := os.MkdirAll(filepath.Join(cfg.Paths.ImagesDir, name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.ImagesDir, "notes.txt"), 4)

	chapters, err := layout.New(cfg).Chapters()
	if err != nil {
		t.Fatalf("Chapters: %v", err)
	}
	var names []string
	for _, ch := range chapters {
		names = append(names, ch.Name)
	}
	want := []string{"chapter_1", "chapter_2", "chapter_10", "extras"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("chapters = %v, want %v", names, want)
	}
	if got := chapters[2].Output; got != filepath.Join(cfg.Paths.ChapterVideosDir, "chapter_10.mp4") {
		t.Fatalf("output = %q", got)
	}
	if chapters[2].Label != "Chapter 10" {
		t.Fatalf("label = %q", chapters[2].Label)
	}
}

func TestChaptersMissingRoot(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.ImagesDir = filepath.Join(t.TempDir(), "absent")
	_, err := layout.New(cfg).Chapters()
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadPagesMatchesAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	chapterDir := filepath.Join(cfg.Paths.ImagesDir, "chapter_1")
	for _, name := range []string{"page_10.webp", "page_2.jpg", "page_1.png", "thumbs.db"} {
		testsupport.WriteFile(t, filepath.Join(chapterDir, name), 8)
	}
	audioDir := filepath.Join(cfg.Paths.AudioDir, "chapter_1")
	testsupport.WriteFile(t, filepath.Join(audioDir, "page_1.wav"), 8)
	testsupport.WriteFile(t, filepath.Join(audioDir, "page_1.mp3"), 8)
	testsupport.WriteFile(t, filepath.Join(audioDir, "page_10.m4a"), 8)

	l := layout.New(cfg)
	ch := l.Chapter("chapter_1")
	if err := l.LoadPages(&ch); err != nil {
		t.Fatalf("LoadPages: %v", err)
	}
	if len(ch.Pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(ch.Pages))
	}
	tests := []struct {
		file  string
		audio string
	}{
		{"page_1.png", filepath.Join(audioDir, "page_1.mp3")},
		{"page_2.jpg", ""},
		{"page_10.webp", filepath.Join(audioDir, "page_10.m4a")},
	}
	for i, tt := range tests {
		page := ch.Pages[i]
		if page.File != tt.file || page.AudioPath != tt.audio || page.Index != i+1 {
			t.Fatalf("page %d = %+v, want file %s audio %q", i, page, tt.file, tt.audio)
		}
	}
	if ch.Pages[2].Base() != "page_10" {
		t.Fatalf("base = %q", ch.Pages[2].Base())
	}
}

func TestLoadPagesEmptyChapter(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(filepath.Join(cfg.Paths.ImagesDir, "chapter_1"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	l := layout.New(cfg)
	ch := l.Chapter("chapter_1")
	if err := l.LoadPages(&ch); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadPagesRejectsSharedBaseName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	chapterDir := filepath.Join(cfg.Paths.ImagesDir, "chapter_1")
	for _, name := range []string{"01.png", "01.jpg", "02.png"} {
		testsupport.WriteFile(t, filepath.Join(chapterDir, name), 8)
	}
	l := layout.New(cfg)
	ch := l.Chapter("chapter_1")
	err := l.LoadPages(&ch)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), `"01"`) {
		t.Fatalf("error should name the shared page: %v", err)
	}
	if len(ch.Pages) != 0 {
		t.Fatalf("pages must not be assigned, got %d", len(ch.Pages))
	}
}

func TestChapterVideosSkipsPartial(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	for _, name := range []string{"chapter_2.mp4", "chapter_10.MP4", "chapter_1.mp4", "chapter_3.partial.mp4", "notes.txt"} {
		testsupport.WriteFile(t, filepath.Join(cfg.Paths.ChapterVideosDir, name), 4)
	}
	videos, err := layout.New(cfg).ChapterVideos()
	if err != nil {
		t.Fatalf("ChapterVideos: %v", err)
	}
	var names []string
	for _, v := range videos {
		names = append(names, filepath.Base(v))
	}
	want := []string{"chapter_1.mp4", "chapter_2.mp4", "chapter_10.MP4"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("videos = %v, want %v", names, want)
	}
}

func TestChapterDone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	l := layout.New(cfg)
	ch := l.Chapter("chapter_1")
	if ch.Done() {
		t.Fatal("chapter should not be done before output exists")
	}
	testsupport.WriteFile(t, ch.Output, 4)
	if !ch.Done() {
		t.Fatal("chapter should be done once output exists")
	}
}

func TestAudioAvailable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutAudioDir())
	if layout.New(cfg).AudioAvailable() {
		t.Fatal("audio root should be reported missing")
	}
}

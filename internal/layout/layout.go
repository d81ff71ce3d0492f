package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"panelcast/internal/config"
	"panelcast/internal/fileutil"
	"panelcast/internal/services"
	"panelcast/internal/textutil"
)

var imageExtensions = map[string]struct{}{
	".png":  {},
	".webp": {},
	".jpg":  {},
	".jpeg": {},
}

// Page is one image of a chapter together with its narration candidate.
type Page struct {
	Chapter   string
	Index     int
	File      string
	ImagePath string
	// AudioPath is the first existing narration file for the page, or empty.
	AudioPath string
}

// Base returns the page file name without its extension. Audio, processed
// frames, and segments are all named after it.
func (p Page) Base() string {
	return strings.TrimSuffix(p.File, filepath.Ext(p.File))
}

// Chapter is one chapter directory and, once loaded, its ordered pages.
type Chapter struct {
	Name     string
	Label    string
	ImageDir string
	AudioDir string
	Output   string
	Pages    []Page
}

// Done reports whether the chapter video already exists.
func (c Chapter) Done() bool {
	return fileutil.IsFile(c.Output)
}

// Layout resolves chapter and page locations from configured roots.
type Layout struct {
	ImagesDir       string
	AudioDir        string
	VideosDir       string
	AudioExtensions []string
}

// New builds a Layout from configuration.
func New(cfg *config.Config) Layout {
	return Layout{
		ImagesDir:       cfg.Paths.ImagesDir,
		AudioDir:        cfg.Paths.AudioDir,
		VideosDir:       cfg.Paths.ChapterVideosDir,
		AudioExtensions: append([]string(nil), cfg.Audio.Extensions...),
	}
}

// AudioAvailable reports whether the narration root exists.
func (l Layout) AudioAvailable() bool {
	info, err := os.Stat(l.AudioDir)
	return err == nil && info.IsDir()
}

// Chapters lists chapter directories under the images root in natural order.
// Pages are not loaded.
func (l Layout) Chapters() ([]Chapter, error) {
	entries, err := os.ReadDir(l.ImagesDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrConfiguration, "discovery", "list chapters", fmt.Sprintf("images directory %q not found", l.ImagesDir), err)
		}
		return nil, services.Wrap(services.ErrConfiguration, "discovery", "list chapters", l.ImagesDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	textutil.SortNatural(names)

	chapters := make([]Chapter, 0, len(names))
	for _, name := range names {
		chapters = append(chapters, l.Chapter(name))
	}
	return chapters, nil
}

// Chapter returns the locations for a named chapter without touching disk.
func (l Layout) Chapter(name string) Chapter {
	return Chapter{
		Name:     name,
		Label:    textutil.ChapterLabel(name),
		ImageDir: filepath.Join(l.ImagesDir, name),
		AudioDir: filepath.Join(l.AudioDir, name),
		Output:   filepath.Join(l.VideosDir, name+".mp4"),
	}
}

// LoadPages discovers the chapter's page images and matches narration files.
// A chapter without images, or with two images sharing a base name, is an
// error.
func (l Layout) LoadPages(ch *Chapter) error {
	entries, err := os.ReadDir(ch.ImageDir)
	if err != nil {
		return services.Wrap(services.ErrNotFound, "discovery", "list pages", ch.ImageDir, err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && IsImage(entry.Name()) {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return services.Wrap(services.ErrValidation, "discovery", "list pages", fmt.Sprintf("no images found in %s", ch.ImageDir), nil)
	}
	textutil.SortNatural(files)

	pages := make([]Page, 0, len(files))
	seen := make(map[string]string, len(files))
	for i, file := range files {
		page := Page{
			Chapter:   ch.Name,
			Index:     i + 1,
			File:      file,
			ImagePath: filepath.Join(ch.ImageDir, file),
		}
		// Segments and narration are keyed by base name.
		if prev, ok := seen[page.Base()]; ok {
			return services.Wrap(services.ErrValidation, "discovery", "list pages",
				fmt.Sprintf("%s and %s share page name %q in %s", prev, file, page.Base(), ch.ImageDir), nil)
		}
		seen[page.Base()] = file
		page.AudioPath = FindAudio(ch.AudioDir, page.Base(), l.AudioExtensions)
		pages = append(pages, page)
	}
	ch.Pages = pages
	return nil
}

// ChapterVideos lists finished chapter videos in natural order. In-progress
// partial outputs are ignored.
func (l Layout) ChapterVideos() ([]string, error) {
	entries, err := os.ReadDir(l.VideosDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "discovery", "list chapter videos", fmt.Sprintf("chapter videos directory %q not found", l.VideosDir), err)
		}
		return nil, services.Wrap(services.ErrNotFound, "discovery", "list chapter videos", l.VideosDir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.EqualFold(filepath.Ext(entry.Name()), ".mp4") && !fileutil.IsPartial(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	textutil.SortNatural(names)
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, filepath.Join(l.VideosDir, name))
	}
	return paths, nil
}

// IsImage reports whether name has a supported page image extension.
func IsImage(name string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

// FindAudio returns dir/base+ext for the first extension that exists as a
// regular file, or empty when none does.
func FindAudio(dir, base string, extensions []string) string {
	if dir == "" {
		return ""
	}
	for _, ext := range extensions {
		candidate := filepath.Join(dir, base+ext)
		if fileutil.IsFile(candidate) {
			return candidate
		}
	}
	return ""
}

package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var labelReplacer = strings.NewReplacer("_", " ", "-", " ", ".", " ")

// ChapterLabel renders a chapter directory name for display, e.g.
// "chapter_12" becomes "Chapter 12".
func ChapterLabel(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	words := strings.Fields(labelReplacer.Replace(name))
	if len(words) == 0 {
		return name
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// Ternary returns a when cond holds, b otherwise. Report code uses it for
// Yes/No style cells.
func Ternary[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

package main

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"panelcast/internal/chapter"
	"panelcast/internal/concat"
	"panelcast/internal/layout"
	"panelcast/internal/pipeline"
)

// pageBar counts encoded pages for one chapter.
type pageBar struct {
	bar *progressbar.ProgressBar
}

func newPageBar(w io.Writer, ch layout.Chapter) *pageBar {
	description := ch.Label
	if description == "" {
		description = ch.Name
	}
	return &pageBar{bar: progressbar.NewOptions(len(ch.Pages),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)}
}

func (p *pageBar) PageDone() {
	_ = p.bar.Add(1)
}

func (p *pageBar) Finish() {
	_ = p.bar.Finish()
}

func progressOptions(w io.Writer) []pipeline.Option {
	return []pipeline.Option{
		pipeline.WithPageProgress(func(ch layout.Chapter) chapter.PageProgress {
			return newPageBar(w, ch)
		}),
		pipeline.WithFinalProgress(func(total float64) concat.Progress {
			return concat.NewBar(w, "Final video", total)
		}),
	}
}

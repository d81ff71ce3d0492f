package concat

import (
	"io"
	"math"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress receives the concatenation position in seconds.
type Progress interface {
	Update(seconds float64)
	Finish()
}

type nopProgress struct{}

func (nopProgress) Update(float64) {}
func (nopProgress) Finish()        {}

// Bar renders progress as a terminal bar in seconds of output.
type Bar struct {
	bar *progressbar.ProgressBar
}

// NewBar returns a bar over total seconds written to w. An unknown total
// (<= 0) renders a spinner.
func NewBar(w io.Writer, description string, total float64) *Bar {
	limit := int64(-1)
	if total > 0 {
		limit = int64(math.Ceil(total))
	}
	return &Bar{bar: progressbar.NewOptions64(limit,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("s"),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)}
}

func (b *Bar) Update(seconds float64) {
	_ = b.bar.Set64(int64(seconds))
}

func (b *Bar) Finish() {
	_ = b.bar.Finish()
}

package main

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// progressReporter renders matching progress as a terminal progress bar
type progressReporter struct {
	bar *progressbar.ProgressBar
}

func newProgressReporter(w io.Writer, total int) *progressReporter {
	bar := progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("matching"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("listings"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
	return &progressReporter{bar: bar}
}

// Add advances the bar; safe for concurrent use
func (p *progressReporter) Add(n int) {
	_ = p.bar.Add(n)
}

func (p *progressReporter) Finish() {
	_ = p.bar.Finish()
}

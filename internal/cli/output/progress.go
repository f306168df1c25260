package output

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress counts finished images on a terminal bar. The zero value, and
// any Progress built with hidden set, is a no-op.
type Progress struct {
	bar *progressbar.ProgressBar
}

func NewProgress(w io.Writer, total int, label string, hidden bool) *Progress {
	if hidden || total <= 0 {
		return &Progress{}
	}
	return &Progress{bar: progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(24),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[cyan]#[reset]",
			SaucerPadding: ".",
			BarStart:      "|",
			BarEnd:        "|",
		}),
	)}
}

// Step advances the bar by one and labels it with the image just done.
func (p *Progress) Step(label string) {
	if p.bar == nil {
		return
	}
	p.bar.Describe(label)
	_ = p.bar.Add(1)
}

func (p *Progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

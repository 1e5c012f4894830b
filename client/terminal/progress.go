package terminal

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/natelandrum/file-transfer-project/client/transfer"
)

const (
	defaultBarWidth = 50
	minBarWidth     = 10
	// room for label, percentage and rate around the bar
	barOverhead = 50
)

// ProgressPrinter draws a single-line progress bar that rewrites itself.
type ProgressPrinter struct {
	out      io.Writer
	width    int
	interval time.Duration
	last     time.Time
}

// NewProgressPrinter sizes the bar to the terminal when out is one.
func NewProgressPrinter(out io.Writer) *ProgressPrinter {
	width := defaultBarWidth
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = max(min(cols-barOverhead, defaultBarWidth), minBarWidth)
		}
	}
	return &ProgressPrinter{out: out, width: width, interval: 100 * time.Millisecond}
}

// Update redraws the bar, at most once per interval unless p is complete.
func (pp *ProgressPrinter) Update(p transfer.Progress) {
	done := p.Transferred >= p.Total
	if !done && time.Since(pp.last) < pp.interval {
		return
	}
	pp.last = time.Now()

	percent := p.Percent()
	if percent > 100 {
		percent = 100
	}
	fmt.Fprintf(pp.out, "\r%s %s [%s] %5.1f%% %s",
		strings.ToLower(string(p.Op)), displayName(p.Name),
		progressBar(percent, pp.width), percent, rate(p))
}

// Finish ends the bar's line.
func (pp *ProgressPrinter) Finish() {
	fmt.Fprintln(pp.out)
}

func rate(p transfer.Progress) string {
	secs := p.Elapsed.Seconds()
	if secs <= 0 {
		return FormatSize(p.Transferred)
	}
	return fmt.Sprintf("%s/s", FormatSize(int64(float64(p.Transferred)/secs)))
}

func progressBar(progress float64, width int) string {
	pos := int(float64(width) * progress / 100)
	bar := make([]rune, width)
	for i := range bar {
		switch {
		case i < pos:
			bar[i] = '='
		case i == pos:
			bar[i] = '>'
		default:
			bar[i] = ' '
		}
	}
	return string(bar)
}

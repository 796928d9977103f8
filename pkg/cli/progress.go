package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"gra-pca/sentinel/pkg/audit"
)

const barWidth = 30

// Progress renders audit progress snapshots.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	tty     bool
	last    audit.Progress
	seen    bool
	printed int // last tenth printed in line mode
}

// NewProgress creates a reporter writing to w. Bars are redrawn in place
// only when w is a terminal.
func NewProgress(w io.Writer) *Progress {
	if w == nil {
		w = os.Stderr
	}
	p := &Progress{w: w, printed: -1}
	if f, ok := w.(*os.File); ok {
		p.tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return p
}

// Report renders one snapshot. It matches audit.ProgressFunc.
func (p *Progress) Report(snap audit.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last, p.seen = snap, true

	if p.tty {
		fmt.Fprintf(p.w, "\r%s", line(snap))
		return
	}
	tenth := int(snap.Percent()) / 10
	if tenth > p.printed || snap.Status.Terminal() {
		p.printed = tenth
		fmt.Fprintln(p.w, line(snap))
	}
}

// Finish terminates the in-place bar.
func (p *Progress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty && p.seen {
		fmt.Fprintln(p.w)
	}
}

// Last returns the most recent snapshot.
func (p *Progress) Last() (audit.Progress, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.seen
}

func line(snap audit.Progress) string {
	percent := snap.Percent()
	filled := min(int(float64(barWidth)*percent/100), barWidth)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled)
	return fmt.Sprintf("[%s] %5.1f%% %d/%d declarations, %d failed, %d violations (%s)",
		bar, percent, snap.Processed+snap.Failed, snap.Total, snap.Failed, snap.Violations, snap.Status)
}

// Tee fans one progress stream out to several sinks. Nil sinks are skipped.
func Tee(sinks ...audit.ProgressFunc) audit.ProgressFunc {
	return func(p audit.Progress) {
		for _, sink := range sinks {
			if sink != nil {
				sink(p)
			}
		}
	}
}

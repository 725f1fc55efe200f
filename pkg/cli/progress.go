package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// barWidth is the number of cells in the rendered bar.
const barWidth = 30

// ProgressReporter reports progress of a long-running command.
type ProgressReporter interface {
	Start(total int64)
	Update(current int64)
	Finish()
	Error(err error)
}

// BarProgress redraws a single-line progress bar on every update. It is
// meant for a terminal on stderr so stdout stays machine readable.
type BarProgress struct {
	mu      sync.Mutex
	w       io.Writer
	unit    string
	total   int64
	current int64
	started time.Time
	now     func() time.Time
}

// NewProgressReporter returns a bar writing to w (os.Stderr when nil)
// that counts "items".
func NewProgressReporter(w io.Writer) ProgressReporter {
	return NewUnitProgressReporter(w, "items")
}

// NewUnitProgressReporter returns a bar that counts unit, e.g. "models".
func NewUnitProgressReporter(w io.Writer, unit string) ProgressReporter {
	if w == nil {
		w = os.Stderr
	}
	return &BarProgress{w: w, unit: unit, now: time.Now}
}

// Start resets the bar to zero of total.
func (p *BarProgress) Start(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.total = total
	p.current = 0
	p.started = p.now()
	p.render()
}

// Update moves the bar to current. Values outside [0, total] are clamped.
func (p *BarProgress) Update(current int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = min(max(current, 0), p.total)
	p.render()
}

// Finish fills the bar and ends the line.
func (p *BarProgress) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = p.total
	p.render()
	fmt.Fprintln(p.w)
}

// Error ends the bar line with err.
func (p *BarProgress) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.w, "\nerror: %v\n", err)
}

func (p *BarProgress) render() {
	if p.total <= 0 {
		return
	}

	ratio := float64(p.current) / float64(p.total)
	filled := int(ratio * barWidth)
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)

	var rate float64
	if elapsed := p.now().Sub(p.started).Seconds(); elapsed > 0 {
		rate = float64(p.current) / elapsed
	}

	fmt.Fprintf(p.w, "\r[%s] %d/%d %5.1f%% %.1f %s/s",
		bar, p.current, p.total, ratio*100, rate, p.unit)
}

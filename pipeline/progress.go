package pipeline

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports how many pipeline steps have completed.
type ProgressTracker struct {
	writer    io.Writer
	total     int
	current   int
	skipped   int
	last      string
	startTime time.Time
	started   bool
	mu        sync.Mutex
}

// NewProgressTracker creates a tracker for total steps writing to writer,
// typically os.Stderr.
func NewProgressTracker(writer io.Writer, total int) *ProgressTracker {
	return &ProgressTracker{
		writer: writer,
		total:  total,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.current = 0
	p.skipped = 0
	p.last = ""
}

// Skip counts n steps as already done by an earlier run.
func (p *ProgressTracker) Skip(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started || n <= 0 {
		return
	}
	p.skipped += n
	p.add(n)
	p.report()
}

// Advance records the completion of the named step.
func (p *ProgressTracker) Advance(step string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.last = step
	p.add(1)
	p.report()
}

// Current returns the number of steps done, including skipped ones.
func (p *ProgressTracker) Current() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finish marks the run as complete and prints final progress.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.current = p.total
	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}

	return time.Since(p.startTime)
}

// add must be called with lock held.
func (p *ProgressTracker) add(n int) {
	p.current += n
	if p.current > p.total {
		p.current = p.total
	}
}

// report prints the current progress. Must be called with lock held.
func (p *ProgressTracker) report() {
	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rSteps: %d/%d (%.1f%%)", p.current, p.total, percentage)
	if p.skipped > 0 {
		fmt.Fprintf(p.writer, " [%d resumed]", p.skipped)
	}
	if p.last != "" {
		fmt.Fprintf(p.writer, " - %s", p.last)
	}
	fmt.Fprintf(p.writer, " - %s", time.Since(p.startTime).Round(time.Millisecond))
}

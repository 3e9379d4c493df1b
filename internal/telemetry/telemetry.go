// Package telemetry implements pyramid.Telemetry: phase-duration
// accumulation, a periodic (≤10s) progress line, and debug per-tile trace
// characters, grounded on the teacher's internal/tile/progress.go bar and
// the original implementation's time_track stats thread.
package telemetry

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Phase names match the five timers of spec.md §4.8.
const (
	PhaseSelect  = "select"
	PhaseInsert  = "insert"
	PhaseWarp    = "warp"
	PhaseCompose = "compose"
	PhaseEncode  = "encode"
)

type phaseTotal struct {
	count int64
	nanos int64
}

// Recorder accumulates phase durations across all workers and periodically
// emits a progress line, at most once every 10 seconds (spec.md §4.8).
type Recorder struct {
	mu        sync.Mutex
	totals    map[string]phaseTotal
	lastLog   time.Time
	start     time.Time
	total     int64
	processed atomic.Int64
	debug     bool
}

// NewRecorder creates a Recorder expecting total tiles overall (for the
// progress percentage). debug enables per-tile trace character output.
func NewRecorder(total int64, debug bool) *Recorder {
	now := time.Now()
	return &Recorder{
		totals:  make(map[string]phaseTotal),
		lastLog: now,
		start:   now,
		total:   total,
		debug:   debug,
	}
}

// Observe records one phase-duration sample and, at most every 10 seconds,
// prints an aggregate progress line before resetting the accumulators.
func (r *Recorder) Observe(phase string, nanos int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.totals[phase]
	t.count++
	t.nanos += nanos
	r.totals[phase] = t

	if phase == PhaseInsert {
		r.processed.Add(1)
	}

	now := time.Now()
	if now.Sub(r.lastLog) < 10*time.Second {
		return
	}
	r.lastLog = now

	if r.debug {
		fmt.Fprintln(os.Stderr)
	}
	fmt.Fprintln(os.Stderr, r.formatLocked())
	r.totals = make(map[string]phaseTotal)
}

// Trace prints a single debug trace character (◯/⬤/C/W, per spec.md §4.8)
// when debug mode is enabled; a no-op otherwise.
func (r *Recorder) Trace(step rune) {
	if !r.debug {
		return
	}
	fmt.Fprintf(os.Stderr, "%c", step)
}

func (r *Recorder) formatLocked() string {
	pct := float64(0)
	if r.total > 0 {
		pct = float64(r.processed.Load()) / float64(r.total) * 100
	}
	return fmt.Sprintf("%.2f%% | %d/%d tiles | %s | select: %s, insert: %s, warp: %s, compose: %s, encode: %s",
		pct, r.processed.Load(), r.total, formatDuration(time.Since(r.start)),
		r.totals[PhaseSelect].String(), r.totals[PhaseInsert].String(), r.totals[PhaseWarp].String(),
		r.totals[PhaseCompose].String(), r.totals[PhaseEncode].String())
}

// String renders "totalMs/count=avgMs", or "-" if no samples were recorded.
func (t phaseTotal) String() string {
	if t.count == 0 {
		return "-"
	}
	ms := t.nanos / int64(time.Millisecond)
	return fmt.Sprintf("%d/%d=%d", ms, t.count, ms/t.count)
}

// formatDuration formats a duration concisely (e.g. "1m23s", "45s").
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	return fmt.Sprintf("%dm%02ds", m, s)
}

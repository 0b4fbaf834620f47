// Package observability records how long extraction steps and LLM calls
// take. Rolling in-memory windows back the stats endpoints; the SQLite sink
// keeps a durable per-job timing history.
package observability

import (
	"slices"
	"sync"
	"time"

	"github.com/dgallion1/papertree/internal/extraction"
)

type sample struct {
	at      time.Time
	elapsed time.Duration
	failed  bool
}

// Snapshot is a point-in-time aggregate of latency samples.
type Snapshot struct {
	Count  int     `json:"count"`
	Errors int     `json:"errors"`
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	AvgMs  float64 `json:"avg_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

// Window keeps latency samples younger than maxAge.
type Window struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
	now     func() time.Time
}

func NewWindow(maxAge time.Duration) *Window {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Window{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Record adds one sample. Negative durations count as zero.
func (w *Window) Record(elapsed time.Duration, failed bool) {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	w.samples = append(w.samples, sample{at: now, elapsed: max(elapsed, 0), failed: failed})
}

func (w *Window) Snapshot() Snapshot {
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	if len(w.samples) == 0 {
		return Snapshot{}
	}

	values := make([]int64, 0, len(w.samples))
	var sum int64
	errs := 0
	for _, s := range w.samples {
		ms := s.elapsed.Milliseconds()
		values = append(values, ms)
		sum += ms
		if s.failed {
			errs++
		}
	}
	slices.Sort(values)

	return Snapshot{
		Count:  len(values),
		Errors: errs,
		MinMs:  values[0],
		MaxMs:  values[len(values)-1],
		AvgMs:  float64(sum) / float64(len(values)),
		P50Ms:  percentile(values, 50),
		P95Ms:  percentile(values, 95),
		P99Ms:  percentile(values, 99),
	}
}

func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.maxAge)
	w.samples = slices.DeleteFunc(w.samples, func(s sample) bool { return s.at.Before(cutoff) })
}

// percentile interpolates linearly between the two nearest ranks.
func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	index := float64(len(sorted)-1) * pct / 100
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*weight
}

// StepStats keeps one Window per extraction step. It is a StepObserver.
type StepStats struct {
	mu      sync.Mutex
	windows map[extraction.Step]*Window
	maxAge  time.Duration
}

func NewStepStats(maxAge time.Duration) *StepStats {
	return &StepStats{windows: make(map[extraction.Step]*Window), maxAge: maxAge}
}

func (s *StepStats) ObserveStep(step extraction.Step, elapsed time.Duration, err error) {
	s.window(step).Record(elapsed, err != nil)
}

func (s *StepStats) window(step extraction.Step) *Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[step]
	if !ok {
		w = NewWindow(s.maxAge)
		s.windows[step] = w
	}
	return w
}

// Snapshot returns the aggregate of every step seen so far, keyed by step
// name.
func (s *StepStats) Snapshot() map[string]Snapshot {
	s.mu.Lock()
	steps := make(map[extraction.Step]*Window, len(s.windows))
	for k, v := range s.windows {
		steps[k] = v
	}
	s.mu.Unlock()

	out := make(map[string]Snapshot, len(steps))
	for step, w := range steps {
		out[step.String()] = w.Snapshot()
	}
	return out
}

package metrics

import (
	"math"
	"sync"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	// DefaultSigFigs is the histogram precision used when none is configured.
	DefaultSigFigs = 3
	// DefaultMaxTrackMs is the highest latency the sketch tracks by default.
	DefaultMaxTrackMs = 60_000
)

// Accumulator maintains streaming statistics for one scalar metric stream:
// count, sum, min, max, and an HdrHistogram sketch for percentile estimates.
// Memory is bounded by the histogram's value range and precision regardless
// of how many samples are observed. Safe for concurrent use.
type Accumulator struct {
	mu    sync.Mutex
	hist  *hdrhistogram.Histogram
	count int64
	sum   float64
	min   float64
	max   float64

	sigfigs    int
	maxTrackMs int64
}

// NewAccumulator creates an accumulator tracking values from 1µs up to
// maxTrackMs milliseconds with the given number of significant figures
// (1..5). Out-of-range arguments fall back to the defaults.
func NewAccumulator(sigfigs int, maxTrackMs int64) *Accumulator {
	if sigfigs < 1 || sigfigs > 5 {
		sigfigs = DefaultSigFigs
	}
	if maxTrackMs <= 0 {
		maxTrackMs = DefaultMaxTrackMs
	}
	return &Accumulator{
		hist:       hdrhistogram.New(1, maxTrackMs*1000, sigfigs),
		sigfigs:    sigfigs,
		maxTrackMs: maxTrackMs,
	}
}

// Observe records one sample in milliseconds. NaN, infinite, and negative
// values are rejected and the return value is false; the caller decides how
// to account for the rejection.
func (a *Accumulator) Observe(ms float64) bool {
	if math.IsNaN(ms) || math.IsInf(ms, 0) || ms < 0 {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	us := int64(ms * 1000)
	if us < a.hist.LowestTrackableValue() {
		us = a.hist.LowestTrackableValue()
	}
	if us > a.hist.HighestTrackableValue() {
		us = a.hist.HighestTrackableValue()
	}
	_ = a.hist.RecordValue(us)

	if a.count == 0 || ms < a.min {
		a.min = ms
	}
	if a.count == 0 || ms > a.max {
		a.max = ms
	}
	a.count++
	a.sum += ms
	return true
}

// Count returns the number of samples observed since creation or the last reset.
func (a *Accumulator) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// Mean returns the arithmetic mean in milliseconds, or 0 with no samples.
func (a *Accumulator) Mean() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return 0
	}
	return a.sum / float64(a.count)
}

// Min returns the smallest observed value. ok is false with no samples.
func (a *Accumulator) Min() (ms float64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return 0, false
	}
	return a.min, true
}

// Max returns the largest observed value. ok is false with no samples.
func (a *Accumulator) Max() (ms float64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return 0, false
	}
	return a.max, true
}

// Percentile estimates the value at percentile p (0..100) in milliseconds.
// ok is false with no samples. p <= 0 returns the tracked minimum and
// p >= 100 the tracked maximum, so the extremes are exact.
func (a *Accumulator) Percentile(p float64) (ms float64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.percentileLocked(p)
}

func (a *Accumulator) percentileLocked(p float64) (float64, bool) {
	if a.count == 0 {
		return 0, false
	}
	if p <= 0 {
		return a.min, true
	}
	if p >= 100 {
		return a.max, true
	}
	return float64(a.hist.ValueAtQuantile(p)) / 1000, true
}

// Reset clears all state. Callers observe either the pre- or post-reset
// state, never a partial one.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hist.Reset()
	a.count = 0
	a.sum = 0
	a.min = 0
	a.max = 0
}

// Snapshot returns all statistics under a single lock acquisition so the
// fields are mutually consistent.
func (a *Accumulator) Snapshot() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Stats{Count: a.count}
	if a.count == 0 {
		return s
	}
	s.MeanMs = a.sum / float64(a.count)
	s.MinMs = a.min
	s.MaxMs = a.max
	s.P50Ms, _ = a.percentileLocked(50)
	s.P90Ms, _ = a.percentileLocked(90)
	s.P95Ms, _ = a.percentileLocked(95)
	s.P99Ms, _ = a.percentileLocked(99)
	return s
}

// Stats is a point-in-time copy of an accumulator's statistics.
// All latency fields are in milliseconds and are zero when Count is zero.
type Stats struct {
	Count  int64   `json:"count"`
	MeanMs float64 `json:"mean_ms"`
	MinMs  float64 `json:"min_ms"`
	MaxMs  float64 `json:"max_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P90Ms  float64 `json:"p90_ms"`
	P95Ms  float64 `json:"p95_ms"`
	P99Ms  float64 `json:"p99_ms"`
}

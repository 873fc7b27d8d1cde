package metrics

import (
	"math"
	"sync"
	"testing"
)

func TestAccumulatorBasicStats(t *testing.T) {
	acc := NewAccumulator(DefaultSigFigs, DefaultMaxTrackMs)

	for _, ms := range []float64{10, 20, 30, 40} {
		if !acc.Observe(ms) {
			t.Fatalf("Observe(%v) rejected a valid sample", ms)
		}
	}

	if got := acc.Count(); got != 4 {
		t.Errorf("Count = %d, want 4", got)
	}
	if got := acc.Mean(); got != 25 {
		t.Errorf("Mean = %v, want 25", got)
	}
	if min, ok := acc.Min(); !ok || min != 10 {
		t.Errorf("Min = %v, %v; want 10, true", min, ok)
	}
	if max, ok := acc.Max(); !ok || max != 40 {
		t.Errorf("Max = %v, %v; want 40, true", max, ok)
	}
}

func TestAccumulatorRejectsInvalidSamples(t *testing.T) {
	acc := NewAccumulator(DefaultSigFigs, DefaultMaxTrackMs)

	for _, ms := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -0.001} {
		if acc.Observe(ms) {
			t.Errorf("Observe(%v) accepted an invalid sample", ms)
		}
	}
	if got := acc.Count(); got != 0 {
		t.Errorf("Count after rejected samples = %d, want 0", got)
	}
}

func TestAccumulatorPercentileAccuracy(t *testing.T) {
	acc := NewAccumulator(3, DefaultMaxTrackMs)

	// Uniform 1..1000ms: true percentile p is roughly p*10ms.
	for i := 1; i <= 1000; i++ {
		acc.Observe(float64(i))
	}

	cases := []struct {
		p    float64
		want float64
	}{
		{50, 500},
		{90, 900},
		{95, 950},
		{99, 990},
	}
	for _, tc := range cases {
		got, ok := acc.Percentile(tc.p)
		if !ok {
			t.Fatalf("Percentile(%v) reported no samples", tc.p)
		}
		// 3 significant figures bounds relative error well under 1%.
		if rel := math.Abs(got-tc.want) / tc.want; rel > 0.01 {
			t.Errorf("Percentile(%v) = %v, want %v within 1%%", tc.p, got, tc.want)
		}
	}
}

func TestAccumulatorPercentileExtremes(t *testing.T) {
	acc := NewAccumulator(DefaultSigFigs, DefaultMaxTrackMs)

	if _, ok := acc.Percentile(50); ok {
		t.Error("Percentile on empty accumulator reported ok")
	}

	acc.Observe(3.5)
	acc.Observe(120.25)

	if got, _ := acc.Percentile(0); got != 3.5 {
		t.Errorf("Percentile(0) = %v, want exact min 3.5", got)
	}
	if got, _ := acc.Percentile(-10); got != 3.5 {
		t.Errorf("Percentile(-10) = %v, want exact min 3.5", got)
	}
	if got, _ := acc.Percentile(100); got != 120.25 {
		t.Errorf("Percentile(100) = %v, want exact max 120.25", got)
	}
	if got, _ := acc.Percentile(150); got != 120.25 {
		t.Errorf("Percentile(150) = %v, want exact max 120.25", got)
	}
}

func TestAccumulatorClampsOutOfRangeValues(t *testing.T) {
	acc := NewAccumulator(DefaultSigFigs, 1000)

	// Above the tracked maximum: still counted, sketch value clamped.
	if !acc.Observe(5000) {
		t.Fatal("Observe above tracked range was rejected")
	}
	if got := acc.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
	if max, _ := acc.Max(); max != 5000 {
		t.Errorf("Max = %v, want exact 5000 even when the sketch clamps", max)
	}
}

func TestAccumulatorReset(t *testing.T) {
	acc := NewAccumulator(DefaultSigFigs, DefaultMaxTrackMs)
	acc.Observe(10)
	acc.Observe(20)

	acc.Reset()

	if got := acc.Count(); got != 0 {
		t.Errorf("Count after Reset = %d, want 0", got)
	}
	s := acc.Snapshot()
	if s.Count != 0 || s.MeanMs != 0 || s.MaxMs != 0 {
		t.Errorf("Snapshot after Reset = %+v, want zero value", s)
	}
}

func TestAccumulatorSnapshotConsistency(t *testing.T) {
	acc := NewAccumulator(DefaultSigFigs, DefaultMaxTrackMs)
	for _, ms := range []float64{5, 10, 15, 20} {
		acc.Observe(ms)
	}

	s := acc.Snapshot()
	if s.Count != 4 {
		t.Errorf("Snapshot.Count = %d, want 4", s.Count)
	}
	if s.MeanMs != 12.5 {
		t.Errorf("Snapshot.MeanMs = %v, want 12.5", s.MeanMs)
	}
	if s.MinMs != 5 || s.MaxMs != 20 {
		t.Errorf("Snapshot min/max = %v/%v, want 5/20", s.MinMs, s.MaxMs)
	}
	if s.P50Ms <= 0 || s.P99Ms < s.P50Ms {
		t.Errorf("Snapshot percentiles not monotone: p50=%v p99=%v", s.P50Ms, s.P99Ms)
	}
}

func TestAccumulatorConcurrentObserve(t *testing.T) {
	acc := NewAccumulator(DefaultSigFigs, DefaultMaxTrackMs)

	const goroutines = 8
	const perGoroutine = 500

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				acc.Observe(float64(1 + i%100))
			}
		}()
	}
	wg.Wait()

	if got := acc.Count(); got != goroutines*perGoroutine {
		t.Errorf("Count = %d, want %d (lost updates)", got, goroutines*perGoroutine)
	}
}

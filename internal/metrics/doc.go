// Package metrics provides streaming latency statistics for profiled services.
//
// The central [Accumulator] type maintains count, sum, min, max, and an
// HdrHistogram-backed quantile sketch for one metric stream. Memory use is
// fixed at construction time; the sketch trades a small relative error on
// percentile estimates for a hard bound on retained state, so it can absorb
// an unbounded stream of observations.
//
//	acc := metrics.NewAccumulator(3, 60_000)
//	acc.Observe(12.5) // milliseconds
//
//	stats := acc.Snapshot()
//	p95, ok := acc.Percentile(95)
//
// # Thread Safety
//
// All Accumulator methods are safe for concurrent use. [Accumulator.Snapshot]
// reads every field under one lock acquisition, so the returned [Stats] is
// internally consistent even while writers keep observing.
package metrics

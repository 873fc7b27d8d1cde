package engine

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reqlens/reqlens/internal/metrics"
	"github.com/reqlens/reqlens/internal/ring"
)

// ErrInvalidEvent marks an event rejected at ingestion. The rejection is
// counted; callers on the request path are free to ignore the error.
var ErrInvalidEvent = fmt.Errorf("invalid event")

// DefaultRingCapacity bounds each recent-event stream when no capacity is
// configured.
const DefaultRingCapacity = 1000

// Config fixes the engine's capacities at construction time. The zero value
// yields working defaults.
type Config struct {
	// RingCapacity is the per-stream bound on retained recent events.
	RingCapacity int
	// SketchSigFigs is the histogram precision (1..5 significant figures).
	SketchSigFigs int
	// MaxTrackMs is the highest latency the sketches track, in milliseconds.
	MaxTrackMs int64
	// EnableQueryMetrics activates the independent query-event stream.
	EnableQueryMetrics bool
}

func (c Config) withDefaults() Config {
	if c.RingCapacity < 1 {
		c.RingCapacity = DefaultRingCapacity
	}
	if c.SketchSigFigs < 1 || c.SketchSigFigs > 5 {
		c.SketchSigFigs = metrics.DefaultSigFigs
	}
	if c.MaxTrackMs <= 0 {
		c.MaxTrackMs = metrics.DefaultMaxTrackMs
	}
	return c
}

// Engine is the sole write entry point for profiling events. It routes each
// event to the global accumulator, the per-endpoint accumulator, and the
// recent-event rings. Locking is per endpoint entry plus one mutex for the
// global pair; endpoints never serialize against each other.
type Engine struct {
	cfg Config

	globalMu     sync.Mutex
	globalAcc    *metrics.Accumulator
	globalRing   *ring.Buffer[RequestEvent]
	globalStatus map[string]int64
	started      time.Time

	registry *Registry

	queryMu   sync.Mutex
	queryAcc  *metrics.Accumulator
	queryRing *ring.Buffer[QueryEvent]

	invalidEvents  atomic.Int64
	invalidQueries atomic.Int64
}

// New creates an engine with all capacities fixed per cfg. The engine lives
// for the process lifetime; there is no Close.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:          cfg,
		globalAcc:    metrics.NewAccumulator(cfg.SketchSigFigs, cfg.MaxTrackMs),
		globalRing:   ring.New[RequestEvent](cfg.RingCapacity),
		globalStatus: make(map[string]int64),
		started:      time.Now(),
		registry:     NewRegistry(),
		queryAcc:     metrics.NewAccumulator(cfg.SketchSigFigs, cfg.MaxTrackMs),
		queryRing:    ring.New[QueryEvent](cfg.RingCapacity),
	}
}

// Config returns the construction-time configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// QueryMetricsEnabled reports whether the query stream is active.
func (e *Engine) QueryMetricsEnabled() bool {
	return e.cfg.EnableQueryMetrics
}

// Ingest records one completed request. Invalid events (negative or
// non-finite duration, status outside 100..599) are rejected and counted
// rather than recorded; the returned error wraps ErrInvalidEvent and may be
// ignored on the hot path.
func (e *Engine) Ingest(ev RequestEvent) error {
	if err := validateRequest(ev); err != nil {
		e.invalidEvents.Add(1)
		return err
	}
	if ev.Start.IsZero() {
		ev.Start = time.Now()
	}
	failed := ev.Failed || ev.Status >= 500

	class := metrics.StatusClass(ev.Status)
	e.globalMu.Lock()
	e.globalAcc.Observe(ev.DurationMs)
	e.globalStatus[class]++
	e.globalRing.Push(ev)
	e.globalMu.Unlock()

	en := e.registry.getOrCreate(ev.Key(), e.newEntry)
	en.record(ev, failed)
	return nil
}

// IngestQuery records one executed query on the independent query stream.
// A no-op when query metrics are disabled.
func (e *Engine) IngestQuery(ev QueryEvent) error {
	if !e.cfg.EnableQueryMetrics {
		return nil
	}
	if err := validateQuery(ev); err != nil {
		e.invalidQueries.Add(1)
		return err
	}
	if ev.Start.IsZero() {
		ev.Start = time.Now()
	}

	e.queryMu.Lock()
	e.queryAcc.Observe(ev.DurationMs)
	e.queryRing.Push(ev)
	e.queryMu.Unlock()
	return nil
}

// Reset clears all accumulated state: global and per-endpoint statistics,
// recent-event rings, and error counters. Intended for test harnesses and
// manual operator action.
func (e *Engine) Reset() {
	e.globalMu.Lock()
	e.globalAcc.Reset()
	e.globalRing.Reset()
	e.globalStatus = make(map[string]int64)
	e.started = time.Now()
	e.globalMu.Unlock()

	e.registry.reset()

	e.queryMu.Lock()
	e.queryAcc.Reset()
	e.queryRing.Reset()
	e.queryMu.Unlock()

	e.invalidEvents.Store(0)
	e.invalidQueries.Store(0)
}

// Registry exposes the endpoint registry for read-side consumers.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// GlobalStats returns the global accumulator statistics together with the
// status buckets, read under one lock so the pair is consistent.
func (e *Engine) GlobalStats() (metrics.Stats, map[string]int64) {
	e.globalMu.Lock()
	defer e.globalMu.Unlock()

	stats := e.globalAcc.Snapshot()
	var buckets map[string]int64
	if len(e.globalStatus) > 0 {
		buckets = make(map[string]int64, len(e.globalStatus))
		for class, count := range e.globalStatus {
			buckets[class] = count
		}
	}
	return stats, buckets
}

// QueryStats returns the query-stream accumulator statistics.
func (e *Engine) QueryStats() metrics.Stats {
	e.queryMu.Lock()
	defer e.queryMu.Unlock()
	return e.queryAcc.Snapshot()
}

// RecentRequests returns the globally retained recent requests,
// oldest first.
func (e *Engine) RecentRequests() []RequestEvent {
	return e.globalRing.Snapshot()
}

// RecentQueries returns the retained recent queries, oldest first.
func (e *Engine) RecentQueries() []QueryEvent {
	return e.queryRing.Snapshot()
}

// InvalidEvents returns how many request events were rejected.
func (e *Engine) InvalidEvents() int64 {
	return e.invalidEvents.Load()
}

// InvalidQueries returns how many query events were rejected.
func (e *Engine) InvalidQueries() int64 {
	return e.invalidQueries.Load()
}

// StartedAt returns the engine start time (or the last reset time).
func (e *Engine) StartedAt() time.Time {
	e.globalMu.Lock()
	defer e.globalMu.Unlock()
	return e.started
}

func (e *Engine) newEntry(key Key) *entry {
	return &entry{
		key:    key,
		acc:    metrics.NewAccumulator(e.cfg.SketchSigFigs, e.cfg.MaxTrackMs),
		ring:   ring.New[RequestEvent](e.cfg.RingCapacity),
		status: make(map[string]int64),
	}
}

func validateRequest(ev RequestEvent) error {
	if ev.Method == "" || ev.Path == "" {
		return fmt.Errorf("%w: empty endpoint key", ErrInvalidEvent)
	}
	if !validDuration(ev.DurationMs) {
		return fmt.Errorf("%w: duration %v", ErrInvalidEvent, ev.DurationMs)
	}
	if ev.Status < 100 || ev.Status > 599 {
		return fmt.Errorf("%w: status code %d", ErrInvalidEvent, ev.Status)
	}
	return nil
}

func validateQuery(ev QueryEvent) error {
	if ev.Fingerprint == "" {
		return fmt.Errorf("%w: empty fingerprint", ErrInvalidEvent)
	}
	if !validDuration(ev.DurationMs) {
		return fmt.Errorf("%w: duration %v", ErrInvalidEvent, ev.DurationMs)
	}
	if ev.Rows < RowsUnknown {
		return fmt.Errorf("%w: row count %d", ErrInvalidEvent, ev.Rows)
	}
	return nil
}

func validDuration(ms float64) bool {
	return !math.IsNaN(ms) && !math.IsInf(ms, 0) && ms >= 0
}

package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/reqlens/reqlens/internal/metrics"
	"github.com/reqlens/reqlens/internal/ring"
)

// entry bundles one endpoint's accumulator, recent-event ring, and status
// buckets. The entry mutex makes their combined update one logical step per
// event; the accumulator and ring carry their own locks for direct reads.
type entry struct {
	key Key

	mu       sync.Mutex
	acc      *metrics.Accumulator
	ring     *ring.Buffer[RequestEvent]
	status   map[string]int64
	failures int64
	lastSeen time.Time
}

func (en *entry) record(ev RequestEvent, failed bool) {
	en.mu.Lock()
	en.acc.Observe(ev.DurationMs)
	en.status[metrics.StatusClass(ev.Status)]++
	if failed {
		en.failures++
	}
	en.ring.Push(ev)
	if ev.Start.After(en.lastSeen) {
		en.lastSeen = ev.Start
	}
	en.mu.Unlock()
}

// stats reads the entry's statistics under its lock so the row is
// consistent with respect to any single recorded event.
func (en *entry) stats() EndpointStats {
	en.mu.Lock()
	defer en.mu.Unlock()

	row := EndpointStats{
		Method:   en.key.Method,
		Path:     en.key.Path,
		Stats:    en.acc.Snapshot(),
		Failures: en.failures,
		LastSeen: en.lastSeen,
	}
	if len(en.status) > 0 {
		row.StatusBuckets = make(map[string]int64, len(en.status))
		for class, count := range en.status {
			row.StatusBuckets[class] = count
		}
	}
	return row
}

// EndpointStats is a point-in-time view of one endpoint's aggregates.
type EndpointStats struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	metrics.Stats
	Failures      int64            `json:"failures"`
	StatusBuckets map[string]int64 `json:"status_buckets,omitempty"`
	LastSeen      time.Time        `json:"last_seen"`
}

// EndpointKey returns the row's endpoint key.
func (s EndpointStats) EndpointKey() Key {
	return Key{Method: s.Method, Path: s.Path}
}

// Registry maps endpoint keys to their statistics. Entries are created
// lazily on first event and never removed except by Reset; inserting a new
// key never invalidates entries concurrently held for other keys.
type Registry struct {
	mu      sync.RWMutex
	entries map[Key]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Key]*entry)}
}

// getOrCreate returns the entry for key, allocating it on first use via
// fresh. Idempotent: later calls for the same key return the same entry.
func (r *Registry) getOrCreate(key Key, fresh func(Key) *entry) *entry {
	r.mu.RLock()
	en, ok := r.entries[key]
	r.mu.RUnlock()
	if ok {
		return en
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if en, ok := r.entries[key]; ok {
		return en
	}
	en = fresh(key)
	r.entries[key] = en
	return en
}

// Size returns the number of known endpoint keys.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Keys returns the known endpoint keys at call time, sorted for
// determinism. Keys added concurrently may or may not appear.
func (r *Registry) Keys() []Key {
	r.mu.RLock()
	keys := make([]Key, 0, len(r.entries))
	for key := range r.entries {
		keys = append(keys, key)
	}
	r.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// Stats returns one row per known endpoint. Each row is consistent with
// respect to its own entry; rows across endpoints are not a serialized
// snapshot of the whole registry.
func (r *Registry) Stats() []EndpointStats {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, en := range r.entries {
		entries = append(entries, en)
	}
	r.mu.RUnlock()

	rows := make([]EndpointStats, 0, len(entries))
	for _, en := range entries {
		rows = append(rows, en.stats())
	}
	return rows
}

// Metric selects the ranking dimension for TopN.
type Metric string

const (
	MetricMean  Metric = "mean"
	MetricP95   Metric = "p95"
	MetricMax   Metric = "max"
	MetricCount Metric = "count"
)

// TopN returns up to n endpoints ranked by the chosen metric. Ties are
// broken by lexicographic key order so the result is deterministic.
func (r *Registry) TopN(metric Metric, n int, descending bool) ([]EndpointStats, error) {
	var value func(EndpointStats) float64
	switch metric {
	case MetricMean:
		value = func(s EndpointStats) float64 { return s.MeanMs }
	case MetricP95:
		value = func(s EndpointStats) float64 { return s.P95Ms }
	case MetricMax:
		value = func(s EndpointStats) float64 { return s.MaxMs }
	case MetricCount:
		value = func(s EndpointStats) float64 { return float64(s.Count) }
	default:
		return nil, fmt.Errorf("unknown ranking metric %q", metric)
	}

	rows := r.Stats()
	sort.Slice(rows, func(i, j int) bool {
		vi, vj := value(rows[i]), value(rows[j])
		if vi == vj {
			return rows[i].EndpointKey().String() < rows[j].EndpointKey().String()
		}
		if descending {
			return vi > vj
		}
		return vi < vj
	})

	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

// reset drops all entries.
func (r *Registry) reset() {
	r.mu.Lock()
	r.entries = make(map[Key]*entry)
	r.mu.Unlock()
}

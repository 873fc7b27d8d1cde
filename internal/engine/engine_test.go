package engine

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func requestEvent(method, path string, status int, durationMs float64) RequestEvent {
	return RequestEvent{
		Method:     method,
		Path:       path,
		Status:     status,
		Start:      time.Now(),
		DurationMs: durationMs,
	}
}

func TestIngestAggregatesGlobalAndPerEndpoint(t *testing.T) {
	eng := New(Config{})

	for _, ms := range []float64{10, 20, 30} {
		if err := eng.Ingest(requestEvent("GET", "/a", 200, ms)); err != nil {
			t.Fatalf("Ingest: %v", err)
		}
	}
	if err := eng.Ingest(requestEvent("POST", "/b", 201, 5)); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	stats, buckets := eng.GlobalStats()
	if stats.Count != 4 {
		t.Errorf("global Count = %d, want 4", stats.Count)
	}
	if stats.MeanMs != 16.25 {
		t.Errorf("global MeanMs = %v, want 16.25", stats.MeanMs)
	}
	if buckets["2xx"] != 4 {
		t.Errorf("buckets[2xx] = %d, want 4", buckets["2xx"])
	}
	if got := eng.Registry().Size(); got != 2 {
		t.Errorf("registry size = %d, want 2", got)
	}

	rows := eng.Registry().Stats()
	byKey := make(map[string]EndpointStats, len(rows))
	for _, row := range rows {
		byKey[row.EndpointKey().String()] = row
	}
	a := byKey["GET /a"]
	if a.Count != 3 || a.MeanMs != 20 {
		t.Errorf("GET /a = count %d mean %v, want 3 and 20", a.Count, a.MeanMs)
	}
	b := byKey["POST /b"]
	if b.Count != 1 || b.MeanMs != 5 {
		t.Errorf("POST /b = count %d mean %v, want 1 and 5", b.Count, b.MeanMs)
	}
}

func TestIngestRejectsInvalidEvents(t *testing.T) {
	eng := New(Config{})

	bad := []RequestEvent{
		requestEvent("", "/a", 200, 10),
		requestEvent("GET", "", 200, 10),
		requestEvent("GET", "/a", 200, -1),
		requestEvent("GET", "/a", 99, 10),
		requestEvent("GET", "/a", 600, 10),
	}
	for i, ev := range bad {
		err := eng.Ingest(ev)
		if err == nil {
			t.Errorf("event %d accepted, want rejection", i)
			continue
		}
		if !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("event %d error = %v, want ErrInvalidEvent", i, err)
		}
	}

	if got := eng.InvalidEvents(); got != int64(len(bad)) {
		t.Errorf("InvalidEvents = %d, want %d", got, len(bad))
	}
	stats, _ := eng.GlobalStats()
	if stats.Count != 0 {
		t.Errorf("global Count = %d after only invalid events, want 0", stats.Count)
	}
	if got := eng.Registry().Size(); got != 0 {
		t.Errorf("registry size = %d after only invalid events, want 0", got)
	}
}

func TestIngestClassifiesFailures(t *testing.T) {
	eng := New(Config{})

	eng.Ingest(requestEvent("GET", "/a", 200, 10))
	eng.Ingest(requestEvent("GET", "/a", 503, 10))
	ev := requestEvent("GET", "/a", 200, 10)
	ev.Failed = true
	eng.Ingest(ev)

	rows := eng.Registry().Stats()
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Failures != 2 {
		t.Errorf("Failures = %d, want 2 (one 5xx, one explicit)", rows[0].Failures)
	}
	if rows[0].StatusBuckets["5xx"] != 1 {
		t.Errorf("StatusBuckets[5xx] = %d, want 1", rows[0].StatusBuckets["5xx"])
	}
}

func TestQueryStreamDisabledByDefault(t *testing.T) {
	eng := New(Config{})

	if eng.QueryMetricsEnabled() {
		t.Fatal("query metrics enabled without opt-in")
	}
	if err := eng.IngestQuery(QueryEvent{Fingerprint: "SELECT 1", DurationMs: 2}); err != nil {
		t.Fatalf("IngestQuery while disabled: %v", err)
	}
	if got := eng.QueryStats().Count; got != 0 {
		t.Errorf("query Count = %d while disabled, want 0", got)
	}
	if got := len(eng.RecentQueries()); got != 0 {
		t.Errorf("RecentQueries length = %d while disabled, want 0", got)
	}
}

func TestQueryStreamEnabled(t *testing.T) {
	eng := New(Config{EnableQueryMetrics: true})

	for _, ms := range []float64{2, 4, 6} {
		ev := QueryEvent{Fingerprint: "SELECT * FROM users", DurationMs: ms, Rows: 10}
		if err := eng.IngestQuery(ev); err != nil {
			t.Fatalf("IngestQuery: %v", err)
		}
	}
	if err := eng.IngestQuery(QueryEvent{Fingerprint: "", DurationMs: 1}); err == nil {
		t.Error("empty fingerprint accepted, want rejection")
	}
	if err := eng.IngestQuery(QueryEvent{Fingerprint: "SELECT 1", DurationMs: 1, Rows: -5}); err == nil {
		t.Error("row count below RowsUnknown accepted, want rejection")
	}

	if got := eng.QueryStats().Count; got != 3 {
		t.Errorf("query Count = %d, want 3", got)
	}
	if got := eng.InvalidQueries(); got != 2 {
		t.Errorf("InvalidQueries = %d, want 2", got)
	}
	if got := eng.QueryStats().MeanMs; got != 4 {
		t.Errorf("query MeanMs = %v, want 4", got)
	}
}

func TestRecentRequestsBoundedByRingCapacity(t *testing.T) {
	eng := New(Config{RingCapacity: 10})

	for i := 0; i < 25; i++ {
		eng.Ingest(requestEvent("GET", "/a", 200, float64(i)))
	}

	recent := eng.RecentRequests()
	if len(recent) != 10 {
		t.Fatalf("retained %d events, want capacity 10", len(recent))
	}
	// Oldest first: the first retained event is number 15.
	if recent[0].DurationMs != 15 {
		t.Errorf("oldest retained duration = %v, want 15", recent[0].DurationMs)
	}
	if recent[9].DurationMs != 24 {
		t.Errorf("newest retained duration = %v, want 24", recent[9].DurationMs)
	}

	stats, _ := eng.GlobalStats()
	if stats.Count != 25 {
		t.Errorf("global Count = %d, want all 25 despite eviction", stats.Count)
	}
}

func TestReset(t *testing.T) {
	eng := New(Config{EnableQueryMetrics: true})
	eng.Ingest(requestEvent("GET", "/a", 200, 10))
	eng.IngestQuery(QueryEvent{Fingerprint: "SELECT 1", DurationMs: 2})
	eng.Ingest(requestEvent("GET", "/a", 50, 10)) // invalid status

	eng.Reset()

	stats, buckets := eng.GlobalStats()
	if stats.Count != 0 || len(buckets) != 0 {
		t.Errorf("global state after Reset = %+v %v, want empty", stats, buckets)
	}
	if got := eng.Registry().Size(); got != 0 {
		t.Errorf("registry size after Reset = %d, want 0", got)
	}
	if got := eng.QueryStats().Count; got != 0 {
		t.Errorf("query Count after Reset = %d, want 0", got)
	}
	if got := eng.InvalidEvents(); got != 0 {
		t.Errorf("InvalidEvents after Reset = %d, want 0", got)
	}
	if got := len(eng.RecentRequests()); got != 0 {
		t.Errorf("RecentRequests after Reset = %d events, want 0", got)
	}
}

func TestConcurrentIngestNoLostUpdates(t *testing.T) {
	eng := New(Config{})

	const goroutines = 8
	const perGoroutine = 200

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			path := fmt.Sprintf("/worker/%d", g)
			for i := 0; i < perGoroutine; i++ {
				if err := eng.Ingest(requestEvent("GET", path, 200, float64(1+i))); err != nil {
					t.Errorf("Ingest: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	stats, _ := eng.GlobalStats()
	if stats.Count != goroutines*perGoroutine {
		t.Errorf("global Count = %d, want %d", stats.Count, goroutines*perGoroutine)
	}
	if got := eng.Registry().Size(); got != goroutines {
		t.Errorf("registry size = %d, want %d", got, goroutines)
	}
	for _, row := range eng.Registry().Stats() {
		if row.Count != perGoroutine {
			t.Errorf("%s Count = %d, want %d", row.EndpointKey(), row.Count, perGoroutine)
		}
	}
}

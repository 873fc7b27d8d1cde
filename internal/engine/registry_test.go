package engine

import (
	"sync"
	"testing"
)

func seedRegistry(t *testing.T) *Engine {
	t.Helper()
	eng := New(Config{})

	// /fast: many cheap requests. /slow: few expensive ones.
	for i := 0; i < 10; i++ {
		eng.Ingest(requestEvent("GET", "/fast", 200, 5))
	}
	for i := 0; i < 2; i++ {
		eng.Ingest(requestEvent("GET", "/slow", 200, 300))
	}
	eng.Ingest(requestEvent("POST", "/fast", 201, 5))
	return eng
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	eng := New(Config{})
	key := Key{Method: "GET", Path: "/a"}

	first := eng.registry.getOrCreate(key, eng.newEntry)
	second := eng.registry.getOrCreate(key, eng.newEntry)
	if first != second {
		t.Error("getOrCreate returned distinct entries for the same key")
	}
	if got := eng.registry.Size(); got != 1 {
		t.Errorf("Size = %d, want 1", got)
	}
}

func TestGetOrCreateConcurrent(t *testing.T) {
	eng := New(Config{})
	key := Key{Method: "GET", Path: "/a"}

	entries := make([]*entry, 16)
	var wg sync.WaitGroup
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entries[i] = eng.registry.getOrCreate(key, eng.newEntry)
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(entries); i++ {
		if entries[i] != entries[0] {
			t.Fatal("concurrent getOrCreate produced more than one entry")
		}
	}
}

func TestRegistryKeysSorted(t *testing.T) {
	eng := seedRegistry(t)

	keys := eng.Registry().Keys()
	want := []string{"GET /fast", "GET /slow", "POST /fast"}
	if len(keys) != len(want) {
		t.Fatalf("Keys = %v, want %d keys", keys, len(want))
	}
	for i, k := range keys {
		if k.String() != want[i] {
			t.Errorf("Keys[%d] = %q, want %q", i, k.String(), want[i])
		}
	}
}

func TestTopNByMean(t *testing.T) {
	eng := seedRegistry(t)

	rows, err := eng.Registry().TopN(MetricMean, 2, true)
	if err != nil {
		t.Fatalf("TopN: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].EndpointKey().String() != "GET /slow" {
		t.Errorf("top row = %q, want GET /slow", rows[0].EndpointKey())
	}
	// The two 5ms endpoints tie on mean; lexicographic key order breaks it.
	if rows[1].EndpointKey().String() != "GET /fast" {
		t.Errorf("second row = %q, want GET /fast", rows[1].EndpointKey())
	}
}

func TestTopNByCountAscending(t *testing.T) {
	eng := seedRegistry(t)

	rows, err := eng.Registry().TopN(MetricCount, 0, false)
	if err != nil {
		t.Fatalf("TopN: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want all 3", len(rows))
	}
	if rows[0].EndpointKey().String() != "POST /fast" || rows[2].EndpointKey().String() != "GET /fast" {
		t.Errorf("ascending count order wrong: %q .. %q", rows[0].EndpointKey(), rows[2].EndpointKey())
	}
}

func TestTopNUnknownMetric(t *testing.T) {
	eng := seedRegistry(t)
	if _, err := eng.Registry().TopN(Metric("median"), 1, true); err == nil {
		t.Error("unknown metric accepted, want error")
	}
}

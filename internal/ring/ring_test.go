package ring

import (
	"sync"
	"testing"
)

func TestBufferUnderCapacity(t *testing.T) {
	b := New[int](5)
	b.Push(1)
	b.Push(2)
	b.Push(3)

	if got := b.Len(); got != 3 {
		t.Errorf("Len = %d, want 3", got)
	}
	got := b.Snapshot()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("Snapshot = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestBufferWrapAroundKeepsNewest(t *testing.T) {
	b := New[int](3)
	for i := 1; i <= 7; i++ {
		b.Push(i)
	}

	if got := b.Len(); got != 3 {
		t.Errorf("Len = %d, want capacity 3", got)
	}
	got := b.Snapshot()
	want := []int{5, 6, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot = %v, want oldest-first %v", got, want)
			break
		}
	}
}

func TestBufferCapacityFloor(t *testing.T) {
	b := New[string](0)
	if got := b.Cap(); got != 1 {
		t.Errorf("Cap = %d, want floor of 1", got)
	}
	b.Push("a")
	b.Push("b")
	got := b.Snapshot()
	if len(got) != 1 || got[0] != "b" {
		t.Errorf("Snapshot = %v, want [b]", got)
	}
}

func TestBufferReset(t *testing.T) {
	b := New[int](4)
	b.Push(1)
	b.Push(2)
	b.Reset()

	if got := b.Len(); got != 0 {
		t.Errorf("Len after Reset = %d, want 0", got)
	}
	if got := b.Cap(); got != 4 {
		t.Errorf("Cap after Reset = %d, want 4", got)
	}
	b.Push(9)
	got := b.Snapshot()
	if len(got) != 1 || got[0] != 9 {
		t.Errorf("Snapshot after Reset+Push = %v, want [9]", got)
	}
}

func TestBufferSnapshotIsACopy(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	snap := b.Snapshot()
	snap[0] = 99

	if got := b.Snapshot()[0]; got != 1 {
		t.Errorf("buffer mutated through snapshot: got %d, want 1", got)
	}
}

func TestBufferConcurrentPush(t *testing.T) {
	b := New[int](64)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				b.Push(i)
			}
		}()
	}
	wg.Wait()

	if got := b.Len(); got != 64 {
		t.Errorf("Len = %d, want full capacity 64", got)
	}
	if got := len(b.Snapshot()); got != 64 {
		t.Errorf("Snapshot length = %d, want 64", got)
	}
}

// Package ring implements a fixed-capacity overwrite-oldest event buffer.
package ring

import "sync"

// Buffer holds the most recent values pushed into it, up to a fixed
// capacity. Pushing beyond capacity silently evicts the oldest value.
// Safe for concurrent use; a snapshot reflects either the pre- or post-push
// state of each slot, never a torn value.
type Buffer[T any] struct {
	mu   sync.Mutex
	buf  []T
	next int // index of the next write
	size int
}

// New creates a buffer with the given capacity. Capacities below one are
// bumped to one so Push always succeeds.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{buf: make([]T, capacity)}
}

// Push appends a value, evicting the oldest one when the buffer is full.
// O(1), never fails.
func (b *Buffer[T]) Push(v T) {
	b.mu.Lock()
	b.buf[b.next] = v
	b.next = (b.next + 1) % len(b.buf)
	if b.size < len(b.buf) {
		b.size++
	}
	b.mu.Unlock()
}

// Len returns the number of values currently held.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.buf)
}

// Snapshot returns a copy of the held values in oldest-to-newest order.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]T, b.size)
	start := b.next - b.size
	if start < 0 {
		start += len(b.buf)
	}
	for i := 0; i < b.size; i++ {
		out[i] = b.buf[(start+i)%len(b.buf)]
	}
	return out
}

// Reset discards all held values. Capacity is unchanged.
func (b *Buffer[T]) Reset() {
	b.mu.Lock()
	var zero T
	for i := range b.buf {
		b.buf[i] = zero
	}
	b.next = 0
	b.size = 0
	b.mu.Unlock()
}

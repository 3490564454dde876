// ring.go — bounded newest-first buffer backing the extension-logs and
// handler-debug keys. Unlike a classic cursor ring, readers always want
// the full snapshot in most-recent-first order, so the buffer keeps that
// ordering directly.
package storage

import "sync"

// Ring is a fixed-capacity newest-first buffer. Push prepends; once the
// capacity is reached the oldest entry falls off the end.
type Ring[T any] struct {
	mu      sync.Mutex
	cap     int
	entries []T
}

// NewRing creates a ring with the given capacity. Capacity must be > 0.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{cap: capacity, entries: make([]T, 0, capacity)}
}

// Push prepends entry, evicting the oldest if at capacity.
func (r *Ring[T]) Push(entry T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == r.cap {
		r.entries = r.entries[:r.cap-1]
	}
	r.entries = append([]T{entry}, r.entries...)
}

// Snapshot returns a copy of the entries, newest first.
func (r *Ring[T]) Snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the current number of entries.
func (r *Ring[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Replace swaps the buffer contents with entries, truncated to capacity.
// Used when rehydrating a persisted buffer from the store.
func (r *Ring[T]) Replace(entries []T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(entries) > r.cap {
		entries = entries[:r.cap]
	}
	r.entries = append(r.entries[:0], entries...)
}

// PrependCapped prepends entry to a snapshot slice, truncating to capacity.
// Convenience for the single read-modify-write pattern the host handler
// uses against persisted JSON arrays.
func PrependCapped[T any](entries []T, entry T, capacity int) []T {
	out := make([]T, 0, capacity)
	out = append(out, entry)
	for _, e := range entries {
		if len(out) == capacity {
			break
		}
		out = append(out, e)
	}
	return out
}

// Package fetchers implements the cached-metadata watchers: a single-slot
// watch channel with publish-if-newer semantics and a periodic runner
// generic over the fetch capability.
package fetchers

import (
	"context"
	"sync"
)

// Watch is a single-producer, many-observer slot. A new value is published
// only when the comparator ranks it strictly greater than the current one.
type Watch[T any] struct {
	mu      sync.Mutex
	value   T
	present bool
	updated chan struct{}
	less    func(old, new T) bool
}

// NewWatch creates a watch ordered by less. A nil less accepts every value.
func NewWatch[T any](less func(old, new T) bool) *Watch[T] {
	if less == nil {
		less = func(T, T) bool { return true }
	}
	return &Watch[T]{
		updated: make(chan struct{}),
		less:    less,
	}
}

// Publish installs value if it ranks above the current one. The first value
// is always accepted.
func (w *Watch[T]) Publish(value T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.present && !w.less(w.value, value) {
		return false
	}
	w.value = value
	w.present = true
	close(w.updated)
	w.updated = make(chan struct{})
	return true
}

// Receiver returns an observer handle.
func (w *Watch[T]) Receiver() *Receiver[T] {
	return &Receiver[T]{watch: w}
}

// Receiver observes the latest published value.
type Receiver[T any] struct {
	watch *Watch[T]
}

// Get returns the latest value, blocking until the first publication.
// Callers bound the wait through ctx.
func (r *Receiver[T]) Get(ctx context.Context) (T, error) {
	for {
		r.watch.mu.Lock()
		if r.watch.present {
			value := r.watch.value
			r.watch.mu.Unlock()
			return value, nil
		}
		updated := r.watch.updated
		r.watch.mu.Unlock()

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-updated:
		}
	}
}

// Latest returns the current value without blocking.
func (r *Receiver[T]) Latest() (T, bool) {
	r.watch.mu.Lock()
	defer r.watch.mu.Unlock()
	return r.watch.value, r.watch.present
}

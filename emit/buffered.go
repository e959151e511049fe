package emit

import (
	"context"
	"sync"
)

// Buffered stores every value it receives in memory, grouped by a caller
// supplied key (e.g. a process ID), for query in tests and debug tooling.
type Buffered[T any] struct {
	mu     sync.RWMutex
	keyFn  func(T) string
	values map[string][]T
}

// HistoryFilter narrows History to values for which Match reports true.
// A nil Match means "no constraint".
type HistoryFilter[T any] struct {
	Match func(T) bool
}

// NewBuffered returns a Buffered sink. keyFn extracts the grouping key
// from a value; if nil, every value is grouped under the empty key.
func NewBuffered[T any](keyFn func(T) string) *Buffered[T] {
	if keyFn == nil {
		keyFn = func(T) string { return "" }
	}
	return &Buffered[T]{keyFn: keyFn, values: make(map[string][]T)}
}

func (b *Buffered[T]) Emit(value T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := b.keyFn(value)
	b.values[key] = append(b.values[key], value)
}

func (b *Buffered[T]) EmitBatch(_ context.Context, values []T) error {
	for _, v := range values {
		b.Emit(v)
	}
	return nil
}

func (b *Buffered[T]) Flush(context.Context) error { return nil }

// History returns a copy of every value recorded under key, in emission
// order.
func (b *Buffered[T]) History(key string) []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]T, len(b.values[key]))
	copy(out, b.values[key])
	return out
}

// HistoryWithFilter returns History(key) narrowed to values for which
// filter.Match reports true. A nil Match matches everything.
func (b *Buffered[T]) HistoryWithFilter(key string, filter HistoryFilter[T]) []T {
	all := b.History(key)
	if filter.Match == nil {
		return all
	}
	out := make([]T, 0, len(all))
	for _, v := range all {
		if filter.Match(v) {
			out = append(out, v)
		}
	}
	return out
}

// Clear discards every value recorded under key. Other keys are left
// untouched, including when key is empty; use ClearAll to discard
// everything.
func (b *Buffered[T]) Clear(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.values, key)
}

// ClearAll discards every recorded value across every key.
func (b *Buffered[T]) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.values = make(map[string][]T)
}

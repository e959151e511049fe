// Package emit provides pluggable observability backends for anything a
// process wants to publish, generalizing the scheduler's fixed Event
// shape into a Sink[T any] so the same four backends (null, log,
// buffered, OTel) serve process.Log entries and bpmnevent.ProcessEvent
// values alike.
package emit

import "context"

// Sink receives values of type T from a running process. Implementations
// must be non-blocking and safe for concurrent use: a Sink sits off the
// scheduler's hot path, so a slow or panicking backend must never stall
// or crash a run.
type Sink[T any] interface {
	// Emit sends one value to the backend. Must not block the caller
	// for any meaningful duration and must not panic.
	Emit(value T)

	// EmitBatch sends multiple values in one call, preserving order.
	// Returns an error only for configuration-level failures; a single
	// bad value should be logged internally and skipped, not returned.
	EmitBatch(ctx context.Context, values []T) error

	// Flush blocks until everything buffered so far has been delivered
	// or ctx is done. Safe to call more than once.
	Flush(ctx context.Context) error
}

// Describer renders a value as a flat attribute map, used by backends
// (Log's JSON mode, OTel's span attributes) that need a structural view
// of an otherwise-opaque T. A nil Describer means "best effort": Log
// falls back to fmt.Sprintf("%v", value), and OTel emits spans with no
// attributes beyond the span name.
type Describer[T any] func(value T) map[string]any

package emit

import "context"

// Null discards every value. Useful as the default Sink when a caller
// hasn't wired an observability backend yet.
type Null[T any] struct{}

// NewNull returns a Null sink.
func NewNull[T any]() *Null[T] { return &Null[T]{} }

func (Null[T]) Emit(T) {}

func (Null[T]) EmitBatch(context.Context, []T) error { return nil }

func (Null[T]) Flush(context.Context) error { return nil }

package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Log writes each value to an io.Writer, either as a JSON line or as a
// terse text line built from its Describer's attribute map.
type Log[T any] struct {
	w        io.Writer
	jsonMode bool
	describe Describer[T]
}

// NewLog returns a Log sink. A nil writer defaults to os.Stdout; a nil
// describe falls back to fmt.Sprintf("%v", value) in text mode and a
// "value" string field in JSON mode.
func NewLog[T any](w io.Writer, jsonMode bool, describe Describer[T]) *Log[T] {
	if w == nil {
		w = os.Stdout
	}
	return &Log[T]{w: w, jsonMode: jsonMode, describe: describe}
}

func (l *Log[T]) Emit(value T) {
	if l.jsonMode {
		l.emitJSON(value)
		return
	}
	l.emitText(value)
}

func (l *Log[T]) emitJSON(value T) {
	attrs := map[string]any{"value": fmt.Sprintf("%v", value)}
	if l.describe != nil {
		attrs = l.describe(value)
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		_, _ = fmt.Fprintf(l.w, "{\"error\":%q}\n", err.Error())
		return
	}
	_, _ = fmt.Fprintf(l.w, "%s\n", data)
}

func (l *Log[T]) emitText(value T) {
	if l.describe == nil {
		_, _ = fmt.Fprintf(l.w, "%v\n", value)
		return
	}
	attrs := l.describe(value)
	_, _ = fmt.Fprintf(l.w, "%v", value)
	for k, v := range attrs {
		_, _ = fmt.Fprintf(l.w, " %s=%v", k, v)
	}
	_, _ = fmt.Fprint(l.w, "\n")
}

func (l *Log[T]) EmitBatch(_ context.Context, values []T) error {
	for _, v := range values {
		l.Emit(v)
	}
	return nil
}

func (l *Log[T]) Flush(context.Context) error { return nil }

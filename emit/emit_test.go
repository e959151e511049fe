package emit

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

type sample struct {
	kind string
	n    int
}

func describeSample(s sample) map[string]any {
	return map[string]any{"kind": s.kind, "n": s.n}
}

func TestNullDiscardsEverything(t *testing.T) {
	n := NewNull[sample]()
	n.Emit(sample{kind: "a"})
	if err := n.EmitBatch(context.Background(), []sample{{kind: "b"}}); err != nil {
		t.Fatalf("EmitBatch: %v", err)
	}
	if err := n.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func TestLogTextMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog[sample](&buf, false, describeSample)
	l.Emit(sample{kind: "start", n: 1})
	out := buf.String()
	if !strings.Contains(out, "kind=start") || !strings.Contains(out, "n=1") {
		t.Fatalf("unexpected text output: %q", out)
	}
}

func TestLogJSONMode(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog[sample](&buf, true, describeSample)
	l.Emit(sample{kind: "start", n: 2})
	out := buf.String()
	if !strings.Contains(out, `"kind":"start"`) {
		t.Fatalf("unexpected json output: %q", out)
	}
}

func TestBufferedHistoryAndFilter(t *testing.T) {
	b := NewBuffered[sample](func(s sample) string { return s.kind })
	b.Emit(sample{kind: "a", n: 1})
	b.Emit(sample{kind: "a", n: 2})
	b.Emit(sample{kind: "b", n: 3})

	got := b.History("a")
	if len(got) != 2 {
		t.Fatalf("History(a) = %v, want 2 entries", got)
	}

	filtered := b.HistoryWithFilter("a", HistoryFilter[sample]{Match: func(s sample) bool { return s.n > 1 }})
	if len(filtered) != 1 || filtered[0].n != 2 {
		t.Fatalf("HistoryWithFilter = %v, want one entry with n=2", filtered)
	}

	b.Clear("a")
	if len(b.History("a")) != 0 {
		t.Fatal("Clear(a) did not empty history")
	}
	if len(b.History("b")) != 1 {
		t.Fatal("Clear(a) should not affect key b")
	}
}

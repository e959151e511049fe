package process

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dshills/bpmnflow/bpmn"
	"github.com/dshills/bpmnflow/bpmnevent"
	"github.com/dshills/bpmnflow/flownode/endevent"
)

type failingTool struct{}

func (failingTool) Name() string { return "failing" }
func (failingTool) Call(ctx context.Context, input map[string]any) (map[string]any, error) {
	return nil, errors.New("tool unavailable")
}

func startEndProcess(condition *bpmn.FormalExpression) *bpmn.Process {
	p := &bpmn.Process{
		ID: "p",
		FlowElements: []*bpmn.Element{
			{ID: "s", Kind: bpmn.KindStartEvent, Outgoings: []string{"s1"}},
			{ID: "e", Kind: bpmn.KindEndEvent, Incomings: []string{"s1"}},
		},
		SequenceFlows: []*bpmn.SequenceFlow{
			{ID: "s1", SourceRef: "s", TargetRef: "e", Condition: condition},
		},
	}
	p.Index()
	return p
}

func drainTimeout[T any](t *testing.T, ch <-chan T, timeout time.Duration) (T, bool) {
	t.Helper()
	select {
	case v := <-ch:
		return v, true
	case <-time.After(timeout):
		var zero T
		return zero, false
	}
}

func TestScenario1MinimalStartToEnd(t *testing.T) {
	handle := NewHandle(startEndProcess(nil), "", nil)
	events := handle.Events().Subscribe(8)
	logs := handle.LogBus().Subscribe(8)

	ctrl := make(chan Request, 1)
	sched := NewScheduler(ctrl, handle)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	reply := make(chan error, 1)
	ctrl <- StartRequest{Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("StartRequest: %v", err)
	}

	if ev, ok := drainTimeout(t, events.C, time.Second); !ok {
		t.Fatal("expected Start event")
	} else if _, isStart := ev.(bpmnevent.Start); !isStart {
		t.Fatalf("first event = %T, want bpmnevent.Start", ev)
	}
	if ev, ok := drainTimeout(t, events.C, time.Second); !ok {
		t.Fatal("expected End event")
	} else if _, isEnd := ev.(bpmnevent.End); !isEnd {
		t.Fatalf("second event = %T, want bpmnevent.End", ev)
	}

	// The start node and the end node each complete independently of one
	// another, so their FlowNodeCompleted entries can arrive in either
	// order relative to each other; what's invariant is: exactly one
	// FlowNodeIncoming, exactly two FlowNodeCompleted (one per node), and
	// Done exactly once, last.
	var incoming, completed, doneCount int
	for i := 0; i < 4; i++ {
		entry, ok := drainTimeout(t, logs.C, time.Second)
		if !ok {
			t.Fatalf("expected a 4th log entry, got none (incoming=%d completed=%d done=%d)", incoming, completed, doneCount)
		}
		switch logKind(entry) {
		case "flow_node_incoming":
			incoming++
		case "flow_node_completed":
			completed++
		case "done":
			doneCount++
		default:
			t.Fatalf("unexpected log entry %#v", entry)
		}
	}
	if incoming != 1 || completed != 2 || doneCount != 1 {
		t.Fatalf("counts = incoming=%d completed=%d done=%d, want 1/2/1", incoming, completed, doneCount)
	}
}

func TestWithClockStampsLogEntries(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	handle := NewHandle(startEndProcess(nil), "", nil)
	logs := handle.LogBus().Subscribe(8)

	ctrl := make(chan Request, 1)
	sched := NewScheduler(ctrl, handle, WithClock(func() time.Time { return fixed }))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	reply := make(chan error, 1)
	ctrl <- StartRequest{Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("StartRequest: %v", err)
	}

	entry, ok := drainTimeout(t, logs.C, time.Second)
	if !ok {
		t.Fatal("expected a log entry")
	}
	incoming, isIncoming := entry.(FlowNodeIncoming)
	if !isIncoming {
		t.Fatalf("first log entry = %T, want FlowNodeIncoming", entry)
	}
	if !incoming.At.Equal(fixed) {
		t.Fatalf("FlowNodeIncoming.At = %v, want %v (the injected clock's reading)", incoming.At, fixed)
	}
}

func TestScenario2GuardedTrueEdge(t *testing.T) {
	cond := &bpmn.FormalExpression{Language: "expr", Content: "true"}
	handle := NewHandle(startEndProcess(cond), "", nil)
	events := handle.Events().Subscribe(8)

	ctrl := make(chan Request, 1)
	sched := NewScheduler(ctrl, handle)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	reply := make(chan error, 1)
	ctrl <- StartRequest{Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("StartRequest: %v", err)
	}

	if _, ok := drainTimeout(t, events.C, time.Second); !ok {
		t.Fatal("expected Start event")
	}
	ev, ok := drainTimeout(t, events.C, time.Second)
	if !ok {
		t.Fatal("expected End event on a true guard")
	}
	if _, isEnd := ev.(bpmnevent.End); !isEnd {
		t.Fatalf("second event = %T, want bpmnevent.End", ev)
	}
}

func TestScenario3GuardedFalseEdgeIdles(t *testing.T) {
	cond := &bpmn.FormalExpression{Language: "expr", Content: "false"}
	handle := NewHandle(startEndProcess(cond), "", nil)
	events := handle.Events().Subscribe(8)
	logs := handle.LogBus().Subscribe(8)

	ctrl := make(chan Request, 1)
	sched := NewScheduler(ctrl, handle)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	reply := make(chan error, 1)
	ctrl <- StartRequest{Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("StartRequest: %v", err)
	}

	if _, ok := drainTimeout(t, events.C, time.Second); !ok {
		t.Fatal("expected Start event")
	}
	if ev, ok := drainTimeout(t, events.C, 200*time.Millisecond); ok {
		t.Fatalf("process should idle on a false guard, got event %T", ev)
	}

	// The start node itself still completes (it emits Flow regardless of
	// the guard outcome; the guard is only consulted when the scheduler
	// applies that Flow action) — only FlowNodeIncoming/Done must never
	// appear, since the end event is never reached.
	deadline := time.After(300 * time.Millisecond)
drainLogs:
	for {
		select {
		case entry := <-logs.C:
			switch entry.(type) {
			case FlowNodeIncoming:
				t.Fatal("unexpected FlowNodeIncoming on a false guard")
			case Done:
				t.Fatal("unexpected Done on a false guard")
			}
		case <-deadline:
			break drainLogs
		}
	}
}

func TestScenario4ExpressionErrorStopsAtGuard(t *testing.T) {
	cond := &bpmn.FormalExpression{Language: "expr", Content: "((("}
	handle := NewHandle(startEndProcess(cond), "", nil)
	events := handle.Events().Subscribe(8)
	logs := handle.LogBus().Subscribe(8)

	ctrl := make(chan Request, 1)
	sched := NewScheduler(ctrl, handle)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	reply := make(chan error, 1)
	ctrl <- StartRequest{Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("StartRequest: %v", err)
	}

	if _, ok := drainTimeout(t, events.C, time.Second); !ok {
		t.Fatal("expected Start event")
	}

	entry, ok := drainTimeout(t, logs.C, time.Second)
	if !ok {
		t.Fatal("expected an ExpressionError log entry")
	}
	if _, isExprErr := entry.(ExpressionError); !isExprErr {
		t.Fatalf("log entry = %T, want ExpressionError", entry)
	}

	if ev, ok := drainTimeout(t, events.C, 200*time.Millisecond); ok {
		t.Fatalf("End should not be reached after a guard evaluation error, got %T", ev)
	}
}

func TestScenario5TwoStartsOneEnd(t *testing.T) {
	proc := &bpmn.Process{
		ID: "p",
		FlowElements: []*bpmn.Element{
			{ID: "s1", Kind: bpmn.KindStartEvent, Outgoings: []string{"f1"}},
			{ID: "s2", Kind: bpmn.KindStartEvent, Outgoings: []string{"f2"}},
			{ID: "e", Kind: bpmn.KindEndEvent, Incomings: []string{"f1", "f2"}},
		},
		SequenceFlows: []*bpmn.SequenceFlow{
			{ID: "f1", SourceRef: "s1", TargetRef: "e"},
			{ID: "f2", SourceRef: "s2", TargetRef: "e"},
		},
	}
	proc.Index()
	handle := NewHandle(proc, "", nil)
	events := handle.Events().Subscribe(8)

	ctrl := make(chan Request, 1)
	sched := NewScheduler(ctrl, handle)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	reply := make(chan error, 1)
	ctrl <- StartRequest{Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("StartRequest: %v", err)
	}

	if _, ok := drainTimeout(t, events.C, time.Second); !ok {
		t.Fatal("expected Start event")
	}

	endCount := 0
	deadline := time.After(2 * time.Second)
drain:
	for {
		select {
		case ev := <-events.C:
			if _, isEnd := ev.(bpmnevent.End); isEnd {
				endCount++
			}
		case <-deadline:
			break drain
		}
	}
	if endCount != 1 {
		t.Fatalf("End broadcast %d times, want exactly 1", endCount)
	}

	sched.mu.Lock()
	rec, stillLive := sched.nodes["e"]
	sched.mu.Unlock()
	if stillLive {
		end, ok := rec.node.(*endevent.EndEvent)
		if !ok {
			t.Fatalf("node e is %T, want *endevent.EndEvent", rec.node)
		}
		if got := end.Get(); got != 2 {
			t.Fatalf("End tokens = %d, want 2", got)
		}
	}
}

func TestScenario6TerminateBeforeStart(t *testing.T) {
	handle := NewHandle(startEndProcess(nil), "", nil)
	events := handle.Events().Subscribe(8)

	ctrl := make(chan Request, 1)
	sched := NewScheduler(ctrl, handle)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- sched.Run(ctx) }()

	type joinHandle struct{ id string }
	h := joinHandle{id: "join-1"}
	ctrl <- JoinHandleRequest{Handle: h}

	term := make(chan any, 1)
	ctrl <- TerminateRequest{Reply: term}
	select {
	case got := <-term:
		if got != h {
			t.Fatalf("TerminateRequest reply = %#v, want %#v", got, h)
		}
	case <-time.After(time.Second):
		t.Fatal("TerminateRequest reply never delivered")
	}

	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("Run returned %v, want nil on clean terminate", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run never returned after Terminate")
	}

	if ev, ok := drainTimeout(t, events.C, 100*time.Millisecond); ok {
		t.Fatalf("no process events should broadcast before Start, got %T", ev)
	}
}

func TestServiceTaskFailureLogsServiceTaskError(t *testing.T) {
	proc := &bpmn.Process{
		ID: "p",
		FlowElements: []*bpmn.Element{
			{ID: "s", Kind: bpmn.KindStartEvent, Outgoings: []string{"f1"}},
			{ID: "t", Kind: bpmn.KindServiceTask, Incomings: []string{"f1"}, Properties: map[string]any{"tool": failingTool{}}},
		},
		SequenceFlows: []*bpmn.SequenceFlow{
			{ID: "f1", SourceRef: "s", TargetRef: "t"},
		},
	}
	proc.Index()
	handle := NewHandle(proc, "", nil)
	logs := handle.LogBus().Subscribe(8)

	ctrl := make(chan Request, 1)
	sched := NewScheduler(ctrl, handle)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	reply := make(chan error, 1)
	ctrl <- StartRequest{Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("StartRequest: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case entry := <-logs.C:
			svcErr, isSvcErr := entry.(ServiceTaskError)
			if !isSvcErr {
				continue
			}
			if svcErr.Node.ID != "t" {
				t.Fatalf("ServiceTaskError.Node.ID = %q, want %q", svcErr.Node.ID, "t")
			}
			return
		case <-deadline:
			t.Fatal("expected a ServiceTaskError log entry, got none")
		}
	}
}

func TestNewSchedulerNoStartEventRejectsStart(t *testing.T) {
	proc := &bpmn.Process{
		ID: "p",
		FlowElements: []*bpmn.Element{
			{ID: "e", Kind: bpmn.KindEndEvent},
		},
	}
	proc.Index()
	handle := NewHandle(proc, "", nil)

	ctrl := make(chan Request, 1)
	sched := NewScheduler(ctrl, handle)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go func() { _ = sched.Run(ctx) }()

	reply := make(chan error, 1)
	ctrl <- StartRequest{Reply: reply}
	if err := <-reply; err != ErrNoStartEvent {
		t.Fatalf("StartRequest error = %v, want ErrNoStartEvent", err)
	}
}

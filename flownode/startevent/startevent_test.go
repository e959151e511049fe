package startevent

import (
	"context"
	"testing"
	"time"

	"github.com/dshills/bpmnflow/bpmn"
	"github.com/dshills/bpmnflow/bpmnevent"
	"github.com/dshills/bpmnflow/broadcast"
	"github.com/dshills/bpmnflow/expr"
	"github.com/dshills/bpmnflow/flownode"
	"github.com/dshills/bpmnflow/vars"
)

type testHandle struct {
	events *broadcast.Bus[bpmnevent.ProcessEvent]
	v      *vars.Context
}

func newTestHandle() *testHandle {
	return &testHandle{events: broadcast.New[bpmnevent.ProcessEvent](), v: vars.NewContext("")}
}

func (h *testHandle) Events() *broadcast.Bus[bpmnevent.ProcessEvent] { return h.events }
func (h *testHandle) Vars() *vars.Context                            { return h.v }
func (h *testHandle) Evaluator() expr.Evaluator                      { return expr.NewDefault() }
func (h *testHandle) DefaultLanguage() string                        { return expr.DefaultLanguage }

func TestStartEventSequence(t *testing.T) {
	elem := &bpmn.Element{ID: "s", Kind: bpmn.KindStartEvent, Outgoings: []string{"f1"}}
	s := New(elem)
	h := newTestHandle()
	s.SetProcess(h)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resultCh := make(chan flownode.Action, 1)
	go func() {
		action, _ := s.Next(ctx)
		resultCh <- action
	}()

	time.Sleep(10 * time.Millisecond)
	h.events.Publish(bpmnevent.Start{})

	select {
	case action := <-resultCh:
		if action.Kind != flownode.ActionFlow {
			t.Fatalf("first action = %v, want ActionFlow", action.Kind)
		}
		if len(action.Indices) != 1 || action.Indices[0] != 0 {
			t.Fatalf("indices = %v, want [0]", action.Indices)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for Flow action")
	}

	action, ok := s.Next(ctx)
	if !ok || action.Kind != flownode.ActionComplete {
		t.Fatalf("second Next = %v,%v want Complete,true", action, ok)
	}

	_, ok = s.Next(ctx)
	if ok {
		t.Fatal("third Next should report end-of-stream")
	}
}

func TestStartEventStateRoundTrip(t *testing.T) {
	elem := &bpmn.Element{ID: "s", Kind: bpmn.KindStartEvent}
	s := New(elem)
	st, err := s.GetState()
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	s2 := New(elem)
	if err := s2.SetState(st); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	st2, err := s2.GetState()
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if string(st.Payload) != string(st2.Payload) {
		t.Fatalf("round trip mismatch: %s != %s", st.Payload, st2.Payload)
	}
}

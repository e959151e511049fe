// Package servicetask implements a BPMN service task flow node kind
// that invokes a pluggable Tool when its incoming token arrives: a
// service task calling an external system over HTTP by default.
package servicetask

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dshills/bpmnflow/bpmn"
	"github.com/dshills/bpmnflow/bpmnevent"
	"github.com/dshills/bpmnflow/flownode"
)

// Tool is an externally invokable unit of work: a name plus a
// context-aware call taking and returning a loosely-typed payload.
type Tool interface {
	Name() string
	Call(ctx context.Context, input map[string]any) (map[string]any, error)
}

// ServiceTask calls its configured Tool in the background as soon as
// its incoming token arrives (Incoming never blocks the scheduler: the
// call runs on its own goroutine and reports back via the embedded
// Lifecycle), then flows across all outgoing sequence flows on
// success, or emits Complete with no flow — after broadcasting a
// bpmnevent.Error and logging a service-task error — on failure.
type ServiceTask struct {
	flownode.NoopSequenceFlow
	flownode.PassthroughSplice
	flownode.TokenCounter

	elem      *bpmn.Element
	tool      Tool
	lc        *flownode.Lifecycle
	handle    flownode.ProcessHandle
	triggered bool
}

// New constructs a ServiceTask wrapping elem and invoking tool.
func New(elem *bpmn.Element, tool Tool) *ServiceTask {
	return &ServiceTask{elem: elem, tool: tool, lc: flownode.NewLifecycle()}
}

func (s *ServiceTask) Element() *bpmn.Element { return s.elem }

func (s *ServiceTask) SetProcess(handle flownode.ProcessHandle) { s.handle = handle }

func (s *ServiceTask) Incoming(index flownode.IncomingIndex) {
	if s.triggered {
		return
	}
	s.triggered = true
	go s.invoke()
}

func (s *ServiceTask) invoke() {
	input := map[string]any{}
	if s.handle != nil {
		input = s.handle.Vars().Env()
	}
	output, err := s.tool.Call(context.Background(), input)
	if err != nil {
		if s.handle != nil {
			s.handle.Events().Publish(bpmnevent.Error{ErrorRef: fmt.Sprintf("serviceTask:%s", s.elem.ID)})
		}
		s.lc.Trigger(nil)
		return
	}
	if s.handle != nil {
		for k, v := range output {
			_ = s.handle.Vars().Set(k, v)
		}
	}
	indices := make([]int, len(s.elem.Outgoings))
	for i := range indices {
		indices[i] = i
	}
	s.lc.Trigger(&flownode.Action{Kind: flownode.ActionFlow, Indices: indices})
}

func (s *ServiceTask) Next(ctx context.Context) (flownode.Action, bool) {
	return s.lc.Next(ctx)
}

type stateV1 struct {
	Phase string `json:"phase"`
}

func (s *ServiceTask) GetState() (flownode.State, error) {
	payload, err := json.Marshal(stateV1{Phase: s.lc.Phase()})
	if err != nil {
		return flownode.State{}, err
	}
	return flownode.State{Kind: "serviceTask", Payload: payload}, nil
}

func (s *ServiceTask) SetState(st flownode.State) error {
	if st.Kind != "serviceTask" {
		return &flownode.InvalidVariantError{Want: "serviceTask", Got: st.Kind}
	}
	var v stateV1
	if err := json.Unmarshal(st.Payload, &v); err != nil {
		return err
	}
	s.lc.RestorePhase(v.Phase)
	return nil
}

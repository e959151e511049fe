// Package startevent implements the BPMN start event flow node kind.
package startevent

import (
	"context"
	"encoding/json"

	"github.com/dshills/bpmnflow/bpmn"
	"github.com/dshills/bpmnflow/bpmnevent"
	"github.com/dshills/bpmnflow/flownode"
)

// StartEvent transitions Ready -> Complete on the first Start process
// event, emitting Flow across all of its outgoing sequence flows, then
// Complete, then ends its stream for good. Uses the shared Ready/
// Complete/Done state machine (see flownode.Lifecycle).
type StartEvent struct {
	flownode.NoopSequenceFlow
	flownode.PassthroughSplice
	flownode.TokenCounter

	elem *bpmn.Element
	lc   *flownode.Lifecycle

	subCancel context.CancelFunc
}

// New constructs a StartEvent wrapping elem.
func New(elem *bpmn.Element) *StartEvent {
	return &StartEvent{elem: elem, lc: flownode.NewLifecycle()}
}

func (s *StartEvent) Element() *bpmn.Element { return s.elem }

func (s *StartEvent) SetProcess(handle flownode.ProcessHandle) {
	sub := handle.Events().Subscribe(8)
	ctx, cancel := context.WithCancel(context.Background())
	s.subCancel = cancel
	go func() {
		indices := make([]int, len(s.elem.Outgoings))
		for i := range indices {
			indices[i] = i
		}
		for {
			select {
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				if _, isStart := ev.(bpmnevent.Start); isStart {
					s.lc.Trigger(&flownode.Action{Kind: flownode.ActionFlow, Indices: indices})
					sub.Close()
					return
				}
			case <-ctx.Done():
				sub.Close()
				return
			}
		}
	}()
}

// Incoming is a no-op: a start event has no incoming sequence flows.
func (s *StartEvent) Incoming(index flownode.IncomingIndex) {}

func (s *StartEvent) Next(ctx context.Context) (flownode.Action, bool) {
	action, ok := s.lc.Next(ctx)
	if !ok && s.subCancel != nil {
		s.subCancel()
	}
	return action, ok
}

type stateV1 struct {
	Phase string `json:"phase"`
}

func (s *StartEvent) GetState() (flownode.State, error) {
	payload, err := json.Marshal(stateV1{Phase: s.lc.Phase()})
	if err != nil {
		return flownode.State{}, err
	}
	return flownode.State{Kind: "startEvent", Payload: payload}, nil
}

func (s *StartEvent) SetState(st flownode.State) error {
	if st.Kind != "startEvent" {
		return &flownode.InvalidVariantError{Want: "startEvent", Got: st.Kind}
	}
	var v stateV1
	if err := json.Unmarshal(st.Payload, &v); err != nil {
		return err
	}
	s.lc.RestorePhase(v.Phase)
	return nil
}

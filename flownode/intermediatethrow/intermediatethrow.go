// Package intermediatethrow implements the BPMN intermediate throw
// event flow node kind: on its incoming token, it broadcasts a
// configured process event, then flows across all outgoing sequence
// flows.
package intermediatethrow

import (
	"context"
	"encoding/json"

	"github.com/dshills/bpmnflow/bpmn"
	"github.com/dshills/bpmnflow/bpmnevent"
	"github.com/dshills/bpmnflow/flownode"
)

// IntermediateThrowEvent generalizes the EndEvent/StartEvent shape:
// Ready -> on first incoming token, broadcasts its configured
// ProcessEvent and emits Flow across all outgoings -> Complete -> ends.
// Properties["event"] supplies the event to throw, defaulting to
// bpmnevent.NoneEvent{}, a "none" throw event.
type IntermediateThrowEvent struct {
	flownode.NoopSequenceFlow
	flownode.PassthroughSplice
	flownode.TokenCounter

	elem      *bpmn.Element
	lc        *flownode.Lifecycle
	handle    flownode.ProcessHandle
	triggered bool
}

// New constructs an IntermediateThrowEvent wrapping elem.
func New(elem *bpmn.Element) *IntermediateThrowEvent {
	return &IntermediateThrowEvent{elem: elem, lc: flownode.NewLifecycle()}
}

func (n *IntermediateThrowEvent) Element() *bpmn.Element { return n.elem }

func (n *IntermediateThrowEvent) SetProcess(handle flownode.ProcessHandle) { n.handle = handle }

func (n *IntermediateThrowEvent) thrownEvent() bpmnevent.ProcessEvent {
	if ev, ok := n.elem.Properties["event"].(bpmnevent.ProcessEvent); ok && ev != nil {
		return ev
	}
	return bpmnevent.NoneEvent{}
}

func (n *IntermediateThrowEvent) Incoming(index flownode.IncomingIndex) {
	if n.triggered {
		return
	}
	n.triggered = true
	if n.handle != nil {
		n.handle.Events().Publish(n.thrownEvent())
	}
	indices := make([]int, len(n.elem.Outgoings))
	for i := range indices {
		indices[i] = i
	}
	n.lc.Trigger(&flownode.Action{Kind: flownode.ActionFlow, Indices: indices})
}

func (n *IntermediateThrowEvent) Next(ctx context.Context) (flownode.Action, bool) {
	return n.lc.Next(ctx)
}

type stateV1 struct {
	Phase string `json:"phase"`
}

func (n *IntermediateThrowEvent) GetState() (flownode.State, error) {
	payload, err := json.Marshal(stateV1{Phase: n.lc.Phase()})
	if err != nil {
		return flownode.State{}, err
	}
	return flownode.State{Kind: "intermediateThrowEvent", Payload: payload}, nil
}

func (n *IntermediateThrowEvent) SetState(st flownode.State) error {
	if st.Kind != "intermediateThrowEvent" {
		return &flownode.InvalidVariantError{Want: "intermediateThrowEvent", Got: st.Kind}
	}
	var v stateV1
	if err := json.Unmarshal(st.Payload, &v); err != nil {
		return err
	}
	n.lc.RestorePhase(v.Phase)
	return nil
}

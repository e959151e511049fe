// Package endevent implements the BPMN end event flow node kind.
package endevent

import (
	"context"
	"encoding/json"

	"github.com/dshills/bpmnflow/bpmn"
	"github.com/dshills/bpmnflow/bpmnevent"
	"github.com/dshills/bpmnflow/flownode"
)

// EndEvent transitions Ready -> Complete on its first incoming token
// (any incoming index triggers it — an end event does not wait for
// more than one); on the next poll it broadcasts bpmnevent.End, emits
// Complete, then ends its stream for good. The broadcast happens at
// that poll, not at token-arrival time: a Terminate racing in before
// the node's goroutine is next scheduled observes no End event yet.
type EndEvent struct {
	flownode.NoopSequenceFlow
	flownode.PassthroughSplice
	flownode.TokenCounter

	elem      *bpmn.Element
	lc        *flownode.Lifecycle
	handle    flownode.ProcessHandle
	triggered bool
}

// New constructs an EndEvent wrapping elem.
func New(elem *bpmn.Element) *EndEvent {
	return &EndEvent{elem: elem, lc: flownode.NewLifecycle()}
}

func (e *EndEvent) Element() *bpmn.Element { return e.elem }

func (e *EndEvent) SetProcess(handle flownode.ProcessHandle) {
	e.handle = handle
	e.lc.OnComplete(func() {
		if e.handle != nil {
			e.handle.Events().Publish(bpmnevent.End{})
		}
	})
}

// Incoming triggers completion on the first call; later calls (e.g.
// from a second predecessor in a process with multiple start events)
// are no-ops for the state machine even though the caller's token
// bookkeeping (Tokens) still updates separately. The bpmnevent.End
// broadcast does not happen here: it fires from the lifecycle's
// AwaitingComplete -> Done transition, driven by Next.
func (e *EndEvent) Incoming(index flownode.IncomingIndex) {
	if e.triggered {
		return
	}
	e.triggered = true
	e.lc.Trigger(nil)
}

func (e *EndEvent) Next(ctx context.Context) (flownode.Action, bool) {
	return e.lc.Next(ctx)
}

type stateV1 struct {
	Phase string `json:"phase"`
}

func (e *EndEvent) GetState() (flownode.State, error) {
	payload, err := json.Marshal(stateV1{Phase: e.lc.Phase()})
	if err != nil {
		return flownode.State{}, err
	}
	return flownode.State{Kind: "endEvent", Payload: payload}, nil
}

func (e *EndEvent) SetState(st flownode.State) error {
	if st.Kind != "endEvent" {
		return &flownode.InvalidVariantError{Want: "endEvent", Got: st.Kind}
	}
	var v stateV1
	if err := json.Unmarshal(st.Payload, &v); err != nil {
		return err
	}
	e.lc.RestorePhase(v.Phase)
	return nil
}

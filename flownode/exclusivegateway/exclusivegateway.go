// Package exclusivegateway implements an exclusive (XOR) gateway flow
// node kind: on its incoming token it probes all outgoing sequence
// flows' guards and takes the first one, in outgoing order, whose
// guard evaluates true. A default flow (no guard at all) always
// evaluates true but is only taken when every guarded flow fails,
// regardless of where it sits in the outgoing list. It then completes.
//
// The ProbeOutgoingSequenceFlows action is used by conditional/
// inclusive gateways but has no concrete implementor among the event
// kinds in flownode/startevent, flownode/endevent, and
// flownode/intermediatethrow. This kind gives that action a real
// consumer.
package exclusivegateway

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dshills/bpmnflow/bpmn"
	"github.com/dshills/bpmnflow/flownode"
)

type phase int

const (
	phaseReady phase = iota
	phaseProbing
	phaseFlowing
	phaseCompleting
	phaseDone
)

// ExclusiveGateway implements flownode.FlowNode.
type ExclusiveGateway struct {
	flownode.PassthroughSplice
	flownode.TokenCounter

	elem *bpmn.Element

	mu      sync.Mutex
	ph      phase
	results map[int]probeResult
	wake    chan struct{}

	triggered bool
}

// probeResult is one outgoing index's ActionProbe outcome: whether its
// guard evaluated true, and whether it had a guard at all.
type probeResult struct {
	success  bool
	hasGuard bool
}

// New constructs an ExclusiveGateway wrapping elem.
func New(elem *bpmn.Element) *ExclusiveGateway {
	return &ExclusiveGateway{elem: elem, results: make(map[int]probeResult), wake: make(chan struct{}, 1)}
}

func (g *ExclusiveGateway) Element() *bpmn.Element { return g.elem }

func (g *ExclusiveGateway) SetProcess(handle flownode.ProcessHandle) {}

func (g *ExclusiveGateway) Incoming(index flownode.IncomingIndex) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.triggered {
		return
	}
	g.triggered = true
	g.ph = phaseProbing
	g.wakeLocked()
}

func (g *ExclusiveGateway) wakeLocked() {
	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// SequenceFlow records one guard-evaluation result from a prior
// ActionProbe. Once every probed index has reported, the gateway picks
// a target: see Next's phaseFlowing branch for the selection rule.
func (g *ExclusiveGateway) SequenceFlow(index int, success bool, hasGuard bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results[index] = probeResult{success: success, hasGuard: hasGuard}
	if len(g.results) < len(g.elem.Outgoings) {
		return
	}
	g.ph = phaseFlowing
	g.wakeLocked()
}

func (g *ExclusiveGateway) Next(ctx context.Context) (flownode.Action, bool) {
	for {
		g.mu.Lock()
		switch g.ph {
		case phaseProbing:
			indices := make([]int, len(g.elem.Outgoings))
			for i := range indices {
				indices[i] = i
			}
			g.ph = phaseReady // consumed; wait for SequenceFlow results to advance further
			g.mu.Unlock()
			return flownode.Action{Kind: flownode.ActionProbe, Indices: indices}, true
		case phaseFlowing:
			// Guarded flows win over a default (no-guard) flow
			// regardless of outgoing-list order: try every guarded flow
			// first, in order, and only fall back to a default flow if
			// none of them matched.
			chosen := -1
			for i := 0; i < len(g.elem.Outgoings); i++ {
				if r := g.results[i]; r.success && r.hasGuard {
					chosen = i
					break
				}
			}
			if chosen < 0 {
				for i := 0; i < len(g.elem.Outgoings); i++ {
					if r := g.results[i]; r.success && !r.hasGuard {
						chosen = i
						break
					}
				}
			}
			if chosen < 0 {
				// Nothing to flow: this Complete is the only one.
				g.ph = phaseDone
				g.mu.Unlock()
				return flownode.Action{Kind: flownode.ActionComplete}, true
			}
			g.ph = phaseCompleting
			g.mu.Unlock()
			return flownode.Action{Kind: flownode.ActionFlow, Indices: []int{chosen}}, true
		case phaseCompleting:
			g.ph = phaseDone
			g.mu.Unlock()
			return flownode.Action{Kind: flownode.ActionComplete}, true
		case phaseDone:
			g.mu.Unlock()
			return flownode.Action{}, false
		}
		// phaseReady: block until woken (either Incoming or SequenceFlow advances us).
		wake := g.wake
		g.mu.Unlock()
		select {
		case <-wake:
			continue
		case <-ctx.Done():
			return flownode.Action{}, false
		}
	}
}

type stateV1 struct {
	Phase int `json:"phase"`
}

func (g *ExclusiveGateway) GetState() (flownode.State, error) {
	g.mu.Lock()
	p := g.ph
	g.mu.Unlock()
	payload, err := json.Marshal(stateV1{Phase: int(p)})
	if err != nil {
		return flownode.State{}, err
	}
	return flownode.State{Kind: "exclusiveGateway", Payload: payload}, nil
}

func (g *ExclusiveGateway) SetState(st flownode.State) error {
	if st.Kind != "exclusiveGateway" {
		return &flownode.InvalidVariantError{Want: "exclusiveGateway", Got: st.Kind}
	}
	var v stateV1
	if err := json.Unmarshal(st.Payload, &v); err != nil {
		return err
	}
	g.mu.Lock()
	g.ph = phase(v.Phase)
	g.mu.Unlock()
	return nil
}

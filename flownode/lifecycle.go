package flownode

import (
	"context"
	"sync"
)

type phase int

const (
	phaseReady phase = iota
	phaseTriggered
	phaseAwaitingComplete
	phaseDone
)

// Lifecycle implements the Ready -> (Flow?) -> Complete -> Done state
// machine shared by every event-like flow node kind in this module: an
// optional Flow action between the trigger and Complete, needed by
// start events and intermediate throw events but not by end events.
//
// A node embeds a Lifecycle and drives it with Trigger from Incoming
// (or, for gateway-like kinds, after its own decision logic runs).
// Next is then exactly Lifecycle.Next.
//
// Once Done, Next returns ok=false forever: a terminal node actually
// ends its stream (see DESIGN.md, Open Question resolution #3) rather
// than blocking forever, so the run's Done log fires once every live
// node has reported end-of-stream.
type Lifecycle struct {
	mu         sync.Mutex
	phase      phase
	pending    Action
	wake       chan struct{}
	onComplete func()
}

// NewLifecycle returns a Lifecycle in its initial Ready phase.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{wake: make(chan struct{}, 1)}
}

// OnComplete registers fn to run exactly once, synchronously within
// Next, at the moment the lifecycle transitions from AwaitingComplete
// to Done — immediately before Next returns the terminal Complete
// action. A node kind whose domain event must fire at the same moment
// as Complete, not earlier at trigger time, registers its publish here
// instead of from Incoming (see flownode/endevent).
func (l *Lifecycle) OnComplete(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onComplete = fn
}

// Trigger arms the lifecycle. If flowAction is non-nil, the next Next
// call returns it and a following Next call returns Complete; if nil,
// the very next Next call returns Complete directly (the end-event
// shape: no outgoing flow). Only the first call while still Ready has
// any effect — later calls are no-ops, matching "any incoming triggers
// end" semantics where a node only needs one activation.
func (l *Lifecycle) Trigger(flowAction *Action) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase != phaseReady {
		return
	}
	if flowAction != nil {
		l.pending = *flowAction
		l.phase = phaseTriggered
	} else {
		l.phase = phaseAwaitingComplete
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Next advances the lifecycle, blocking while Ready and untriggered.
func (l *Lifecycle) Next(ctx context.Context) (Action, bool) {
	for {
		l.mu.Lock()
		switch l.phase {
		case phaseDone:
			l.mu.Unlock()
			return Action{}, false
		case phaseTriggered:
			action := l.pending
			l.phase = phaseAwaitingComplete
			l.mu.Unlock()
			return action, true
		case phaseAwaitingComplete:
			l.phase = phaseDone
			fn := l.onComplete
			l.mu.Unlock()
			if fn != nil {
				fn()
			}
			return Action{Kind: ActionComplete}, true
		}
		// phaseReady: wait to be triggered or for cancellation.
		wake := l.wake
		l.mu.Unlock()
		select {
		case <-wake:
			continue
		case <-ctx.Done():
			return Action{}, false
		}
	}
}

// Phase reports a stable string for GetState snapshots.
func (l *Lifecycle) Phase() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.phase {
	case phaseReady:
		return "ready"
	case phaseTriggered:
		return "triggered"
	case phaseAwaitingComplete:
		return "awaiting_complete"
	default:
		return "done"
	}
}

// RestorePhase sets the lifecycle's phase from a snapshot string,
// clearing any pending action (SetState is only reachable between
// activations in this module's test helpers; a restored node with a
// pending Flow payload is not reconstructable without re-deriving the
// indices, which is out of scope — see SPEC_FULL.md Non-goals).
func (l *Lifecycle) RestorePhase(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = Action{}
	switch s {
	case "ready":
		l.phase = phaseReady
	case "triggered":
		l.phase = phaseTriggered
	case "awaiting_complete":
		l.phase = phaseAwaitingComplete
	default:
		l.phase = phaseDone
	}
}

// Package flownode defines the runtime contract every BPMN flow node
// kind implements, and the Action vocabulary the scheduler acts on. A
// FlowNode is a lazy sequence of Actions: the scheduler calls Next
// repeatedly, applying each Action it gets back, until Next reports the
// node is exhausted.
package flownode

import (
	"context"

	"github.com/dshills/bpmnflow/bpmn"
	"github.com/dshills/bpmnflow/bpmnevent"
	"github.com/dshills/bpmnflow/broadcast"
	"github.com/dshills/bpmnflow/expr"
	"github.com/dshills/bpmnflow/vars"
)

// ActionKind discriminates the shape of an Action.
type ActionKind int

const (
	// ActionNone means the node yields without an action: nothing
	// observable this turn, but the node is rescheduled and will be
	// polled again. No flow node kind in this module currently produces
	// it; it exists so a future kind that needs a quiet turn (e.g. a
	// join gateway still waiting on more tokens) has somewhere to put
	// it without changing the contract.
	ActionNone ActionKind = iota
	// ActionComplete marks the node as finished its work for this
	// activation. Logged as FlowNodeCompleted.
	ActionComplete
	// ActionFlow carries the outgoing sequence flow indices to take
	// unconditionally-evaluated (each still gated by its own guard).
	ActionFlow
	// ActionProbe carries outgoing sequence flow indices whose guards
	// should be evaluated and reported back to the node via
	// SequenceFlow, without flowing tokens yet. Used by gateways that
	// need to see all the guard results before deciding which to take.
	ActionProbe
)

// Action is a value a node emits each time it advances.
type Action struct {
	Kind    ActionKind
	Indices []int
}

// IncomingIndex identifies one of a node's incoming sequence flows by
// position in its Element().Incomings list.
type IncomingIndex = int

// ProcessHandle is the slice of a running process a flow node needs:
// the event bus to subscribe to or publish on, the variable context to
// read/write, and the expression evaluator/default language to gate
// sequence flows with. Concrete flow node kinds hold one of these;
// package process supplies the implementation.
type ProcessHandle interface {
	Events() *broadcast.Bus[bpmnevent.ProcessEvent]
	Vars() *vars.Context
	Evaluator() expr.Evaluator
	DefaultLanguage() string
}

// FlowNode is the runtime behavior of one process flow element.
type FlowNode interface {
	// Element returns the static model element this node wraps.
	Element() *bpmn.Element

	// SetProcess supplies the process handle; called once, before the
	// node's first Next call.
	SetProcess(handle ProcessHandle)

	// Incoming notifies the node that a token arrived on the incoming
	// sequence flow at the given index. Must return without blocking:
	// any work the node needs to do in response happens on its own
	// goroutine between Next calls, never inline here.
	Incoming(index IncomingIndex)

	// Tokens records the node's current token count, maintained by the
	// scheduler's Flow-action handling. It is a plain counter write;
	// it never drives node behavior by itself.
	Tokens(n int)

	// SequenceFlow reports the guard-evaluation result for one of the
	// node's own outgoing sequence flows, requested via an
	// ActionProbe. hasGuard is false for a default flow (no
	// FormalExpression at all, which always evaluates to success=true);
	// gateway kinds that issue ActionProbe use it to give guarded flows
	// priority over a default flow regardless of list position. The
	// embeddable NoopSequenceFlow type implements this as a no-op.
	SequenceFlow(index int, success bool, hasGuard bool)

	// GetState/SetState snapshot and restore the node's internal state.
	// Out of scope for actual execution recovery (spec's Non-goals
	// exclude persistence/recovery of token state) but the contract
	// must exist: every kind is round-trip testable via
	// SetState(GetState()).
	GetState() (State, error)
	SetState(State) error

	// HandleOutgoingAction is the incoming-edge splice hook: the
	// scheduler calls this on a node for each of its successors'
	// incoming edges, giving it a chance to transform or drop the
	// action before it's applied. outgoingIndex is the position of the
	// edge within this node's own Outgoings list. The embeddable
	// PassthroughSplice type implements this as pass-through (keep=true,
	// action unchanged).
	HandleOutgoingAction(outgoingIndex int, action Action) (result Action, keep bool)

	// Next blocks until the node has an Action ready or ctx is
	// cancelled, then returns it. ok is false when the node is
	// exhausted for good (it will never produce another Action, and
	// the scheduler removes it from the live set) and also when ctx is
	// cancelled before an Action is ready.
	Next(ctx context.Context) (Action, bool)
}

// State is a kind-tagged snapshot envelope. Each flow node kind
// validates Kind on SetState and returns an InvalidVariant error on
// mismatch, mirroring end_event.rs's set_state behavior.
type State struct {
	Kind    string
	Payload []byte
}

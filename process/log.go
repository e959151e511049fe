package process

import (
	"time"

	"github.com/dshills/bpmnflow/bpmn"
)

// Log is the scheduler's own log-entry union, broadcast on
// Handle.LogBus() as the scheduler advances — distinct from
// bpmnevent.ProcessEvent, which is the process's own domain event
// stream. A Log entry describes scheduler bookkeeping (a token
// arriving, a node completing, a run going quiescent); a
// bpmnevent.ProcessEvent describes BPMN semantics (the process
// started, a signal was thrown).
type Log interface {
	isLog()
}

// FlowNodeIncoming is logged when a token is delivered to a node's
// incoming sequence flow. At is the scheduler's configured clock
// (WithClock) reading at the moment the entry was published.
type FlowNodeIncoming struct {
	Node          *bpmn.Element
	IncomingIndex int
	At            time.Time
}

func (FlowNodeIncoming) isLog() {}

// FlowNodeCompleted is logged when a node reports ActionComplete.
type FlowNodeCompleted struct {
	Node *bpmn.Element
	At   time.Time
}

func (FlowNodeCompleted) isLog() {}

// ExpressionError is logged when a sequence flow's guard expression
// fails to evaluate; the flow is treated as not taken.
type ExpressionError struct {
	SequenceFlowID string
	Error          string
	At             time.Time
}

func (ExpressionError) isLog() {}

// ServiceTaskError is logged when a Service Task's underlying tool
// call fails.
type ServiceTaskError struct {
	Node  *bpmn.Element
	Error string
	At    time.Time
}

func (ServiceTaskError) isLog() {}

// Done is logged once, when the scheduler's live flow node set becomes
// empty: no node can ever produce another Action.
type Done struct {
	At time.Time
}

func (Done) isLog() {}

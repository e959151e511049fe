// Package process runs a bpmn.Process: it builds one flownode.FlowNode
// per flow element, drives each as a lazy sequence of Actions, and
// applies the incoming-edge splice fold and sequence-flow guard
// evaluation that connect them into a single cooperative scheduler.
package process

import (
	"github.com/dshills/bpmnflow/bpmn"
	"github.com/dshills/bpmnflow/bpmnevent"
	"github.com/dshills/bpmnflow/broadcast"
	"github.com/dshills/bpmnflow/expr"
	"github.com/dshills/bpmnflow/vars"
)

// Handle is the process-wide context every flow node is constructed
// with: it implements flownode.ProcessHandle and additionally exposes
// the static model and the log bus, which flownode.FlowNode
// implementations never need directly but the Scheduler and callers
// do.
type Handle struct {
	proc            *bpmn.Process
	vars            *vars.Context
	evaluator       expr.Evaluator
	defaultLanguage string
	events          *broadcast.Bus[bpmnevent.ProcessEvent]
	logs            *broadcast.Bus[Log]
}

// NewHandle builds a Handle for proc. variables seeds the process
// variable context (may be empty); a nil evaluator defaults to
// expr.NewDefault().
func NewHandle(proc *bpmn.Process, variables string, evaluator expr.Evaluator) *Handle {
	if evaluator == nil {
		evaluator = expr.NewDefault()
	}
	return &Handle{
		proc:            proc,
		vars:            vars.NewContext(variables),
		evaluator:       evaluator,
		defaultLanguage: proc.Definitions.ExpressionLanguage,
		events:          broadcast.New[bpmnevent.ProcessEvent](),
		logs:            broadcast.New[Log](),
	}
}

// Element returns the static process model.
func (h *Handle) Element() *bpmn.Process { return h.proc }

// Model returns the process definitions (expression language, etc).
func (h *Handle) Model() *bpmn.Definitions { return &h.proc.Definitions }

// Events returns the process event broadcast bus.
func (h *Handle) Events() *broadcast.Bus[bpmnevent.ProcessEvent] { return h.events }

// Vars returns the process variable context.
func (h *Handle) Vars() *vars.Context { return h.vars }

// Evaluator returns the guard expression evaluator.
func (h *Handle) Evaluator() expr.Evaluator { return h.evaluator }

// DefaultLanguage returns the model's default expression language.
func (h *Handle) DefaultLanguage() string { return h.defaultLanguage }

// LogBus returns the scheduler log broadcast bus.
func (h *Handle) LogBus() *broadcast.Bus[Log] { return h.logs }

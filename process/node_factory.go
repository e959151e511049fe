package process

import (
	"github.com/dshills/bpmnflow/bpmn"
	"github.com/dshills/bpmnflow/flownode"
	"github.com/dshills/bpmnflow/flownode/endevent"
	"github.com/dshills/bpmnflow/flownode/exclusivegateway"
	"github.com/dshills/bpmnflow/flownode/intermediatethrow"
	"github.com/dshills/bpmnflow/flownode/servicetask"
	"github.com/dshills/bpmnflow/flownode/startevent"
)

// newFlowNode constructs the concrete flow node kind for elem. Living
// here, in process rather than flownode, is what keeps flownode free
// of a dependency on any concrete kind: flownode only knows the
// FlowNode contract, and only process (which already depends on every
// kind to build a runnable scheduler) needs to map a bpmn.Kind to a
// constructor.
func newFlowNode(elem *bpmn.Element) (flownode.FlowNode, bool) {
	switch elem.Kind {
	case bpmn.KindStartEvent:
		return startevent.New(elem), true
	case bpmn.KindEndEvent:
		return endevent.New(elem), true
	case bpmn.KindIntermediateThrowEvent:
		return intermediatethrow.New(elem), true
	case bpmn.KindExclusiveGateway:
		return exclusivegateway.New(elem), true
	case bpmn.KindServiceTask:
		return servicetask.New(elem, serviceTaskTool(elem)), true
	default:
		return nil, false
	}
}

// serviceTaskTool reads elem.Properties["tool"] for a caller-supplied
// servicetask.Tool (e.g. a test double), defaulting to an HTTPTool so
// a service task with no explicit tool configuration still does
// something sensible: make the HTTP call its input describes.
func serviceTaskTool(elem *bpmn.Element) servicetask.Tool {
	if t, ok := elem.Properties["tool"].(servicetask.Tool); ok {
		return t
	}
	return servicetask.NewHTTPTool(elem)
}

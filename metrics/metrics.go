// Package metrics exposes Prometheus instrumentation for a running
// process scheduler: how many flow nodes are live, how many turns the
// scheduler has taken, and how often nodes complete, runs go
// quiescent, guard expressions fail to evaluate, or service tasks fail.
// A guard that evaluates to false is not counted.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scheduler collects the counters and gauges one running process emits.
// All metrics are namespaced "bpmnflow_" and labeled by process_id so a
// single registry can track many concurrent runs.
type Scheduler struct {
	mu sync.RWMutex

	inflightNodes  *prometheus.GaugeVec
	turnsTotal     *prometheus.CounterVec
	completedTotal *prometheus.CounterVec
	doneTotal      *prometheus.CounterVec
	exprErrors     *prometheus.CounterVec
	serviceErrors  *prometheus.CounterVec

	enabled bool
}

// New registers scheduler metrics with registry. A nil registry uses
// prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Scheduler {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Scheduler{
		enabled: true,
		inflightNodes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "bpmnflow",
			Name:      "inflight_nodes",
			Help:      "Flow nodes currently live in a process run",
		}, []string{"process_id"}),
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bpmnflow",
			Name:      "scheduler_turns_total",
			Help:      "Readiness events the scheduler has drained from its fan-in channel",
		}, []string{"process_id"}),
		completedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bpmnflow",
			Name:      "flow_node_completed_total",
			Help:      "Flow nodes that have reported ActionComplete",
		}, []string{"process_id", "element_id"}),
		doneTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bpmnflow",
			Name:      "process_done_total",
			Help:      "Times a process run has gone quiescent with no live flow nodes",
		}, []string{"process_id"}),
		exprErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bpmnflow",
			Name:      "expression_errors_total",
			Help:      "Sequence flow guard expressions that failed to evaluate",
		}, []string{"process_id", "sequence_flow_id"}),
		serviceErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bpmnflow",
			Name:      "service_task_errors_total",
			Help:      "Service tasks whose tool call returned an error",
		}, []string{"process_id", "element_id"}),
	}
}

func (s *Scheduler) SetInflightNodes(processID string, n int) {
	if s == nil || !s.enabled {
		return
	}
	s.inflightNodes.WithLabelValues(processID).Set(float64(n))
}

func (s *Scheduler) IncTurn(processID string) {
	if s == nil || !s.enabled {
		return
	}
	s.turnsTotal.WithLabelValues(processID).Inc()
}

func (s *Scheduler) IncCompleted(processID, elementID string) {
	if s == nil || !s.enabled {
		return
	}
	s.completedTotal.WithLabelValues(processID, elementID).Inc()
}

func (s *Scheduler) IncDone(processID string) {
	if s == nil || !s.enabled {
		return
	}
	s.doneTotal.WithLabelValues(processID).Inc()
}

func (s *Scheduler) IncExpressionError(processID, sequenceFlowID string) {
	if s == nil || !s.enabled {
		return
	}
	s.exprErrors.WithLabelValues(processID, sequenceFlowID).Inc()
}

func (s *Scheduler) IncServiceTaskError(processID, elementID string) {
	if s == nil || !s.enabled {
		return
	}
	s.serviceErrors.WithLabelValues(processID, elementID).Inc()
}

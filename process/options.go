package process

import (
	"time"

	"github.com/dshills/bpmnflow/audit"
	"github.com/dshills/bpmnflow/bpmnevent"
	"github.com/dshills/bpmnflow/emit"
	"github.com/dshills/bpmnflow/expr"
	"github.com/dshills/bpmnflow/metrics"
)

// Option configures a Scheduler at construction.
type Option func(*schedulerConfig) error

type schedulerConfig struct {
	processID string
	logSinks  []emit.Sink[Log]
	evtSinks  []emit.Sink[bpmnevent.ProcessEvent]
	evaluator expr.Evaluator
	clock     func() time.Time
	metrics   *metrics.Scheduler
	audit     audit.Recorder
}

func defaultConfig() *schedulerConfig {
	return &schedulerConfig{
		processID: "",
		clock:     time.Now,
		audit:     audit.Null{},
	}
}

// WithProcessID labels every metric and audit entry this scheduler
// produces. Defaults to the empty string.
func WithProcessID(id string) Option {
	return func(cfg *schedulerConfig) error {
		cfg.processID = id
		return nil
	}
}

// WithLogSink attaches an emit.Sink[Log] that receives every Log entry
// the scheduler broadcasts, in addition to whatever subscribes to
// Handle.LogBus() directly.
func WithLogSink(sink emit.Sink[Log]) Option {
	return func(cfg *schedulerConfig) error {
		cfg.logSinks = append(cfg.logSinks, sink)
		return nil
	}
}

// WithEventSink attaches an emit.Sink[bpmnevent.ProcessEvent] that
// receives every event the process publishes.
func WithEventSink(sink emit.Sink[bpmnevent.ProcessEvent]) Option {
	return func(cfg *schedulerConfig) error {
		cfg.evtSinks = append(cfg.evtSinks, sink)
		return nil
	}
}

// WithEvaluator overrides the Handle's guard expression evaluator.
func WithEvaluator(evaluator expr.Evaluator) Option {
	return func(cfg *schedulerConfig) error {
		cfg.evaluator = evaluator
		return nil
	}
}

// WithClock overrides the scheduler's time source, for deterministic
// log timestamps in tests.
func WithClock(clock func() time.Time) Option {
	return func(cfg *schedulerConfig) error {
		cfg.clock = clock
		return nil
	}
}

// WithMetrics attaches a Prometheus metrics collector.
func WithMetrics(m *metrics.Scheduler) Option {
	return func(cfg *schedulerConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithAudit attaches a persisted audit trail recorder. Defaults to
// audit.Null{}, which discards everything.
func WithAudit(recorder audit.Recorder) Option {
	return func(cfg *schedulerConfig) error {
		cfg.audit = recorder
		return nil
	}
}

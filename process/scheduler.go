package process

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/bpmnflow/bpmn"
	"github.com/dshills/bpmnflow/bpmnevent"
	"github.com/dshills/bpmnflow/emit"
	"github.com/dshills/bpmnflow/flownode"
)

// nodeRecord is one live flow node: its runtime behavior, its current
// token count (maintained purely for observation, per flownode.FlowNode.
// Tokens), and the channel the scheduler uses to tell its goroutine
// "call Next again."
type nodeRecord struct {
	id     string
	node   flownode.FlowNode
	tokens int
	resume chan struct{}
}

// readyItem is what a node's goroutine reports back to the scheduler's
// fan-in loop each time its Next call returns.
type readyItem struct {
	id     string
	action flownode.Action
	ok     bool
}

// Scheduler is the cooperative event loop driving one process run. It
// is single-use: call Run exactly once.
type Scheduler struct {
	ctrl   <-chan Request
	handle *Handle
	cfg    *schedulerConfig

	nodes map[string]*nodeRecord
	ready chan readyItem

	seq int64

	mu           sync.Mutex
	running      bool
	done         bool
	joinedHandle any
}

// NewScheduler builds a Scheduler for handle's process, constructing a
// flow node for every recognized flow element (elements of an
// unrecognized bpmn.Kind are silently skipped). ctrl delivers
// control-plane requests (Start, JoinHandle, Terminate); Run drives the
// loop until ctx is
// cancelled or a TerminateRequest arrives.
func NewScheduler(ctrl <-chan Request, handle *Handle, opts ...Option) *Scheduler {
	cfg := defaultConfig()
	for _, opt := range opts {
		_ = opt(cfg) // an Option's error is discarded; none in this package returns one
	}
	if cfg.evaluator != nil {
		handle.evaluator = cfg.evaluator
	}

	s := &Scheduler{
		ctrl:   ctrl,
		handle: handle,
		cfg:    cfg,
		nodes:  make(map[string]*nodeRecord),
		ready:  make(chan readyItem, 64),
	}

	for _, elem := range handle.Element().FlowElements {
		node, ok := newFlowNode(elem)
		if !ok {
			continue
		}
		node.SetProcess(handle)
		s.nodes[elem.ID] = &nodeRecord{id: elem.ID, node: node, resume: make(chan struct{}, 1)}
	}

	return s
}

// Run drives the scheduler until ctx is cancelled or a TerminateRequest
// is received. It returns ctx.Err() on cancellation, nil on a clean
// TerminateRequest shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return ErrAlreadyTerminated
	}
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	if ctx.Err() != nil {
		s.mu.Unlock()
		return ErrAlreadyTerminated
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.done = true
		s.mu.Unlock()
	}()

	s.startSinkForwarders(ctx)
	s.watchServiceTaskErrors(ctx)

	for _, rec := range s.nodes {
		go s.pollNode(ctx, rec)
	}
	s.reportInflight()

	for {
		select {
		case req, okCh := <-s.ctrl:
			if !okCh {
				s.ctrl = nil // stop selecting a closed channel; avoids a busy spin
				continue
			}
			if stop := s.handleRequest(req); stop {
				return nil
			}
		case item := <-s.ready:
			s.handleReady(ctx, item)
			s.cfg.metrics.IncTurn(s.cfg.processID)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pollNode is the per-node goroutine: it calls Next exactly once, then
// blocks on resume before calling it again, so the scheduler's fan-in
// loop is the only thing that ever mutates node state (via Incoming,
// Tokens, SequenceFlow, HandleOutgoingAction) between Next calls.
func (s *Scheduler) pollNode(ctx context.Context, rec *nodeRecord) {
	for {
		action, ok := rec.node.Next(ctx)
		select {
		case s.ready <- readyItem{id: rec.id, action: action, ok: ok}:
		case <-ctx.Done():
			return
		}
		if !ok {
			return
		}
		select {
		case <-rec.resume:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleRequest(req Request) (stop bool) {
	switch r := req.(type) {
	case StartRequest:
		err := s.start()
		select {
		case r.Reply <- err:
		default:
		}
	case JoinHandleRequest:
		s.joinedHandle = r.Handle
	case TerminateRequest:
		select {
		case r.Reply <- s.joinedHandle:
		default:
		}
		return true
	}
	return false
}

func (s *Scheduler) start() error {
	if !s.handle.Element().HasStartEvent() {
		return ErrNoStartEvent
	}
	s.handle.Events().Publish(bpmnevent.Start{})
	return nil
}

// handleReady applies one node's reported Action, mirroring scheduler.
// rs's per-item match after its incoming-edge splice fold.
func (s *Scheduler) handleReady(ctx context.Context, item readyItem) {
	rec, live := s.nodes[item.id]
	if !live {
		return
	}

	if !item.ok {
		delete(s.nodes, item.id)
		s.reportInflight()
		if len(s.nodes) == 0 {
			s.publishLog(ctx, Done{})
			s.cfg.metrics.IncDone(s.cfg.processID)
		}
		return
	}

	action, keep := s.spliceFold(rec, item.action)
	if keep {
		s.applyAction(ctx, rec, action)
	}

	select {
	case rec.resume <- struct{}{}:
	default:
	}
}

// spliceFold folds the HandleOutgoingAction hooks of the emitting
// node's predecessors, walking the emitting node's own Incomings in
// order: for each, it finds whichever live node owns the matching
// outgoing sequence flow and gives that predecessor node a chance to
// transform or drop the action before it is applied. A dropped action
// stops the fold; an incoming with no live owner is skipped. This
// mirrors scheduler.rs's fold.
func (s *Scheduler) spliceFold(rec *nodeRecord, action flownode.Action) (flownode.Action, bool) {
	cur := action
	for _, incomingID := range rec.node.Element().Incomings {
		predecessor, outgoingIndex, found := s.findOwnerOfOutgoing(incomingID)
		if !found {
			continue
		}
		next, keep := predecessor.node.HandleOutgoingAction(outgoingIndex, cur)
		if !keep {
			return flownode.Action{}, false
		}
		cur = next
	}
	return cur, true
}

func (s *Scheduler) findOwnerOfOutgoing(sequenceFlowID string) (*nodeRecord, int, bool) {
	for _, rec := range s.nodes {
		for i, out := range rec.node.Element().Outgoings {
			if out == sequenceFlowID {
				return rec, i, true
			}
		}
	}
	return nil, 0, false
}

func (s *Scheduler) applyAction(ctx context.Context, rec *nodeRecord, action flownode.Action) {
	switch action.Kind {
	case flownode.ActionProbe:
		s.applyProbe(ctx, rec, action.Indices)
	case flownode.ActionFlow:
		s.applyFlow(ctx, rec, action.Indices)
	case flownode.ActionComplete:
		s.publishLog(ctx, FlowNodeCompleted{Node: rec.node.Element()})
		s.cfg.metrics.IncCompleted(s.cfg.processID, rec.id)
	case flownode.ActionNone:
		// A quiet turn: nothing to apply, node stays live.
	}
}

func (s *Scheduler) applyProbe(ctx context.Context, rec *nodeRecord, indices []int) {
	outgoings := rec.node.Element().Outgoings
	for _, index := range indices {
		if index < 0 || index >= len(outgoings) {
			continue
		}
		sf, found := s.handle.Element().FindSequenceFlow(outgoings[index])
		if !found {
			continue
		}
		rec.node.SequenceFlow(index, s.probeSequenceFlow(ctx, sf.ID, sf.Condition), sf.Condition != nil)
	}
}

// applyFlow's token-counting is intentionally flagged rather than
// 1-per-target: every successful target in one Flow action is credited
// len(indices) tokens, the size of the whole action's index list, not
// 1 per successful flow. See DESIGN.md's Open Question resolution on
// this exact quirk.
func (s *Scheduler) applyFlow(ctx context.Context, rec *nodeRecord, indices []int) {
	delta := len(indices)
	outgoings := rec.node.Element().Outgoings
	for _, index := range indices {
		if index < 0 || index >= len(outgoings) {
			continue
		}
		sf, found := s.handle.Element().FindSequenceFlow(outgoings[index])
		if !found {
			continue
		}
		if !s.probeSequenceFlow(ctx, sf.ID, sf.Condition) {
			continue
		}
		target, live := s.nodes[sf.TargetRef]
		if !live {
			continue
		}
		incomingIndex, found := indexOf(target.node.Element().Incomings, sf.ID)
		if !found {
			continue
		}
		s.publishLog(ctx, FlowNodeIncoming{Node: target.node.Element(), IncomingIndex: incomingIndex})
		target.tokens += delta
		target.node.Tokens(target.tokens)
		target.node.Incoming(incomingIndex)
	}
}

func indexOf(haystack []string, needle string) (int, bool) {
	for i, v := range haystack {
		if v == needle {
			return i, true
		}
	}
	return 0, false
}

func (s *Scheduler) probeSequenceFlow(ctx context.Context, sequenceFlowID string, condition *bpmn.FormalExpression) bool {
	if condition == nil {
		return true
	}
	language := condition.Language
	if language == "" {
		language = s.handle.DefaultLanguage()
	}
	ok, err := s.handle.Evaluator().Eval(language, condition.Content, s.handle.Vars().Env())
	if err != nil {
		s.publishLog(ctx, ExpressionError{SequenceFlowID: sequenceFlowID, Error: err.Error()})
		s.cfg.metrics.IncExpressionError(s.cfg.processID, sequenceFlowID)
		return false
	}
	return ok
}

func (s *Scheduler) publishLog(ctx context.Context, entry Log) {
	entry = stampLog(entry, s.cfg.clock())
	s.handle.LogBus().Publish(entry)
	if payload, err := json.Marshal(entry); err == nil {
		seq := int(atomic.AddInt64(&s.seq, 1))
		_ = s.cfg.audit.Append(ctx, s.cfg.processID, seq, logKind(entry), payload)
	}
}

// stampLog fills in entry's At field with the scheduler's configured
// clock reading (time.Now by default, overridable via WithClock for
// deterministic timestamps in tests). Every Log variant carries At,
// so this is the single point where the clock's output lands.
func stampLog(entry Log, at time.Time) Log {
	switch e := entry.(type) {
	case FlowNodeIncoming:
		e.At = at
		return e
	case FlowNodeCompleted:
		e.At = at
		return e
	case ExpressionError:
		e.At = at
		return e
	case ServiceTaskError:
		e.At = at
		return e
	case Done:
		e.At = at
		return e
	default:
		return entry
	}
}

func logKind(entry Log) string {
	switch entry.(type) {
	case FlowNodeIncoming:
		return "flow_node_incoming"
	case FlowNodeCompleted:
		return "flow_node_completed"
	case ExpressionError:
		return "expression_error"
	case ServiceTaskError:
		return "service_task_error"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// watchServiceTaskErrors subscribes to the process event bus and turns
// a service task's bpmnevent.Error (published by flownode/servicetask
// on a failed Tool call, tagged "serviceTask:<elementID>") into a
// logged ServiceTaskError entry plus a metrics counter bump. A Service
// Task has no other way to reach process.Log: flownode cannot import
// process without an import cycle, so the event bus is the only
// channel it has to report failure, and this goroutine is the
// translation point.
func (s *Scheduler) watchServiceTaskErrors(ctx context.Context) {
	const prefix = "serviceTask:"
	sub := s.handle.Events().Subscribe(32)
	go func() {
		for {
			select {
			case ev, ok := <-sub.C:
				if !ok {
					return
				}
				errEvt, isError := ev.(bpmnevent.Error)
				if !isError || len(errEvt.ErrorRef) <= len(prefix) || errEvt.ErrorRef[:len(prefix)] != prefix {
					continue
				}
				elementID := errEvt.ErrorRef[len(prefix):]
				elem, found := s.handle.Element().FindElement(elementID)
				if !found {
					continue
				}
				s.publishLog(ctx, ServiceTaskError{Node: elem, Error: errEvt.ErrorRef})
				s.cfg.metrics.IncServiceTaskError(s.cfg.processID, elementID)
			case <-ctx.Done():
				sub.Close()
				return
			}
		}
	}()
}

func (s *Scheduler) reportInflight() {
	s.cfg.metrics.SetInflightNodes(s.cfg.processID, len(s.nodes))
}

func (s *Scheduler) startSinkForwarders(ctx context.Context) {
	for _, sink := range s.cfg.logSinks {
		sub := s.handle.LogBus().Subscribe(32)
		go forward[Log](ctx, sub.C, sink)
	}
	for _, sink := range s.cfg.evtSinks {
		sub := s.handle.Events().Subscribe(32)
		go forward[bpmnevent.ProcessEvent](ctx, sub.C, sink)
	}
}

func forward[T any](ctx context.Context, c <-chan T, sink emit.Sink[T]) {
	for {
		select {
		case v, ok := <-c:
			if !ok {
				return
			}
			sink.Emit(v)
		case <-ctx.Done():
			return
		}
	}
}

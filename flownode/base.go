package flownode

import "sync/atomic"

// TokenCounter is a small embeddable atomic counter implementing
// FlowNode.Tokens, shared by every node kind: the scheduler's Flow
// handling writes a running total here, purely for observation — it
// never drives node behavior by itself, and no GetState snapshot
// includes it.
type TokenCounter struct {
	n int64
}

// Tokens implements FlowNode.Tokens.
func (t *TokenCounter) Tokens(n int) { atomic.StoreInt64(&t.n, int64(n)) }

// Get returns the current token count.
func (t *TokenCounter) Get() int { return int(atomic.LoadInt64(&t.n)) }

// NoopSequenceFlow implements FlowNode.SequenceFlow for node kinds that
// never issue ActionProbe and so never need to collect guard results.
type NoopSequenceFlow struct{}

func (NoopSequenceFlow) SequenceFlow(index int, success bool, hasGuard bool) {}

// PassthroughSplice implements FlowNode.HandleOutgoingAction for node
// kinds that never intercept a successor's action: the action passes
// through unchanged. Every flow node kind in this module uses it except
// ones that specifically need to splice (e.g. synchronizing/join
// gateways), none of which are in scope for this module (see
// SPEC_FULL.md's Non-goals on multi-instance activities).
type PassthroughSplice struct{}

func (PassthroughSplice) HandleOutgoingAction(outgoingIndex int, action Action) (Action, bool) {
	return action, true
}

// Package audit persists a running process's scheduler log and
// published process events to a relational database, purely for
// after-the-fact inspection. It is the observational remainder of the
// checkpoint/replay machinery a workflow engine would otherwise carry:
// this module's scheduler never reads its own audit trail back to make
// a scheduling decision, and Recorder has no load/resume methods.
package audit

import "context"

// Recorder appends one entry at a time to an audit trail keyed by
// process ID and a caller-assigned monotonically increasing sequence
// number. kind distinguishes what produced the entry (e.g.
// "scheduler_log", "process_event"); payload is that entry's JSON
// encoding.
type Recorder interface {
	Append(ctx context.Context, processID string, seq int, kind string, payload []byte) error
	Close() error
}

// Null discards every entry. The Scheduler's default when no audit
// backend is configured.
type Null struct{}

func (Null) Append(context.Context, string, int, string, []byte) error { return nil }

func (Null) Close() error { return nil }

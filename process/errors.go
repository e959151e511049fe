package process

import "errors"

// ErrNoStartEvent is returned by a StartRequest when the process model
// has no start event to arm.
var ErrNoStartEvent = errors.New("process: no start event in process model")

// ErrAlreadyRunning is returned by Run if called while another Run call
// on the same Scheduler is still in progress.
var ErrAlreadyRunning = errors.New("process: scheduler already running")

// ErrAlreadyTerminated is returned by Run if a previous Run call on the
// same Scheduler has already returned, or if ctx was already done
// before Run was called.
var ErrAlreadyTerminated = errors.New("process: scheduler already terminated")

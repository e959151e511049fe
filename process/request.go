package process

// Request is a control-plane message sent to a running Scheduler over
// the channel passed to NewScheduler.
type Request interface {
	isRequest()
}

// StartRequest asks the scheduler to broadcast bpmnevent.Start and
// arm every start event, failing with ErrNoStartEvent if the process
// model has none. Reply receives nil on success.
type StartRequest struct {
	Reply chan error
}

func (StartRequest) isRequest() {}

// JoinHandleRequest stashes an opaque handle with the scheduler, to be
// handed back exactly once on a later TerminateRequest's Reply. The
// scheduler never inspects Handle; it is pure caller-supplied state
// (e.g. a handle the caller wants returned to whoever eventually joins
// the run), stashed and relayed verbatim.
type JoinHandleRequest struct {
	Handle any
}

func (JoinHandleRequest) isRequest() {}

// TerminateRequest asks the scheduler to stop its run loop. Reply
// receives the handle stashed by the most recent JoinHandleRequest (nil
// if none was ever sent), delivered exactly once, then the scheduler
// returns from Run.
type TerminateRequest struct {
	Reply chan any
}

func (TerminateRequest) isRequest() {}

// Package task models asynchronous, cancellable units of work and the
// queue that tracks them.
//
// A Task is one tracked invocation of a request handler: it carries an
// identifying dedup key, a status (pending, fulfilled or rejected), and a
// cancellation scope. The Queue guarantees at most one pending task per
// key: starting a new task under a key cancels the prior one before the
// new one begins, so rapid repeated requests (two quick seeks) cannot
// complete out of order and clobber state. A task may additionally declare
// keys it cancels when starting, or the CancelAll sentinel to abort every
// pending task.
//
// Cancellation is cooperative: the superseded task settles rejected with
// ErrTaskCanceled immediately and its context is canceled; a handler that
// does not observe its context runs to completion but its result is
// discarded.
//
// The queue is an observable: subscribers are notified on every task
// transition, which is how UI layers render in-flight request status
// (spinners on a seek bar, disabled buttons during a source switch).
package task

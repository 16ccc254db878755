package task

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/c360/playkit/errors"
)

// Status represents the lifecycle state of a task
type Status int

const (
	// StatusPending indicates the task's handler has not settled yet
	StatusPending Status = iota
	// StatusFulfilled indicates the handler completed with a result
	StatusFulfilled
	// StatusRejected indicates the handler failed or the task was canceled
	StatusRejected
)

// String returns a string representation of the task status
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFulfilled:
		return "fulfilled"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// CancelAll is the sentinel cancellation group: a request declaring it in
// Cancels aborts every pending task when it starts.
const CancelAll = "*"

// Task is one tracked invocation of a request handler. All methods are
// safe for concurrent use. A task settles exactly once; late handler
// results after cancellation are discarded.
type Task struct {
	id      uuid.UUID
	name    string
	key     string
	started time.Time

	cancel context.CancelFunc
	hook   func(*Task) // invoked exactly once, after settlement

	mu     sync.Mutex
	status Status
	result any
	err    error
	done   chan struct{}
}

// newTask creates a pending task. hook is invoked exactly once when the
// task settles, regardless of which path settled it.
func newTask(name, key string, cancel context.CancelFunc, hook func(*Task)) *Task {
	return &Task{
		id:      uuid.New(),
		name:    name,
		key:     key,
		started: time.Now(),
		cancel:  cancel,
		hook:    hook,
		done:    make(chan struct{}),
	}
}

// Rejected creates an already-settled rejected task. The store uses this
// for usage errors (request with no attached target) so callers always
// receive a task rather than a synchronous panic.
func Rejected(name string, err error) *Task {
	t := &Task{
		id:      uuid.New(),
		name:    name,
		key:     name,
		started: time.Now(),
		cancel:  func() {},
		status:  StatusRejected,
		err:     err,
		done:    make(chan struct{}),
	}
	close(t.done)
	return t
}

// ID returns the task's unique identifier
func (t *Task) ID() uuid.UUID { return t.id }

// Name returns the request name that started this task
func (t *Task) Name() string { return t.name }

// Key returns the dedup/cancellation key
func (t *Task) Key() string { return t.key }

// StartedAt returns when the task was started
func (t *Task) StartedAt() time.Time { return t.started }

// Status returns the current lifecycle status
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Done returns a channel closed when the task settles
func (t *Task) Done() <-chan struct{} { return t.done }

// Result returns the settled result and error. While the task is pending
// both return values are zero; select on Done or use Wait to block.
func (t *Task) Result() (any, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result, t.err
}

// Wait blocks until the task settles or ctx is done, returning the
// settled result/error or ctx's error.
func (t *Task) Wait(ctx context.Context) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return t.Result()
	}
}

// Cancel settles the task rejected with ErrTaskCanceled and cancels its
// context. Canceling a settled task only cancels the context, which is a
// no-op for a finished handler.
func (t *Task) Cancel() {
	t.reject(errors.ErrTaskCanceled)
	t.cancel()
}

// fulfill settles the task with a result. Returns false if the task was
// already settled, in which case the result is discarded.
//
// The settlement hook runs before the done channel closes, so queue
// bookkeeping and subscriber notification are complete by the time Wait
// returns. Hooks and subscribers therefore must not block on the task's
// own Done channel.
func (t *Task) fulfill(result any) bool {
	t.mu.Lock()
	if t.status != StatusPending {
		t.mu.Unlock()
		return false
	}
	t.status = StatusFulfilled
	t.result = result
	t.mu.Unlock()

	if t.hook != nil {
		t.hook(t)
	}
	close(t.done)
	return true
}

// reject settles the task with an error. Returns false if the task was
// already settled. See fulfill for hook ordering.
func (t *Task) reject(err error) bool {
	t.mu.Lock()
	if t.status != StatusPending {
		t.mu.Unlock()
		return false
	}
	t.status = StatusRejected
	t.err = err
	t.mu.Unlock()

	if t.hook != nil {
		t.hook(t)
	}
	close(t.done)
	return true
}

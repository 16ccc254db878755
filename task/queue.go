package task

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/c360/playkit/errors"
	"github.com/c360/playkit/metric"
	"github.com/c360/playkit/pkg/retry"
)

// Spec declares one task start
type Spec struct {
	// Name is the request name, used for observability. Required.
	Name string
	// Key is the dedup key; defaults to Name
	Key string
	// Cancels lists keys whose pending tasks are canceled before this
	// one starts; CancelAll cancels every pending task
	Cancels []string
	// Retry, when set, wraps Run with exponential backoff for
	// transient failures
	Retry *retry.Policy
	// Run executes the work. Required. It must observe ctx to support
	// cooperative cancellation.
	Run func(ctx context.Context) (any, error)
}

// Subscriber is notified with the task on every lifecycle transition:
// once when it starts pending and once when it settles.
type Subscriber func(*Task)

// Queue tracks in-flight tasks, enforcing at most one pending task per
// dedup key and applying cancellation groups, rate limits and retry
// policies. A Queue is safe for concurrent use.
type Queue struct {
	logger  *slog.Logger
	limiter *rate.Limiter
	metrics *metric.Metrics

	mu      sync.Mutex
	active  map[string]*Task
	subs    map[int]Subscriber
	nextSub int
	closed  bool
}

// Option represents a configuration option for the queue
type Option func(*Queue)

// WithLogger sets the logger used for task lifecycle events
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

// WithMetrics registers task metrics with the given registry
func WithMetrics(registry *metric.Registry) Option {
	return func(q *Queue) {
		if registry != nil {
			q.metrics = registry.Metrics
		}
	}
}

// WithRateLimit applies backpressure: task starts beyond the rate are
// rejected immediately with ErrRateLimited rather than queued, keeping a
// runaway caller (a scrubbing gesture emitting hundreds of seeks) from
// flooding the target.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(q *Queue) {
		q.limiter = rate.NewLimiter(limit, burst)
	}
}

// NewQueue creates an empty task queue
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		logger: slog.Default(),
		active: make(map[string]*Task),
		subs:   make(map[int]Subscriber),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Start begins a new task. The prior pending task under the same key, and
// any pending tasks named by spec.Cancels, are canceled first. The
// returned task is already settled rejected when the queue is closed, the
// rate limit is exceeded, or the spec is invalid.
func (q *Queue) Start(parent context.Context, spec Spec) *Task {
	if spec.Name == "" || spec.Run == nil {
		return Rejected(spec.Name, errors.WrapInvalid(errors.ErrInvalidConfig, "Queue", "Start", "spec validation"))
	}
	if spec.Key == "" {
		spec.Key = spec.Name
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return Rejected(spec.Name, errors.ErrQueueClosed)
	}
	if q.limiter != nil && !q.limiter.Allow() {
		q.mu.Unlock()
		if q.metrics != nil {
			q.metrics.RecordTaskCanceled(spec.Name)
		}
		return Rejected(spec.Name, errors.ErrRateLimited)
	}

	// Collect tasks to cancel: group members first, then the dedup
	// predecessor. Removal happens under the lock, settlement after.
	var superseded []*Task
	for _, key := range spec.Cancels {
		if key == CancelAll {
			for k, t := range q.active {
				superseded = append(superseded, t)
				delete(q.active, k)
			}
			break
		}
		if t, ok := q.active[key]; ok {
			superseded = append(superseded, t)
			delete(q.active, key)
		}
	}
	if t, ok := q.active[spec.Key]; ok {
		superseded = append(superseded, t)
		delete(q.active, spec.Key)
	}

	ctx, cancel := context.WithCancel(parent)
	t := newTask(spec.Name, spec.Key, cancel, q.onSettle)
	q.active[spec.Key] = t
	q.mu.Unlock()

	// Prior tasks settle (and notify) before the new task is announced
	for _, prior := range superseded {
		if q.metrics != nil {
			q.metrics.RecordTaskCanceled(prior.name)
		}
		q.logger.Debug("task superseded", "request", prior.name, "key", prior.key, "by", spec.Name)
		prior.Cancel()
	}

	if q.metrics != nil {
		q.metrics.RecordTaskStarted(spec.Name)
	}
	q.notify(t)

	go q.run(ctx, t, spec)
	return t
}

// run executes the task body and settles the task
func (q *Queue) run(ctx context.Context, t *Task, spec Spec) {
	var result any
	var err error

	if spec.Retry != nil {
		result, err = retry.DoWithResult(ctx, *spec.Retry, func() (any, error) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, retry.NonRetryable(ctxErr)
			}
			return spec.Run(ctx)
		})
	} else {
		result, err = spec.Run(ctx)
	}

	if err != nil {
		// A handler surfacing its canceled context settles under the
		// same sentinel an explicit Cancel uses
		if ctx.Err() != nil && errors.IsCanceled(err) && !stderrors.Is(err, errors.ErrTaskCanceled) {
			err = fmt.Errorf("%w: %w", errors.ErrTaskCanceled, err)
		}
		if t.reject(err) && !errors.IsCanceled(err) {
			q.logger.Debug("task rejected", "request", t.name, "key", t.key, "error", err)
		}
		return
	}
	// A settled (canceled) task discards the late result here
	t.fulfill(result)
}

// onSettle is the single settlement hook: bookkeeping and notification
// for every path a task can settle through.
func (q *Queue) onSettle(t *Task) {
	q.mu.Lock()
	if q.active[t.key] == t {
		delete(q.active, t.key)
	}
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.RecordTaskSettled(t.name, t.Status().String(), time.Since(t.started))
	}
	q.notify(t)
}

// notify delivers the task to all subscribers registered at call time
func (q *Queue) notify(t *Task) {
	q.mu.Lock()
	fns := make([]Subscriber, 0, len(q.subs))
	for _, fn := range q.subs {
		fns = append(fns, fn)
	}
	q.mu.Unlock()

	for _, fn := range fns {
		fn(t)
	}
}

// Subscribe registers a task lifecycle subscriber and returns a removal
// function.
func (q *Queue) Subscribe(fn Subscriber) func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.subs, id)
	}
}

// Tasks returns a read-only snapshot of the pending tasks
func (q *Queue) Tasks() []*Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	tasks := make([]*Task, 0, len(q.active))
	for _, t := range q.active {
		tasks = append(tasks, t)
	}
	return tasks
}

// Len returns the number of pending tasks
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}

// Cancel cancels the pending task under the given key, if any.
// Returns whether a task was canceled.
func (q *Queue) Cancel(key string) bool {
	q.mu.Lock()
	t, ok := q.active[key]
	if ok {
		delete(q.active, key)
	}
	q.mu.Unlock()

	if !ok {
		return false
	}
	if q.metrics != nil {
		q.metrics.RecordTaskCanceled(t.name)
	}
	t.Cancel()
	return true
}

// CancelAllTasks cancels every pending task. The store calls this on
// detach so in-flight work from a detached target cannot leak stale
// updates into a reused store.
func (q *Queue) CancelAllTasks() int {
	q.mu.Lock()
	pending := make([]*Task, 0, len(q.active))
	for k, t := range q.active {
		pending = append(pending, t)
		delete(q.active, k)
	}
	q.mu.Unlock()

	for _, t := range pending {
		if q.metrics != nil {
			q.metrics.RecordTaskCanceled(t.name)
		}
		t.Cancel()
	}
	return len(pending)
}

// Close cancels all pending tasks and rejects future starts
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.CancelAllTasks()
}

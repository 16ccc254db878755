package store

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/c360/playkit/errors"
	"github.com/c360/playkit/feature"
	"github.com/c360/playkit/health"
	"github.com/c360/playkit/metric"
	"github.com/c360/playkit/task"
)

// DetachFunc undoes one attachment: it cancels the attach scope, settles
// in-flight tasks as rejected, and resets state to the descriptor's
// initial state. Calling it after the attachment was already replaced or
// detached is a no-op.
type DetachFunc func()

// Subscriber is invoked with the full new state on every notification
// pass. It is an alias so a Store satisfies selector.Source directly.
type Subscriber = func(feature.State)

// Store is the single authoritative state container bound to at most one
// target at a time. All methods are safe for concurrent use.
type Store[T comparable] struct {
	descriptor *feature.Feature[T]
	queue      *task.Queue
	healthMon  *health.Monitor
	logger     *slog.Logger
	onError    func(error)
	metrics    *metric.Metrics

	mu         sync.Mutex
	attached   bool
	target     T
	gen        int // attachment generation; stale updates check it
	attachCtx  context.Context
	attachStop context.CancelFunc
	state      feature.State
	subs       map[int]Subscriber
	nextSub    int
}

// New creates a store for the given composed descriptor
func New[T comparable](descriptor *feature.Feature[T], opts ...Option[T]) (*Store[T], error) {
	if descriptor == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "New", "descriptor validation")
	}

	s := &Store[T]{
		descriptor: descriptor,
		healthMon:  health.NewMonitor(),
		logger:     slog.Default(),
		state:      descriptor.InitialState(),
		subs:       make(map[int]Subscriber),
	}

	var queueOpts []task.Option
	for _, opt := range opts {
		queueOpts = append(queueOpts, opt(s)...)
	}

	queueOpts = append(queueOpts, task.WithLogger(s.logger))
	s.queue = task.NewQueue(queueOpts...)

	if s.onError == nil {
		logger := s.logger
		s.onError = func(err error) {
			logger.Error("store error", "error", err)
		}
	}

	return s, nil
}

// Name returns the composed descriptor's name
func (s *Store[T]) Name() string {
	return s.descriptor.Name()
}

// Attach binds the store to a target and returns the matching detach
// function. Any previously attached target is torn down first, so at
// most one live subscription set exists per store. Attaching the target
// that is already attached is a no-op returning the current detach
// function.
func (s *Store[T]) Attach(target T) DetachFunc {
	s.mu.Lock()
	// Tear down any prior attachment first. Its tasks are settled with
	// the mutex released, so the cancellation sweep cannot catch tasks
	// started under the attachment being installed here.
	for s.attached {
		if s.target == target {
			gen := s.gen
			s.mu.Unlock()
			return func() { s.detachGen(gen) }
		}
		s.teardownLocked()
		s.mu.Unlock()
		s.queue.CancelAllTasks()
		s.mu.Lock()
	}

	s.gen++
	gen := s.gen
	ctx, stop := context.WithCancel(context.Background())
	s.attached = true
	s.target = target
	s.attachCtx = ctx
	s.attachStop = stop

	start := time.Now()
	snap := s.descriptor.Snapshot(target)
	s.state = snap
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordSnapshotDuration(time.Since(start))
		s.metrics.RecordAttached(true)
	}

	s.logger.Debug("target attached", "store", s.Name(), "generation", gen)
	s.deliver(subs, snap)
	s.subscribeMembers(ctx, gen, target)

	return func() { s.detachGen(gen) }
}

// Detach tears down the current attachment, if any
func (s *Store[T]) Detach() {
	s.mu.Lock()
	gen := s.gen
	attached := s.attached
	s.mu.Unlock()

	if attached {
		s.detachGen(gen)
	}
}

// detachGen detaches only if the given generation is still current,
// making stale detach functions harmless.
func (s *Store[T]) detachGen(gen int) {
	s.mu.Lock()
	if !s.attached || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.teardownLocked()
	s.state = s.descriptor.InitialState()
	snap := s.state
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.queue.CancelAllTasks()
	if s.metrics != nil {
		s.metrics.RecordAttached(false)
	}

	s.logger.Debug("target detached", "store", s.Name(), "generation", gen)
	s.deliver(subs, snap)
}

// teardownLocked cancels the attach scope and clears target bookkeeping.
// Callers must hold s.mu and must settle queue tasks after releasing it.
func (s *Store[T]) teardownLocked() {
	if s.attachStop != nil {
		s.attachStop()
	}
	s.attached = false
	s.attachCtx = nil
	s.attachStop = nil
	var zero T
	s.target = zero
	s.healthMon.Clear()
}

// subscribeMembers runs each member feature's subscribe, isolating
// failures so one faulty feature (an unsupported platform API) does not
// keep the rest of the player from attaching.
func (s *Store[T]) subscribeMembers(ctx context.Context, gen int, target T) {
	update := func() { s.update(gen) }

	for _, m := range s.descriptor.Members() {
		err := s.subscribeMember(m, ctx, target, update)
		if err != nil {
			s.reportError(errors.Wrap(err, "Store", "Attach", "feature '"+m.Name()+"' subscribe"))
			s.healthMon.UpdateDegraded(m.Name(), err.Error())
			if s.metrics != nil {
				s.metrics.RecordFeatureHealth(m.Name(), false)
			}
			continue
		}
		s.healthMon.UpdateHealthy(m.Name(), "subscribed")
		if s.metrics != nil {
			s.metrics.RecordFeatureHealth(m.Name(), true)
		}
	}
}

// subscribeMember converts a panicking subscribe into an error so the
// isolation guarantee holds for both failure modes.
func (s *Store[T]) subscribeMember(m *feature.Feature[T], ctx context.Context, target T, update func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscribe panic: %v", r)
		}
	}()
	return m.Subscribe(ctx, target, update)
}

// update recomputes the snapshot and notifies subscribers. It is the
// single write path for state: request handlers mutate the target, the
// target emits, and the emission lands here. Updates from a superseded
// attachment are dropped.
func (s *Store[T]) update(gen int) {
	s.mu.Lock()
	if !s.attached || s.gen != gen {
		s.mu.Unlock()
		return
	}

	start := time.Now()
	snap := s.descriptor.Snapshot(s.target)
	s.state = snap
	subs := s.subscribersLocked()
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordSnapshotDuration(time.Since(start))
	}
	s.deliver(subs, snap)
}

// deliver notifies subscribers in registration order, outside the store
// lock so callbacks may freely use the store.
func (s *Store[T]) deliver(subs []Subscriber, snap feature.State) {
	if s.metrics != nil {
		s.metrics.RecordNotification()
	}
	for _, fn := range subs {
		fn(snap)
	}
}

// subscribersLocked snapshots the subscriber set in registration order
func (s *Store[T]) subscribersLocked() []Subscriber {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	// Registration ids are monotonically increasing
	sort.Ints(ids)
	out := make([]Subscriber, len(ids))
	for i, id := range ids {
		out[i] = s.subs[id]
	}
	return out
}

// Subscribe registers a state subscriber and returns its removal
// function. Unsubscribing during a notification pass is safe; the pass
// runs over the subscriber set captured when it started.
func (s *Store[T]) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	count := len(s.subs)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordSubscriberCount(count)
	}

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		count := len(s.subs)
		s.mu.Unlock()
		if s.metrics != nil {
			s.metrics.RecordSubscriberCount(count)
		}
	}
}

// State returns the current snapshot. A fresh State is produced on every
// change, so the returned map is stable; consumers must not mutate it.
func (s *Store[T]) State() feature.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Attached reports whether a target is currently attached
func (s *Store[T]) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// Do dispatches the named request with the given input, returning the
// tracking task. With no target attached, or an unknown request name,
// the returned task is already rejected.
func (s *Store[T]) Do(name string, input any) *task.Task {
	s.mu.Lock()
	if !s.attached {
		s.mu.Unlock()
		err := errors.Wrap(errors.ErrNotAttached, "Store", "Do", "request '"+name+"'")
		s.reportError(err)
		return task.Rejected(name, err)
	}
	req, ok := s.descriptor.Requests()[name]
	if !ok {
		s.mu.Unlock()
		err := errors.WrapInvalid(fmt.Errorf("%w: '%s'", errors.ErrUnknownRequest, name), "Store", "Do", "request lookup")
		s.reportError(err)
		return task.Rejected(name, err)
	}
	target := s.target
	ctx := s.attachCtx
	s.mu.Unlock()

	rc := feature.RequestContext[T]{
		Target: target,
		Input:  input,
		Dispatch: func(followUp string, followInput any) {
			s.Do(followUp, followInput)
		},
	}

	return s.queue.Start(ctx, task.Spec{
		Name:    name,
		Key:     req.Key,
		Cancels: req.Cancels,
		Retry:   req.Retry,
		Run: func(runCtx context.Context) (any, error) {
			result, err := req.Handler(runCtx, rc)
			if err != nil && !errors.IsCanceled(err) {
				s.reportError(errors.Wrap(err, "Store", "Do", "request '"+name+"'"))
			}
			return result, err
		},
	})
}

// DoWait dispatches the named request and blocks until it settles or ctx
// is done.
func (s *Store[T]) DoWait(ctx context.Context, name string, input any) (any, error) {
	return s.Do(name, input).Wait(ctx)
}

// Queue exposes the task queue for in-flight status rendering
func (s *Store[T]) Queue() *task.Queue {
	return s.queue
}

// Health exposes the per-feature health monitor for the current
// attachment.
func (s *Store[T]) Health() *health.Monitor {
	return s.healthMon
}

// reportError routes an error to the configured hook. The hook must not
// panic; errors here are observability, not control flow.
func (s *Store[T]) reportError(err error) {
	if err == nil {
		return
	}
	s.onError(err)
}

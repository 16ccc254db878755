package feature

import (
	"context"

	"github.com/google/uuid"

	"github.com/c360/playkit/errors"
	"github.com/c360/playkit/pkg/retry"
)

// SnapshotFunc derives the current state from a live target. It must be
// pure: same target properties, same state, and the returned key set must
// equal the descriptor's InitialState key set.
type SnapshotFunc[T any] func(target T) State

// SubscribeFunc registers listeners on the target that call update()
// whenever a relevant target event fires. All registrations must be undone
// when ctx is done; context.AfterFunc pairs naturally with the removal
// functions targets return.
type SubscribeFunc[T any] func(ctx context.Context, target T, update func()) error

// RequestContext carries the bound environment into a request handler
type RequestContext[T any] struct {
	// Target is the currently attached target
	Target T
	// Input is the caller-supplied request input, may be nil
	Input any
	// Dispatch schedules a follow-up request on the same store. The
	// follow-up runs as its own task with its own dedup key.
	Dispatch func(name string, input any)
}

// Handler executes one request invocation. ctx is canceled when the task
// is superseded under its dedup key, explicitly canceled, or the store
// detaches; handlers are expected to observe it before mutating the
// target. A handler that does not observe cancellation runs to completion
// but its result is discarded.
type Handler[T any] func(ctx context.Context, rc RequestContext[T]) (any, error)

// Request declares one named action a feature exposes on the store
type Request[T any] struct {
	// Handler executes the request. Required.
	Handler Handler[T]
	// Key is the de-duplication and cancellation group key. Starting a
	// request cancels any pending task under the same key, so at most
	// one is in flight per key. Defaults to the request name.
	Key string
	// Cancels lists other keys whose pending tasks are canceled when
	// this request starts. The task.CancelAll sentinel cancels every
	// pending task.
	Cancels []string
	// Retry, when set, retries transient handler failures with backoff
	// while the task stays pending.
	Retry *retry.Policy
}

// Config declares a feature descriptor
type Config[T any] struct {
	// Name identifies the feature in logs, health and errors. Required.
	Name string
	// InitialState is the state contributed before any target attaches
	InitialState State
	// Snapshot derives current state from a live target. When nil the
	// feature always contributes its InitialState.
	Snapshot SnapshotFunc[T]
	// Subscribe wires target events to snapshot refresh. Optional for
	// features whose state never changes after attach.
	Subscribe SubscribeFunc[T]
	// Requests maps action name to handler
	Requests map[string]Request[T]
}

// Feature is an immutable descriptor produced by New or Combine. Each
// descriptor carries a unique identity token so accidental duplicate
// registration is detectable at Combine time.
type Feature[T any] struct {
	id        uuid.UUID
	name      string
	initial   State
	snapshot  SnapshotFunc[T]
	subscribe SubscribeFunc[T]
	requests  map[string]Request[T]
	members   []*Feature[T] // non-nil only for combined descriptors
}

// New validates cfg and returns an immutable feature descriptor
func New[T any](cfg Config[T]) (*Feature[T], error) {
	if cfg.Name == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Feature", "New", "name validation")
	}

	requests := make(map[string]Request[T], len(cfg.Requests))
	for name, req := range cfg.Requests {
		if name == "" {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Feature", "New", "request name validation")
		}
		if req.Handler == nil {
			return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Feature", "New",
				"request '"+name+"' handler validation")
		}
		if req.Key == "" {
			req.Key = name
		}
		requests[name] = req
	}

	initial := cfg.InitialState.Clone()

	return &Feature[T]{
		id:        uuid.New(),
		name:      cfg.Name,
		initial:   initial,
		snapshot:  cfg.Snapshot,
		subscribe: cfg.Subscribe,
		requests:  requests,
	}, nil
}

// MustNew is New for statically declared features, panicking on invalid
// config. Reference feature constructors use it the way package-level
// regexp.MustCompile is used.
func MustNew[T any](cfg Config[T]) *Feature[T] {
	f, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return f
}

// ID returns the descriptor's unique identity token
func (f *Feature[T]) ID() uuid.UUID {
	return f.id
}

// Name returns the feature name
func (f *Feature[T]) Name() string {
	return f.name
}

// InitialState returns a copy of the state contributed before any target
// is attached. For combined descriptors this is the member union.
func (f *Feature[T]) InitialState() State {
	return f.initial.Clone()
}

// Snapshot derives the current state from the target. For combined
// descriptors member snapshots are merged in member order, later members
// winning on key collision.
func (f *Feature[T]) Snapshot(target T) State {
	if len(f.members) == 0 {
		if f.snapshot == nil {
			return f.initial.Clone()
		}
		return f.snapshot(target)
	}
	out := make(State, len(f.initial))
	for _, m := range f.members {
		out.Merge(m.Snapshot(target))
	}
	return out
}

// Subscribe runs the descriptor's subscription function. Leaf descriptors
// only; the store iterates Members and subscribes each one so member
// failures stay isolated.
func (f *Feature[T]) Subscribe(ctx context.Context, target T, update func()) error {
	if f.subscribe == nil {
		return nil
	}
	return f.subscribe(ctx, target, update)
}

// Requests returns the request map. The returned map is shared; callers
// must not mutate it.
func (f *Feature[T]) Requests() map[string]Request[T] {
	return f.requests
}

// Members returns the leaf descriptors this descriptor is composed of.
// A leaf descriptor is its own single member.
func (f *Feature[T]) Members() []*Feature[T] {
	if len(f.members) == 0 {
		return []*Feature[T]{f}
	}
	return f.members
}

// CheckShape verifies the descriptor shape invariant against a live
// target: Snapshot's key set must equal InitialState's key set.
func (f *Feature[T]) CheckShape(target T) error {
	if !SameShape(f.initial, f.Snapshot(target)) {
		return errors.WrapInvalid(errors.ErrShapeMismatch, "Feature", "CheckShape", f.name)
	}
	return nil
}

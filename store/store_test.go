package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/playkit/errors"
	"github.com/c360/playkit/feature"
	"github.com/c360/playkit/health"
	"github.com/c360/playkit/target"
	"github.com/c360/playkit/task"
)

// deck is the test target: a couple of observable playback properties
// behind an event hub, the way a real media element behaves. Transport
// and timeline changes emit distinct events, so each feature listens
// only to its own slice of the target.
type deck struct {
	target.Hub
	mu     sync.Mutex
	paused bool
	time   float64
}

func newDeck() *deck {
	return &deck{paused: true}
}

func (d *deck) snapshot() (paused bool, tm float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.paused, d.time
}

func (d *deck) play() {
	d.mu.Lock()
	d.paused = false
	d.mu.Unlock()
	d.Emit("playbackchange")
}

func (d *deck) pause() {
	d.mu.Lock()
	d.paused = true
	d.mu.Unlock()
	d.Emit("playbackchange")
}

func (d *deck) seek(secs float64) {
	d.mu.Lock()
	d.time = secs
	d.mu.Unlock()
	d.Emit("timechange")
}

// watchEvents builds a subscribe that listens for the named deck events
// until the attach scope ends.
func watchEvents(events ...string) feature.SubscribeFunc[*deck] {
	return func(ctx context.Context, d *deck, update func()) error {
		for _, event := range events {
			off := d.On(event, update)
			context.AfterFunc(ctx, off)
		}
		return nil
	}
}

func playbackFeature(t *testing.T) *feature.Feature[*deck] {
	t.Helper()
	f, err := feature.New(feature.Config[*deck]{
		Name:         "playback",
		InitialState: feature.State{"paused": true},
		Snapshot: func(d *deck) feature.State {
			paused, _ := d.snapshot()
			return feature.State{"paused": paused}
		},
		Subscribe: watchEvents("playbackchange"),
		Requests: map[string]feature.Request[*deck]{
			"play": {Handler: func(_ context.Context, rc feature.RequestContext[*deck]) (any, error) {
				rc.Target.play()
				return nil, nil
			}},
			"pause": {Handler: func(_ context.Context, rc feature.RequestContext[*deck]) (any, error) {
				rc.Target.pause()
				return nil, nil
			}},
		},
	})
	require.NoError(t, err)
	return f
}

func mediaTimeFeature(t *testing.T) *feature.Feature[*deck] {
	t.Helper()
	f, err := feature.New(feature.Config[*deck]{
		Name:         "mediatime",
		InitialState: feature.State{"currentTime": 0.0},
		Snapshot: func(d *deck) feature.State {
			_, tm := d.snapshot()
			return feature.State{"currentTime": tm}
		},
		Subscribe: watchEvents("timechange"),
		Requests: map[string]feature.Request[*deck]{
			"seek": {
				Key: "seek",
				Handler: func(ctx context.Context, rc feature.RequestContext[*deck]) (any, error) {
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					secs := rc.Input.(float64)
					rc.Target.seek(secs)
					return secs, nil
				},
			},
		},
	})
	require.NoError(t, err)
	return f
}

func newPlayerStore(t *testing.T, opts ...Option[*deck]) *Store[*deck] {
	t.Helper()
	combined, err := feature.Combine(playbackFeature(t), mediaTimeFeature(t))
	require.NoError(t, err)
	s, err := New(combined, opts...)
	require.NoError(t, err)
	return s
}

// recorder collects delivered snapshots across goroutines
type recorder struct {
	mu     sync.Mutex
	states []feature.State
}

func (r *recorder) record(s feature.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) all() []feature.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]feature.State, len(r.states))
	copy(out, r.states)
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

func TestNew_RequiresDescriptor(t *testing.T) {
	_, err := New[*deck](nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestStore_StateBeforeAttachIsInitial(t *testing.T) {
	s := newPlayerStore(t)
	assert.Equal(t, feature.State{"paused": true, "currentTime": 0.0}, s.State())
	assert.False(t, s.Attached())
}

func TestStore_AttachSnapshotsAndNotifies(t *testing.T) {
	s := newPlayerStore(t)
	rec := &recorder{}
	defer s.Subscribe(rec.record)()

	d := newDeck()
	d.seek(42.0)
	detach := s.Attach(d)
	defer detach()

	assert.True(t, s.Attached())
	require.Equal(t, 1, rec.len(), "attach delivers the initial snapshot")
	assert.Equal(t, feature.State{"paused": true, "currentTime": 42.0}, rec.all()[0])
}

func TestStore_TargetEventsDriveState(t *testing.T) {
	s := newPlayerStore(t)
	d := newDeck()
	defer s.Attach(d)()

	rec := &recorder{}
	defer s.Subscribe(rec.record)()

	d.play()
	d.seek(3.0)

	assert.Equal(t, feature.State{"paused": false, "currentTime": 3.0}, s.State())
	states := rec.all()
	require.Len(t, states, 2)
	assert.Equal(t, false, states[0]["paused"])
	assert.Equal(t, 3.0, states[1]["currentTime"])
}

func TestStore_EachChangeProducesFreshState(t *testing.T) {
	s := newPlayerStore(t)
	d := newDeck()
	defer s.Attach(d)()

	first := s.State()
	d.seek(5.0)
	second := s.State()

	assert.Equal(t, 0.0, first["currentTime"], "earlier snapshot is not mutated in place")
	assert.Equal(t, 5.0, second["currentTime"])
}

func TestStore_SubscribersNotifiedInRegistrationOrder(t *testing.T) {
	s := newPlayerStore(t)
	d := newDeck()
	defer s.Attach(d)()

	var mu sync.Mutex
	var order []string
	defer s.Subscribe(func(feature.State) {
		mu.Lock()
		order = append(order, "first")
		mu.Unlock()
	})()
	defer s.Subscribe(func(feature.State) {
		mu.Lock()
		order = append(order, "second")
		mu.Unlock()
	})()

	d.play()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

// The store does not coalesce: when two members listen for the same
// target event, one emission triggers one update per member and each
// update notifies. Collapsing equal consecutive states is the selector
// layer's job.
func TestStore_SharedEventNotifiesPerMemberUpdate(t *testing.T) {
	mk := func(name, key string) *feature.Feature[*deck] {
		f, err := feature.New(feature.Config[*deck]{
			Name:         name,
			InitialState: feature.State{key: 0.0},
			Snapshot: func(d *deck) feature.State {
				_, tm := d.snapshot()
				return feature.State{key: tm}
			},
			Subscribe: watchEvents("timechange"),
		})
		require.NoError(t, err)
		return f
	}

	combined, err := feature.Combine(mk("position", "currentTime"), mk("progress", "fraction"))
	require.NoError(t, err)
	s, err := New(combined)
	require.NoError(t, err)

	d := newDeck()
	defer s.Attach(d)()

	rec := &recorder{}
	defer s.Subscribe(rec.record)()

	d.seek(3.0)
	assert.Equal(t, 2, rec.len(), "one notification pass per member update")
	for _, state := range rec.all() {
		assert.Equal(t, 3.0, state["currentTime"])
	}
}

func TestStore_UnsubscribeStopsDelivery(t *testing.T) {
	s := newPlayerStore(t)
	d := newDeck()
	defer s.Attach(d)()

	rec := &recorder{}
	off := s.Subscribe(rec.record)
	d.play()
	off()
	d.pause()

	assert.Equal(t, 1, rec.len())
}

func TestStore_DetachResetsStateAndStopsUpdates(t *testing.T) {
	s := newPlayerStore(t)
	d := newDeck()
	detach := s.Attach(d)
	d.play()

	rec := &recorder{}
	defer s.Subscribe(rec.record)()

	detach()
	assert.False(t, s.Attached())
	assert.Equal(t, feature.State{"paused": true, "currentTime": 0.0}, s.State())
	require.Equal(t, 1, rec.len(), "detach delivers the reset state")

	// Target events after detach no longer reach the store
	d.seek(99.0)
	assert.Equal(t, 0.0, s.State()["currentTime"])
	assert.Equal(t, 1, rec.len())
}

func TestStore_DetachIsIdempotent(t *testing.T) {
	s := newPlayerStore(t)
	detach := s.Attach(newDeck())

	rec := &recorder{}
	defer s.Subscribe(rec.record)()

	detach()
	detach()
	s.Detach()
	assert.Equal(t, 1, rec.len())
}

func TestStore_StaleDetachIsNoOp(t *testing.T) {
	s := newPlayerStore(t)
	first := newDeck()
	second := newDeck()
	second.seek(7.0)

	stale := s.Attach(first)
	defer s.Attach(second)()

	stale()
	assert.True(t, s.Attached(), "detach from a replaced attachment does nothing")
	assert.Equal(t, 7.0, s.State()["currentTime"])
}

func TestStore_AttachSameTargetIsNoOp(t *testing.T) {
	s := newPlayerStore(t)
	d := newDeck()
	defer s.Attach(d)()

	rec := &recorder{}
	defer s.Subscribe(rec.record)()

	detach := s.Attach(d)
	assert.Equal(t, 0, rec.len(), "re-attaching the current target emits nothing")

	// The returned detach is still live for the current attachment
	detach()
	assert.False(t, s.Attached())
}

func TestStore_AttachReplacesPriorTarget(t *testing.T) {
	s := newPlayerStore(t)
	first := newDeck()
	second := newDeck()
	second.seek(30.0)

	s.Attach(first)
	defer s.Attach(second)()

	assert.Equal(t, 30.0, s.State()["currentTime"])

	// The first target's events are disconnected
	first.seek(1.0)
	assert.Equal(t, 30.0, s.State()["currentTime"])
	require.Eventually(t, func() bool {
		return first.TotalListeners() == 0
	}, time.Second, 5*time.Millisecond, "replaced attachment removes its listeners")
}

func TestStore_DoRunsRequestAndUpdatesState(t *testing.T) {
	s := newPlayerStore(t)
	defer s.Attach(newDeck())()

	tk := s.Do("play", nil)
	_, err := tk.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, task.StatusFulfilled, tk.Status())
	assert.Equal(t, feature.State{"paused": false, "currentTime": 0.0}, s.State())
}

func TestStore_DoWait(t *testing.T) {
	s := newPlayerStore(t)
	defer s.Attach(newDeck())()

	result, err := s.DoWait(context.Background(), "seek", 12.0)
	require.NoError(t, err)
	assert.Equal(t, 12.0, result)
	assert.Equal(t, 12.0, s.State()["currentTime"])
}

func TestStore_DoUnknownRequest(t *testing.T) {
	s := newPlayerStore(t)
	defer s.Attach(newDeck())()

	tk := s.Do("rewind", nil)
	assert.Equal(t, task.StatusRejected, tk.Status())
	_, err := tk.Result()
	assert.ErrorIs(t, err, errors.ErrUnknownRequest)
}

func TestStore_DoWithoutTargetRejects(t *testing.T) {
	s := newPlayerStore(t)

	tk := s.Do("play", nil)
	assert.Equal(t, task.StatusRejected, tk.Status())
	_, err := tk.Result()
	assert.ErrorIs(t, err, errors.ErrNotAttached)
}

func TestStore_DetachThenRequestRejects(t *testing.T) {
	s := newPlayerStore(t)
	detach := s.Attach(newDeck())
	detach()

	tk := s.Do("seek", 10.0)
	assert.Equal(t, task.StatusRejected, tk.Status())
	_, err := tk.Result()
	assert.ErrorIs(t, err, errors.ErrNotAttached)
}

func TestStore_DetachCancelsInFlightTasks(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slow, err := feature.New(feature.Config[*deck]{
		Name: "slow",
		Requests: map[string]feature.Request[*deck]{
			"load": {Handler: func(ctx context.Context, _ feature.RequestContext[*deck]) (any, error) {
				close(started)
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-release:
					return "loaded", nil
				}
			}},
		},
	})
	require.NoError(t, err)
	defer close(release)

	s, err := New(slow)
	require.NoError(t, err)
	detach := s.Attach(newDeck())

	tk := s.Do("load", nil)
	<-started
	detach()

	_, err = tk.Wait(context.Background())
	assert.ErrorIs(t, err, errors.ErrTaskCanceled)
	assert.Equal(t, 0, s.Queue().Len())
}

// Overlapping requests under one key: the superseded one settles
// rejected and never lands its mutation.
func TestStore_OverlappingSeeksDeduplicate(t *testing.T) {
	release := make(chan struct{})
	seekable, err := feature.New(feature.Config[*deck]{
		Name:         "mediatime",
		InitialState: feature.State{"currentTime": 0.0},
		Snapshot: func(d *deck) feature.State {
			_, tm := d.snapshot()
			return feature.State{"currentTime": tm}
		},
		Subscribe: watchEvents("timechange"),
		Requests: map[string]feature.Request[*deck]{
			"seek": {
				Key: "seek",
				Handler: func(ctx context.Context, rc feature.RequestContext[*deck]) (any, error) {
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-release:
					}
					if err := ctx.Err(); err != nil {
						return nil, err
					}
					secs := rc.Input.(float64)
					rc.Target.seek(secs)
					return secs, nil
				},
			},
		},
	})
	require.NoError(t, err)

	s, err := New(seekable)
	require.NoError(t, err)
	defer s.Attach(newDeck())()

	first := s.Do("seek", 10.0)
	second := s.Do("seek", 20.0)

	// Starting the second seek settles the first before it can land
	assert.Equal(t, task.StatusRejected, first.Status())
	_, err = first.Result()
	assert.ErrorIs(t, err, errors.ErrTaskCanceled)

	close(release)
	result, err := second.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20.0, result)
	assert.Equal(t, 20.0, s.State()["currentTime"])
}

func TestStore_DispatchChainsRequests(t *testing.T) {
	chained, err := feature.New(feature.Config[*deck]{
		Name:         "playback",
		InitialState: feature.State{"paused": true},
		Snapshot: func(d *deck) feature.State {
			paused, _ := d.snapshot()
			return feature.State{"paused": paused}
		},
		Subscribe: watchEvents("playbackchange"),
		Requests: map[string]feature.Request[*deck]{
			"play": {Handler: func(_ context.Context, rc feature.RequestContext[*deck]) (any, error) {
				rc.Target.play()
				return nil, nil
			}},
			"restart": {Handler: func(_ context.Context, rc feature.RequestContext[*deck]) (any, error) {
				rc.Target.seek(0)
				rc.Dispatch("play", nil)
				return nil, nil
			}},
		},
	})
	require.NoError(t, err)

	s, err := New(chained)
	require.NoError(t, err)
	defer s.Attach(newDeck())()

	_, err = s.DoWait(context.Background(), "restart", nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return s.State()["paused"] == false
	}, time.Second, 5*time.Millisecond, "dispatched follow-up request runs")
}

// A failing member keeps subscribing to the rest of the player; the
// failure is visible as degraded health and via the error hook.
func TestStore_FaultyFeatureIsIsolated(t *testing.T) {
	broken, err := feature.New(feature.Config[*deck]{
		Name:         "airplay",
		InitialState: feature.State{"airplayAvailable": false},
		Snapshot: func(*deck) feature.State {
			return feature.State{"airplayAvailable": false}
		},
		Subscribe: func(context.Context, *deck, func()) error {
			return fmt.Errorf("platform API unavailable")
		},
	})
	require.NoError(t, err)

	panicky, err := feature.New(feature.Config[*deck]{
		Name:         "pictureinpicture",
		InitialState: feature.State{"pip": false},
		Snapshot: func(*deck) feature.State {
			return feature.State{"pip": false}
		},
		Subscribe: func(context.Context, *deck, func()) error {
			panic("no such element")
		},
	})
	require.NoError(t, err)

	combined, err := feature.Combine(playbackFeature(t), broken, panicky)
	require.NoError(t, err)

	var mu sync.Mutex
	var reported []error
	s, err := New(combined, WithOnError[*deck](func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}))
	require.NoError(t, err)

	d := newDeck()
	defer s.Attach(d)()

	// The healthy member still drives state, and the broken members
	// still contribute their default keys
	d.play()
	assert.Equal(t, feature.State{
		"paused":           false,
		"airplayAvailable": false,
		"pip":              false,
	}, s.State())

	playbackHealth, ok := s.Health().Get("playback")
	require.True(t, ok)
	assert.Equal(t, health.LevelHealthy, playbackHealth.Level)
	airplayHealth, ok := s.Health().Get("airplay")
	require.True(t, ok)
	assert.Equal(t, health.LevelDegraded, airplayHealth.Level)
	pipHealth, ok := s.Health().Get("pictureinpicture")
	require.True(t, ok)
	assert.Equal(t, health.LevelDegraded, pipHealth.Level)
	assert.Equal(t, health.LevelDegraded, s.Health().AggregateHealth("player").Level)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 2)
}

func TestStore_OnErrorReceivesRequestFailures(t *testing.T) {
	failing, err := feature.New(feature.Config[*deck]{
		Name: "playback",
		Requests: map[string]feature.Request[*deck]{
			"play": {Handler: func(context.Context, feature.RequestContext[*deck]) (any, error) {
				return nil, fmt.Errorf("media error")
			}},
		},
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var reported []error
	s, err := New(failing, WithOnError[*deck](func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}))
	require.NoError(t, err)
	defer s.Attach(newDeck())()

	_, err = s.DoWait(context.Background(), "play", nil)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, reported, 1)
	assert.Contains(t, reported[0].Error(), "media error")
}

func TestStore_CancellationsNotReportedAsErrors(t *testing.T) {
	release := make(chan struct{})
	waiting, err := feature.New(feature.Config[*deck]{
		Name: "loader",
		Requests: map[string]feature.Request[*deck]{
			"load": {Handler: func(ctx context.Context, _ feature.RequestContext[*deck]) (any, error) {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-release:
					return nil, nil
				}
			}},
		},
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var reported []error
	s, err := New(waiting, WithOnError[*deck](func(err error) {
		mu.Lock()
		reported = append(reported, err)
		mu.Unlock()
	}))
	require.NoError(t, err)
	defer s.Attach(newDeck())()

	// Superseding a pending load cancels it; that must not reach the
	// error hook.
	first := s.Do("load", nil)
	second := s.Do("load", nil)

	_, err = first.Wait(context.Background())
	assert.ErrorIs(t, err, errors.ErrTaskCanceled)

	close(release)
	_, err = second.Wait(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, reported)
}

func TestStore_ReattachClearsHealth(t *testing.T) {
	broken, err := feature.New(feature.Config[*deck]{
		Name: "airplay",
		Subscribe: func(context.Context, *deck, func()) error {
			return fmt.Errorf("unavailable")
		},
	})
	require.NoError(t, err)

	s, err := New(broken)
	require.NoError(t, err)
	detach := s.Attach(newDeck())
	assert.Equal(t, health.LevelDegraded, s.Health().AggregateHealth("player").Level)

	detach()
	assert.Equal(t, 0, s.Health().Count())
}

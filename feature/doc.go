// Package feature provides the declarative descriptor at the heart of
// PlayKit: a named, composable unit declaring what state a feature tracks
// on a playback target, how it derives that state, which target events
// refresh it, and which requests (actions) it exposes.
//
// A descriptor is an immutable value produced by New, generic over the
// target type it observes:
//
//	playback, err := feature.New(feature.Config[Media]{
//	    Name:         "playback",
//	    InitialState: feature.State{"paused": true},
//	    Snapshot: func(m Media) feature.State {
//	        return feature.State{"paused": m.Paused()}
//	    },
//	    Subscribe: func(ctx context.Context, m Media, update func()) error {
//	        context.AfterFunc(ctx, m.On("play", update))
//	        context.AfterFunc(ctx, m.On("pause", update))
//	        return nil
//	    },
//	    Requests: map[string]feature.Request[Media]{
//	        "play": {Handler: ...},
//	    },
//	})
//
// Combine merges descriptors into one: state is the shallow union of member
// snapshots (later members win on key collision, a deliberate last-wins
// policy since composed feature sets have disjoint keys in practice), the
// request map is the strict union (a collision is a construction-time
// error), and attach isolates each member so one failing feature does not
// keep the rest of the player from working.
//
// The shape invariant: a descriptor's InitialState keys and Snapshot return
// keys must match exactly for every target. CheckShape verifies this and
// the store's tests rely on it.
package feature

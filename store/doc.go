// Package store provides the authoritative state container of PlayKit:
// one store owns one live playback target at a time, derives its state
// snapshot through a composed feature descriptor, and fans changes out to
// subscribers.
//
// # Lifecycle
//
// A store is created from a descriptor and attaches to targets over its
// lifetime:
//
//	st, err := store.New(composed)
//	detach := st.Attach(element)   // tears down any prior target first
//	...
//	detach()                       // cancels subscriptions and in-flight tasks
//
// Attach computes the initial snapshot, notifies subscribers once, and
// runs each member feature's subscribe with an attach-scoped context.
// Member failures are isolated: a feature whose subscribe fails is
// reported through the error hook and marked degraded in the health
// monitor, while sibling features attach normally. Detach cancels the
// attach scope, which cascades to listener removal and to every in-flight
// task started under that attachment, so a detached target cannot leak
// stale updates into a reused store.
//
// # Notification semantics
//
// Snapshot notifications are delivered synchronously, in subscription
// order, to the subscriber set captured at notification time; a
// subscriber unsubscribing mid-pass does not disturb the pass. The store
// itself never coalesces or equality-gates notifications: every target
// event produces a pass. De-duplicating redundant renders is the selector
// layer's job, which is what keeps a volume change from re-rendering a
// play button.
//
// # Requests
//
// The descriptor's request map is resolved at construction time; Do
// dispatches by name and returns the tracking task. Calling a request
// with no target attached yields a task already rejected with
// ErrNotAttached rather than a panic, so UI call sites can surface the
// failure.
package store

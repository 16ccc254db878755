// Package selector derives narrow values from a store's full state and
// re-notifies only when the derived value actually changes.
//
// Store subscribers see every state change. UI code usually cares about
// one slice of it: the play button wants paused, the time display wants
// currentTime. A selector sits between the store and such a consumer,
// computes the derived value on each notification and swallows the ones
// where it is unchanged, so a timeupdate flood does not repaint the play
// button.
//
// Watch covers comparable derived values with ==. WatchEqual takes a
// custom equality for everything else. Keys watches a fixed set of
// state keys without a derivation function. Tracked builds the key set
// automatically by recording which keys the selector reads.
package selector

package selector

import (
	"github.com/c360/playkit/feature"
)

// Source is anything that exposes full-state subscription, the store
// being the one implementation that matters.
type Source interface {
	// State returns the current snapshot
	State() feature.State
	// Subscribe registers a full-state subscriber and returns its
	// removal function
	Subscribe(fn func(feature.State)) func()
}

// EqualFunc reports whether two derived values are equal
type EqualFunc[D any] func(a, b D) bool

// Watch derives a comparable value from every state change and invokes
// fn only when the derivation differs from the previous one under ==.
// fn is invoked once immediately with the current derivation. The
// returned function removes the subscription.
func Watch[D comparable](src Source, derive func(feature.State) D, fn func(D)) func() {
	return WatchEqual(src, derive, func(a, b D) bool { return a == b }, fn)
}

// WatchEqual is Watch with caller-supplied equality, for derived values
// that are not comparable (slices, maps) or want semantic comparison
// (tolerance on floats).
func WatchEqual[D any](src Source, derive func(feature.State) D, equal EqualFunc[D], fn func(D)) func() {
	prev := derive(src.State())
	fn(prev)

	return src.Subscribe(func(s feature.State) {
		next := derive(s)
		if equal(prev, next) {
			return
		}
		prev = next
		fn(next)
	})
}

// Keys invokes fn with the full state whenever any of the named keys
// changes value under shallow comparison. Like Watch, fn runs once
// immediately.
func Keys(src Source, keys []string, fn func(feature.State)) func() {
	derive := func(s feature.State) feature.State {
		out := make(feature.State, len(keys))
		for _, k := range keys {
			if v, ok := s[k]; ok {
				out[k] = v
			}
		}
		return out
	}

	return WatchEqual(src, derive, feature.Equal, func(feature.State) {
		fn(src.State())
	})
}

package selector

import (
	"github.com/c360/playkit/feature"
)

// Reader wraps one snapshot and records which keys the derivation read
type Reader struct {
	state feature.State
	read  map[string]struct{}
}

// Get reads one state value, recording the key as a tracked dependency
func (r *Reader) Get(key string) any {
	r.read[key] = struct{}{}
	return r.state[key]
}

// Float reads a float64 state value; missing or mistyped values read as
// zero.
func (r *Reader) Float(key string) float64 {
	v, _ := r.Get(key).(float64)
	return v
}

// Bool reads a bool state value; missing or mistyped values read as
// false.
func (r *Reader) Bool(key string) bool {
	v, _ := r.Get(key).(bool)
	return v
}

// String reads a string state value; missing or mistyped values read as
// empty.
func (r *Reader) String(key string) string {
	v, _ := r.Get(key).(string)
	return v
}

// Tracked derives a value through a Reader and re-runs the derivation
// only when a key it read on its last run changes. The tracked key set
// is rebuilt on every run, so derivations with conditional reads stay
// correct. fn fires once immediately and then only when the derived
// value changes.
func Tracked[D comparable](src Source, derive func(*Reader) D, fn func(D)) func() {
	run := func(s feature.State) (D, map[string]struct{}) {
		r := &Reader{state: s, read: make(map[string]struct{})}
		return derive(r), r.read
	}

	last := src.State()
	prev, tracked := run(last)
	fn(prev)

	return src.Subscribe(func(s feature.State) {
		changed := false
		for k := range tracked {
			if !feature.ValueEqual(last[k], s[k]) {
				changed = true
				break
			}
		}
		last = s
		if !changed {
			return
		}

		next, nextTracked := run(s)
		tracked = nextTracked
		if next == prev {
			return
		}
		prev = next
		fn(next)
	})
}

package feature

// State is a flat mapping of state key to value: the snapshot shape every
// descriptor derives from its target. Snapshots are value-like: the engine
// produces a fresh State per change and consumers must not mutate one they
// did not create.
type State map[string]any

// Clone returns a shallow copy of the state
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Keys returns the key set of the state in unspecified order
func (s State) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	return keys
}

// Merge copies every entry of other into s, overwriting on collision.
// This is the last-write-wins policy Combine applies to member snapshots.
func (s State) Merge(other State) {
	for k, v := range other {
		s[k] = v
	}
}

// Equal reports whether two states have identical key sets and
// shallow-equal values. Values that are not comparable (slices, maps)
// compare unequal; snapshot values are expected to be scalars.
func Equal(a, b State) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !shallowEqual(av, bv) {
			return false
		}
	}
	return true
}

// SameShape reports whether two states have identical key sets,
// regardless of values. This is the descriptor shape invariant.
func SameShape(a, b State) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// ValueEqual is the shallow value comparison Equal applies per key,
// exposed for consumers that diff individual state values.
func ValueEqual(a, b any) bool {
	return shallowEqual(a, b)
}

func shallowEqual(a, b any) (eq bool) {
	if a == nil || b == nil {
		return a == b
	}
	// == on non-comparable dynamic types panics; treat those as changed
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// Package playkit is a framework-agnostic reactive state engine for media
// players.
//
// # Architecture
//
// PlayKit derives observable state from an attached playback target (a media
// element, a media-engine wrapper, or any event-emitting object) through
// declarative feature descriptors, and fans updates out to UI binding layers
// with minimal re-render surface.
//
// The engine is built from small, composable layers:
//
//   - task: asynchronous, cancellable units of work with observable status,
//     per-key de-duplication and cancellation groups
//   - feature: declarative descriptors combining initial state, snapshot
//     derivation, event subscription and request handlers
//   - store: the authoritative state container bound to one live target at
//     a time, with attach/detach lifecycle and subscriber notification
//   - selector: equality-gated derived views over store state, so unrelated
//     state changes do not trigger unrelated consumers
//
// Supporting packages follow the same shape as the rest of the platform:
// errors for classified error handling, metric for Prometheus
// instrumentation, health for per-feature health tracking, and target for
// the event-emitter contract the engine expects from its environment.
//
// PlayKit MUST NOT contain:
//   - Rendering, CSS/styling, or accessibility semantics
//   - Actual media decoding or network fetching
//   - Framework-specific binding code (React/Lit/custom-element adapters
//     live in separate modules consuming the store contract)
//
// # Usage
//
// Features are declared once and combined into a single descriptor:
//
//	composed, err := feature.Combine(features.Playback(), features.Volume())
//	st, err := store.New(composed)
//	detach := st.Attach(element)
//	defer detach()
//
//	stop := selector.Keys(st, []string{"paused"}, onPausedChange)
//	t := st.Do("play", nil)
//
// The store owns no target lifecycle: it only observes and mutates the
// target through the descriptor's functions, and at most one target is
// attached to a store at a time.
package playkit

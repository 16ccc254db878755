// Package health provides per-feature health tracking for a PlayKit store.
//
// Attach-time failures are isolated per feature: when a single feature's
// subscribe fails, that feature is marked degraded (its state stays at the
// initial defaults, its events never refresh) while sibling features keep
// working. The Monitor is where that outcome is recorded and where
// operational surfaces (the demo binary's /healthz endpoint, feature
// health gauges) read it back.
//
// # Health States
//
// Three states, matching how players degrade in practice:
//   - Healthy: the feature attached and its subscription is live
//   - Degraded: the feature attached partially; state is served from
//     defaults (e.g. a fullscreen feature on a platform without the API)
//   - Unhealthy: the feature could not attach at all
package health

// Package metric provides Prometheus instrumentation for the PlayKit
// engine.
//
// A Registry owns an isolated Prometheus registry pre-populated with the
// engine's core metrics (task lifecycle, store notification and attach
// activity, per-feature health) plus Go runtime collectors. The store and
// task queue accept a Registry through their options and record into it;
// nothing is registered globally, so multiple stores in one process can
// carry separate registries or share one.
//
//	reg := metric.NewRegistry()
//	st, err := store.New(composed, store.WithMetrics[*target.MediaElement](reg))
//	http.Handle("/metrics", reg.Handler())
package metric

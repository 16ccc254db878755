package metric

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/playkit/errors"
)

// Registry manages the registration and lifecycle of engine metrics
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
	registered         map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewRegistry creates a new metrics registry with core engine metrics
// and Go runtime collectors pre-registered.
func NewRegistry() *Registry {
	prometheusRegistry := prometheus.NewRegistry()

	r := &Registry{
		prometheusRegistry: prometheusRegistry,
		Metrics:            NewMetrics(),
		registered:         make(map[string]prometheus.Collector),
	}
	r.registerCore()

	prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// registerCore registers the engine's own metrics
func (r *Registry) registerCore() {
	m := r.Metrics
	r.prometheusRegistry.MustRegister(
		m.TasksStarted,
		m.TasksSettled,
		m.TasksCanceled,
		m.TasksActive,
		m.TaskDuration,
		m.StoreNotifications,
		m.StoreSubscribers,
		m.SnapshotDuration,
		m.AttachedTargets,
		m.FeatureHealth,
	)
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Register adds a caller-supplied collector under a unique name.
// Feature packages use this for domain metrics the core doesn't know
// about (e.g. rebuffer counts from an HLS wrapper).
func (r *Registry) Register(name string, c prometheus.Collector) error {
	if name == "" || c == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register", "collector validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.registered[name]; exists {
		msg := fmt.Errorf("collector '%s' is already registered", name)
		return errors.WrapInvalid(msg, "Registry", "Register", "duplicate collector check")
	}
	if err := r.prometheusRegistry.Register(c); err != nil {
		return errors.Wrap(err, "Registry", "Register", "prometheus registration")
	}

	r.registered[name] = c
	return nil
}

// Unregister removes a previously registered collector by name
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.registered[name]
	if !exists {
		return false
	}
	delete(r.registered, name)
	return r.prometheusRegistry.Unregister(c)
}

// Handler returns an HTTP handler serving the registry in Prometheus
// exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})
}

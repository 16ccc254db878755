package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all engine-level metrics (not feature-specific)
type Metrics struct {
	// Task metrics
	TasksStarted  *prometheus.CounterVec
	TasksSettled  *prometheus.CounterVec
	TasksCanceled *prometheus.CounterVec
	TasksActive   prometheus.Gauge
	TaskDuration  *prometheus.HistogramVec

	// Store metrics
	StoreNotifications prometheus.Counter
	StoreSubscribers   prometheus.Gauge
	SnapshotDuration   prometheus.Histogram
	AttachedTargets    prometheus.Gauge

	// Feature metrics
	FeatureHealth *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance with all engine metrics
func NewMetrics() *Metrics {
	return &Metrics{
		TasksStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "playkit",
				Subsystem: "tasks",
				Name:      "started_total",
				Help:      "Total number of tasks started, by request name",
			},
			[]string{"request"},
		),

		TasksSettled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "playkit",
				Subsystem: "tasks",
				Name:      "settled_total",
				Help:      "Total number of tasks settled, by request name and terminal status",
			},
			[]string{"request", "status"},
		),

		TasksCanceled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "playkit",
				Subsystem: "tasks",
				Name:      "canceled_total",
				Help:      "Total number of tasks canceled by dedup or cancellation groups",
			},
			[]string{"request"},
		),

		TasksActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "playkit",
				Subsystem: "tasks",
				Name:      "active",
				Help:      "Number of tasks currently pending",
			},
		),

		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "playkit",
				Subsystem: "tasks",
				Name:      "duration_seconds",
				Help:      "Task duration from start to settlement",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"request", "status"},
		),

		StoreNotifications: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "playkit",
				Subsystem: "store",
				Name:      "notifications_total",
				Help:      "Total number of subscriber notification passes",
			},
		),

		StoreSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "playkit",
				Subsystem: "store",
				Name:      "subscribers",
				Help:      "Number of registered store subscribers",
			},
		),

		SnapshotDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "playkit",
				Subsystem: "store",
				Name:      "snapshot_duration_seconds",
				Help:      "Time spent deriving a state snapshot from the target",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
			},
		),

		AttachedTargets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "playkit",
				Subsystem: "store",
				Name:      "attached_targets",
				Help:      "Number of targets currently attached (0 or 1 per store)",
			},
		),

		FeatureHealth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "playkit",
				Subsystem: "features",
				Name:      "health",
				Help:      "Feature health after attach (0=degraded, 1=healthy)",
			},
			[]string{"feature"},
		),
	}
}

// RecordTaskStarted increments the started counter and active gauge
func (m *Metrics) RecordTaskStarted(request string) {
	m.TasksStarted.WithLabelValues(request).Inc()
	m.TasksActive.Inc()
}

// RecordTaskSettled records a task reaching a terminal status
func (m *Metrics) RecordTaskSettled(request, status string, duration time.Duration) {
	m.TasksSettled.WithLabelValues(request, status).Inc()
	m.TaskDuration.WithLabelValues(request, status).Observe(duration.Seconds())
	m.TasksActive.Dec()
}

// RecordTaskCanceled increments the cancellation counter
func (m *Metrics) RecordTaskCanceled(request string) {
	m.TasksCanceled.WithLabelValues(request).Inc()
}

// RecordNotification increments the notification pass counter
func (m *Metrics) RecordNotification() {
	m.StoreNotifications.Inc()
}

// RecordSubscriberCount updates the subscriber gauge
func (m *Metrics) RecordSubscriberCount(n int) {
	m.StoreSubscribers.Set(float64(n))
}

// RecordSnapshotDuration records the cost of one snapshot derivation
func (m *Metrics) RecordSnapshotDuration(d time.Duration) {
	m.SnapshotDuration.Observe(d.Seconds())
}

// RecordAttached updates the attached target gauge
func (m *Metrics) RecordAttached(attached bool) {
	value := 0.0
	if attached {
		value = 1.0
	}
	m.AttachedTargets.Set(value)
}

// RecordFeatureHealth updates a feature's health gauge
func (m *Metrics) RecordFeatureHealth(featureName string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.FeatureHealth.WithLabelValues(featureName).Set(value)
}

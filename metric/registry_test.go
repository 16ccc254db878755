package metric

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_CoreMetricsRegistered(t *testing.T) {
	reg := NewRegistry()
	require.NotNil(t, reg.Metrics)

	reg.Metrics.RecordTaskStarted("play")
	reg.Metrics.RecordTaskSettled("play", "fulfilled", 5*time.Millisecond)
	reg.Metrics.RecordNotification()
	reg.Metrics.RecordAttached(true)
	reg.Metrics.RecordFeatureHealth("playback", true)
	reg.Metrics.RecordFeatureHealth("fullscreen", false)

	families, err := reg.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["playkit_tasks_started_total"])
	assert.True(t, names["playkit_tasks_settled_total"])
	assert.True(t, names["playkit_store_notifications_total"])
	assert.True(t, names["playkit_store_attached_targets"])
	assert.True(t, names["playkit_features_health"])
}

func TestRegistry_TasksActiveGauge(t *testing.T) {
	reg := NewRegistry()

	reg.Metrics.RecordTaskStarted("seek")
	reg.Metrics.RecordTaskStarted("seek")
	reg.Metrics.RecordTaskSettled("seek", "rejected", time.Millisecond)

	value := gaugeValue(t, reg, "playkit_tasks_active")
	assert.Equal(t, 1.0, value)
}

func TestRegistry_RegisterCustomCollector(t *testing.T) {
	reg := NewRegistry()

	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "playkit",
		Name:      "rebuffers_total",
		Help:      "Total rebuffer events",
	})

	require.NoError(t, reg.Register("rebuffers", c))
	assert.Error(t, reg.Register("rebuffers", c), "duplicate name must be rejected")
	assert.Error(t, reg.Register("", c), "empty name must be rejected")

	assert.True(t, reg.Unregister("rebuffers"))
	assert.False(t, reg.Unregister("rebuffers"))
}

func TestRegistry_Handler(t *testing.T) {
	reg := NewRegistry()
	reg.Metrics.RecordTaskStarted("play")

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "playkit_tasks_started_total"))
}

// gaugeValue reads a plain gauge out of the gathered families
func gaugeValue(t *testing.T, reg *Registry, name string) float64 {
	t.Helper()
	families, err := reg.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			require.Len(t, f.GetMetric(), 1)
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

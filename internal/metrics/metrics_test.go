package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveInterpretation("pattern")
	m.ObserveInterpretation("pattern")
	m.ObserveInterpretation("planner")
	m.ObserveStep("Click", true)
	m.ObserveStep("Click", false)
	m.ObserveTask(3, true)
	m.ObservePlanner(250 * time.Millisecond)
	m.SetCacheEntries(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.InterpretTotal.WithLabelValues("pattern")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.InterpretTotal.WithLabelValues("planner")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StepTotal.WithLabelValues("Click", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AgentTasksTotal.WithLabelValues("success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.CacheEntries))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveInterpretation("cache")
		m.ObservePlanner(time.Second)
		m.ObserveStep("Wait", true)
		m.ObserveTask(1, false)
		m.SetCacheEntries(1)
	})
}

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRun("schedule", "done", 2*time.Second)
	m.ObserveRun("http", "failed", time.Second)
	m.ObserveRun("http", "failed", time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("schedule", "done")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.runs.WithLabelValues("http", "failed")))
}

func TestObserveCall(t *testing.T) {
	m := New(nil)

	m.ObserveCall("store", "put_record", nil, time.Millisecond)
	m.ObserveCall("store", "put_record", errors.New("boom"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("store", "put_record", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("store", "put_record", "error")))
}

func TestRunStarted(t *testing.T) {
	m := New(nil)

	done := m.RunStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.ObserveRun("http", "done", time.Second)
		m.ObserveCall("llm", "title", nil, time.Second)
		m.ObserveTitleAttempts(2)
		m.RunStarted()()
	})
}

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	m := New(prometheus.NewRegistry())
	m.ObserveTitleAttempts(3)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

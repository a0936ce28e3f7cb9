package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "autoblog"

// Metrics holds the Prometheus collectors for orchestration runs and the
// external calls they make
type Metrics struct {
	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	titleAttempts prometheus.Histogram
	calls         *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	inFlight      prometheus.Gauge
}

// New creates and registers the collectors on reg. A nil registerer leaves them
// unregistered, which is what most tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Orchestration runs by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of orchestration runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		titleAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "title_attempts",
			Help:      "Title generations needed to find a unique title.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_calls_total",
			Help:      "Calls to the content store and generation API.",
		}, []string{"target", "operation", "result"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_duration_seconds",
			Help:      "Latency of calls to the content store and generation API.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target", "operation"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Orchestration runs currently executing.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.runs, m.runDuration, m.titleAttempts, m.calls, m.callDuration, m.inFlight)
	}
	return m
}

// ObserveRun records a finished run
func (m *Metrics) ObserveRun(trigger, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(trigger, outcome).Inc()
	m.runDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// ObserveTitleAttempts records how many generations a run needed for its title
func (m *Metrics) ObserveTitleAttempts(n int) {
	if m == nil || n == 0 {
		return
	}
	m.titleAttempts.Observe(float64(n))
}

// ObserveCall records one external call
func (m *Metrics) ObserveCall(target, operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.calls.WithLabelValues(target, operation, result).Inc()
	m.callDuration.WithLabelValues(target, operation).Observe(d.Seconds())
}

// RunStarted increments the in-flight gauge and returns the matching decrement
func (m *Metrics) RunStarted() func() {
	if m == nil {
		return func() {}
	}
	m.inFlight.Inc()
	return m.inFlight.Dec
}

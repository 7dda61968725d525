package generation

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for pipeline runs.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	runs          *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg, reusing collectors that
// are already registered under the same name.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "image_editor",
			Subsystem: "generation",
			Name:      "stage_duration_seconds",
			Help:      "Duration spent in each generation stage.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage", "status"},
	)
	stageFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "image_editor",
			Subsystem: "generation",
			Name:      "stage_failures_total",
			Help:      "Generation stages that failed, by failure kind.",
		},
		[]string{"stage", "kind"},
	)
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "image_editor",
			Subsystem: "generation",
			Name:      "runs_total",
			Help:      "Completed generation runs by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	stageDuration = register(reg, stageDuration)
	stageFailures = register(reg, stageFailures)
	runs = register(reg, runs)

	return &Metrics{stageDuration: stageDuration, stageFailures: stageFailures, runs: runs}
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) ObserveStage(stage string, err error, d time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

func (m *Metrics) IncStageFailure(stage, kind string) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(stage, kind).Inc()
}

func (m *Metrics) IncRun(provider, outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(provider, outcome).Inc()
}

// Package telemetry exposes run outcomes as Prometheus metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"GrowthAgent/internal/domain"
	"GrowthAgent/internal/ports"
)

const (
	// MetricsNamespace is the namespace for all metrics.
	MetricsNamespace = "growth_agent"
)

// Metrics holds the Prometheus collectors fed by finished runs.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDurationSeconds *prometheus.HistogramVec
	UnitsTotal         *prometheus.CounterVec
	LastRunTimestamp   *prometheus.GaugeVec
	LastSuccess        *prometheus.GaugeVec
}

var _ ports.RunObserver = (*Metrics)(nil)

// NewMetrics creates and registers the run metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "runs_total",
			Help:      "Total number of workflow runs by outcome",
		}, []string{"workflow", "status"}),
		RunDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of workflow runs",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"workflow"}),
		UnitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "stage_units_total",
			Help:      "Units processed per stage by outcome",
		}, []string{"stage", "outcome"}),
		LastRunTimestamp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the workflow last finished",
		}, []string{"workflow"}),
		LastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "last_run_success",
			Help:      "1 if the last run of the workflow succeeded, 0.5 if partial, 0 if failed",
		}, []string{"workflow"}),
	}
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(summary domain.RunSummary) {
	status := summary.Status()
	m.RunsTotal.WithLabelValues(summary.Workflow, string(status)).Inc()
	m.RunDurationSeconds.WithLabelValues(summary.Workflow).Observe(summary.Duration().Seconds())
	m.LastRunTimestamp.WithLabelValues(summary.Workflow).Set(float64(summary.FinishedAt.Unix()))

	switch status {
	case domain.RunSuccess:
		m.LastSuccess.WithLabelValues(summary.Workflow).Set(1)
	case domain.RunPartial:
		m.LastSuccess.WithLabelValues(summary.Workflow).Set(0.5)
	default:
		m.LastSuccess.WithLabelValues(summary.Workflow).Set(0)
	}

	for _, st := range summary.Stages {
		m.UnitsTotal.WithLabelValues(st.Stage, "succeeded").Add(float64(st.Succeeded))
		m.UnitsTotal.WithLabelValues(st.Stage, "failed").Add(float64(st.Failed))
		m.UnitsTotal.WithLabelValues(st.Stage, "skipped").Add(float64(st.Skipped))
	}
}

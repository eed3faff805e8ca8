package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ColorsOutofSpace/net-check/pkg/jobmanager"
)

// Metrics counts job lifecycle transitions for the /metrics endpoint.
// It implements jobmanager.Metrics.
type Metrics struct {
	jobsStarted  *prometheus.CounterVec
	jobsFinished *prometheus.CounterVec
	jobsRunning  prometheus.Gauge
}

// NewMetrics registers the job metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netcheck_jobs_started_total",
			Help: "Diagnostic jobs started, by check id.",
		}, []string{"check_id"}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netcheck_jobs_finished_total",
			Help: "Diagnostic jobs finished, by check id and terminal status.",
		}, []string{"check_id", "status"}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "netcheck_jobs_running",
			Help: "Diagnostic jobs currently running.",
		}),
	}
	reg.MustRegister(m.jobsStarted, m.jobsFinished, m.jobsRunning)
	return m
}

// JobStarted implements jobmanager.Metrics.
func (m *Metrics) JobStarted(checkID string) {
	m.jobsStarted.WithLabelValues(checkID).Inc()
	m.jobsRunning.Inc()
}

// JobFinished implements jobmanager.Metrics.
func (m *Metrics) JobFinished(checkID string, status jobmanager.Status) {
	m.jobsFinished.WithLabelValues(checkID, string(status)).Inc()
	m.jobsRunning.Dec()
}

var _ jobmanager.Metrics = (*Metrics)(nil)

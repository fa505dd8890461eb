// Package metrics holds the Prometheus collectors of the orchestrator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the orchestrator reports. A nil *Metrics
// is valid and records nothing, which keeps tests free of registry setup.
type Metrics struct {
	checksTotal          *prometheus.CounterVec
	checkDuration        *prometheus.HistogramVec
	inFlight             prometheus.Gauge
	synthesizedTotal     prometheus.Counter
	pipelineFailures     *prometheus.CounterVec
	suppressedTotal      prometheus.Counter
	scheduledMonitors    prometheus.Gauge
	schedulingFailures   prometheus.Counter
	provisioningAttempts *prometheus.CounterVec
	broadcastDropped     prometheus.Counter
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uptivalab_checks_total",
				Help: "Check results processed, by monitor kind and status.",
			},
			[]string{"kind", "status"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "uptivalab_check_duration_seconds",
				Help:    "Wall time of check executions.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uptivalab_executor_in_flight",
			Help: "Checks currently holding an executor slot.",
		}),
		synthesizedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uptivalab_synthesized_failures_total",
			Help: "Down results synthesized from execution errors.",
		}),
		pipelineFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uptivalab_pipeline_failures_total",
				Help: "Result pipeline step failures, by stage.",
			},
			[]string{"stage"},
		),
		suppressedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uptivalab_suppressed_results_total",
			Help: "Down results suppressed by a maintenance window.",
		}),
		scheduledMonitors: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uptivalab_scheduled_monitors",
			Help: "Monitors with an active recurring trigger.",
		}),
		schedulingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uptivalab_scheduling_failures_total",
			Help: "Failed attempts to schedule a monitor.",
		}),
		provisioningAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "uptivalab_provisioning_attempts_total",
				Help: "Browser runtime provisioning attempts, by outcome.",
			},
			[]string{"outcome"},
		),
		broadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "uptivalab_broadcast_dropped_total",
			Help: "Realtime messages dropped because the hub buffer was full.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.checksTotal,
			m.checkDuration,
			m.inFlight,
			m.synthesizedTotal,
			m.pipelineFailures,
			m.suppressedTotal,
			m.scheduledMonitors,
			m.schedulingFailures,
			m.provisioningAttempts,
			m.broadcastDropped,
		)
	}

	return m
}

// ObserveResult counts a processed result
func (m *Metrics) ObserveResult(kind, status string) {
	if m == nil {
		return
	}
	m.checksTotal.WithLabelValues(kind, status).Inc()
}

// ObserveDuration records the wall time of one execution
func (m *Metrics) ObserveDuration(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.checkDuration.WithLabelValues(kind).Observe(seconds)
}

// InFlight adjusts the executor slot gauge by delta
func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.inFlight.Add(delta)
}

// Synthesized counts a down result built from an execution error
func (m *Metrics) Synthesized() {
	if m == nil {
		return
	}
	m.synthesizedTotal.Inc()
}

// PipelineFailure counts a failed pipeline step
func (m *Metrics) PipelineFailure(stage string) {
	if m == nil {
		return
	}
	m.pipelineFailures.WithLabelValues(stage).Inc()
}

// Suppressed counts a suppressed down result
func (m *Metrics) Suppressed() {
	if m == nil {
		return
	}
	m.suppressedTotal.Inc()
}

// ScheduledMonitors sets the number of active triggers
func (m *Metrics) ScheduledMonitors(n int) {
	if m == nil {
		return
	}
	m.scheduledMonitors.Set(float64(n))
}

// SchedulingFailure counts a failed schedule call
func (m *Metrics) SchedulingFailure() {
	if m == nil {
		return
	}
	m.schedulingFailures.Inc()
}

// ProvisioningAttempt counts a provisioning attempt by outcome
func (m *Metrics) ProvisioningAttempt(outcome string) {
	if m == nil {
		return
	}
	m.provisioningAttempts.WithLabelValues(outcome).Inc()
}

// BroadcastDropped counts a dropped realtime message
func (m *Metrics) BroadcastDropped() {
	if m == nil {
		return
	}
	m.broadcastDropped.Inc()
}

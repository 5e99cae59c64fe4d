// Package metrics exposes BOAR's own Prometheus counters — Scheduled Job
// Runtime outcomes, Multi-Channel Notifier webhook attempts, and ERP
// Gateway call latency — on a dedicated registry, grounded on
// IAmSoThirsty-Project-AI's octoreflex/internal/observability/metrics.go
// (own prometheus.Registry rather than the global one, Namespace/Subsystem/Name
// metric naming, Go/process collectors registered alongside the business
// metrics).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "boar"

var registry = prometheus.NewRegistry()

var (
	// SchedulerJobsTotal counts every scheduler tick outcome, by job id and
	// outcome (ran, skipped, misfired) — spec.md §4.C's coalesce/misfire
	// grace semantics made observable.
	SchedulerJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "jobs_total",
		Help:      "Total scheduled job ticks, by job id and outcome (ran, skipped, misfired).",
	}, []string{"job", "outcome"})

	// WebhookAttemptsTotal counts every outbound webhook delivery attempt,
	// by event type and outcome (success, failure).
	WebhookAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifier",
		Name:      "webhook_attempts_total",
		Help:      "Total outbound webhook delivery attempts, by event type and outcome.",
	}, []string{"event_type", "outcome"})

	// ErpCallDuration records ERP Gateway execute_kw latency, by model.
	ErpCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "erp",
		Name:      "call_duration_seconds",
		Help:      "ERP Gateway execute_kw call latency in seconds, by model.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"model"})
)

func init() {
	registry.MustRegister(
		SchedulerJobsTotal,
		WebhookAttemptsTotal,
		ErpCallDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
}

// Handler returns the /metrics HTTP handler for the dedicated registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}

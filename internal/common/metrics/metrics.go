// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_intel_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"route", "status"},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_intel_pipeline_runs_total",
			Help: "Total number of analysis pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_intel_llm_calls_total",
			Help: "Total number of LLM calls by purpose and outcome",
		},
		[]string{"purpose", "outcome"},
	)

	ReconcileRepairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_intel_reconcile_repairs_total",
			Help: "Total number of repair calls issued by the reconciler",
		},
		[]string{"kind"},
	)

	AdapterFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_intel_adapter_failures_total",
			Help: "Total number of swallowed evidence adapter failures",
		},
		[]string{"adapter"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meeting_intel_cache_lookups_total",
			Help: "Result cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meeting_intel_sessions_created_total",
			Help: "Total number of assistant sessions bootstrapped",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meeting_intel_sessions_active",
			Help: "Number of sessions held in the in-memory store",
		},
	)
)

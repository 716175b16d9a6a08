// Package metrics exposes Prometheus instrumentation for the domain agent.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// SessionsStarted counts created sessions.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "domainagent_sessions_started_total",
		Help: "Number of sessions created.",
	})

	// GenerateAttempts counts generator batches across all generate calls.
	GenerateAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "domainagent_generate_attempts_total",
		Help: "Number of name generation batches requested.",
	})

	// FeedbackRounds counts completed feedback rounds.
	FeedbackRounds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "domainagent_feedback_rounds_total",
		Help: "Number of feedback rounds applied.",
	})

	// DomainsChecked counts availability-check outcomes by status
	// (AVAILABLE, TAKEN, error).
	DomainsChecked = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "domainagent_domains_checked_total",
		Help: "Availability check outcomes.",
	}, []string{"status"})

	// ModelRequestDuration observes generative-model call latency per agent.
	ModelRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "domainagent_model_request_duration_seconds",
		Help:    "Latency of generative model HTTP calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"agent"})
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

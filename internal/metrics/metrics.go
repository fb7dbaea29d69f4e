// Package metrics provides Prometheus instrumentation for the
// grief-support backend. It exposes counters for moderation verdicts,
// strikes and suspensions, message throughput, and a histogram for
// completion-backend latency.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ModerationVerdicts counts moderation outcomes, labeled by content
	// class and final decision.
	ModerationVerdicts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sanemos_moderation_verdicts_total",
		Help: "Moderation verdicts by content class and decision",
	}, []string{"class", "decision"})

	// ModerationFailures counts completion/parse failures that degraded
	// to a class fallback verdict.
	ModerationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sanemos_moderation_failures_total",
		Help: "Moderation calls that fell back due to backend or parse failure",
	}, []string{"class"})

	// CompletionLatency records completion-backend call latency in seconds.
	CompletionLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sanemos_completion_request_seconds",
		Help:    "Completion backend request latency in seconds",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
	})

	// MessagesTotal counts chat messages processed, labeled by outcome:
	// "sent", "flagged", "blocked", or "ai_reply".
	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sanemos_chat_messages_total",
		Help: "Chat messages processed by outcome",
	}, []string{"type"})

	// StrikesTotal counts strikes recorded against users.
	StrikesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sanemos_strikes_total",
		Help: "Total strikes recorded",
	})

	// SuspensionsTotal counts suspensions applied when a user reaches
	// the strike threshold.
	SuspensionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sanemos_suspensions_total",
		Help: "Total suspensions applied",
	})
)

func init() {
	prometheus.MustRegister(
		ModerationVerdicts,
		ModerationFailures,
		CompletionLatency,
		MessagesTotal,
		StrikesTotal,
		SuspensionsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

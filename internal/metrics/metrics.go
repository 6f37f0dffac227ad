// Package metrics defines the Prometheus instrumentation for salonbot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesReceived counts inbound text events.
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "salonbot_messages_received_total",
		Help: "Inbound text events processed.",
	})

	// RepliesSent counts composed outbound replies.
	RepliesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "salonbot_replies_sent_total",
		Help: "Outbound replies composed.",
	})

	// IntentMatches counts turns short-circuited by the intent matcher.
	IntentMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "salonbot_intent_matches_total",
		Help: "Turns answered by the intent matcher without a state transition.",
	})

	// FetchAttempts counts individual transport attempts against the booking
	// platform, including retries.
	FetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "salonbot_fetch_attempts_total",
		Help: "Transport attempts against the booking platform.",
	})

	// FetchFailures counts failed fetches by failure category.
	FetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "salonbot_fetch_failures_total",
		Help: "Failed booking platform calls by category.",
	}, []string{"kind"})

	// SessionConflicts counts compare-and-swap commit conflicts.
	SessionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "salonbot_session_commit_conflicts_total",
		Help: "Session saves rejected due to a concurrent transition.",
	})
)

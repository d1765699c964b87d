package infra

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MilestoneTransitions counts committed workflow transitions.
	MilestoneTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_milestone_transitions_total",
			Help: "Committed milestone workflow transitions",
		},
		[]string{"transition"},
	)

	// SweepRuns counts completed deadline sweep runs.
	SweepRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "escrow_sweep_runs_total",
			Help: "Completed deadline enforcement sweep runs",
		},
	)

	// SweepBlockedAccounts counts organization accounts blocked by the
	// sweeper.
	SweepBlockedAccounts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "escrow_sweep_blocked_accounts_total",
			Help: "Organization accounts blocked for missed proof deadlines",
		},
	)

	// SettlementAttempts counts settlement signer outcomes.
	SettlementAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "escrow_settlement_attempts_total",
			Help: "Settlement signer attempts by outcome",
		},
		[]string{"outcome"},
	)

	// HTTPRequestDuration observes API request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "escrow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)
)

// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WizardTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_transitions_total",
			Help: "Wizard step transitions attempted, by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	WizardSessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "wizard_sessions_started_total",
			Help: "Total number of wizard sessions created",
		},
	)

	RelaySubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_submissions_total",
			Help: "Application submissions sent to the form relay, by role and outcome",
		},
		[]string{"role", "outcome"},
	)

	RelaySubmissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_submission_duration_seconds",
			Help:    "Duration of the relay POST in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	RelaySubmissionsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_submissions_in_flight",
			Help: "Number of relay submissions awaiting a response",
		},
	)
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

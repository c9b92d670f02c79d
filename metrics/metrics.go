// Package metrics provides Prometheus metrics for profileproof.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "profileproof"

var (
	// ChallengesIssued counts issue requests by result (created, reused, error).
	ChallengesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_issued_total",
			Help:      "Total number of challenge issue requests",
		},
		[]string{"result"},
	)

	// Validations counts validation requests by result.
	Validations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Total number of validation requests",
		},
		[]string{"result"},
	)

	// ProfileFetchDuration measures complete profile fetches, retries included.
	ProfileFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "profile_fetch_duration_seconds",
			Help:      "Duration of profile fetches in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	// ProfileFetchAttempts counts individual HTTP attempts against the platform.
	ProfileFetchAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_fetch_attempts_total",
			Help:      "Total number of HTTP attempts made to fetch profiles",
		},
		[]string{"outcome"},
	)
)

// Result labels shared by the counters above.
const (
	ResultCreated      = "created"
	ResultReused       = "reused"
	ResultValidated    = "validated"
	ResultNotValidated = "not_validated"
	ResultNoChallenge  = "no_challenge"
	ResultFetchError   = "fetch_error"
	ResultStoreError   = "store_error"
	ResultInvalid      = "invalid"
	ResultError        = "error"
	ResultOK           = "ok"
)

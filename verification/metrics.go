package verification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Callback outcomes
const (
	outcomeVerified           = "verified"
	outcomeInvalidSession     = "invalid_session"
	outcomeExpired            = "expired"
	outcomeVerificationFailed = "verification_failed"
	outcomeStoreError         = "store_error"
)

var (
	initiationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nafath_initiations_total",
			Help: "Verification sessions started, by subject category",
		},
		[]string{"category"},
	)

	callbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nafath_callbacks_total",
			Help: "Provider callbacks handled, by outcome",
		},
		[]string{"outcome"},
	)

	sessionsPurgedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nafath_sessions_purged_total",
			Help: "Sessions deleted, by reason",
		},
		[]string{"reason"},
	)
)

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	redemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notes_ledger_redemptions_total",
			Help: "Redemption attempts by outcome (unlocked, already_unlocked, insufficient_credits, contention, timeout, rejected, error).",
		},
		[]string{"outcome"},
	)

	redeemDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notes_ledger_redeem_duration_seconds",
			Help:    "Time spent in a redemption, including the wait for the account lock.",
			Buckets: prometheus.DefBuckets,
		},
	)

	creditsDebitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notes_ledger_credits_debited_total",
		Help: "Credits debited by successful redemptions.",
	})
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters tracks the per-component skip/detect/validate/expire counts that
// §7 requires to be exposed as metrics ("every skipped opportunity is
// counted").
type Counters struct {
	MispricingsDetected  *prometheus.CounterVec
	MispricingsSkipped   *prometheus.CounterVec
	OpportunitiesCreated prometheus.Counter
	ValidationFailures   *prometheus.CounterVec
	OpportunitiesExpired prometheus.Counter
	FeedStaleEvents      prometheus.Counter
	SequenceGaps         *prometheus.CounterVec
}

// NewCounters registers the engine's counters against reg and returns them.
// Pass prometheus.DefaultRegisterer in production; tests should pass a
// fresh prometheus.NewRegistry() so repeated calls don't collide.
func NewCounters(reg prometheus.Registerer) *Counters {
	f := promauto.With(reg)
	return &Counters{
		MispricingsDetected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "synthalpha_mispricings_detected_total",
			Help: "Mispricing opportunities detected, by detector type.",
		}, []string{"detector"}),
		MispricingsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "synthalpha_mispricings_skipped_total",
			Help: "Mispricings that failed the significance gate, by reason.",
		}, []string{"reason"}),
		OpportunitiesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "synthalpha_arbitrage_opportunities_created_total",
			Help: "Arbitrage opportunities constructed from mispricings.",
		}),
		ValidationFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "synthalpha_arbitrage_validation_failures_total",
			Help: "Arbitrage opportunities rejected at validation, by check.",
		}, []string{"check"}),
		OpportunitiesExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "synthalpha_arbitrage_opportunities_expired_total",
			Help: "Arbitrage opportunities transitioned to Expired.",
		}),
		FeedStaleEvents: f.NewCounter(prometheus.CounterOpts{
			Name: "synthalpha_feed_stale_total",
			Help: "Snapshot ticks where every known instrument was stale.",
		}),
		SequenceGaps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "synthalpha_feed_sequence_gaps_total",
			Help: "Observed sequence-number gaps, by exchange.",
		}, []string{"exchange"}),
	}
}

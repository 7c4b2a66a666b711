package mispricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/market"
)

func TestRealizedVolRequiresMinimumPrices(t *testing.T) {
	_, ok := realizedVol([]float64{100, 101})
	assert.False(t, ok)
}

func TestVolatilityDetectorFlagsRealizedImpliedDivergence(t *testing.T) {
	params := tightParams()
	params.VolatilityThreshold = 0.01
	d := NewVolatilityDetector(params)

	now := time.Now()
	price := 100.0
	for i := 0; i < params.MinObservationWindow*2; i++ {
		ts := now.Add(time.Duration(i) * time.Second)
		// Alternate sharp swings so realized volatility is large, while the
		// quoted spread stays a tight, near-zero implied-vol proxy.
		if i%2 == 0 {
			price *= 1.08
		} else {
			price *= 0.93
		}
		q := market.Quote{InstrumentID: "BTC-USD", BidPrice: price - 0.01, AskPrice: price + 0.01, Timestamp: ts}
		snap := market.NewEmptySnapshot()
		snap.Quotes["BTC-USD"] = q
		snap.SnapshotTime = ts
		d.UpdateMarketData(snap)
	}

	opps := d.DetectOpportunities()
	require.NotEmpty(t, opps)
	assert.Equal(t, TypeVolatility, opps[0].Type)
}

package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/market"
)

func TestCrossCurrencySynthesizesMidAndSpread(t *testing.T) {
	now := time.Now()
	snap := market.NewEmptySnapshot()
	snap.SnapshotTime = now
	snap.Quotes["BTC-USD"] = market.Quote{InstrumentID: "BTC-USD", BidPrice: 50000, AskPrice: 50010, Timestamp: now}
	snap.Quotes["USD-EUR"] = market.Quote{InstrumentID: "USD-EUR", BidPrice: 0.90, AskPrice: 0.901, Timestamp: now}

	m := NewCrossCurrencyModel()
	sp, err := m.CalculateSyntheticPrice("BTC-EUR", []market.InstrumentId{"BTC-USD", "USD-EUR"}, snap)
	require.NoError(t, err)

	assert.InDelta(t, 50000*0.90, sp.BidPrice, 1e-6)
	assert.InDelta(t, 50010*0.901, sp.AskPrice, 1e-6)
	assert.InDelta(t, 50005*0.9005, sp.TheoreticalPrice, 1e-6)
}

func TestCrossCurrencyInvertRoundTrips(t *testing.T) {
	sp := SyntheticPrice{TheoreticalPrice: 2, BidPrice: 1.9, AskPrice: 2.1}
	inv := Invert(sp)
	assert.InDelta(t, 0.5, inv.TheoreticalPrice, 1e-9)
	assert.InDelta(t, 1.0/2.1, inv.BidPrice, 1e-9)
	assert.InDelta(t, 1.0/1.9, inv.AskPrice, 1e-9)
}

func TestCrossCurrencyRejectsMissingLeg(t *testing.T) {
	m := NewCrossCurrencyModel()
	snap := market.NewEmptySnapshot()
	snap.SnapshotTime = time.Now()
	_, err := m.CalculateSyntheticPrice("BTC-EUR", []market.InstrumentId{"BTC-USD", "USD-EUR"}, snap)
	assert.ErrorIs(t, err, ErrUnknownInstrument)
}

package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/market"
)

func snapshotWithQuote(id market.InstrumentId, bid, ask float64, ts time.Time) market.MarketSnapshot {
	s := market.NewEmptySnapshot()
	s.Quotes[id] = market.Quote{InstrumentID: id, BidPrice: bid, AskPrice: ask, Timestamp: ts}
	s.SnapshotTime = ts
	return s
}

func TestPerpetualBasisUsesDefaultFundingRate(t *testing.T) {
	m := NewPerpetualBasisModel()
	now := time.Now()
	snap := snapshotWithQuote("BTC-USD", 100, 101, now)

	sp, err := m.CalculateSyntheticPrice("BTC-PERP", []market.InstrumentId{"BTC-USD"}, snap)
	require.NoError(t, err)
	assert.InDelta(t, 100.5*(1+DefaultFundingRate), sp.TheoreticalPrice, 1e-9)
}

func TestPerpetualBasisUsesStoredFundingRate(t *testing.T) {
	m := NewPerpetualBasisModel()
	now := time.Now()
	snap := snapshotWithQuote("BTC-USD", 100, 101, now)
	snap.FundingRates["BTC-PERP"] = market.FundingRate{InstrumentID: "BTC-PERP", Rate: 0.001, Timestamp: now}
	m.UpdateParameters(snap)

	sp, err := m.CalculateSyntheticPrice("BTC-PERP", []market.InstrumentId{"BTC-USD"}, snap)
	require.NoError(t, err)
	assert.InDelta(t, 100.5*1.001, sp.TheoreticalPrice, 1e-9)
}

func TestPerpetualBasisRejectsMissingSpot(t *testing.T) {
	m := NewPerpetualBasisModel()
	snap := market.NewEmptySnapshot()
	snap.SnapshotTime = time.Now()
	_, err := m.CalculateSyntheticPrice("BTC-PERP", []market.InstrumentId{"BTC-USD"}, snap)
	assert.ErrorIs(t, err, ErrUnknownInstrument)
}

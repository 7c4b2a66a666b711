package pricing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/market"
)

func TestBlackScholesPriceKnownValue(t *testing.T) {
	// S=100, K=100, r=0.05, vol=0.2, tau=1 -> standard textbook ATM call ~10.45
	price, err := BlackScholesPrice(100, 100, 0.05, 0.2, 1, true)
	require.NoError(t, err)
	assert.InDelta(t, 10.4506, price, 1e-3)
}

func TestBlackScholesPutCallParity(t *testing.T) {
	call, err := BlackScholesPrice(100, 95, 0.03, 0.25, 0.5, true)
	require.NoError(t, err)
	put, err := BlackScholesPrice(100, 95, 0.03, 0.25, 0.5, false)
	require.NoError(t, err)

	lhs := call - put
	rhs := 100 - 95*math.Exp(-0.03*0.5)
	assert.InDelta(t, rhs, lhs, 1e-6)
}

func TestBlackScholesRejectsDomainErrors(t *testing.T) {
	_, err := BlackScholesPrice(100, 100, 0.05, -0.2, 1, true)
	assert.ErrorIs(t, err, ErrModelDomain)

	_, err = BlackScholesPrice(100, 100, 0.05, 0.2, 0, true)
	assert.ErrorIs(t, err, ErrModelDomain)
}

func TestImpliedVolatilityRecoversInputVol(t *testing.T) {
	const trueVol = 0.35
	price, err := BlackScholesPrice(100, 110, 0.02, trueVol, 0.75, true)
	require.NoError(t, err)

	iv, err := ImpliedVolatility(price, 100, 110, 0.02, 0.75, true)
	require.NoError(t, err)
	assert.InDelta(t, trueVol, iv, 1e-4)
}

func TestGreeksCallDeltaInUnitRange(t *testing.T) {
	g, err := BlackScholesGreeks(100, 100, 0.05, 0.2, 1, true)
	require.NoError(t, err)
	assert.True(t, g.Delta > 0 && g.Delta < 1)
	assert.True(t, g.Gamma > 0)
	assert.True(t, g.Vega > 0)
}

func optionSnapshot(underlying market.InstrumentId, spotMid float64, ts time.Time) market.MarketSnapshot {
	s := market.NewEmptySnapshot()
	s.Quotes[underlying] = market.Quote{InstrumentID: underlying, BidPrice: spotMid - 0.5, AskPrice: spotMid + 0.5, Timestamp: ts}
	s.SnapshotTime = ts
	return s
}

func TestPriceOptionMatchesBlackScholes(t *testing.T) {
	m := NewOptionsModel()
	surface := market.NewVolatilitySurface()
	require.NoError(t, surface.Set(30000, 0.25, 0.6))
	m.RegisterSurface("BTC-USD", surface)

	now := time.Now()
	snapshot := optionSnapshot("BTC-USD", 30000, now)

	synthetic, err := m.PriceOption("BTC-USD", "BTC-30000-C", 30000, 0.25, 0.02, true, snapshot)
	require.NoError(t, err)

	want, err := BlackScholesPrice(30000, 30000, 0.02, 0.6, 0.25, true)
	require.NoError(t, err)
	assert.InDelta(t, want, synthetic.TheoreticalPrice, 1e-6)
	assert.Equal(t, market.InstrumentId("BTC-30000-C"), synthetic.Target)
}

func TestCalculateSyntheticPriceUsesRegisteredContract(t *testing.T) {
	m := NewOptionsModel()
	surface := market.NewVolatilitySurface()
	require.NoError(t, surface.Set(30000, 0.25, 0.6))
	m.RegisterSurface("BTC-USD", surface)

	now := time.Now()
	m.RegisterContract("BTC-30000-C", OptionContract{
		Underlying:   "BTC-USD",
		Strike:       30000,
		Expiry:       now.Add(time.Duration(0.25 * float64(365*24) * float64(time.Hour))),
		IsCall:       true,
		RiskFreeRate: 0.02,
	})

	snapshot := optionSnapshot("BTC-USD", 30000, now)
	synthetic, err := m.CalculateSyntheticPrice("BTC-30000-C", []market.InstrumentId{"BTC-USD"}, snapshot)
	require.NoError(t, err)
	assert.Greater(t, synthetic.TheoreticalPrice, 0.0)
}

func TestCalculateSyntheticPriceRejectsUnregisteredTarget(t *testing.T) {
	m := NewOptionsModel()
	snapshot := optionSnapshot("BTC-USD", 30000, time.Now())
	_, err := m.CalculateSyntheticPrice("BTC-30000-C", []market.InstrumentId{"BTC-USD"}, snapshot)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestCalculateSyntheticPriceRejectsExpiredContract(t *testing.T) {
	m := NewOptionsModel()
	now := time.Now()
	m.RegisterContract("BTC-30000-C", OptionContract{
		Underlying: "BTC-USD",
		Strike:     30000,
		Expiry:     now.Add(-time.Hour),
		IsCall:     true,
	})
	snapshot := optionSnapshot("BTC-USD", 30000, now)
	_, err := m.CalculateSyntheticPrice("BTC-30000-C", []market.InstrumentId{"BTC-USD"}, snapshot)
	assert.ErrorIs(t, err, ErrModelDomain)
}

package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/pricing"
)

func quoteSnapshot(id market.InstrumentId, mid float64, ts time.Time) market.MarketSnapshot {
	snap := market.NewEmptySnapshot()
	snap.Quotes[id] = market.Quote{
		InstrumentID: id,
		BidPrice:     mid - 0.05,
		AskPrice:     mid + 0.05,
		Timestamp:    ts,
	}
	snap.SnapshotTime = ts
	return snap
}

func TestSizerUsesDefaultVolatilityBeforeHistory(t *testing.T) {
	sizer := NewSizer(nil, config.DefaultRiskParameters(), Assumptions{
		WinRate: 0.6, AvgWin: 2, AvgLoss: 1, TargetVolatility: 0.1, BaseSize: 10, PortfolioValue: 100_000,
	})
	snap := quoteSnapshot("BTC-PERP", 100, time.Now())

	size, err := sizer.SizeFunc("BTC-PERP", snap)
	require.NoError(t, err)
	assert.Greater(t, size, 0.0)
}

func TestSizerErrorsOnUnknownInstrument(t *testing.T) {
	sizer := NewSizer(nil, config.DefaultRiskParameters(), Assumptions{})
	_, err := sizer.SizeFunc("BTC-PERP", market.NewEmptySnapshot())
	assert.Error(t, err)
}

func TestSizerAccumulatesPriceHistoryAcrossTicks(t *testing.T) {
	sizer := NewSizer(nil, config.DefaultRiskParameters(), Assumptions{
		WinRate: 0.6, AvgWin: 2, AvgLoss: 1, TargetVolatility: 0.1, BaseSize: 10, PortfolioValue: 100_000,
	})
	base := time.Now()
	for i := 0; i < 10; i++ {
		snap := quoteSnapshot("BTC-PERP", 100+float64(i), base.Add(time.Duration(i)*time.Second))
		sizer.UpdateMarketData(snap)
	}

	sizer.mu.Lock()
	n := len(sizer.prices["BTC-PERP"])
	sizer.mu.Unlock()
	assert.Equal(t, 10, n)
}

func TestSizerReadsLeverageAndCorrelationFromPortfolio(t *testing.T) {
	portfolio := newTestPortfolio()
	portfolio.Positions = []Position{
		{InstrumentID: "BTC-PERP", Size: 10, EntryPrice: 100, MarkPrice: 100},
	}

	params := config.DefaultRiskParameters()
	params.MaxLeverage = 0.5 // force the leverage cap to bind
	sizer := NewSizer(portfolio, params, Assumptions{
		WinRate: 0.6, AvgWin: 2, AvgLoss: 1, TargetVolatility: 0.1, BaseSize: 10, PortfolioValue: 100,
	})
	snap := quoteSnapshot("BTC-PERP", 100, time.Now())

	size, err := sizer.SizeFunc("BTC-PERP", snap)
	require.NoError(t, err)
	assert.Less(t, size, 10.0)
}

func TestSizerUsesCorrelationBreakerWhenAttached(t *testing.T) {
	portfolio := newTestPortfolio()
	portfolio.Positions = []Position{
		{InstrumentID: "ETH-USD", Size: 10, EntryPrice: 50, MarkPrice: 50},
	}

	source := &fakeCorrelationSource{rho: 0.95}
	breaker := NewCorrelationBreaker("test", source, pricing.NewCorrelationCache(8))

	params := config.DefaultRiskParameters()
	params.MaxCorrelationRisk = 0.5 // force the correlation cap to bind
	sizer := NewSizer(portfolio, params, Assumptions{
		WinRate: 0.6, AvgWin: 2, AvgLoss: 1, TargetVolatility: 0.1, BaseSize: 10, PortfolioValue: 100_000,
	}).WithCorrelationBreaker(breaker)

	snap := quoteSnapshot("BTC-PERP", 100, time.Now())
	size, err := sizer.SizeFunc("BTC-PERP", snap)
	require.NoError(t, err)
	assert.Less(t, size, 10.0, "a breaker-reported high correlation should bind the correlation-risk cap")
}

package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/arbitrage"
	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/pricing"
)

func newTestPortfolio() *Portfolio {
	return NewPortfolio(pricing.NewBasketModel(pricing.NewCorrelationCache(8)), pricing.NewCorrelationCache(8))
}

func TestPortfolioGrossAndNetExposure(t *testing.T) {
	p := newTestPortfolio()
	p.Positions = []Position{
		{InstrumentID: "BTC-USD", Side: arbitrage.SideBid, Size: 2, MarkPrice: 100},
		{InstrumentID: "ETH-USD", Side: arbitrage.SideAsk, Size: 1, MarkPrice: 50},
	}
	assert.Equal(t, 250.0, p.GrossExposure())
	assert.Equal(t, 150.0, p.NetExposure())
}

func TestPortfolioVaRUsesBasketCovariance(t *testing.T) {
	p := newTestPortfolio()
	p.Positions = []Position{
		{InstrumentID: "BTC-USD", Side: arbitrage.SideBid, Size: 1, MarkPrice: 100, Volatility: 0.1},
	}
	v, err := p.VaR()
	require.NoError(t, err)
	assert.Greater(t, v, 0.0)
}

func TestPortfolioVaREmptyIsZero(t *testing.T) {
	p := newTestPortfolio()
	v, err := p.VaR()
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestPortfolioCorrelationRiskDefaultsUnknownPairs(t *testing.T) {
	p := newTestPortfolio()
	p.Positions = []Position{
		{InstrumentID: "BTC-USD"},
		{InstrumentID: "ETH-USD"},
	}
	assert.Equal(t, defaultCorrelationRisk, p.CorrelationRisk())
}

func TestPortfolioSharpeFromDailyReturns(t *testing.T) {
	p := newTestPortfolio()
	for _, r := range []float64{0.01, 0.02, -0.01, 0.015, 0.005} {
		p.RecordDailyReturn(r)
	}
	sharpe, err := p.Sharpe(0.03)
	require.NoError(t, err)
	assert.NotEqual(t, 0.0, sharpe)
}

func TestPortfolioSharpeErrorsOnEmptyReturns(t *testing.T) {
	p := newTestPortfolio()
	_, err := p.Sharpe(0.03)
	assert.ErrorIs(t, err, errEmptyReturns)
}

func TestPortfolioDrawdownTracksPeakDecline(t *testing.T) {
	p := newTestPortfolio()
	for _, r := range []float64{0.1, -0.2, 0.05} {
		p.RecordDailyReturn(r)
	}
	current, max := p.Drawdown()
	assert.Greater(t, max, 0.0)
	assert.GreaterOrEqual(t, max, current)
}

func TestPortfolioEmergencyReduceHalvesPositions(t *testing.T) {
	p := newTestPortfolio()
	p.Positions = []Position{{InstrumentID: "BTC-USD", Size: 10}}
	p.EmergencyReduce()
	assert.Equal(t, 5.0, p.Positions[0].Size)
	p.EmergencyReduce()
	assert.Equal(t, 2.5, p.Positions[0].Size)
}

func TestPortfolioBreachesLimitsOnLeverage(t *testing.T) {
	p := newTestPortfolio()
	p.Positions = []Position{{InstrumentID: "BTC-USD", Side: arbitrage.SideBid, Size: 100, MarkPrice: 100}}
	params := config.DefaultRiskParameters()
	params.MaxLeverage = 1
	assert.True(t, p.BreachesLimits(params, 1000))
}

func TestPortfolioDoesNotBreachWithinLimits(t *testing.T) {
	p := newTestPortfolio()
	p.Positions = []Position{{InstrumentID: "BTC-USD", Side: arbitrage.SideBid, Size: 1, MarkPrice: 100}}
	params := config.DefaultRiskParameters()
	assert.False(t, p.BreachesLimits(params, 1_000_000))
}

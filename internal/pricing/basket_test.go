package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/market"
)

func TestBasketSyntheticMatchesWeightedMidLaw(t *testing.T) {
	now := time.Now()
	snap := market.NewEmptySnapshot()
	snap.SnapshotTime = now
	snap.Quotes["A"] = market.Quote{InstrumentID: "A", BidPrice: 10, AskPrice: 10.1, Timestamp: now}
	snap.Quotes["B"] = market.Quote{InstrumentID: "B", BidPrice: 20, AskPrice: 20.2, Timestamp: now}
	snap.Quotes["C"] = market.Quote{InstrumentID: "C", BidPrice: 5, AskPrice: 5.05, Timestamp: now}

	cache := NewCorrelationCache(16)
	m := NewBasketModel(cache)

	components := []market.InstrumentId{"A", "B", "C"}
	weights := []float64{0.5, 0.3, 0.2}

	sp, err := m.PriceWithWeights("BASKET", components, weights, snap)
	require.NoError(t, err)

	expected := 0.5*market.Quote{BidPrice: 10, AskPrice: 10.1}.Mid() +
		0.3*market.Quote{BidPrice: 20, AskPrice: 20.2}.Mid() +
		0.2*market.Quote{BidPrice: 5, AskPrice: 5.05}.Mid()
	assert.InDelta(t, expected, sp.TheoreticalPrice, 1e-9)
}

func TestBasketEqualWeightDefault(t *testing.T) {
	m := NewBasketModel(NewCorrelationCache(4))
	weights, err := m.CalculateWeights([]market.InstrumentId{"A", "B"}, market.MarketSnapshot{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, weights)
}

func TestBasketRejectsMismatchedWeights(t *testing.T) {
	m := NewBasketModel(NewCorrelationCache(4))
	_, err := m.PriceWithWeights("X", []market.InstrumentId{"A", "B"}, []float64{1}, market.NewEmptySnapshot())
	assert.ErrorIs(t, err, ErrModelDomain)
}

func TestPortfolioVarianceUsesCacheOrDefaultCorrelation(t *testing.T) {
	cache := NewCorrelationCache(4)
	cache.Set("A", "B", 0.5)
	m := NewBasketModel(cache)

	variance, err := m.PortfolioVariance(
		[]market.InstrumentId{"A", "B"},
		[]float64{0.6, 0.4},
		[]float64{0.2, 0.3},
	)
	require.NoError(t, err)
	// Var = w1^2*s1^2 + w2^2*s2^2 + 2*w1*w2*s1*s2*rho
	expected := 0.6*0.6*0.2*0.2 + 0.4*0.4*0.3*0.3 + 2*0.6*0.4*0.2*0.3*0.5
	assert.InDelta(t, expected, variance, 1e-9)
}

func TestRealizedVolatilityRequiresAtLeastTwoPrices(t *testing.T) {
	_, err := RealizedVolatility([]float64{100})
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

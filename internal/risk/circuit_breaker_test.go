package risk

import (
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/pricing"
)

// fakeCorrelationSource is a pricing.Model stub whose CalculateCorrelation
// is scripted per-test; the other Model methods are never exercised by
// CorrelationBreaker and just satisfy the interface.
type fakeCorrelationSource struct {
	rho float64
	err error
}

func (f *fakeCorrelationSource) CalculateSyntheticPrice(market.InstrumentId, []market.InstrumentId, market.MarketSnapshot) (pricing.SyntheticPrice, error) {
	return pricing.SyntheticPrice{}, nil
}
func (f *fakeCorrelationSource) CalculateWeights([]market.InstrumentId, market.MarketSnapshot) ([]float64, error) {
	return nil, nil
}
func (f *fakeCorrelationSource) CalculateCorrelation(market.InstrumentId, market.InstrumentId, map[market.InstrumentId][]float64) (float64, error) {
	return f.rho, f.err
}
func (f *fakeCorrelationSource) UpdateParameters(market.MarketSnapshot) {}

func TestCorrelationBreakerRefreshCachesOnSuccess(t *testing.T) {
	source := &fakeCorrelationSource{rho: 0.42}
	cache := pricing.NewCorrelationCache(8)
	breaker := NewCorrelationBreaker("test", source, cache)

	rho := breaker.Refresh("BTC-USD", "BTC-PERP", nil, defaultCorrelationRisk)
	assert.Equal(t, 0.42, rho)
	assert.Equal(t, gobreaker.StateClosed, breaker.State())

	cached, ok := cache.Get("BTC-USD", "BTC-PERP")
	require.True(t, ok)
	assert.Equal(t, 0.42, cached)
}

func TestCorrelationBreakerFallsBackToCacheOnFailure(t *testing.T) {
	source := &fakeCorrelationSource{err: errors.New("insufficient history")}
	cache := pricing.NewCorrelationCache(8)
	cache.Set("BTC-USD", "BTC-PERP", 0.75)
	breaker := NewCorrelationBreaker("test", source, cache)

	rho := breaker.Refresh("BTC-USD", "BTC-PERP", nil, defaultCorrelationRisk)
	assert.Equal(t, 0.75, rho, "a failed refresh should not overwrite the cache's last known value")
}

func TestCorrelationBreakerFallsBackToDefaultWhenCacheEmpty(t *testing.T) {
	source := &fakeCorrelationSource{err: errors.New("insufficient history")}
	cache := pricing.NewCorrelationCache(8)
	breaker := NewCorrelationBreaker("test", source, cache)

	rho := breaker.Refresh("BTC-USD", "ETH-USD", nil, defaultCorrelationRisk)
	assert.Equal(t, defaultCorrelationRisk, rho)
}

func TestCorrelationBreakerOpensAfterRepeatedFailures(t *testing.T) {
	source := &fakeCorrelationSource{err: errors.New("source unavailable")}
	cache := pricing.NewCorrelationCache(8)
	breaker := NewCorrelationBreaker("test", source, cache)

	for i := 0; i < correlationMinRequests; i++ {
		breaker.Refresh("BTC-USD", "ETH-USD", nil, defaultCorrelationRisk)
	}

	assert.Equal(t, gobreaker.StateOpen, breaker.State())

	// While open, Refresh must not call the (still-failing) source at all;
	// it should degrade straight to the default with no further attempt.
	source.err = nil
	source.rho = 0.9
	rho := breaker.Refresh("BTC-USD", "ETH-USD", nil, defaultCorrelationRisk)
	assert.Equal(t, defaultCorrelationRisk, rho)
}

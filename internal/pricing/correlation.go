package pricing

import (
	"math"
	"sync"

	"github.com/archon-quant/synthalpha/internal/market"
)

// pairKey is an order-independent key for an instrument pair.
type pairKey struct {
	a, b market.InstrumentId
}

func newPairKey(x, y market.InstrumentId) pairKey {
	if x <= y {
		return pairKey{a: x, b: y}
	}
	return pairKey{a: y, b: x}
}

// CorrelationCache is a bounded, mutex-protected store of pairwise realized
// correlations keyed by instrument pair (§4.5 "from model correlation
// cache"), populated through Set (in the engine, by
// risk.CorrelationBreaker.Refresh) and read by the basket model and the
// arbitrage engine's correlation-risk estimator.
type CorrelationCache struct {
	mu       sync.RWMutex
	values   map[pairKey]float64
	capacity int
	order    []pairKey
}

// NewCorrelationCache returns a cache holding at most capacity pairs,
// evicting the oldest entry on overflow (simple FIFO, adequate for a
// bounded advisory cache rather than a hot-path LRU).
func NewCorrelationCache(capacity int) *CorrelationCache {
	return &CorrelationCache{
		values:   make(map[pairKey]float64),
		capacity: capacity,
	}
}

// Set records the correlation between two instruments.
func (c *CorrelationCache) Set(a, b market.InstrumentId, rho float64) {
	key := newPairKey(a, b)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.values[key]; !exists {
		if c.capacity > 0 && len(c.order) >= c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.values, oldest)
		}
		c.order = append(c.order, key)
	}
	c.values[key] = rho
}

// Get returns the cached correlation and whether it was present.
func (c *CorrelationCache) Get(a, b market.InstrumentId) (float64, bool) {
	if a == b {
		return 1, true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	rho, ok := c.values[newPairKey(a, b)]
	return rho, ok
}

// GetOrDefault returns the cached correlation, or def if unknown.
func (c *CorrelationCache) GetOrDefault(a, b market.InstrumentId, def float64) float64 {
	if rho, ok := c.Get(a, b); ok {
		return rho
	}
	return def
}

// PearsonCorrelation computes the sample Pearson correlation coefficient
// between two equal-length series, clamped to [-1, 1].
func PearsonCorrelation(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, errMismatchedSeries
	}
	n := len(x)
	if n < 2 {
		return 0, errInsufficientSamples
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX, meanY := sumX/float64(n), sumY/float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, nil
	}
	rho := cov / math.Sqrt(varX*varY)
	if rho > 1 {
		rho = 1
	}
	if rho < -1 {
		rho = -1
	}
	return rho, nil
}

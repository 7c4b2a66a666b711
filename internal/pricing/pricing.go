// Package pricing computes model-implied ("synthetic") prices for
// derivative, perpetual, and composite instruments from a MarketSnapshot
// (§4.2). Every model shares one contract and a common confidence-scoring
// convention.
package pricing

import (
	"time"

	"github.com/archon-quant/synthalpha/internal/market"
)

// SyntheticPrice is a model's theoretical price for a target instrument,
// together with the component instruments and weights it was built from.
type SyntheticPrice struct {
	Target            market.InstrumentId
	TheoreticalPrice  float64
	BidPrice          float64
	AskPrice          float64
	ConfidenceScore   float64
	ComponentInstruments []market.InstrumentId
	Weights           []float64
	CalculationTime   time.Time
}

// Model is the shared contract every pricing model implements (§4.2).
type Model interface {
	// CalculateSyntheticPrice prices target from components against snapshot.
	CalculateSyntheticPrice(target market.InstrumentId, components []market.InstrumentId, snapshot market.MarketSnapshot) (SyntheticPrice, error)
	// CalculateWeights returns the component weights a basket/spread model
	// would apply to instruments, given the current snapshot.
	CalculateWeights(instruments []market.InstrumentId, snapshot market.MarketSnapshot) ([]float64, error)
	// CalculateCorrelation returns the pairwise correlation in [-1, 1]
	// between two instruments, estimated from history.
	CalculateCorrelation(inst1, inst2 market.InstrumentId, history map[market.InstrumentId][]float64) (float64, error)
	// UpdateParameters refreshes model-owned state (funding tables,
	// volatility surfaces, price histories) from a new snapshot.
	UpdateParameters(snapshot market.MarketSnapshot)
}

// freshnessPenalty scores input freshness in [0,1]: 1.0 at age 0, falling
// off linearly to 0 at maxAge.
func freshnessPenalty(age, maxAge time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	if age >= maxAge {
		return 0
	}
	return 1 - float64(age)/float64(maxAge)
}

// spreadPenalty scores spread tightness in [0,1]: 1.0 at spreadRatio 0,
// falling off linearly to 0 at maxSpreadRatio.
func spreadPenalty(spreadRatio, maxSpreadRatio float64) float64 {
	if spreadRatio <= 0 {
		return 1
	}
	if spreadRatio >= maxSpreadRatio {
		return 0
	}
	return 1 - spreadRatio/maxSpreadRatio
}

// samplePenalty scores history depth in [0,1]: 1.0 once sampleSize reaches
// window, falling off linearly below it.
func samplePenalty(sampleSize, window int) float64 {
	if window <= 0 {
		return 1
	}
	if sampleSize >= window {
		return 1
	}
	if sampleSize <= 0 {
		return 0
	}
	return float64(sampleSize) / float64(window)
}

// confidence combines the three penalty curves per §4.2: confidence is the
// minimum of freshness, spread, and sample-size scores.
func confidence(freshness, spread, sample float64) float64 {
	c := freshness
	if spread < c {
		c = spread
	}
	if sample < c {
		c = sample
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

const defaultMaxAge = 500 * time.Millisecond
const defaultMaxSpreadRatio = 0.02

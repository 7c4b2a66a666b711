package risk

import "errors"

// zScoreOneDay95 is the one-day 95% confidence z-score, mirrored from
// arbitrage.metrics so portfolio-level and opportunity-level VaR agree.
const zScoreOneDay95 = 1.65

// defaultCorrelationRisk is used when the correlation cache has no observed
// correlation for a pair of instruments.
const defaultCorrelationRisk = 0.6

var (
	errEmptyReturns = errors.New("risk: return series is empty")
	errZeroStdDev   = errors.New("risk: standard deviation is zero")
)

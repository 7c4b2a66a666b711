package arbitrage

import (
	"math"

	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/pricing"
)

// zScoreOneDay95 is the 1.65 std-dev multiplier for a one-day, 95%
// parametric VaR (§4.5).
const zScoreOneDay95 = 1.65

// expectedShortfallFactor approximates ES from VaR under a normality
// assumption (§4.5).
const expectedShortfallFactor = 1.3

// defaultPortfolioVolatility is used when no basket-model volatility
// estimate is available (§4.5: "conservative default").
const defaultPortfolioVolatility = 0.05

// defaultCorrelationRisk is used when no pairwise correlation is known for
// a leg pair (§4.5).
const defaultCorrelationRisk = 0.6

// marketImpactBpPerThousand is the linear market-impact coefficient
// (§4.5: "0.1 bp per 1000 units of volume").
const marketImpactBpPerThousand = 0.1e-4

// transactionCostBpPerLeg mirrors the cross-exchange worked example's
// configured per-venue fee assumption (§6 worked example: "5 bp each").
const transactionCostBpPerLeg = 5e-4

// EstimateVaR computes VaR = 1.65 * sigma_portfolio * total_exposure. When
// basket is non-nil and volatilities/instruments are supplied, sigma comes
// from the basket covariance; otherwise the conservative 5% default is
// used.
func EstimateVaR(basket *pricing.BasketModel, instruments []market.InstrumentId, weights, volatilities []float64, totalExposure float64) float64 {
	sigma := defaultPortfolioVolatility
	if basket != nil && len(instruments) > 0 && len(instruments) == len(weights) && len(instruments) == len(volatilities) {
		variance, err := basket.PortfolioVariance(instruments, weights, volatilities)
		if err == nil && variance >= 0 {
			sigma = math.Sqrt(variance)
		}
	}
	return zScoreOneDay95 * sigma * totalExposure
}

// EstimateES approximates expected shortfall from VaR under normality.
func EstimateES(varEstimate float64) float64 {
	return expectedShortfallFactor * varEstimate
}

// EstimateCorrelationRisk returns the maximum pairwise |rho| among the
// opportunity's legs, falling back to defaultCorrelationRisk for unknown
// pairs.
func EstimateCorrelationRisk(cache *pricing.CorrelationCache, legs []Leg) float64 {
	if cache == nil || len(legs) < 2 {
		return 0
	}
	var maxRho float64
	for i := 0; i < len(legs); i++ {
		for j := i + 1; j < len(legs); j++ {
			rho := cache.GetOrDefault(legs[i].InstrumentID, legs[j].InstrumentID, defaultCorrelationRisk)
			if absFloat(rho) > maxRho {
				maxRho = absFloat(rho)
			}
		}
	}
	return maxRho
}

// EstimateMarketImpact is linear in total traded volume (§4.5).
func EstimateMarketImpact(totalVolume float64) float64 {
	return marketImpactBpPerThousand * (totalVolume / 1000)
}

// EstimateSlippage approximates the per-unit cost of crossing the book as
// the average half-spread ratio across the opportunity's legs, the standard
// first-order slippage estimate for a market order absent a full book walk
// (§3: "execution estimates... slippage"). It is expressed as a fraction of
// price, matching the units validateFeasibility compares against
// max_slippage, not a notional amount.
func EstimateSlippage(snapshot market.MarketSnapshot, legs []Leg) float64 {
	if len(legs) == 0 {
		return 0
	}
	var total float64
	var n int
	for _, l := range legs {
		q, ok := snapshot.Quote(l.InstrumentID)
		if !ok {
			continue
		}
		total += q.SpreadRatio() / 2
		n++
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

// EstimateTransactionCost sums a configured per-leg venue fee across all
// legs (§6 worked example).
func EstimateTransactionCost(legs []Leg) float64 {
	var total float64
	for _, l := range legs {
		total += l.Size * l.EntryPrice * transactionCostBpPerLeg
	}
	return total
}

func absFloat(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

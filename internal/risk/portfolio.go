package risk

import (
	"math"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/archon-quant/synthalpha/internal/arbitrage"
	"github.com/archon-quant/synthalpha/internal/config"
	"github.com/archon-quant/synthalpha/internal/market"
	"github.com/archon-quant/synthalpha/internal/pricing"
)

const tradingDaysPerYear = 252

// Position mirrors an arbitrage.Leg held in the book, carrying the
// unrealized P&L needed for portfolio-level aggregation.
type Position struct {
	InstrumentID  market.InstrumentId
	Side          arbitrage.Side
	Size          float64
	EntryPrice    float64
	MarkPrice     float64
	Volatility    float64
	UnrealizedPnL float64
}

// Exposure returns the signed notional of the position (long positive,
// short negative).
func (p Position) Exposure() float64 {
	sign := 1.0
	if p.Side == arbitrage.SideAsk {
		sign = -1.0
	}
	return sign * p.Size * p.MarkPrice
}

// Portfolio aggregates open positions and exposes the metrics named in §4.6:
// gross/net exposure, portfolio VaR via the basket covariance, Sharpe from
// rolling P&L, and correlation risk from the position correlation matrix.
type Portfolio struct {
	Positions    []Position
	basket       *pricing.BasketModel
	corr         *pricing.CorrelationCache
	returnsDaily []float64
}

// NewPortfolio constructs an empty portfolio backed by the given basket
// model and correlation cache, shared with the pricing and arbitrage layers
// so correlation assumptions stay consistent across the engine.
func NewPortfolio(basket *pricing.BasketModel, corr *pricing.CorrelationCache) *Portfolio {
	return &Portfolio{basket: basket, corr: corr}
}

// GrossExposure sums the absolute notional across all positions.
func (p *Portfolio) GrossExposure() float64 {
	total := 0.0
	for _, pos := range p.Positions {
		total += math.Abs(pos.Exposure())
	}
	return total
}

// NetExposure sums the signed notional across all positions.
func (p *Portfolio) NetExposure() float64 {
	total := 0.0
	for _, pos := range p.Positions {
		total += pos.Exposure()
	}
	return total
}

// VaR estimates portfolio-level Value at Risk from the basket covariance at
// the 95% one-day confidence level (z=1.65). Each position's Volatility is
// used as given, with no fallback: a position with zero Volatility adds no
// variance.
func (p *Portfolio) VaR() (float64, error) {
	if len(p.Positions) == 0 {
		return 0, nil
	}

	instruments := make([]market.InstrumentId, len(p.Positions))
	weights := make([]float64, len(p.Positions))
	volatilities := make([]float64, len(p.Positions))
	for i, pos := range p.Positions {
		instruments[i] = pos.InstrumentID
		weights[i] = pos.Size
		volatilities[i] = pos.Volatility
	}

	variance, err := p.basket.PortfolioVariance(instruments, weights, volatilities)
	if err != nil {
		return 0, err
	}

	return zScoreOneDay95 * math.Sqrt(variance) * p.GrossExposure(), nil
}

// CorrelationRisk reports the maximum pairwise correlation across currently
// held positions, defaulting unknown pairs to defaultCorrelationRisk.
func (p *Portfolio) CorrelationRisk() float64 {
	maxRho := 0.0
	for i := 0; i < len(p.Positions); i++ {
		for j := i + 1; j < len(p.Positions); j++ {
			rho := math.Abs(p.corr.GetOrDefault(p.Positions[i].InstrumentID, p.Positions[j].InstrumentID, defaultCorrelationRisk))
			if rho > maxRho {
				maxRho = rho
			}
		}
	}
	return maxRho
}

// RecordDailyReturn appends a realized daily portfolio return, used by
// Sharpe. Callers are expected to call this once per trading day; the
// series is otherwise unbounded for the lifetime of the process.
func (p *Portfolio) RecordDailyReturn(r float64) {
	p.returnsDaily = append(p.returnsDaily, r)
}

// Sharpe computes the annualized Sharpe ratio from the recorded daily
// return series, using Bessel's correction for sample standard deviation.
func (p *Portfolio) Sharpe(riskFreeRate float64) (float64, error) {
	returns := p.returnsDaily
	if len(returns) == 0 {
		return 0, errEmptyReturns
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		diff := r - mean
		variance += diff * diff
	}
	if len(returns) > 1 {
		variance /= float64(len(returns) - 1)
	}
	stdDev := math.Sqrt(variance)
	if stdDev == 0 {
		return 0, errZeroStdDev
	}

	annualizedReturn := mean * tradingDaysPerYear
	annualizedStdDev := stdDev * math.Sqrt(tradingDaysPerYear)

	return (annualizedReturn - riskFreeRate) / annualizedStdDev, nil
}

// Drawdown returns the current and maximum drawdown implied by the
// recorded return series, treating it as a cumulative equity curve rooted
// at 1.0.
func (p *Portfolio) Drawdown() (current, max float64) {
	if len(p.returnsDaily) == 0 {
		return 0, 0
	}

	equity := 1.0
	peak := 1.0
	for _, r := range p.returnsDaily {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > max {
				max = dd
			}
		}
	}
	if peak > 0 {
		current = (peak - equity) / peak
	}
	return current, max
}

// BreachesLimits reports whether the portfolio currently violates any of
// the configured risk limits.
func (p *Portfolio) BreachesLimits(params config.RiskParameters, portfolioValue float64) bool {
	if portfolioValue <= 0 {
		return false
	}

	varEstimate, err := p.VaR()
	if err == nil && params.MaxPortfolioVaR > 0 && varEstimate > params.MaxPortfolioVaR*portfolioValue {
		return true
	}
	if params.MaxCorrelationRisk > 0 && p.CorrelationRisk() > params.MaxCorrelationRisk {
		return true
	}
	if params.MaxLeverage > 0 && p.GrossExposure() > params.MaxLeverage*portfolioValue {
		return true
	}
	_, maxDD := p.Drawdown()
	return params.MaxDrawdownThreshold > 0 && maxDD > params.MaxDrawdownThreshold
}

// EmergencyReduce halves the size of every open position, used when
// BreachesLimits reports a limit violation. It is not idempotent: each call
// halves the book again, until positions are closed out elsewhere.
func (p *Portfolio) EmergencyReduce() {
	for i := range p.Positions {
		p.Positions[i].Size /= 2
	}
	log.Warn().Int("positions", len(p.Positions)).Msg("emergency risk reduction applied, positions halved")
}

// Sort orders positions by instrument id, primarily useful for deterministic
// test assertions and log output.
func (p *Portfolio) Sort() {
	slices.SortFunc(p.Positions, func(a, b Position) int {
		if a.InstrumentID < b.InstrumentID {
			return -1
		}
		if a.InstrumentID > b.InstrumentID {
			return 1
		}
		return 0
	})
}
